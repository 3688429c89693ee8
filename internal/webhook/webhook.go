// Package webhook posts background run outcomes to caller-supplied URLs.
package webhook

import (
	"brainstorm-api/internal/domain/coordination"
	"brainstorm-api/internal/domain/updates"
)

// ErrorDetails contains machine readable error info.
type ErrorDetails struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
}

// Payload is the structure sent to webhook URLs.
type Payload struct {
	ID          string                 `json:"id"`
	ProjectID   string                 `json:"project_id"`
	Event       updates.Event          `json:"event"`
	Status      string                 `json:"status"`
	Intent      string                 `json:"intent,omitempty"`
	Update      *updates.Update        `json:"update,omitempty"`
	Error       *ErrorDetails          `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CompletedAt *string                `json:"completed_at,omitempty"`
}

var _ coordination.Notifier = (*HTTPService)(nil)
