package coordination

import (
	"context"
	"time"

	"github.com/google/uuid"

	"brainstorm-api/internal/domain/conversation"
	"brainstorm-api/internal/domain/status"
)

// RunError records why a run failed.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
}

// Failure stages.
const (
	StageLoad      = "load"
	StageReconcile = "reconcile"
	StageRecord    = "record"
	StageTimeout   = "timeout"
	StageEnqueue   = "enqueue"
)

// Run is the handle of the deferred workflow for one user message.
type Run struct {
	ID          string                 `json:"id"`
	ProjectID   string                 `json:"projectId"`
	UserID      string                 `json:"userId"`
	MessageID   string                 `json:"messageId"`
	Message     string                 `json:"message"`
	Status      status.Status          `json:"status"`
	Intent      string                 `json:"intent,omitempty"`
	Confidence  int                    `json:"confidence,omitempty"`
	FailedSteps []string               `json:"failedSteps,omitempty"`
	Accepted    int                    `json:"accepted"`
	Rejected    int                    `json:"rejected"`
	Error       *RunError              `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	QueuedAt    time.Time              `json:"queuedAt"`
	StartedAt   *time.Time             `json:"startedAt,omitempty"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
	FailedAt    *time.Time             `json:"failedAt,omitempty"`
}

// NewRun builds a queued run for a stored user message.
func NewRun(projectID, userID, messageID, message string, metadata map[string]interface{}, now time.Time) *Run {
	return &Run{
		ID:        "run_" + uuid.NewString(),
		ProjectID: projectID,
		UserID:    userID,
		MessageID: messageID,
		Message:   message,
		Status:    status.StatusQueued,
		Metadata:  metadata,
		QueuedAt:  now,
	}
}

// Start moves the run to in_progress. Starting an in_progress run is a no-op so a worker may
// resume a run a queue already claimed.
func (r *Run) Start(now time.Time) error {
	if r.Status == status.StatusInProgress {
		if r.StartedAt == nil {
			r.StartedAt = &now
		}
		return nil
	}
	next, err := r.Status.TransitionTo(status.StatusInProgress)
	if err != nil {
		return err
	}
	r.Status = next
	r.StartedAt = &now
	return nil
}

// Complete marks the run completed.
func (r *Run) Complete(now time.Time) error {
	next, err := r.Status.TransitionTo(status.StatusCompleted)
	if err != nil {
		return err
	}
	r.Status = next
	r.CompletedAt = &now
	return nil
}

// Fail marks the run failed.
func (r *Run) Fail(stage string, err error, now time.Time) error {
	next, terr := r.Status.TransitionTo(status.StatusFailed)
	if terr != nil {
		return terr
	}
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	r.Status = next
	r.FailedAt = &now
	r.Error = &RunError{Code: "run_failed", Message: msg, Stage: stage}
	return nil
}

// WebhookURL returns the per-run webhook target, if the caller supplied one.
func (r *Run) WebhookURL() string {
	if r.Metadata == nil {
		return ""
	}
	url, _ := r.Metadata[conversation.MetadataWebhookURL].(string)
	return url
}

// RunRepository persists runs.
type RunRepository interface {
	Create(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	Update(ctx context.Context, run *Run) error
}

// StaleRunLister finds runs stuck in progress.
type StaleRunLister interface {
	ListStale(ctx context.Context, startedBefore time.Time, limit int) ([]*Run, error)
}
