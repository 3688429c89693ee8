package responses

import (
	"time"

	"brainstorm-api/internal/domain/conversation"
	"brainstorm-api/internal/domain/coordination"
	"brainstorm-api/internal/domain/project"
	"brainstorm-api/internal/domain/updates"
)

// ConversationResponse is returned by POST /conversation.
type ConversationResponse struct {
	ImmediateReply      string `json:"immediateReply"`
	WorkflowIntentLabel string `json:"workflowIntentLabel,omitempty"`
	RunID               string `json:"runId"`
	ProjectID           string `json:"projectId"`
}

// FromReply maps the phase-1 reply.
func FromReply(r *coordination.Reply) ConversationResponse {
	return ConversationResponse{
		ImmediateReply:      r.ImmediateReply,
		WorkflowIntentLabel: string(r.WorkflowIntentLabel),
		RunID:               r.RunID,
		ProjectID:           r.ProjectID,
	}
}

// ProjectResponse represents a project in API responses.
type ProjectResponse struct {
	ID        string         `json:"id"`
	Object    string         `json:"object"`
	UserID    string         `json:"userId"`
	Items     []project.Item `json:"items"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// FromProject maps a project.
func FromProject(p *project.Project) ProjectResponse {
	items := p.Items
	if items == nil {
		items = []project.Item{}
	}
	return ProjectResponse{
		ID:        p.ID,
		Object:    "project",
		UserID:    p.UserID,
		Items:     items,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// MessageListResponse wraps a page of conversation messages.
type MessageListResponse struct {
	Object string                 `json:"object"`
	Data   []conversation.Message `json:"data"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

// RunResponse represents a workflow run.
type RunResponse struct {
	Object string `json:"object"`
	*coordination.Run
}

// FromRun maps a run.
func FromRun(r *coordination.Run) RunResponse {
	return RunResponse{Object: "workflow.run", Run: r}
}

// UpdateListResponse wraps drained updates.
type UpdateListResponse struct {
	Object string           `json:"object"`
	Data   []updates.Update `json:"data"`
}
