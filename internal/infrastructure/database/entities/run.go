package entities

import (
	"time"

	"gorm.io/datatypes"

	"brainstorm-api/internal/domain/coordination"
	"brainstorm-api/internal/domain/status"
)

// WorkflowRun is the persisted run row; queued rows double as the work queue.
type WorkflowRun struct {
	ID          string         `gorm:"primaryKey;size:64"`
	ProjectID   string         `gorm:"size:128;index"`
	UserID      string         `gorm:"size:128"`
	MessageID   string         `gorm:"size:32"`
	Message     string         `gorm:"type:text"`
	Status      string         `gorm:"size:32"`
	Intent      *string        `gorm:"size:32"`
	Confidence  int
	FailedSteps datatypes.JSON `gorm:"type:jsonb"`
	Accepted    int
	Rejected    int
	Error       datatypes.JSON `gorm:"type:jsonb"`
	Metadata    datatypes.JSON `gorm:"type:jsonb"`
	QueuedAt    time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	FailedAt    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName pins the table name.
func (WorkflowRun) TableName() string { return "workflow_runs" }

// NewSchemaRun converts a domain run to its row.
func NewSchemaRun(r *coordination.Run) (*WorkflowRun, error) {
	failedSteps, err := marshalJSON(nilIfEmpty(r.FailedSteps))
	if err != nil {
		return nil, err
	}
	var runErr datatypes.JSON
	if r.Error != nil {
		if runErr, err = marshalJSON(r.Error); err != nil {
			return nil, err
		}
	}
	metadata, err := marshalJSON(r.Metadata)
	if err != nil {
		return nil, err
	}
	return &WorkflowRun{
		ID:          r.ID,
		ProjectID:   r.ProjectID,
		UserID:      r.UserID,
		MessageID:   r.MessageID,
		Message:     r.Message,
		Status:      string(r.Status),
		Intent:      optionalString(r.Intent),
		Confidence:  r.Confidence,
		FailedSteps: failedSteps,
		Accepted:    r.Accepted,
		Rejected:    r.Rejected,
		Error:       runErr,
		Metadata:    metadata,
		QueuedAt:    r.QueuedAt,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		FailedAt:    r.FailedAt,
	}, nil
}

// EtoD converts the row to a domain run.
func (e *WorkflowRun) EtoD() (*coordination.Run, error) {
	r := &coordination.Run{
		ID:          e.ID,
		ProjectID:   e.ProjectID,
		UserID:      e.UserID,
		MessageID:   e.MessageID,
		Message:     e.Message,
		Status:      status.Status(e.Status),
		Intent:      derefString(e.Intent),
		Confidence:  e.Confidence,
		Accepted:    e.Accepted,
		Rejected:    e.Rejected,
		QueuedAt:    e.QueuedAt,
		StartedAt:   e.StartedAt,
		CompletedAt: e.CompletedAt,
		FailedAt:    e.FailedAt,
	}
	if err := unmarshalJSON(e.FailedSteps, &r.FailedSteps); err != nil {
		return nil, err
	}
	if len(e.Error) > 0 && string(e.Error) != "null" {
		r.Error = &coordination.RunError{}
		if err := unmarshalJSON(e.Error, r.Error); err != nil {
			return nil, err
		}
	}
	if err := unmarshalJSON(e.Metadata, &r.Metadata); err != nil {
		return nil, err
	}
	return r, nil
}

func nilIfEmpty(s []string) interface{} {
	if len(s) == 0 {
		return nil
	}
	return s
}
