package coordination

import (
	"context"

	"brainstorm-api/internal/domain/capability"
	"brainstorm-api/internal/domain/conversation"
	"brainstorm-api/internal/domain/project"
	"brainstorm-api/internal/domain/updates"
	"brainstorm-api/internal/domain/workflow"
)

// Queue hands queued runs to the background workers.
type Queue interface {
	Enqueue(ctx context.Context, run *Run) error
}

// ProjectLocker serializes reconciliation per project.
type ProjectLocker interface {
	WithLock(ctx context.Context, projectID string, fn func(ctx context.Context) error) error
}

// NopLocker runs fn without any locking. Concurrent runs for one project race and the last save wins.
type NopLocker struct{}

// WithLock implements ProjectLocker.
func (NopLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Notifier delivers run outcomes outside the process.
type Notifier interface {
	Notify(ctx context.Context, run *Run, update updates.Update) error
}

// StepExecutor runs workflow steps.
type StepExecutor interface {
	Execute(ctx context.Context, steps []workflow.Step, message string, p *project.Project, history []conversation.Message) []capability.Result
}

var _ StepExecutor = (*workflow.Dispatcher)(nil)
