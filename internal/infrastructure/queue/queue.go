package queue

import (
	"context"
	"time"

	"brainstorm-api/internal/domain/coordination"
)

// Task is a claimed run waiting for a worker.
type Task struct {
	RunID     string
	ProjectID string
	QueuedAt  time.Time
}

// TaskQueue hands queued runs to workers. Dequeue claims a run by moving it to in_progress and
// returns nil when nothing is queued.
type TaskQueue interface {
	coordination.Queue
	Dequeue(ctx context.Context) (*Task, error)
	Depth(ctx context.Context) (int64, error)
}
