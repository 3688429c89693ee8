package queue

import (
	"context"
	"sync"

	"brainstorm-api/internal/domain/coordination"
)

// MemoryQueue is a FIFO queue for the memory storage backend. Claiming leaves the run status to
// ExecuteBackground.
type MemoryQueue struct {
	mu    sync.Mutex
	tasks []*Task
}

// NewMemoryQueue creates an empty queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

// Enqueue appends the run.
func (q *MemoryQueue) Enqueue(_ context.Context, run *coordination.Run) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, &Task{RunID: run.ID, ProjectID: run.ProjectID, QueuedAt: run.QueuedAt})
	return nil
}

// Dequeue pops the oldest task.
func (q *MemoryQueue) Dequeue(_ context.Context) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, nil
	}
	task := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return task, nil
}

// Depth returns the number of waiting tasks.
func (q *MemoryQueue) Depth(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.tasks)), nil
}
