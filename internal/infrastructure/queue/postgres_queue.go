package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"brainstorm-api/internal/domain/coordination"
	"brainstorm-api/internal/domain/status"
	"brainstorm-api/internal/infrastructure/database/entities"
)

// PostgresQueue uses queued rows of workflow_runs as the queue.
type PostgresQueue struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewPostgresQueue creates a PostgreSQL-backed task queue.
func NewPostgresQueue(db *gorm.DB, log zerolog.Logger) *PostgresQueue {
	return &PostgresQueue{
		db:  db,
		log: log.With().Str("component", "postgres-queue").Logger(),
	}
}

// Enqueue is a no-op: the queued run row written by the coordination service is the queue entry.
func (q *PostgresQueue) Enqueue(_ context.Context, run *coordination.Run) error {
	if run.Status != status.StatusQueued {
		return fmt.Errorf("run %s is %s, not queued", run.ID, run.Status)
	}
	return nil
}

// Dequeue claims the oldest queued run with FOR UPDATE SKIP LOCKED so concurrent workers never
// claim the same row.
func (q *PostgresQueue) Dequeue(ctx context.Context) (*Task, error) {
	var task *Task
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entity entities.WorkflowRun
		err := tx.Raw(
			"SELECT * FROM workflow_runs WHERE status = ? ORDER BY queued_at ASC LIMIT 1 FOR UPDATE SKIP LOCKED",
			string(status.StatusQueued),
		).Scan(&entity).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if entity.ID == "" {
			return nil
		}

		now := time.Now()
		if err := tx.Model(&entities.WorkflowRun{}).
			Where("id = ?", entity.ID).
			Updates(map[string]interface{}{
				"status":     string(status.StatusInProgress),
				"started_at": now,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		task = &Task{RunID: entity.ID, ProjectID: entity.ProjectID, QueuedAt: entity.QueuedAt}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dequeue run: %w", err)
	}
	return task, nil
}

// Depth returns the number of queued runs.
func (q *PostgresQueue) Depth(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.WithContext(ctx).
		Model(&entities.WorkflowRun{}).
		Where("status = ?", string(status.StatusQueued)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	return count, nil
}
