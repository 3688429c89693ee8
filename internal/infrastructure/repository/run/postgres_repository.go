package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"brainstorm-api/internal/domain/coordination"
	"brainstorm-api/internal/domain/status"
	"brainstorm-api/internal/infrastructure/database/entities"
	"brainstorm-api/internal/utils/platformerrors"
)

// Repository persists workflow runs in PostgreSQL.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a run repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a run row.
func (r *Repository) Create(ctx context.Context, run *coordination.Run) error {
	entity, err := entities.NewSchemaRun(run)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to encode run", err, "3c6e9a02-d4b7-4f18-a5e3-8b1f0c7d2e96")
	}
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to create run", err, "9b4f1d73-e2a6-4c05-b8d9-6a3e0f5c1b27")
	}
	return nil
}

// Get fetches a run by id.
func (r *Repository) Get(ctx context.Context, id string) (*coordination.Run, error) {
	var entity entities.WorkflowRun
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				fmt.Sprintf("run not found: %s", id), nil, "e5a1c7f3-0b92-4d6e-a4c8-2f7d9b3e0a51")
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to fetch run", err, "17d3b9e5-4c20-4a8f-9e61-b0c5d8f2a7e3")
	}
	return decode(ctx, &entity)
}

// Update writes every mutable column of the run.
func (r *Repository) Update(ctx context.Context, run *coordination.Run) error {
	entity, err := entities.NewSchemaRun(run)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to encode run", err, "58e0a2c6-f3d1-4b97-8a5e-c1b4d7f09e36")
	}

	result := r.db.WithContext(ctx).
		Model(&entities.WorkflowRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"status":       entity.Status,
			"intent":       entity.Intent,
			"confidence":   entity.Confidence,
			"failed_steps": entity.FailedSteps,
			"accepted":     entity.Accepted,
			"rejected":     entity.Rejected,
			"error":        entity.Error,
			"started_at":   entity.StartedAt,
			"completed_at": entity.CompletedAt,
			"failed_at":    entity.FailedAt,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to update run", result.Error, "a2f7c4e8-61b3-4d09-b5a2-e8d0c3f6b194")
	}
	if result.RowsAffected == 0 {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
			fmt.Sprintf("run not found: %s", run.ID), nil, "c4d9e1a6-3f72-4b85-a0e6-9b2c5f8d1a07")
	}
	return nil
}

// ListStale returns in-progress runs started before the cutoff, oldest first.
func (r *Repository) ListStale(ctx context.Context, startedBefore time.Time, limit int) ([]*coordination.Run, error) {
	var rows []entities.WorkflowRun
	query := r.db.WithContext(ctx).
		Where("status = ? AND started_at < ?", string(status.StatusInProgress), startedBefore).
		Order("started_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to list stale runs", err, "0e6b3d8f-a5c1-4e72-9d4b-f7a2c0e5b839")
	}

	out := make([]*coordination.Run, 0, len(rows))
	for idx := range rows {
		run, err := decode(ctx, &rows[idx])
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

// CountByStatus returns the number of runs in st.
func (r *Repository) CountByStatus(ctx context.Context, st status.Status) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.WorkflowRun{}).Where("status = ?", string(st)).Count(&count).Error; err != nil {
		return 0, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to count runs", err, "6a0d4f92-b8e3-4c17-a6f5-d3e9b1c7a024")
	}
	return count, nil
}

func decode(ctx context.Context, entity *entities.WorkflowRun) (*coordination.Run, error) {
	run, err := entity.EtoD()
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to decode run", err, "b7e2a5c9-0d34-4f81-92c6-e4a8f1d3b056")
	}
	return run, nil
}
