package project

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	domain "brainstorm-api/internal/domain/project"
	"brainstorm-api/internal/infrastructure/database/entities"
	"brainstorm-api/internal/utils/platformerrors"
)

// Repository persists projects in PostgreSQL.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a project repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the project row.
func (r *Repository) Create(ctx context.Context, p *domain.Project) error {
	entity, err := entities.NewSchemaProject(p)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to encode project items", err, "8c1e4f27-93a0-4b6d-a2f5-0d7e6c3b9a14")
	}

	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict,
				fmt.Sprintf("project already exists: %s", p.ID), err, "1f5b9d3c-27e4-4a8f-b6c0-e2d4a7f18b35")
		}
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to create project", err, "4a7d2e90-5c1b-4f3e-8d6a-b9e0c2f57a61")
	}

	p.CreatedAt = entity.CreatedAt
	p.UpdatedAt = entity.UpdatedAt
	return nil
}

// Get fetches a project with its items.
func (r *Repository) Get(ctx context.Context, id string) (*domain.Project, error) {
	var entity entities.Project
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				fmt.Sprintf("project not found: %s", id), nil, "b3e8f150-6d2a-4c97-a1e4-5f0b8d3c6e27")
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to fetch project", err, "d62c0a4e-8f17-4b5d-93e2-a7c1f4b0e958")
	}

	p, err := entity.EtoD()
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to decode project items", err, "e0a5b7c3-1d94-4f62-b8e7-3c2f9a6d0b41")
	}
	return p, nil
}

// SaveItems overwrites the items document in one UPDATE. Concurrent writers race; the last one wins.
func (r *Repository) SaveItems(ctx context.Context, id string, items []domain.Item) error {
	doc, err := entities.MarshalItems(items)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to encode project items", err, "5b2f8e61-a4c3-4d07-9e1b-7f6a0c3d8e92")
	}

	result := r.db.WithContext(ctx).
		Model(&entities.Project{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"items":      doc,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to save project items", result.Error, "7e4c1a9b-2f85-4e36-b0d7-c8a3e5f1b264")
	}
	if result.RowsAffected == 0 {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
			fmt.Sprintf("project not found: %s", id), nil, "c9f3d6b2-0e71-4a58-8b4c-1d7e2a9f5c30")
	}
	return nil
}
