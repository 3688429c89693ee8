package conversation

import (
	"context"

	"gorm.io/gorm"

	domain "brainstorm-api/internal/domain/conversation"
	"brainstorm-api/internal/infrastructure/database/entities"
	"brainstorm-api/internal/utils/platformerrors"
)

// Repository persists conversation messages in PostgreSQL.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a message repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Append inserts one message.
func (r *Repository) Append(ctx context.Context, msg *domain.Message) error {
	entity, err := entities.NewSchemaMessage(msg)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
			"failed to encode message metadata", err, "2d8a5f13-c6e9-4b70-a3d1-9e4b7c0f6a85")
	}
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to append message", err, "6f1c9e47-b3a2-4d85-9c0e-a5d7f2b84e13")
	}
	return nil
}

// List returns messages in creation order. Limit selects the newest messages after skipping Offset
// from the newest end.
func (r *Repository) List(ctx context.Context, projectID string, opts domain.ListOptions) ([]domain.Message, error) {
	query := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Order("id DESC")
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	var rows []entities.Message
	if err := query.Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to list messages", err, "a0e7d4b1-58c2-4f96-b1a3-e6c9f0d27b58")
	}

	out := make([]domain.Message, len(rows))
	for idx := range rows {
		msg, err := rows[idx].EtoD()
		if err != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeInternal,
				"failed to decode message metadata", err, "f4b2c8e0-7a13-4d69-85e2-0c9d1a6b3f74")
		}
		// rows are newest first
		out[len(rows)-1-idx] = msg
	}
	return out, nil
}
