package project

import "context"

// Repository persists projects. SaveItems replaces the whole items array in one write; concurrent
// writers for the same project race and the last write wins.
type Repository interface {
	Create(ctx context.Context, p *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	SaveItems(ctx context.Context, id string, items []Item) error
}
