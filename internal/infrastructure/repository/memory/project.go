package memory

import (
	"context"
	"sync"
	"time"

	"brainstorm-api/internal/domain/project"
)

// ProjectRepository is an in-memory project.Repository.
type ProjectRepository struct {
	mu       sync.RWMutex
	projects map[string]*project.Project
	now      func() time.Time
}

// NewProjectRepository creates an empty repository.
func NewProjectRepository() *ProjectRepository {
	return &ProjectRepository{projects: make(map[string]*project.Project), now: time.Now}
}

// Create stores a new project.
func (r *ProjectRepository) Create(ctx context.Context, p *project.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[p.ID]; ok {
		return conflict(ctx, "project", p.ID)
	}
	r.projects[p.ID] = p.Clone()
	return nil
}

// Get returns a copy of the project.
func (r *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, notFound(ctx, "project", id)
	}
	return p.Clone(), nil
}

// SaveItems replaces the project's items.
func (r *ProjectRepository) SaveItems(ctx context.Context, id string, items []project.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return notFound(ctx, "project", id)
	}
	copied := make([]project.Item, len(items))
	for idx, item := range items {
		copied[idx] = item.Clone()
	}
	p.Items = copied
	p.UpdatedAt = r.now()
	return nil
}
