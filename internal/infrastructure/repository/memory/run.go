package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"brainstorm-api/internal/domain/coordination"
	"brainstorm-api/internal/domain/status"
)

// RunRepository is an in-memory coordination.RunRepository.
type RunRepository struct {
	mu   sync.RWMutex
	runs map[string]*coordination.Run
}

// NewRunRepository creates an empty repository.
func NewRunRepository() *RunRepository {
	return &RunRepository{runs: make(map[string]*coordination.Run)}
}

// Create stores a new run.
func (r *RunRepository) Create(ctx context.Context, run *coordination.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; ok {
		return conflict(ctx, "run", run.ID)
	}
	r.runs[run.ID] = cloneRun(run)
	return nil
}

// Get returns a copy of the run.
func (r *RunRepository) Get(ctx context.Context, id string) (*coordination.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, notFound(ctx, "run", id)
	}
	return cloneRun(run), nil
}

// Update replaces a stored run.
func (r *RunRepository) Update(ctx context.Context, run *coordination.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		return notFound(ctx, "run", run.ID)
	}
	r.runs[run.ID] = cloneRun(run)
	return nil
}

// ListStale returns in-progress runs started before the cutoff, oldest first.
func (r *RunRepository) ListStale(_ context.Context, startedBefore time.Time, limit int) ([]*coordination.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*coordination.Run
	for _, run := range r.runs {
		if run.Status != status.StatusInProgress || run.StartedAt == nil || !run.StartedAt.Before(startedBefore) {
			continue
		}
		out = append(out, cloneRun(run))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(*out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountByStatus returns the number of runs in st.
func (r *RunRepository) CountByStatus(_ context.Context, st status.Status) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, run := range r.runs {
		if run.Status == st {
			n++
		}
	}
	return n, nil
}

func cloneRun(run *coordination.Run) *coordination.Run {
	c := *run
	c.Metadata = cloneMetadata(run.Metadata)
	c.FailedSteps = append([]string(nil), run.FailedSteps...)
	if run.Error != nil {
		e := *run.Error
		c.Error = &e
	}
	return &c
}
