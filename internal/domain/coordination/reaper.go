package coordination

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"brainstorm-api/internal/domain/updates"
)

// ErrRunStale is recorded on runs the reaper fails.
var ErrRunStale = errors.New("run exceeded the background task timeout")

const defaultReapBatch = 100

// Reaper fails runs that stayed in progress longer than the task timeout, typically because the
// worker processing them died.
type Reaper struct {
	runs      RunRepository
	stale     StaleRunLister
	publisher updates.Publisher
	maxAge    time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewReaper builds a reaper for runs older than maxAge.
func NewReaper(runs RunRepository, stale StaleRunLister, publisher updates.Publisher, maxAge time.Duration, log zerolog.Logger) *Reaper {
	return &Reaper{
		runs:      runs,
		stale:     stale,
		publisher: publisher,
		maxAge:    maxAge,
		now:       time.Now,
		log:       log.With().Str("component", "run-reaper").Logger(),
	}
}

// SetClock overrides the time source.
func (r *Reaper) SetClock(now func() time.Time) { r.now = now }

// Sweep fails every stale run and returns how many were reaped.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.maxAge)
	runs, err := r.stale.ListStale(ctx, cutoff, defaultReapBatch)
	if err != nil {
		return 0, fmt.Errorf("list stale runs: %w", err)
	}

	reaped := 0
	for _, run := range runs {
		if err := run.Fail(StageTimeout, ErrRunStale, r.now()); err != nil {
			continue
		}
		if err := r.runs.Update(ctx, run); err != nil {
			r.log.Error().Err(err).Str("run_id", run.ID).Msg("persist reaped run")
			continue
		}
		reaped++
		r.log.Warn().
			Str("run_id", run.ID).
			Str("project_id", run.ProjectID).
			Str("intent", run.Intent).
			Msg("stale run failed")
		if r.publisher != nil {
			r.publisher.Publish(ctx, updates.Update{
				ProjectID: run.ProjectID,
				RunID:     run.ID,
				Event:     updates.EventRunFailed,
				Intent:    run.Intent,
				Error:     ErrRunStale.Error(),
				CreatedAt: r.now(),
			})
		}
	}
	return reaped, nil
}
