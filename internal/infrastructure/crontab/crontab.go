package crontab

import (
	"context"
	"time"

	"github.com/mileusna/crontab"
	"github.com/rs/zerolog"

	"brainstorm-api/internal/infrastructure/metrics"
	"brainstorm-api/internal/utils/platformerrors"
)

const (
	// ReapSchedule runs the stale-run sweep every minute.
	ReapSchedule = "* * * * *"
	// CronJobTimeout bounds each job execution.
	CronJobTimeout = time.Minute
)

// Sweeper fails stale runs.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Crontab schedules periodic maintenance jobs.
type Crontab struct {
	ctab    *crontab.Crontab
	sweeper Sweeper
	log     zerolog.Logger
}

// NewCrontab builds the scheduler.
func NewCrontab(sweeper Sweeper, log zerolog.Logger) *Crontab {
	return &Crontab{
		ctab:    crontab.New(),
		sweeper: sweeper,
		log:     log.With().Str("component", "crontab").Logger(),
	}
}

// Run sweeps once, schedules the recurring sweep and blocks until ctx is done.
func (c *Crontab) Run(ctx context.Context) error {
	c.reap(ctx)

	if err := c.ctab.AddJob(ReapSchedule, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), CronJobTimeout)
		defer cancel()
		c.reap(jobCtx)
	}); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to add stale run job")
	}
	c.log.Info().Str("schedule", ReapSchedule).Msg("stale run reaper scheduled")

	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

func (c *Crontab) reap(ctx context.Context) {
	n, err := c.sweeper.Sweep(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("stale run sweep failed")
		return
	}
	if n > 0 {
		metrics.ReapedRunsTotal.Add(float64(n))
		c.log.Warn().Int("reaped", n).Msg("failed stale runs")
	}
}
