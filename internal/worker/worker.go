package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"brainstorm-api/internal/infrastructure/metrics"
	"brainstorm-api/internal/infrastructure/queue"
)

// Executor runs the deferred workflow of a run.
type Executor interface {
	ExecuteBackground(ctx context.Context, runID string) error
}

// Worker claims queued runs and executes them one at a time.
type Worker struct {
	id           int
	queue        queue.TaskQueue
	executor     Executor
	taskTimeout  time.Duration
	pollInterval time.Duration
	log          zerolog.Logger
	stopChan     chan struct{}
}

// NewWorker creates a background worker.
func NewWorker(id int, q queue.TaskQueue, executor Executor, cfg Config, log zerolog.Logger) *Worker {
	return &Worker{
		id:           id,
		queue:        q,
		executor:     executor,
		taskTimeout:  cfg.TaskTimeout,
		pollInterval: cfg.PollInterval,
		log:          log.With().Int("worker_id", id).Str("component", "worker").Logger(),
		stopChan:     make(chan struct{}),
	}
}

// Start polls the queue until ctx is done or Stop is called. Each tick drains the queue.
func (w *Worker) Start(ctx context.Context) {
	w.log.Debug().Msg("worker started")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug().Msg("worker stopped by context")
			return
		case <-w.stopChan:
			w.log.Debug().Msg("worker stopped")
			return
		case <-ticker.C:
			for w.processNext(ctx) {
				select {
				case <-ctx.Done():
					return
				case <-w.stopChan:
					return
				default:
				}
			}
		}
	}
}

// Stop signals the worker to exit after its current run.
func (w *Worker) Stop() {
	close(w.stopChan)
}

// processNext runs one task and reports whether one was found.
func (w *Worker) processNext(ctx context.Context) bool {
	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to dequeue run")
		return false
	}
	if task == nil {
		return false
	}

	log := w.log.With().Str("run_id", task.RunID).Str("project_id", task.ProjectID).Logger()
	log.Info().Dur("queued_for", time.Since(task.QueuedAt)).Msg("processing run")

	taskCtx, cancel := context.WithTimeout(ctx, w.taskTimeout)
	defer cancel()

	start := time.Now()
	if err := w.execute(taskCtx, task.RunID); err != nil {
		metrics.RecordBackgroundRun("failed", time.Since(start))
		log.Error().Err(err).Msg("run failed")
		return true
	}
	metrics.RecordBackgroundRun("completed", time.Since(start))
	log.Info().Dur("duration", time.Since(start)).Msg("run finished")
	return true
}

func (w *Worker) execute(ctx context.Context, runID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Interface("panic", r).Str("run_id", runID).Msg("run panicked")
			err = errPanic
		}
	}()
	return w.executor.ExecuteBackground(ctx, runID)
}
