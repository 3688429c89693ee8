package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"brainstorm-api/internal/infrastructure/metrics"
	"brainstorm-api/internal/infrastructure/queue"
)

var errPanic = errors.New("background run panicked")

// Config contains worker pool configuration.
type Config struct {
	WorkerCount  int
	TaskTimeout  time.Duration
	PollInterval time.Duration
	StopTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.WorkerCount <= 0 {
		c.WorkerCount = 1
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = 5 * time.Minute
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = 30 * time.Second
	}
	return c
}

// Pool manages the background workers.
type Pool struct {
	workers  []*Worker
	queue    queue.TaskQueue
	executor Executor
	cfg      Config
	log      zerolog.Logger
	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewPool creates a worker pool.
func NewPool(q queue.TaskQueue, executor Executor, cfg Config, log zerolog.Logger) *Pool {
	return &Pool{
		queue:    q,
		executor: executor,
		cfg:      cfg.withDefaults(),
		log:      log.With().Str("component", "worker-pool").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start launches the workers and the queue depth sampler.
func (p *Pool) Start(ctx context.Context) {
	p.log.Info().Int("worker_count", p.cfg.WorkerCount).Dur("task_timeout", p.cfg.TaskTimeout).Msg("starting worker pool")

	p.workers = make([]*Worker, p.cfg.WorkerCount)
	for i := 0; i < p.cfg.WorkerCount; i++ {
		w := NewWorker(i+1, p.queue, p.executor, p.cfg, p.log)
		p.workers[i] = w

		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Start(ctx)
		}(w)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.sampleDepth(ctx)
	}()
}

// Stop signals every worker and waits for in-flight runs, up to the stop timeout.
func (p *Pool) Stop() {
	p.log.Info().Msg("stopping worker pool")
	close(p.stopChan)
	for _, w := range p.workers {
		w.Stop()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info().Msg("all workers stopped gracefully")
	case <-time.After(p.cfg.StopTimeout):
		p.log.Warn().Msg("worker pool shutdown timed out")
	}
}

// QueueDepth returns the number of queued runs.
func (p *Pool) QueueDepth(ctx context.Context) (int64, error) {
	return p.queue.Depth(ctx)
}

func (p *Pool) sampleDepth(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			depth, err := p.queue.Depth(ctx)
			if err != nil {
				p.log.Debug().Err(err).Msg("sample queue depth")
				continue
			}
			metrics.QueueDepth.Set(float64(depth))
		}
	}
}
