package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"brainstorm-api/internal/domain/cache"
	"brainstorm-api/internal/domain/capability"
	"brainstorm-api/internal/domain/conversation"
	domainerrors "brainstorm-api/internal/domain/errors"
	"brainstorm-api/internal/domain/project"
	"brainstorm-api/internal/domain/pruner"
	"brainstorm-api/internal/domain/status"
)

const tracerName = "brainstorm-api/workflow"

// DefaultCapabilityTimeout bounds a single capability invocation.
const DefaultCapabilityTimeout = 60 * time.Second

// Step outcomes reported to the Recorder.
const (
	OutcomeSuccess = "success"
	OutcomeCached  = "cached"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// ResultCache is the cache the dispatcher consults before invoking a capability.
type ResultCache interface {
	Get(ctx context.Context, key string) (capability.Result, bool)
	Set(ctx context.Context, key string, value capability.Result, ttl time.Duration)
	DefaultTTL() time.Duration
}

// Recorder receives per-step metrics.
type Recorder interface {
	StepFinished(capability string, outcome string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) StepFinished(string, string, time.Duration) {}

// Dispatcher executes workflow steps. Execute never panics and never returns an error; failures
// are error-tagged results.
type Dispatcher struct {
	registry capability.Registry
	cache    ResultCache
	timeout  time.Duration
	recorder Recorder
	tracer   trace.Tracer
	log      zerolog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTimeout sets the per-capability timeout.
func WithTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.timeout = d
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) DispatcherOption {
	return func(disp *Dispatcher) {
		if r != nil {
			disp.recorder = r
		}
	}
}

// NewDispatcher creates a dispatcher. rc may be nil to disable caching.
func NewDispatcher(registry capability.Registry, rc ResultCache, log zerolog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		cache:    rc,
		timeout:  DefaultCapabilityTimeout,
		recorder: nopRecorder{},
		tracer:   otel.Tracer(tracerName),
		log:      log.With().Str("component", "workflow-dispatcher").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute runs steps in batches and returns one result per executed step, in declared order.
// Skipped steps contribute nothing.
func (d *Dispatcher) Execute(ctx context.Context, steps []Step, message string, p *project.Project, history []conversation.Message) []capability.Result {
	ctx, span := d.tracer.Start(ctx, "workflow.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("workflow.steps", len(steps))),
	)
	defer span.End()

	results := make([]capability.Result, 0, len(steps))
	prior := make(map[capability.Name]capability.Result, len(steps))

	for i, batch := range Batches(steps) {
		var runnable []Step
		for _, s := range batch {
			if !Satisfied(s.Precondition, prior) {
				d.log.Debug().
					Str("capability", string(s.Capability)).
					Str("precondition_step", string(s.Precondition.Step)).
					Str("condition", string(s.Precondition.Condition)).
					Msg("precondition not met, skipping step")
				d.recorder.StepFinished(string(s.Capability), OutcomeSkipped, 0)
				continue
			}
			runnable = append(runnable, s)
		}
		if len(runnable) == 0 {
			continue
		}

		snapshot := make(map[capability.Name]capability.Result, len(prior))
		for k, v := range prior {
			snapshot[k] = v
		}

		batchResults := make([]capability.Result, len(runnable))
		var wg sync.WaitGroup
		for j, s := range runnable {
			wg.Add(1)
			go func(j int, s Step) {
				defer wg.Done()
				batchResults[j] = d.runStep(ctx, s, message, p, history, snapshot)
			}(j, s)
		}
		wg.Wait()

		span.AddEvent("batch.completed", trace.WithAttributes(
			attribute.Int("batch.index", i),
			attribute.Int("batch.size", len(runnable)),
		))

		for _, res := range batchResults {
			results = append(results, res)
			prior[res.Capability] = res
		}
	}
	return results
}

func (d *Dispatcher) runStep(ctx context.Context, s Step, message string, p *project.Project, history []conversation.Message, prior map[capability.Name]capability.Result) (res capability.Result) {
	name := s.Capability
	start := time.Now()

	ctx, span := d.tracer.Start(ctx, "workflow.step."+string(name),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("step.capability", string(name)),
			attribute.String("step.parallel_group", s.ParallelGroup),
		),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			se := domainerrors.NewStepError(domainerrors.ErrCodePanic, fmt.Sprintf("capability panicked: %v", r), status.ErrorSeveritySkippable).
				WithCapability(string(name))
			res = capability.ErrorResult(name, se)
		}

		res.Capability = name
		res.Duration = time.Since(start)
		outcome := OutcomeSuccess
		switch {
		case res.Failed():
			outcome = OutcomeError
			span.RecordError(res.Error)
			span.SetStatus(codes.Error, res.Error.Error())
			span.SetAttributes(attribute.String("error.severity", string(res.Error.Severity)))
			d.log.Error().
				Str("capability", string(name)).
				Str("code", res.Error.Code).
				Err(res.Error).
				Dur("duration", res.Duration).
				Msg("capability failed")
		case res.FromCache:
			outcome = OutcomeCached
		}
		span.SetAttributes(attribute.Bool("cache.hit", res.FromCache))
		d.recorder.StepFinished(string(name), outcome, res.Duration)
		if outcome != OutcomeError {
			d.log.Info().
				Str("capability", string(name)).
				Bool("from_cache", res.FromCache).
				Bool("degraded", res.Degraded).
				Dur("duration", res.Duration).
				Msg("capability finished")
		}
	}()

	c, ok := d.registry.Get(name)
	if !ok {
		se := domainerrors.NewStepError(domainerrors.ErrCodeUnknownCapability, "capability not registered", status.ErrorSeveritySkippable).
			WithCapability(string(name))
		return capability.ErrorResult(name, se)
	}

	pruned := pruner.Prune(name, history, p)

	key, cacheable := cache.KeyFor(name, message, p, pruned)
	cacheable = cacheable && d.cache != nil
	if cacheable {
		if cached, hit := d.cache.Get(ctx, key); hit {
			return cached
		}
	}

	out, err := d.invoke(ctx, c, capability.Input{
		Message: message,
		History: pruned,
		Project: p,
		Prior:   prior,
	})
	if err != nil {
		return capability.ErrorResult(name, domainerrors.FromCapabilityError(string(name), err))
	}

	out.Capability = name
	if cacheable && !out.Degraded {
		d.cache.Set(ctx, key, out, d.cache.DefaultTTL())
	}
	return out
}

type invocation struct {
	res capability.Result
	err error
}

// invoke calls c under the capability timeout. A capability that ignores its context is abandoned
// when the timeout fires.
func (d *Dispatcher) invoke(ctx context.Context, c capability.Capability, in capability.Input) (capability.Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan invocation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				se := domainerrors.NewStepError(domainerrors.ErrCodePanic, fmt.Sprintf("capability panicked: %v", r), status.ErrorSeveritySkippable)
				done <- invocation{err: se}
			}
		}()
		res, err := c.Invoke(callCtx, in)
		done <- invocation{res: res, err: err}
	}()

	select {
	case out := <-done:
		return out.res, out.err
	case <-callCtx.Done():
		return capability.Result{}, callCtx.Err()
	}
}
