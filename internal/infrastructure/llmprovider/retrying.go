package llmprovider

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"brainstorm-api/internal/domain/llm"
	"brainstorm-api/internal/domain/retry"
)

const tracerName = "brainstorm-api/llmprovider"

// Retrying wraps a provider with a retry policy and a span per completion.
type Retrying struct {
	next   llm.Provider
	name   string
	policy retry.Policy
	log    zerolog.Logger
}

// NewRetrying wraps next.
func NewRetrying(next llm.Provider, name string, policy retry.Policy, log zerolog.Logger) *Retrying {
	return &Retrying{
		next:   next,
		name:   name,
		policy: policy,
		log:    log.With().Str("component", "llm-provider").Str("provider", name).Logger(),
	}
}

// Complete calls the wrapped provider, retrying transient failures.
func (r *Retrying) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "llm.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", r.name),
		attribute.String("llm.template_id", req.TemplateID),
		attribute.Int("llm.prompt_tokens_estimate", estimatePromptTokens(req)),
	)

	start := time.Now()
	out, err := retry.DoWithResult(ctx, r.policy, func(ctx context.Context, attempt int) (string, error) {
		if attempt > 0 {
			r.log.Debug().Int("attempt", attempt).Str("template_id", req.TemplateID).Msg("retrying completion")
		}
		return r.next.Complete(ctx, req)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.log.Warn().Err(err).Str("template_id", req.TemplateID).Dur("duration", time.Since(start)).Msg("completion failed")
		return "", err
	}

	r.log.Debug().Str("template_id", req.TemplateID).Dur("duration", time.Since(start)).Msg("completion finished")
	return out, nil
}

func estimatePromptTokens(req llm.CompletionRequest) int {
	total := llm.EstimateTokenCount(req.System)
	for _, m := range req.Messages {
		total += llm.EstimateMessageTokens(m.Content)
	}
	return total
}

var _ llm.Provider = (*Retrying)(nil)
