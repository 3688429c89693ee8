package intent

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"brainstorm-api/internal/domain/capability"
	"brainstorm-api/internal/domain/conversation"
	"brainstorm-api/internal/domain/pruner"
)

const (
	reviewConfidence      = 100
	affirmativeConfidence = 95
	fallbackConfidence    = 30
)

// DefaultTimeout bounds one model classification.
const DefaultTimeout = 60 * time.Second

// Classifier maps a message to an intent. Classify never fails.
type Classifier struct {
	model   capability.Capability
	timeout time.Duration
	log     zerolog.Logger
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithTimeout bounds the model call.
func WithTimeout(d time.Duration) ClassifierOption {
	return func(c *Classifier) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClassifier uses model (the intent_classification capability) when no rule applies.
func NewClassifier(model capability.Capability, log zerolog.Logger, opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		model:   model,
		timeout: DefaultTimeout,
		log:     log.With().Str("component", "intent-classifier").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ShortCircuit applies the rules that never need the model. recentHistory must end with the message
// preceding this one.
func ShortCircuit(message string, recentHistory []conversation.Message) (Classification, bool) {
	if IsReviewCommand(message) {
		return Classification{
			Type:       Reviewing,
			Confidence: reviewConfidence,
			Reasoning:  "review command",
			Source:     SourceCommand,
		}, true
	}
	if FollowsAssistant(recentHistory) && IsAffirmative(message) {
		return Classification{
			Type:       Deciding,
			Confidence: affirmativeConfidence,
			Reasoning:  "affirmative reply to the assistant",
			Source:     SourceAffirmative,
		}, true
	}
	return Classification{}, false
}

// Classify runs the short-circuit rules, then the model. Model errors and unusable output degrade
// to a low-confidence general classification.
func (c *Classifier) Classify(ctx context.Context, message string, recentHistory []conversation.Message) Classification {
	if cls, ok := ShortCircuit(message, recentHistory); ok {
		return cls
	}

	if c.model == nil {
		return Fallback("no classifier configured")
	}

	res, err := c.invoke(ctx, capability.Input{
		Message: message,
		History: pruner.Prune(capability.IntentClassification, recentHistory, nil),
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("intent classification failed, using fallback")
		return Fallback("classification unavailable")
	}
	if res.Degraded || res.Failed() {
		c.log.Warn().Str("message", res.Message).Msg("intent classification output unusable, using fallback")
		return Fallback("classification unavailable")
	}

	payload, ok := res.Classification()
	if !ok {
		return Fallback("classification unavailable")
	}
	t, known := ParseType(payload.Type)
	if !known {
		c.log.Warn().Str("type", payload.Type).Msg("unknown intent label, using fallback")
		return Fallback("unknown intent " + payload.Type)
	}
	return Classification{
		Type:       t,
		Confidence: payload.Confidence,
		Reasoning:  payload.Reasoning,
		Source:     SourceModel,
	}
}

type invocation struct {
	res capability.Result
	err error
}

// invoke calls the model under the timeout and turns a panic into an error. A model that ignores
// its context is abandoned when the timeout fires.
func (c *Classifier) invoke(ctx context.Context, in capability.Input) (capability.Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan invocation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- invocation{err: fmt.Errorf("classifier panicked: %v", r)}
			}
		}()
		res, err := c.model.Invoke(callCtx, in)
		done <- invocation{res: res, err: err}
	}()

	select {
	case out := <-done:
		return out.res, out.err
	case <-callCtx.Done():
		return capability.Result{}, callCtx.Err()
	}
}

// Fallback is the classification used when the model cannot be trusted.
func Fallback(reason string) Classification {
	return Classification{
		Type:       General,
		Confidence: fallbackConfidence,
		Reasoning:  reason,
		Source:     SourceFallback,
	}
}
