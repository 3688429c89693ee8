// Package errors defines the error recorded on a failed workflow step.
package errors

import (
	"context"
	"errors"
	"fmt"

	"brainstorm-api/internal/domain/status"
)

// StepError represents an error that occurred while running one capability of a workflow.
type StepError struct {
	Code       string               `json:"code"`
	Message    string               `json:"message"`
	Severity   status.ErrorSeverity `json:"severity"`
	Capability string               `json:"capability,omitempty"`
	RunID      string               `json:"run_id,omitempty"`
	Cause      error                `json:"-"`
	Retryable  bool                 `json:"retryable"`
}

// Error implements the error interface.
func (e *StepError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *StepError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if the error can be retried.
func (e *StepError) IsRetryable() bool {
	return e.Retryable && e.Severity.IsRetryable()
}

// IsFatal returns true if the error should fail the entire run.
func (e *StepError) IsFatal() bool {
	return e.Severity.IsFatal()
}

// NewStepError creates a new step error.
func NewStepError(code, message string, severity status.ErrorSeverity) *StepError {
	return &StepError{
		Code:      code,
		Message:   message,
		Severity:  severity,
		Retryable: severity.IsRetryable(),
	}
}

// WithCause adds an underlying cause to the error.
func (e *StepError) WithCause(cause error) *StepError {
	e.Cause = cause
	return e
}

// WithCapability records which capability failed.
func (e *StepError) WithCapability(name string) *StepError {
	e.Capability = name
	return e
}

// WithRun records the run the step belonged to.
func (e *StepError) WithRun(runID string) *StepError {
	e.RunID = runID
	return e
}

// Error codes.
const (
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeCancelled         = "CANCELLED"
	ErrCodeProviderError     = "PROVIDER_ERROR"
	ErrCodeUnknownCapability = "UNKNOWN_CAPABILITY"
	ErrCodePanic             = "PANIC"
	ErrCodeCapabilityFailed  = "CAPABILITY_FAILED"
)

// FromCapabilityError classifies an error returned by a capability invocation.
func FromCapabilityError(capability string, err error) *StepError {
	if err == nil {
		return nil
	}

	var se *StepError
	if errors.As(err, &se) {
		if se.Capability == "" {
			se.Capability = capability
		}
		return se
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewStepError(ErrCodeTimeout, "capability timed out", status.ErrorSeverityRetryable).
			WithCause(err).WithCapability(capability)
	case errors.Is(err, context.Canceled):
		return NewStepError(ErrCodeCancelled, "capability cancelled", status.ErrorSeverityFatal).
			WithCause(err).WithCapability(capability)
	default:
		return NewStepError(ErrCodeCapabilityFailed, "capability failed", status.ErrorSeveritySkippable).
			WithCause(err).WithCapability(capability)
	}
}
