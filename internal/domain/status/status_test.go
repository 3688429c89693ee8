package status_test

import (
	"testing"

	"brainstorm-api/internal/domain/status"
)

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		name     string
		status   status.Status
		expected bool
	}{
		{"queued is not terminal", status.StatusQueued, false},
		{"in_progress is not terminal", status.StatusInProgress, false},
		{"completed is terminal", status.StatusCompleted, true},
		{"failed is terminal", status.StatusFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.expected {
				t.Errorf("Status.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStatus_TransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    status.Status
		to      status.Status
		wantErr bool
	}{
		{"queued to in_progress", status.StatusQueued, status.StatusInProgress, false},
		{"queued to failed", status.StatusQueued, status.StatusFailed, false},
		{"in_progress to completed", status.StatusInProgress, status.StatusCompleted, false},
		{"in_progress to failed", status.StatusInProgress, status.StatusFailed, false},
		{"queued to completed", status.StatusQueued, status.StatusCompleted, true},
		{"completed to in_progress", status.StatusCompleted, status.StatusInProgress, true},
		{"failed to queued", status.StatusFailed, status.StatusQueued, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.from.TransitionTo(tt.to)
			if tt.wantErr {
				if err != status.ErrInvalidTransition {
					t.Errorf("expected ErrInvalidTransition, got %v", err)
				}
				if got != tt.from {
					t.Errorf("status changed on invalid transition: %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.to {
				t.Errorf("TransitionTo() = %v, want %v", got, tt.to)
			}
		})
	}
}

func TestErrorSeverity(t *testing.T) {
	if !status.ErrorSeverityRetryable.IsRetryable() {
		t.Error("retryable severity should be retryable")
	}
	if status.ErrorSeveritySkippable.IsRetryable() {
		t.Error("skippable severity should not be retryable")
	}
	if !status.ErrorSeverityFatal.IsFatal() {
		t.Error("fatal severity should be fatal")
	}
}
