package webhook

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"brainstorm-api/internal/domain/coordination"
	"brainstorm-api/internal/domain/retry"
	"brainstorm-api/internal/domain/updates"
)

// HTTPService implements webhook notifications via HTTP POST.
type HTTPService struct {
	httpClient *resty.Client
	defaultURL string
	policy     retry.Policy
	log        zerolog.Logger
}

// NewHTTPService creates a webhook service. defaultURL receives runs that carry no webhook_url in
// their metadata; an empty defaultURL disables those notifications.
func NewHTTPService(defaultURL string, policy retry.Policy, log zerolog.Logger) *HTTPService {
	return &HTTPService{
		httpClient: resty.New().
			SetTimeout(10*time.Second).
			SetHeader("Content-Type", "application/json").
			SetHeader("User-Agent", "brainstorm-api/1.0"),
		defaultURL: strings.TrimSpace(defaultURL),
		policy:     policy,
		log:        log.With().Str("component", "webhook").Logger(),
	}
}

// Notify posts the update of a finished run.
func (s *HTTPService) Notify(ctx context.Context, run *coordination.Run, update updates.Update) error {
	url := run.WebhookURL()
	if url == "" {
		url = s.defaultURL
	}
	if url == "" {
		s.log.Debug().Str("run_id", run.ID).Msg("no webhook URL configured, skipping notification")
		return nil
	}

	payload := Payload{
		ID:        run.ID,
		ProjectID: run.ProjectID,
		Event:     update.Event,
		Status:    run.Status.String(),
		Intent:    run.Intent,
		Metadata:  run.Metadata,
	}
	switch update.Event {
	case updates.EventRunFailed:
		payload.Error = &ErrorDetails{Code: "run_failed", Message: update.Error}
		if run.Error != nil {
			payload.Error = &ErrorDetails{Code: run.Error.Code, Message: run.Error.Message, Stage: run.Error.Stage}
		}
	default:
		payload.Update = &update
		payload.CompletedAt = formatTime(run.CompletedAt)
	}

	return s.send(ctx, url, payload)
}

func (s *HTTPService) send(ctx context.Context, url string, payload Payload) error {
	return retry.Do(ctx, s.policy, func(ctx context.Context, attempt int) error {
		resp, err := s.httpClient.R().
			SetContext(ctx).
			SetHeader("X-Brainstorm-Event", string(payload.Event)).
			SetHeader("X-Brainstorm-Run-ID", payload.ID).
			SetBody(payload).
			Post(url)
		if err != nil {
			s.log.Warn().Err(err).Str("url", url).Int("attempt", attempt+1).Msg("webhook delivery failed")
			return fmt.Errorf("send webhook: %w", err)
		}
		if resp.IsSuccess() {
			s.log.Info().Str("url", url).Int("status", resp.StatusCode()).Str("run_id", payload.ID).Msg("webhook delivered")
			return nil
		}

		err = fmt.Errorf("webhook returned status %d", resp.StatusCode())
		s.log.Warn().Int("status", resp.StatusCode()).Str("url", url).Int("attempt", attempt+1).Msg("webhook delivery failed")
		if resp.StatusCode() >= http.StatusBadRequest && resp.StatusCode() < http.StatusInternalServerError &&
			resp.StatusCode() != http.StatusTooManyRequests {
			return retry.Permanent(err)
		}
		return err
	})
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.Format(time.RFC3339)
	return &formatted
}
