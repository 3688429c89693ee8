package llmprovider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"brainstorm-api/internal/domain/llm"
	"brainstorm-api/internal/domain/retry"
)

// OpenAIClient implements llm.Provider against an OpenAI-compatible /v1/chat/completions endpoint.
type OpenAIClient struct {
	httpClient *resty.Client
	model      string
	maxTokens  int
}

// OpenAIConfig configures the OpenAI-compatible client.
type OpenAIConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

type chatCompletionRequest struct {
	Model       string            `json:"model"`
	Messages    []llm.ChatMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Temperature *float64          `json:"temperature,omitempty"`
	Stream      bool              `json:"stream"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int             `json:"index"`
		Message llm.ChatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewOpenAIClient creates a Resty-backed client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 75 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	if cfg.APIKey != "" {
		httpClient.SetAuthToken(cfg.APIKey)
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &OpenAIClient{httpClient: httpClient, model: cfg.Model, maxTokens: maxTokens}
}

// Complete calls /v1/chat/completions and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	messages := make([]llm.ChatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, llm.ChatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, req.Messages...)

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	var completion chatCompletionResponse
	var failure apiError
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(chatCompletionRequest{
			Model:       c.model,
			Messages:    messages,
			MaxTokens:   maxTokens,
			Temperature: req.Temperature,
		}).
		SetResult(&completion).
		SetError(&failure).
		Post("/v1/chat/completions")
	if err != nil {
		return "", err
	}

	if resp.IsError() {
		msg := failure.Error.Message
		if msg == "" {
			msg = resp.String()
		}
		err := fmt.Errorf("llm api error: %d %s", resp.StatusCode(), msg)
		if !retryableStatus(resp.StatusCode()) {
			return "", retry.Permanent(err)
		}
		return "", err
	}

	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return "", llm.ErrEmptyCompletion
	}
	return completion.Choices[0].Message.Content, nil
}

var _ llm.Provider = (*OpenAIClient)(nil)
