// Package llmprovider implements llm.Provider against the Anthropic Messages API and
// OpenAI-compatible chat completion endpoints.
package llmprovider

import (
	"fmt"

	"github.com/rs/zerolog"

	"brainstorm-api/internal/config"
	"brainstorm-api/internal/domain/llm"
	"brainstorm-api/internal/domain/retry"
)

// New builds the configured provider wrapped with retries.
func New(cfg *config.Config, log zerolog.Logger) (llm.Provider, error) {
	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.LLMMaxRetries

	switch cfg.LLMProvider {
	case config.LLMProviderAnthropic:
		client, err := NewAnthropicClient(AnthropicConfig{
			APIKey:    cfg.AnthropicAPIKey,
			Model:     cfg.AnthropicModel,
			MaxTokens: cfg.LLMMaxTokens,
			Timeout:   cfg.CapabilityTimeout,
		})
		if err != nil {
			return nil, err
		}
		return NewRetrying(client, config.LLMProviderAnthropic, policy, log), nil
	case config.LLMProviderOpenAI:
		client := NewOpenAIClient(OpenAIConfig{
			BaseURL:   cfg.LLMAPIURL,
			APIKey:    cfg.LLMAPIKey,
			Model:     cfg.LLMModel,
			MaxTokens: cfg.LLMMaxTokens,
			Timeout:   cfg.CapabilityTimeout,
		})
		return NewRetrying(client, config.LLMProviderOpenAI, policy, log), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}
}
