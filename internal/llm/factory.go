package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/seenimoa/ratiodash/internal/config"
)

// NewFromConfig builds the provider named by cfg.LLM.Primary.
func NewFromConfig(ctx context.Context, cfg *config.Config) (LLMProvider, error) {
	var client *http.Client
	if cfg.LLM.Timeout > 0 {
		client = &http.Client{Timeout: config.Seconds(cfg.LLM.Timeout)}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.LLM.Primary)) {
	case "", ProviderOllama:
		opts := []OllamaOption{WithOllamaModel(cfg.LLM.Model)}
		if client != nil {
			opts = append(opts, WithOllamaHTTPClient(client))
		}
		return NewOllamaProvider(cfg.LLM.OllamaURL, opts...), nil
	case ProviderGemini:
		p, err := NewGeminiProvider(ctx, cfg.LLM.GeminiKey,
			WithGeminiModel(cfg.LLM.Model),
			WithGeminiBaseURL(cfg.LLM.GeminiURL),
			WithGeminiHTTPClient(client),
		)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknown, cfg.LLM.Primary)
	}
}

// ChatOptionsFromConfig returns the per-request options from cfg.LLM.
func ChatOptionsFromConfig(cfg *config.Config) *ChatOptions {
	return &ChatOptions{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}
}
