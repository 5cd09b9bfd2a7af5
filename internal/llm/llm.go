// Package llm holds the optional external reasoning client. It is an
// optimization, never a dependency: every caller falls back to the
// deterministic rule set when a call fails.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Prompt is a system/user instruction pair.
type Prompt struct {
	System string
	User   string
}

// Client generates a raw model response for a prompt.
type Client interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
	Provider() string
	Model() string
}

// Config selects and configures a provider. An empty provider disables the
// external reasoner entirely.
type Config struct {
	Provider       string
	Model          string
	BaseURL        string
	APIKey         string
	Temperature    float64
	TimeoutSeconds int
}

// New builds a client from config. Returns (nil, nil) when no provider is
// configured.
func New(cfg Config) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		return nil, nil
	}

	switch provider {
	case "openai":
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			apiKey = strings.TrimSpace(os.Getenv("AMM_LLM_API_KEY"))
		}
		if apiKey == "" {
			return nil, errors.New("openai selected but no API key provided (AMM_LLM_API_KEY)")
		}
		model := strings.TrimSpace(cfg.Model)
		if model == "" {
			return nil, errors.New("openai selected but no model configured")
		}
		baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		timeout := cfg.TimeoutSeconds
		if timeout <= 0 {
			timeout = 15
		}
		return &openAIClient{
			baseURL:     baseURL,
			apiKey:      apiKey,
			model:       model,
			temperature: cfg.Temperature,
			timeout:     time.Duration(timeout) * time.Second,
		}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
