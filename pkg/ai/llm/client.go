// Package llm provides a pluggable LLM provider client backing the CI
// capabilities that require generation — summarize, analyze, and
// suggest-fallback — plus the aish tokenizer's preference for whichever
// provider's model naming it recognizes. NewClient selects an adapter
// by config.LLMConfig.Provider; callers depend only on the Client
// interface.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ckoons/tekton-core/internal/config"
)

// Client is the provider-agnostic contract every LLM adapter satisfies.
type Client interface {
	// GenerateResponse sends prompt to the configured model and returns
	// its completion.
	GenerateResponse(ctx context.Context, prompt string) (string, error)

	// IsHealthy reports whether the provider endpoint is currently
	// reachable. The OpenAI-compatible adapters list models; the
	// anthropic and bedrock adapters send a minimal generation request.
	IsHealthy(ctx context.Context) bool

	GetEndpoint() string
	GetModel() string
}

// knownProviders lists every config.LLMConfig.Provider value NewClient
// accepts.
var knownProviders = map[string]bool{
	"anthropic": true,
	"bedrock":   true,
	"openai":    true,
	"localai":   true,
	"ollama":    true,
	"ramalama":  true,
}

// NewClient builds the Client adapter named by cfg.Provider.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *logrus.Logger) (Client, error) {
	if !knownProviders[cfg.Provider] {
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	switch cfg.Provider {
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key")
		}
		return newAnthropicClient(cfg, timeout, logger), nil
	case "bedrock":
		return newBedrockClient(ctx, cfg, logger)
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return newOpenAICompatibleClient(cfg, timeout, "https://api.openai.com", logger), nil
	default: // localai, ollama, ramalama: self-hosted, OpenAI-compatible chat endpoints
		return newOpenAICompatibleClient(cfg, timeout, cfg.Endpoint, logger), nil
	}
}
