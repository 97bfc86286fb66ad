package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"

	"github.com/ckoons/tekton-core/internal/config"
	sharedhttp "github.com/ckoons/tekton-core/pkg/shared/http"
)

const anthropicDefaultEndpoint = "https://api.anthropic.com"

// anthropicClient talks to the Anthropic Messages API via the official SDK.
type anthropicClient struct {
	endpoint string
	model    string
	maxToks  int64
	client   anthropic.Client
	logger   *logrus.Logger
}

func newAnthropicClient(cfg config.LLMConfig, timeout time.Duration, logger *logrus.Logger) *anthropicClient {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = anthropicDefaultEndpoint
	}
	maxToks := cfg.MaxTokens
	if maxToks <= 0 {
		maxToks = 1024
	}

	httpClient := sharedhttp.NewClient(sharedhttp.LLMClientConfig(timeout))
	sdkClient := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(endpoint),
		option.WithHTTPClient(httpClient),
	)

	return &anthropicClient{
		endpoint: endpoint,
		model:    cfg.Model,
		maxToks:  int64(maxToks),
		client:   sdkClient,
		logger:   logger,
	}
}

var _ Client = (*anthropicClient)(nil)

func (c *anthropicClient) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxToks,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}
	for _, block := range message.Content {
		if text := block.Text; text != "" {
			return text, nil
		}
	}
	return "", fmt.Errorf("anthropic response contained no content")
}

func (c *anthropicClient) IsHealthy(ctx context.Context) bool {
	// The Messages API has no dedicated health endpoint; a minimal
	// request with MaxTokens 1 serves as a reachability probe.
	_, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		if c.logger != nil {
			c.logger.WithError(err).Debug("llm health check failed")
		}
		return false
	}
	return true
}

func (c *anthropicClient) GetEndpoint() string { return c.endpoint }
func (c *anthropicClient) GetModel() string    { return c.model }
