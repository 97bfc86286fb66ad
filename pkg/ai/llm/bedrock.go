package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/sirupsen/logrus"

	"github.com/ckoons/tekton-core/internal/config"
)

// bedrockClient talks to an Anthropic Claude model hosted behind AWS
// Bedrock, for deployments that route LLM traffic through an AWS
// account rather than directly at api.anthropic.com.
type bedrockClient struct {
	modelID string
	maxToks int
	runtime *bedrockruntime.Client
	logger  *logrus.Logger
}

func newBedrockClient(ctx context.Context, cfg config.LLMConfig, logger *logrus.Logger) (*bedrockClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading aws config for bedrock provider: %w", err)
	}
	maxToks := cfg.MaxTokens
	if maxToks <= 0 {
		maxToks = 1024
	}
	return &bedrockClient{
		modelID: cfg.Model,
		maxToks: maxToks,
		runtime: bedrockruntime.NewFromConfig(awsCfg),
		logger:  logger,
	}, nil
}

var _ Client = (*bedrockClient)(nil)

type bedrockAnthropicRequest struct {
	AnthropicVersion string                   `json:"anthropic_version"`
	MaxTokens        int                      `json:"max_tokens"`
	Messages         []map[string]interface{} `json:"messages"`
}

type bedrockAnthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (c *bedrockClient) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(bedrockAnthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        c.maxToks,
		Messages: []map[string]interface{}{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal bedrock request: %w", err)
	}

	out, err := c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		ContentType: stringPtr("application/json"),
		Body:        payload,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock invoke model failed: %w", err)
	}

	var decoded bedrockAnthropicResponse
	if err := json.Unmarshal(out.Body, &decoded); err != nil {
		return "", fmt.Errorf("decode bedrock response: %w", err)
	}
	if len(decoded.Content) == 0 {
		return "", fmt.Errorf("bedrock response contained no content")
	}
	return decoded.Content[0].Text, nil
}

func (c *bedrockClient) IsHealthy(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := c.GenerateResponse(healthCtx, "ping")
	if err != nil && c.logger != nil {
		c.logger.WithError(err).Debug("llm health check failed")
	}
	return err == nil
}

func (c *bedrockClient) GetEndpoint() string { return "bedrock:" + c.modelID }
func (c *bedrockClient) GetModel() string    { return c.modelID }

func stringPtr(s string) *string { return &s }
