package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ckoons/tekton-core/internal/config"
	sharedhttp "github.com/ckoons/tekton-core/pkg/shared/http"
)

// openAICompatibleClient talks to any provider exposing the OpenAI
// /v1/chat/completions wire format: OpenAI itself, and self-hosted
// servers (localai, ollama, ramalama) that mimic it.
type openAICompatibleClient struct {
	endpoint string
	model    string
	apiKey   string
	temp     float32
	maxToks  int
	http     *http.Client
	logger   *logrus.Logger
}

func newOpenAICompatibleClient(cfg config.LLMConfig, timeout time.Duration, endpoint string, logger *logrus.Logger) *openAICompatibleClient {
	return &openAICompatibleClient{
		endpoint: endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		temp:     cfg.Temperature,
		maxToks:  cfg.MaxTokens,
		http:     sharedhttp.NewClient(sharedhttp.LLMClientConfig(timeout)),
		logger:   logger,
	}
}

var _ Client = (*openAICompatibleClient)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *openAICompatibleClient) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	reqBody := chatCompletionRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temp,
		MaxTokens:   c.maxToks,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal chat completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build chat completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion returned status %d", resp.StatusCode)
	}

	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

func (c *openAICompatibleClient) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/v1/models", nil)
	if err != nil {
		return false
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.WithError(err).Debug("llm health check failed")
		}
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *openAICompatibleClient) GetEndpoint() string { return c.endpoint }
func (c *openAICompatibleClient) GetModel() string    { return c.model }
