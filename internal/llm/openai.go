package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client for OpenAI and OpenAI-compatible servers.
type OpenAIClient struct {
	api    *openai.Client
	config *Config
}

// NewOpenAIClient creates a client. config.BaseURL selects a compatible
// endpoint other than api.openai.com.
func NewOpenAIClient(config *Config, apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}
	return &OpenAIClient{api: openai.NewClientWithConfig(cfg), config: config}, nil
}

// GenerateContent sends prompt as a single user message.
func (c *OpenAIClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       modelName,
		Temperature: c.config.Temperature,
		MaxTokens:   int(c.config.MaxOutputTokens),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai %s: %w", modelName, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// GetModel returns the model name for a tier
func (c *OpenAIClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close is a no-op; the HTTP client needs no teardown.
func (c *OpenAIClient) Close() error {
	return nil
}
