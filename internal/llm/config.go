// Package llm provides the language-model clients used for semantic CV checks.
// Callers depend on the Client interface; Gemini and OpenAI-compatible
// providers implement it.
package llm

import (
	"fmt"
	"strings"
)

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple checks
	TierLite ModelTier = "lite"
	// TierStandard is the default tier for section judgments
	TierStandard ModelTier = "standard"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// ParseProvider validates a configured provider name.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderGemini, ProviderOpenAI:
		return p, nil
	}
	return "", fmt.Errorf("unknown LLM provider %q (must be one of: gemini, openai)", s)
}

// Sampling defaults. Verdicts should be repeatable and short.
const (
	DefaultTemperature     float32 = 0.1
	DefaultMaxOutputTokens int32   = 1024
)

// Config holds the model configuration for the application
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
	// BaseURL overrides the provider endpoint (OpenAI-compatible servers).
	BaseURL string

	Temperature     float32
	MaxOutputTokens int32 // 0 leaves the provider default
}

// DefaultConfig returns the default configuration (Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
		},
		Temperature:     DefaultTemperature,
		MaxOutputTokens: DefaultMaxOutputTokens,
	}
}

// DefaultOpenAIConfig returns an OpenAI configuration. An empty model
// selects gpt-4o-mini for every tier.
func DefaultOpenAIConfig(model, baseURL string) *Config {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Config{
		Provider: ProviderOpenAI,
		Models: map[ModelTier]string{
			TierLite:     model,
			TierStandard: model,
		},
		BaseURL:         baseURL,
		Temperature:     DefaultTemperature,
		MaxOutputTokens: DefaultMaxOutputTokens,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := &Config{
		Provider:        c.Provider,
		Models:          make(map[ModelTier]string, len(c.Models)+1),
		BaseURL:         c.BaseURL,
		Temperature:     c.Temperature,
		MaxOutputTokens: c.MaxOutputTokens,
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return newConfig
}
