// Package config provides configuration loading and validation for the
// server and the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// ConfigurationError reports an invalid or unreadable setting.
type ConfigurationError struct {
	Key     string
	Message string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	prefix := "config error"
	if e.Key != "" {
		prefix = fmt.Sprintf("config error: '%s'", e.Key)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// Config represents the application configuration. It can be loaded from a
// JSON file and from the environment; zero values mean "use the default".
type Config struct {
	// Server
	Port    int    `json:"port,omitempty"`
	BaseURL string `json:"base_url,omitempty"` // Public prefix for /static links

	// Conversation
	DefaultLanguage string `json:"default_language,omitempty"` // ar or en

	// Session storage
	StoreBackend  string `json:"store_backend,omitempty"` // memory, redis or postgres
	RedisHost     string `json:"redis_host,omitempty"`
	RedisPort     int    `json:"redis_port,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty"`
	RedisPassword string `json:"redis_password,omitempty"`
	SessionTTL    int    `json:"session_ttl,omitempty"` // Seconds
	DatabaseURL   string `json:"database_url,omitempty"`

	// Semantic validation
	SemanticValidation bool   `json:"semantic_validation,omitempty"`
	LLMProvider        string `json:"llm_provider,omitempty"` // openai or gemini
	OpenAIAPIKey       string `json:"openai_api_key,omitempty"`
	OpenAIModel        string `json:"openai_model,omitempty"`
	OpenAIBaseURL      string `json:"openai_base_url,omitempty"`
	GeminiAPIKey       string `json:"gemini_api_key,omitempty"`
	JudgeTimeout       int    `json:"judge_timeout,omitempty"` // Seconds

	// Rendering
	OutputDir    string `json:"output_dir,omitempty"`
	RenderFormat string `json:"render_format,omitempty"` // text, latex or pdf
	Template     string `json:"template,omitempty"`      // Optional LaTeX template override
	ChromePath   string `json:"chrome_path,omitempty"`

	// Rate limiting
	RateLimitRPS   float64 `json:"rate_limit_rps,omitempty"`
	RateLimitBurst int     `json:"rate_limit_burst,omitempty"`

	// Behavior
	Verbose   bool   `json:"verbose,omitempty"`
	LogFormat string `json:"log_format,omitempty"` // text or json
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:            8000,
		DefaultLanguage: "en",
		StoreBackend:    BackendMemory,
		RedisHost:       "localhost",
		RedisPort:       6379,
		SessionTTL:      3600,
		LLMProvider:     "openai",
		OpenAIModel:     "gpt-4o-mini",
		JudgeTimeout:    30,
		OutputDir:       "static",
		RenderFormat:    "latex",
		BaseURL:         "/static",
		RateLimitRPS:    5,
		RateLimitBurst:  10,
		LogFormat:       "text",
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv reads the settings present in the environment. lookup is usually
// os.LookupEnv.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	var (
		cfg Config
		err error
	)
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || err != nil || strings.TrimSpace(v) == "" {
			return
		}
		n, convErr := strconv.Atoi(strings.TrimSpace(v))
		if convErr != nil {
			err = &ConfigurationError{Key: key, Message: "must be an integer", Cause: convErr}
			return
		}
		*dst = n
	}
	boolean := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || err != nil || strings.TrimSpace(v) == "" {
			return
		}
		b, convErr := strconv.ParseBool(strings.TrimSpace(v))
		if convErr != nil {
			err = &ConfigurationError{Key: key, Message: "must be a boolean", Cause: convErr}
			return
		}
		*dst = b
	}

	num("PORT", &cfg.Port)
	str("BASE_URL", &cfg.BaseURL)
	str("DEFAULT_LANGUAGE", &cfg.DefaultLanguage)
	str("STORE_BACKEND", &cfg.StoreBackend)
	str("REDIS_HOST", &cfg.RedisHost)
	num("REDIS_PORT", &cfg.RedisPort)
	num("REDIS_DB", &cfg.RedisDB)
	str("REDIS_PASSWORD", &cfg.RedisPassword)
	num("REDIS_TTL", &cfg.SessionTTL)
	str("DATABASE_URL", &cfg.DatabaseURL)
	boolean("SEMANTIC_VALIDATION", &cfg.SemanticValidation)
	str("LLM_PROVIDER", &cfg.LLMProvider)
	str("OPENAI_API_KEY", &cfg.OpenAIAPIKey)
	str("OPENAI_MODEL", &cfg.OpenAIModel)
	str("OPENAI_API_BASE_URL", &cfg.OpenAIBaseURL)
	str("GEMINI_API_KEY", &cfg.GeminiAPIKey)
	num("JUDGE_TIMEOUT", &cfg.JudgeTimeout)
	str("OUTPUT_DIR", &cfg.OutputDir)
	str("RENDER_FORMAT", &cfg.RenderFormat)
	str("CV_TEMPLATE", &cfg.Template)
	str("CHROME_PATH", &cfg.ChromePath)
	num("RATE_LIMIT_BURST", &cfg.RateLimitBurst)
	str("LOG_FORMAT", &cfg.LogFormat)

	if v, ok := lookup("RATE_LIMIT_RPS"); ok && err == nil && strings.TrimSpace(v) != "" {
		f, convErr := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if convErr != nil {
			err = &ConfigurationError{Key: "RATE_LIMIT_RPS", Message: "must be a number", Cause: convErr}
		}
		cfg.RateLimitRPS = f
	}

	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration has valid values. It expects a
// configuration already merged with Defaults.
func (c *Config) Validate() error {
	switch c.DefaultLanguage {
	case "ar", "en":
	default:
		return &ConfigurationError{Key: "default_language", Message: fmt.Sprintf("unsupported language %q (must be ar or en)", c.DefaultLanguage)}
	}

	switch c.StoreBackend {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return &ConfigurationError{Key: "database_url", Message: "required for the postgres store"}
		}
	default:
		return &ConfigurationError{Key: "store_backend", Message: fmt.Sprintf("unknown backend %q", c.StoreBackend)}
	}

	switch c.RenderFormat {
	case "text", "latex", "pdf":
	default:
		return &ConfigurationError{Key: "render_format", Message: fmt.Sprintf("unknown format %q", c.RenderFormat)}
	}

	if c.SemanticValidation {
		switch c.LLMProvider {
		case "openai":
			if c.OpenAIAPIKey == "" {
				return &ConfigurationError{Key: "openai_api_key", Message: "required for semantic validation"}
			}
		case "gemini":
			if c.GeminiAPIKey == "" {
				return &ConfigurationError{Key: "gemini_api_key", Message: "required for semantic validation"}
			}
		default:
			return &ConfigurationError{Key: "llm_provider", Message: fmt.Sprintf("unknown provider %q", c.LLMProvider)}
		}
	}

	if c.Port < 0 || c.Port > 65535 {
		return &ConfigurationError{Key: "port", Message: "must be between 0 and 65535"}
	}
	if c.SessionTTL < 0 || c.JudgeTimeout < 0 || c.RateLimitBurst < 0 || c.RateLimitRPS < 0 {
		return &ConfigurationError{Message: "durations and limits must be non-negative"}
	}

	if c.Template != "" {
		if _, err := os.Stat(c.Template); os.IsNotExist(err) {
			return &ConfigurationError{Key: "template", Message: fmt.Sprintf("template file not found: %s", c.Template)}
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with zero fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	str := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	num := func(dst *int, def int) {
		if *dst == 0 {
			*dst = def
		}
	}

	num(&result.Port, defaults.Port)
	str(&result.BaseURL, defaults.BaseURL)
	str(&result.DefaultLanguage, defaults.DefaultLanguage)
	str(&result.StoreBackend, defaults.StoreBackend)
	str(&result.RedisHost, defaults.RedisHost)
	num(&result.RedisPort, defaults.RedisPort)
	num(&result.RedisDB, defaults.RedisDB)
	str(&result.RedisPassword, defaults.RedisPassword)
	num(&result.SessionTTL, defaults.SessionTTL)
	str(&result.DatabaseURL, defaults.DatabaseURL)
	str(&result.LLMProvider, defaults.LLMProvider)
	str(&result.OpenAIAPIKey, defaults.OpenAIAPIKey)
	str(&result.OpenAIModel, defaults.OpenAIModel)
	str(&result.OpenAIBaseURL, defaults.OpenAIBaseURL)
	str(&result.GeminiAPIKey, defaults.GeminiAPIKey)
	num(&result.JudgeTimeout, defaults.JudgeTimeout)
	str(&result.OutputDir, defaults.OutputDir)
	str(&result.RenderFormat, defaults.RenderFormat)
	str(&result.Template, defaults.Template)
	str(&result.ChromePath, defaults.ChromePath)
	num(&result.RateLimitBurst, defaults.RateLimitBurst)
	str(&result.LogFormat, defaults.LogFormat)

	if result.RateLimitRPS == 0 {
		result.RateLimitRPS = defaults.RateLimitRPS
	}
	// Booleans can only be switched on by a layer.
	result.SemanticValidation = result.SemanticValidation || defaults.SemanticValidation
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

// Load layers environment over file over built-in defaults. path may be empty.
func Load(path string, lookup func(string) (string, bool)) (*Config, error) {
	env, err := FromEnv(lookup)
	if err != nil {
		return nil, err
	}

	base := Defaults()
	if path != "" {
		file, err := LoadConfig(path)
		if err != nil {
			return nil, &ConfigurationError{Message: "failed to load config file", Cause: err}
		}
		base = file.MergeWithDefaults(base)
	}

	merged := env.MergeWithDefaults(base)
	return &merged, nil
}

// RedisAddr returns host:port for the Redis client.
func (c *Config) RedisAddr() string {
	return net.JoinHostPort(c.RedisHost, strconv.Itoa(c.RedisPort))
}

// TTL returns the session lifetime.
func (c *Config) TTL() time.Duration {
	return time.Duration(c.SessionTTL) * time.Second
}

// JudgeTimeoutDuration returns the per-call judge deadline.
func (c *Config) JudgeTimeoutDuration() time.Duration {
	return time.Duration(c.JudgeTimeout) * time.Second
}

// APIKey returns the key for the configured LLM provider.
func (c *Config) APIKey() string {
	if c.LLMProvider == "gemini" {
		return c.GeminiAPIKey
	}
	return c.OpenAIAPIKey
}
