// Package config loads the voice assistant configuration from a YAML
// file with environment variable fallbacks.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/voxgo-dev/voxgo/pkg/session"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Provider  ProviderConfig  `yaml:"provider"`
	Store     StoreConfig     `yaml:"store"`
	Session   SessionConfig   `yaml:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port int `yaml:"port"`
}

// ProviderConfig holds LLM provider settings
type ProviderConfig struct {
	// Name selects the provider: "openai", "gemini" or "canned".
	Name string `yaml:"name"`

	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// API keys; loaded from the environment when not in the file.
	OpenAIKey string `yaml:"openai_key"`
	GeminiKey string `yaml:"gemini_key"`

	// BaseURL overrides the OpenAI API endpoint (proxies, test servers).
	BaseURL string `yaml:"base_url"`
}

// StoreConfig holds durable message store settings
type StoreConfig struct {
	// Backend selects the store: "memory", "redis", "firestore" or
	// "none" to disable persistence.
	Backend string `yaml:"backend"`

	Redis     RedisConfig     `yaml:"redis"`
	Firestore FirestoreConfig `yaml:"firestore"`
}

// RedisConfig holds Redis store settings
type RedisConfig struct {
	Addr     string   `yaml:"addr"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	Prefix   string   `yaml:"prefix"`
	TTL      Duration `yaml:"ttl"`
}

// FirestoreConfig holds Firestore store settings
type FirestoreConfig struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

// SessionConfig holds live session context settings
type SessionConfig struct {
	SystemPrompt  string   `yaml:"system_prompt"`
	MaxTurns      int      `yaml:"max_turns"`
	MaxAge        Duration `yaml:"max_age"`
	SweepSchedule string   `yaml:"sweep_schedule"`
}

// RateLimitConfig holds request rate limiting settings
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Load reads configuration from a YAML file. An empty path yields the
// defaults plus environment overrides.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Provider.Name == "" {
		c.Provider.Name = "openai"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.Session.SystemPrompt == "" {
		c.Session.SystemPrompt = session.DefaultSystemPrompt
	}
	if c.Session.MaxTurns == 0 {
		c.Session.MaxTurns = session.DefaultMaxTurns
	}
	if c.Session.MaxAge == 0 {
		c.Session.MaxAge = Duration(time.Hour)
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond == 0 {
			c.RateLimit.RequestsPerSecond = 5
		}
		if c.RateLimit.Burst == 0 {
			c.RateLimit.Burst = 10
		}
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("VOXGO_PROVIDER"); v != "" {
		c.Provider.Name = v
	}
	if c.Provider.OpenAIKey == "" {
		c.Provider.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Provider.GeminiKey == "" {
		c.Provider.GeminiKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = os.Getenv("REDIS_ADDR")
	}
	if c.Store.Firestore.ProjectID == "" {
		c.Store.Firestore.ProjectID = os.Getenv("GCP_PROJECT")
	}
	if c.Store.Firestore.CredentialsFile == "" {
		c.Store.Firestore.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Provider.Name {
	case "openai":
		if c.Provider.OpenAIKey == "" {
			return fmt.Errorf("openai provider requires an API key (OPENAI_API_KEY)")
		}
	case "gemini":
		if c.Provider.GeminiKey == "" {
			return fmt.Errorf("gemini provider requires an API key (GEMINI_API_KEY)")
		}
	case "canned":
		// No credentials needed.
	default:
		return fmt.Errorf("unknown provider: %s", c.Provider.Name)
	}

	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %g", c.Provider.Temperature)
	}
	if c.Provider.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative, got %d", c.Provider.MaxTokens)
	}

	switch c.Store.Backend {
	case "memory", "none":
	case "redis":
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("redis store requires an address (REDIS_ADDR)")
		}
	case "firestore":
		if c.Store.Firestore.ProjectID == "" {
			return fmt.Errorf("firestore store requires a project ID (GCP_PROJECT)")
		}
	default:
		return fmt.Errorf("unknown store backend: %s", c.Store.Backend)
	}

	if c.Session.MaxTurns < 1 {
		return fmt.Errorf("session max_turns must be at least 1, got %d", c.Session.MaxTurns)
	}
	if c.Session.MaxAge <= 0 {
		return fmt.Errorf("session max_age must be positive, got %s", c.Session.MaxAge.Std())
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate limit requests_per_second must be positive, got %g", c.RateLimit.RequestsPerSecond)
		}
		if c.RateLimit.Burst < 1 {
			return fmt.Errorf("rate limit burst must be at least 1, got %d", c.RateLimit.Burst)
		}
	}

	return nil
}
