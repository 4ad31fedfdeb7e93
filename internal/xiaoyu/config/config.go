// Package config loads Xiaoyu's runtime configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every runtime setting read at startup. The three credentials
// are required; everything else has a default.
type Config struct {
	// BotToken authenticates the bot against the Telegram Bot API.
	BotToken string `env:"BOT_TOKEN,required,notEmpty"`

	// OpenAIAPIKey authenticates against the OpenAI-compatible chat API.
	OpenAIAPIKey string `env:"OPENAI_API_KEY,required,notEmpty"`

	// DatabaseURL is the path of the SQLite database file.
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// OpenAIBaseURL overrides the chat API endpoint. Useful for local
	// models (Ollama) or any other OpenAI-compatible endpoint.
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	// OpenAIModel is the chat model used for replies.
	OpenAIModel string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	// OpenAIMaxTokens caps the length of a single generated reply.
	OpenAIMaxTokens int `env:"OPENAI_MAX_TOKENS" envDefault:"200"`

	// AdminUserIDs is the comma-separated allow-list of Telegram user IDs
	// permitted to run /analytics. Empty means nobody.
	AdminUserIDs []int64 `env:"ADMIN_USER_IDS" envSeparator:","`

	// RateLimitMessages and RateLimitWindow set the default per-user budget:
	// RateLimitMessages messages per RateLimitWindow seconds.
	RateLimitMessages int `env:"RATE_LIMIT_MESSAGES" envDefault:"10"`
	RateLimitWindow   int `env:"RATE_LIMIT_WINDOW" envDefault:"60"`

	// LogLevel and LogFormat configure the global logger
	// (debug|info|warn|error, text|json).
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Window returns the rate-limit window as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.RateLimitWindow) * time.Second
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return &cfg, nil
}
