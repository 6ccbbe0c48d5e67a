package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config application configuration
type Config struct {
	// Mailbox (IMAP)
	IMAPServer      string        `env:"IMAP_SERVER"` // host:port, e.g. imap.gmail.com:993
	IMAPUser        string        `env:"IMAP_USER"`
	IMAPPassword    string        `env:"IMAP_PASSWORD"`
	IMAPMailbox     string        `env:"IMAP_MAILBOX" envDefault:"INBOX"`
	IMAPDialTimeout time.Duration `env:"IMAP_DIAL_TIMEOUT" envDefault:"30s"`

	// Senders whose mail is ingested; plain addresses or @domain suffixes.
	SenderFilters []string `env:"SENDER_FILTERS" envSeparator:","`

	// How many messages to fetch per IMAP round trip.
	FetchPageSize int `env:"FETCH_PAGE_SIZE" envDefault:"50"`

	// Classification (Anthropic messages API)
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `env:"ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-5-20250929"`
	MaxTokens       int    `env:"ANTHROPIC_MAX_TOKENS" envDefault:"4096"`

	// Storage
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/schoolmail.db"`
	BlobDir      string `env:"BLOB_DIR" envDefault:"./data/attachments"`

	// Dedup
	SimilarityThreshold float64  `env:"SIMILARITY_THRESHOLD" envDefault:"0.85"`
	URLDenylist         []string `env:"URL_DENYLIST" envSeparator:"," envDefault:"supabase.co,google.com/url,unsubscribe,mailto:"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold > 1 {
		return nil, fmt.Errorf("SIMILARITY_THRESHOLD must be in (0, 1], got %v", cfg.SimilarityThreshold)
	}

	return cfg, nil
}

// ValidateIngest checks the settings only the ingestion run needs.
// Maintenance passes run against the database alone.
func (c *Config) ValidateIngest() error {
	if c.IMAPServer == "" || c.IMAPUser == "" || c.IMAPPassword == "" {
		return fmt.Errorf("IMAP_SERVER, IMAP_USER and IMAP_PASSWORD must be set")
	}
	if len(c.SenderFilters) == 0 {
		return fmt.Errorf("SENDER_FILTERS must list at least one sender")
	}
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY must be set")
	}
	return nil
}
