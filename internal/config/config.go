// /internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	DiscordToken      string   `env:"DISCORD_TOKEN"`
	GuildIDs          []string `env:"GUILD_IDS" envSeparator:","`
	InitSlashCommands bool     `env:"INIT_SLASH_COMMANDS" envDefault:"true"`

	SnapshotBackend string `env:"SNAPSHOT_BACKEND" envDefault:"file"`
	SnapshotDir     string `env:"SNAPSHOT_DIR" envDefault:"data/commands"`
	SnapshotDB      string `env:"SNAPSHOT_DB" envDefault:"data/commands.db"`
	SnapshotBackups int    `env:"SNAPSHOT_BACKUPS" envDefault:"3"`

	PublishTimeout time.Duration `env:"PUBLISH_TIMEOUT" envDefault:"30s"`
	PublishRate    float64       `env:"PUBLISH_RATE" envDefault:"5"`

	SearchKey  string `env:"SEARCH_KEY"`
	SearchCX   string `env:"SEARCH_CX"`
	SearchURL  string `env:"SEARCH_URL" envDefault:"https://www.googleapis.com/customsearch/v1"`
	AniListURL string `env:"ANILIST_URL" envDefault:"https://graphql.anilist.co"`
	GitHubRaw  string `env:"GITHUB_RAW_URL" envDefault:"https://raw.githubusercontent.com"`

	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	CacheSize   int           `env:"CACHE_SIZE" envDefault:"256"`
	CacheTTL    time.Duration `env:"CACHE_TTL" envDefault:"1h"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
}

// LoadDotEnv reads .env into the process environment if the file exists.
func LoadDotEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Debug().Msg("No .env file found, falling back to system environment variables")
	}
}

// Parse builds a Config from the environment without validating it.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// New loads .env, parses the environment and validates the result.
func New() (*Config, error) {
	LoadDotEnv()
	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the bot cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.DiscordToken == "" {
		errs = append(errs, errors.New("DISCORD_TOKEN is not set"))
	}
	if err := c.ValidateSnapshot(); err != nil {
		errs = append(errs, err)
	}
	if c.PublishRate <= 0 {
		errs = append(errs, fmt.Errorf("PUBLISH_RATE must be positive, got %v", c.PublishRate))
	}
	if c.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_SIZE must be positive, got %d", c.CacheSize))
	}
	return errors.Join(errs...)
}

// ValidateSnapshot checks only the snapshot settings; tools that never talk to
// Discord use it instead of Validate.
func (c *Config) ValidateSnapshot() error {
	switch c.SnapshotBackend {
	case "file", "sqlite", "memory":
		return nil
	default:
		return fmt.Errorf("SNAPSHOT_BACKEND must be file, sqlite or memory, got %q", c.SnapshotBackend)
	}
}

// Scopes returns the command scopes to reconcile: one per configured guild,
// or the single global scope ("") when no guild is configured.
func (c *Config) Scopes() []string {
	var out []string
	seen := make(map[string]struct{}, len(c.GuildIDs))
	for _, id := range c.GuildIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return []string{""}
	}
	return out
}
