package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config is the full service configuration, loaded from INK_* environment
// variables with optional .env files for development.
type Config struct {
	Env       string `mapstructure:"INK_ENV"`
	HTTPAddr  string `mapstructure:"INK_HTTP_ADDR"`
	PublicURL string `mapstructure:"INK_PUBLIC_ORIGIN"`

	Content  ContentConfig  `mapstructure:",squash"`
	Reader   ReaderConfig   `mapstructure:",squash"`
	Database DBConfig       `mapstructure:",squash"`
	Cache    CacheConfig    `mapstructure:",squash"`
	Contact  ContactConfig  `mapstructure:",squash"`
	Security SecurityConfig `mapstructure:",squash"`
}

// ContentConfig selects and tunes the content provider.
type ContentConfig struct {
	Provider        string        `mapstructure:"INK_CONTENT_PROVIDER"`         // "demo", "directus"
	DirectusURL     string        `mapstructure:"INK_DIRECTUS_URL"`             // Directus root URL
	DirectusToken   string        `mapstructure:"INK_DIRECTUS_TOKEN"`           // static API token, optional
	RefreshInterval time.Duration `mapstructure:"INK_CONTENT_REFRESH_INTERVAL"` // catalog re-fetch cadence
}

// ReaderConfig tunes the stream reader sessions.
type ReaderConfig struct {
	PathPrefix  string        `mapstructure:"INK_READER_PATH_PREFIX"`
	URLDebounce time.Duration `mapstructure:"INK_READER_URL_DEBOUNCE"`
	NavLock     time.Duration `mapstructure:"INK_READER_NAV_LOCK"`
}

type DBConfig struct {
	PostgresDSN string `mapstructure:"INK_POSTGRES_DSN"`
}

type CacheConfig struct {
	RedisAddr string `mapstructure:"INK_REDIS_ADDR"`
}

// ContactConfig selects where contact messages land.
type ContactConfig struct {
	Sink string `mapstructure:"INK_CONTACT_SINK"` // "postgres", "directus", "memory"
}

type SecurityConfig struct {
	RateLimitRPM       int      `mapstructure:"INK_RATE_LIMIT_RPM"`
	CORSAllowedOrigins []string `mapstructure:"INK_CORS_ALLOWED_ORIGINS"`
}

func loadDotEnvFiles() {
	candidates := []string{
		".env",
		filepath.Join("backend", ".env"),
		filepath.Join("..", ".env"),
		filepath.Join("..", "backend", ".env"),
	}

	seen := make(map[string]struct{})
	for _, path := range candidates {
		abs := path
		if !filepath.IsAbs(path) {
			if resolved, err := filepath.Abs(path); err == nil {
				abs = resolved
			}
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}

		if _, err := os.Stat(path); err == nil {
			_ = gotenv.Load(path) // env vars already set take precedence
		}
	}
}

func Load() (*Config, error) {
	loadDotEnvFiles()

	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("INK_ENV", "dev")
	viper.SetDefault("INK_HTTP_ADDR", ":8080")
	viper.SetDefault("INK_PUBLIC_ORIGIN", "http://localhost:3000")
	viper.SetDefault("INK_CONTENT_PROVIDER", "demo")
	viper.SetDefault("INK_CONTENT_REFRESH_INTERVAL", "5m")
	viper.SetDefault("INK_READER_PATH_PREFIX", "/blog/")
	viper.SetDefault("INK_READER_URL_DEBOUNCE", "120ms")
	viper.SetDefault("INK_READER_NAV_LOCK", "2500ms")
	viper.SetDefault("INK_POSTGRES_DSN", "")
	viper.SetDefault("INK_REDIS_ADDR", "")
	viper.SetDefault("INK_CONTACT_SINK", "memory")
	viper.SetDefault("INK_RATE_LIMIT_RPM", 120)
	viper.SetDefault("INK_CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")

	// Comma-separated values arrive as plain strings.
	if origins := viper.GetString("INK_CORS_ALLOWED_ORIGINS"); origins != "" {
		viper.Set("INK_CORS_ALLOWED_ORIGINS", strings.Split(origins, ","))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	c.Content.Provider = strings.ToLower(strings.TrimSpace(c.Content.Provider))
	c.Contact.Sink = strings.ToLower(strings.TrimSpace(c.Contact.Sink))

	if !strings.HasSuffix(c.Reader.PathPrefix, "/") {
		c.Reader.PathPrefix += "/"
	}
	if !strings.HasPrefix(c.Reader.PathPrefix, "/") {
		c.Reader.PathPrefix = "/" + c.Reader.PathPrefix
	}
}

func (c *Config) validate() error {
	switch c.Content.Provider {
	case "demo":
	case "directus":
		if c.Content.DirectusURL == "" {
			return fmt.Errorf("INK_DIRECTUS_URL is required when INK_CONTENT_PROVIDER is directus")
		}
	default:
		return fmt.Errorf("invalid INK_CONTENT_PROVIDER %q (must be demo or directus)", c.Content.Provider)
	}

	switch c.Contact.Sink {
	case "memory":
	case "postgres":
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("INK_POSTGRES_DSN is required when INK_CONTACT_SINK is postgres")
		}
	case "directus":
		if c.Content.DirectusURL == "" {
			return fmt.Errorf("INK_DIRECTUS_URL is required when INK_CONTACT_SINK is directus")
		}
	default:
		return fmt.Errorf("invalid INK_CONTACT_SINK %q (must be postgres, directus, or memory)", c.Contact.Sink)
	}

	if c.Content.RefreshInterval < time.Second {
		return fmt.Errorf("INK_CONTENT_REFRESH_INTERVAL must be at least 1s")
	}
	if c.Reader.URLDebounce <= 0 || c.Reader.NavLock <= 0 {
		return fmt.Errorf("reader debounce and nav lock must be positive")
	}

	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}
