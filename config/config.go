// Package config holds the layered runtime configuration: struct defaults,
// an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces all environment overrides, e.g. BOOKS_SERVER_ADDR.
const EnvPrefix = "BOOKS_"

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "BOOKS_CONFIG"

// DefaultConfigPaths lists where a config file is searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/go-books-api/config.yaml",
}

// Config is the full runtime configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Data    DataConfig    `koanf:"data"`
	Auth    AuthConfig    `koanf:"auth"`
	Scraper ScraperConfig `koanf:"scraper"`
}

// ServerConfig configures the API listener.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DataConfig locates the dataset directories.
type DataConfig struct {
	BronzeDir      string `koanf:"bronze_dir"`
	SilverDir      string `koanf:"silver_dir"`
	PredictionsDir string `koanf:"predictions_dir"`
}

// AuthConfig configures the JWT thin shell. Empty AdminUser disables the
// protected endpoints.
type AuthConfig struct {
	AdminUser  string        `koanf:"admin_user"`
	AdminPass  string        `koanf:"admin_pass"`
	JWTSecret  string        `koanf:"jwt_secret"`
	AccessTTL  time.Duration `koanf:"access_ttl"`
	RefreshTTL time.Duration `koanf:"refresh_ttl"`
}

// ScraperConfig configures the bronze crawl job.
type ScraperConfig struct {
	BaseURL          string        `koanf:"base_url"`
	MaxPages         int           `koanf:"max_pages"`
	Parallelism      int           `koanf:"parallelism"`
	Delay            time.Duration `koanf:"delay"`
	RandomDelay      time.Duration `koanf:"random_delay"`
	Timeout          time.Duration `koanf:"timeout"`
	MaxRetries       int           `koanf:"max_retries"`
	RetryBackoff     time.Duration `koanf:"retry_backoff"`
	RetryBackoffMax  time.Duration `koanf:"retry_backoff_max"`
	OutputFile       string        `koanf:"output_file"`
	OutputFormat     string        `koanf:"output_format"` // csv, json, or dual
	UserAgent        string        `koanf:"user_agent"`
	RespectRobotsTxt bool          `koanf:"respect_robots"`
	MetricsAddr      string        `koanf:"metrics_addr"`
}

// DefaultConfig returns conservative defaults for local use.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Data: DataConfig{
			BronzeDir:      "data/bronze",
			SilverDir:      "data/silver",
			PredictionsDir: "data/predictions",
		},
		Auth: AuthConfig{
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Scraper: ScraperConfig{
			BaseURL:          "https://books.toscrape.com",
			MaxPages:         200,
			Parallelism:      16,
			Timeout:          10 * time.Second,
			MaxRetries:       2,
			RetryBackoff:     200 * time.Millisecond,
			RetryBackoffMax:  2 * time.Second,
			OutputFile:       "data/bronze/books.csv",
			OutputFormat:     "csv",
			UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
			RespectRobotsTxt: false,
		},
	}
}

// Load builds the configuration from defaults, an optional config file, and
// the environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// BOOKS_AUTH_JWT_SECRET -> auth.jwt_secret: only the section separator
	// becomes a dot, the rest stays underscored.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.Replace(s, "_", ".", 1)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr cannot be empty")
	}
	if c.Data.SilverDir == "" {
		return fmt.Errorf("silver data directory cannot be empty")
	}
	if c.Data.PredictionsDir == "" {
		return fmt.Errorf("predictions directory cannot be empty")
	}
	if c.Auth.AdminUser != "" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required when an admin user is configured")
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	return c.validateScraper()
}

func (c *Config) validateScraper() error {
	s := c.Scraper
	if s.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	parsed, err := url.Parse(s.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if s.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if s.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if s.Delay < 0 || s.RandomDelay < 0 {
		return fmt.Errorf("delays cannot be negative")
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if s.RetryBackoff < 0 || s.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if s.RetryBackoffMax > 0 && s.RetryBackoff > s.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", s.RetryBackoff, s.RetryBackoffMax)
	}
	if s.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if s.OutputFormat != "csv" && s.OutputFormat != "json" && s.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if s.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	return nil
}
