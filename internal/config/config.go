// Package config loads Chronicle settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Backend modes for the client.
const (
	BackendHTTP     = "http"
	BackendEmbedded = "embedded"
)

// Config holds every tunable of the client, the server and the generator.
type Config struct {
	// Client
	APIURL         string        `env:"CHRONICLE_API_URL"          envDefault:"http://localhost:8000"`
	Backend        string        `env:"CHRONICLE_BACKEND"          envDefault:"http"`
	DBPath         string        `env:"CHRONICLE_DB_PATH"          envDefault:"chronicle.db"`
	RequestTimeout time.Duration `env:"CHRONICLE_REQUEST_TIMEOUT"  envDefault:"60s"`
	NoticeTTL      time.Duration `env:"CHRONICLE_NOTICE_TTL"       envDefault:"6s"`
	FenceRequests  bool          `env:"CHRONICLE_FENCE_REQUESTS"   envDefault:"true"`

	// Server
	ListenAddr string `env:"CHRONICLE_LISTEN_ADDR" envDefault:":8000"`
	Debug      bool   `env:"CHRONICLE_DEBUG"`

	// Generator
	GoogleAPIKey string `env:"GOOGLE_API_KEY"`
	GeminiModel  string `env:"CHRONICLE_GEMINI_MODEL" envDefault:"gemini-2.5-flash"`

	// Telemetry; empty disables export
	OTelEndpoint string `env:"CHRONICLE_OTEL_ENDPOINT"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFrom parses vars instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that parse but cannot work.
func (c *Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendHTTP:
		u, err := url.Parse(c.APIURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("CHRONICLE_API_URL %q is not an absolute URL", c.APIURL))
		}
	case BackendEmbedded:
	default:
		errs = append(errs, fmt.Errorf("CHRONICLE_BACKEND must be %q or %q, got %q", BackendHTTP, BackendEmbedded, c.Backend))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("CHRONICLE_DB_PATH is empty"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("CHRONICLE_REQUEST_TIMEOUT must be positive"))
	}
	if c.NoticeTTL <= 0 {
		errs = append(errs, errors.New("CHRONICLE_NOTICE_TTL must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// RequireGenerator reports whether the Gemini settings are usable.
func (c *Config) RequireGenerator() error {
	if c.GoogleAPIKey == "" {
		return errors.New("config: GOOGLE_API_KEY is required for the generation engine")
	}
	return nil
}
