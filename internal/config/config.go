// Package config loads application configuration from an optional TOML file
// with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ErrMissingCredentials is returned when no Spotify client credentials are
// configured via file or environment.
var ErrMissingCredentials = errors.New("missing Spotify client ID or secret (set SPOTIFY_ID and SPOTIFY_SECRET)")

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Spotify  SpotifyConfig  `toml:"spotify"`
	Cleanup  CleanupConfig  `toml:"cleanup"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr string `toml:"addr"`
	// BaseURL is the externally visible origin used to build the OAuth
	// redirect URI. Spotify requires an exact match with the app settings,
	// so hosted deployments must set this to their public https origin.
	BaseURL string `toml:"base_url"`
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	URL string `toml:"url"`
}

// SpotifyConfig contains API credentials and request tuning.
// The batch and retry limits mirror Spotify's published API limits and are
// configurable rather than hardcoded.
type SpotifyConfig struct {
	ClientID          string  `toml:"client_id"`
	ClientSecret      string  `toml:"client_secret"`
	PageSize          int     `toml:"page_size"`
	DeleteBatchSize   int     `toml:"delete_batch_size"`
	MaxAttempts       int     `toml:"max_attempts"`
	BackoffBaseMS     int     `toml:"backoff_base_ms"`
	RequestTimeoutSec int     `toml:"request_timeout_sec"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// CleanupConfig contains cleanup run defaults.
type CleanupConfig struct {
	DefaultTimeframeMonths int `toml:"default_timeframe_months"`
}

// Default returns a Config with working defaults for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:    "127.0.0.1:8080",
			BaseURL: "http://127.0.0.1:8080",
		},
		Spotify: SpotifyConfig{
			PageSize:          50,
			DeleteBatchSize:   50,
			MaxAttempts:       3,
			BackoffBaseMS:     500,
			RequestTimeoutSec: 30,
			RequestsPerSecond: 10,
		},
		Cleanup: CleanupConfig{
			DefaultTimeframeMonths: 6,
		},
	}
}

// Load reads configuration from the TOML file at path (if it exists) and
// applies environment variable overrides. A missing file is not an error;
// missing credentials are.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// Fall through to env-only configuration.
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if cfg.Spotify.ClientID == "" || cfg.Spotify.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("missing database URL (set DATABASE_URL)")
	}
	if cfg.Spotify.MaxAttempts < 1 {
		return nil, errors.New("spotify max_attempts must be at least 1")
	}

	return cfg, nil
}

// applyEnv overrides file values with environment variables when set.
func (c *Config) applyEnv() {
	if v := os.Getenv("SPOTIFY_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}
}

// RedirectURI returns the OAuth callback URI for this deployment.
func (c *Config) RedirectURI() string {
	return c.Server.BaseURL + "/callback"
}
