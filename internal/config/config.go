// Package config implements TOML configuration loading and validation for
// drivefiles. Values resolve through defaults, the config file, environment
// variables, and finally CLI flags, each layer overriding the previous one.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the top-level configuration parsed from a TOML file.
type Config struct {
	OAuth   OAuthConfig   `toml:"oauth"`
	Catalog CatalogConfig `toml:"catalog"`
	Network NetworkConfig `toml:"network"`
	Logging LoggingConfig `toml:"logging"`
}

// OAuthConfig holds the OAuth 2.0 client registration. ClientSecret is
// usually left out of the file and provided through GOOGLE_CLIENT_SECRET.
type OAuthConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURL  string `toml:"redirect_url"`
	AuthURL      string `toml:"auth_url"`
	TokenURL     string `toml:"token_url"`
}

// CatalogConfig controls listing and path resolution.
type CatalogConfig struct {
	PageSize int  `toml:"page_size"`
	AllPages bool `toml:"all_pages"`
	MaxDepth int  `toml:"max_depth"`
}

// NetworkConfig controls the HTTP transport.
type NetworkConfig struct {
	Timeout string `toml:"timeout"`
}

// LoggingConfig sets the log level: debug, info, warn or error.
type LoggingConfig struct {
	Level string `toml:"level"`
}

const (
	appDir         = "drivefiles"
	configFileName = "config.toml"

	// Desktop OAuth client registered for the CLI.
	defaultClientID    = "999716078375-50cl3182oudsaom3sfhogg0k57m714c5.apps.googleusercontent.com"
	defaultRedirectURL = "http://localhost:8080"
	defaultPageSize    = 100
	defaultMaxDepth    = 64
	defaultTimeout     = "30s"
	defaultLogLevel    = "warn"
)

// DefaultConfig returns a Config populated with every default value.
func DefaultConfig() *Config {
	return &Config{
		OAuth: OAuthConfig{
			ClientID:    defaultClientID,
			RedirectURL: defaultRedirectURL,
		},
		Catalog: CatalogConfig{
			PageSize: defaultPageSize,
			MaxDepth: defaultMaxDepth,
		},
		Network: NetworkConfig{Timeout: defaultTimeout},
		Logging: LoggingConfig{Level: defaultLogLevel},
	}
}

// DefaultConfigPath returns the platform config file location, or an empty
// string when the user config directory cannot be determined.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, appDir, configFileName)
}

// HTTPTimeout returns the parsed network timeout. Validate guarantees it
// parses for a loaded Config.
func (c *Config) HTTPTimeout() time.Duration {
	d, err := time.ParseDuration(c.Network.Timeout)
	if err != nil {
		return 0
	}

	return d
}
