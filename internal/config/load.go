package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file on top of the defaults, then
// validates it. Unknown keys are fatal so a typo never goes unnoticed.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}

		return nil, fmt.Errorf("config file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads path if it exists, otherwise returns the defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve applies the override chain: defaults, config file, environment.
// CLI flags are applied by the caller on the returned Config. The config
// path itself comes from cliPath, then env, then the platform default.
func Resolve(env EnvOverrides, cliPath string) (*Config, error) {
	path := DefaultConfigPath()
	if env.ConfigPath != "" {
		path = env.ConfigPath
	}

	if cliPath != "" {
		path = cliPath
	}

	cfg, err := LoadOrDefault(path)
	if err != nil {
		return nil, err
	}

	env.Apply(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks every field and returns all problems joined together.
func Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.OAuth.ClientID) == "" {
		errs = append(errs, errors.New("oauth.client_id must not be empty"))
	}

	if err := validateRedirectURL(cfg.OAuth.RedirectURL); err != nil {
		errs = append(errs, err)
	}

	if cfg.Catalog.PageSize < 1 || cfg.Catalog.PageSize > 1000 {
		errs = append(errs, fmt.Errorf("catalog.page_size must be between 1 and 1000, got %d", cfg.Catalog.PageSize))
	}

	if cfg.Catalog.MaxDepth < 1 {
		errs = append(errs, fmt.Errorf("catalog.max_depth must be at least 1, got %d", cfg.Catalog.MaxDepth))
	}

	if d, err := time.ParseDuration(cfg.Network.Timeout); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("network.timeout must be a positive duration, got %q", cfg.Network.Timeout))
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", cfg.Logging.Level))
	}

	return errors.Join(errs...)
}

// validateRedirectURL accepts loopback http URLs with an explicit port, the
// only kind the local callback server can serve.
func validateRedirectURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("oauth.redirect_url: %w", err)
	}

	if u.Scheme != "http" {
		return fmt.Errorf("oauth.redirect_url must use http, got %q", raw)
	}

	host, port, err := net.SplitHostPort(u.Host)
	if err != nil || port == "" {
		return fmt.Errorf("oauth.redirect_url must include a port, got %q", raw)
	}

	if host != "localhost" && host != "127.0.0.1" {
		return fmt.Errorf("oauth.redirect_url must point at localhost or 127.0.0.1, got %q", raw)
	}

	return nil
}
