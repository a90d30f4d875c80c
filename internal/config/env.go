package config

import (
	"os"
	"strings"
)

// Environment variable names for overrides.
const (
	EnvConfig       = "DRIVEFILES_CONFIG"
	EnvClientID     = "DRIVEFILES_CLIENT_ID"
	EnvClientSecret = "GOOGLE_CLIENT_SECRET"
	EnvLogLevel     = "DRIVEFILES_LOG_LEVEL"
)

// EnvOverrides holds values read from the environment.
type EnvOverrides struct {
	ConfigPath   string // DRIVEFILES_CONFIG: config file path
	ClientID     string // DRIVEFILES_CLIENT_ID
	ClientSecret string // GOOGLE_CLIENT_SECRET
	LogLevel     string // DRIVEFILES_LOG_LEVEL
}

// ReadEnvOverrides reads the environment. It does not modify any Config.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:   strings.TrimSpace(os.Getenv(EnvConfig)),
		ClientID:     strings.TrimSpace(os.Getenv(EnvClientID)),
		ClientSecret: strings.TrimSpace(os.Getenv(EnvClientSecret)),
		LogLevel:     strings.TrimSpace(os.Getenv(EnvLogLevel)),
	}
}

// Apply overwrites the fields of cfg that have a non-empty override.
func (e EnvOverrides) Apply(cfg *Config) {
	if e.ClientID != "" {
		cfg.OAuth.ClientID = e.ClientID
	}

	if e.ClientSecret != "" {
		cfg.OAuth.ClientSecret = e.ClientSecret
	}

	if e.LogLevel != "" {
		cfg.Logging.Level = e.LogLevel
	}
}
