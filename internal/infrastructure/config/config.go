package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

// Config holds environment-level settings shared by every command. Project
// settings live in wavedash.toml, not here.
type Config struct {
	Site    SiteConfig
	Logging LogConfig
}

// SiteConfig holds hosted-application settings.
type SiteConfig struct {
	// Host is the hosted web application the sandbox link opens.
	Host string `envconfig:"SITE_HOST" default:"https://wavedash.gg"`
	// AllowedOrigins are the domains (including subdomains) the dev server
	// reflects CORS headers for.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"wavedash.gg,wavedash.lvh.me"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load loads configuration from WVDSH_* environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("wvdsh", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			Host:           "https://wavedash.gg",
			AllowedOrigins: []string{"wavedash.gg", "wavedash.lvh.me"},
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}

// UserDir resolves the per-user wvdsh configuration directory. It honors
// WVDSH_CONFIG_HOME so tests and CI can redirect certificate storage.
func UserDir() (string, error) {
	if dir := os.Getenv("WVDSH_CONFIG_HOME"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config dir: %w", err)
	}
	return filepath.Join(base, "wvdsh"), nil
}
