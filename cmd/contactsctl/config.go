package main

import (
	"contacts-backend/internal/client"
	"contacts-backend/internal/governance"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const configFileName = ".contactsctl.toml"

// Config is the contactsctl configuration file.
type Config struct {
	Server    string `toml:"server"`
	EventsURL string `toml:"events_url"`
	Token     string `toml:"token"`
	Tenant    string `toml:"tenant"`
	CacheDir  string `toml:"cache_dir"`
	Timeout   string `toml:"timeout"`
	PageSize  int    `toml:"page_size"`
	LogLevel  string `toml:"log_level"`
}

func defaultConfig() Config {
	return Config{
		Server:   "http://localhost:8080/api/v1",
		Timeout:  client.DefaultTimeout.String(),
		PageSize: governance.DefaultPageSize,
		LogLevel: "warn",
	}
}

// DefaultConfigPath is ~/.contactsctl.toml, or empty when the home
// directory is unknown.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, configFileName)
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) timeout() (time.Duration, error) {
	if c.Timeout == "" {
		return client.DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive")
	}
	return d, nil
}

// eventsURL is the configured event stream URL, or the one derived from the
// server URL: same host, ws scheme, /api/ws/v1/events.
func (c Config) eventsURL() (string, error) {
	if c.EventsURL != "" {
		return c.EventsURL, nil
	}
	u, err := url.Parse(c.Server)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", c.Server, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/api/v1") + "/api/ws/v1/events"
	u.RawQuery = ""
	return u.String(), nil
}

func (c Config) cacheDir() (string, error) {
	if c.CacheDir != "" {
		return c.CacheDir, nil
	}
	return governance.DefaultCacheDir()
}
