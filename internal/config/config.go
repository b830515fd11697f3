// Package config reads and writes the global ~/.drv/config.toml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the global configuration shared by all sessions.
type Config struct {
	DefaultSession string  `toml:"default_session"`
	LogLevel       string  `toml:"log_level"`
	API            API     `toml:"api"`
	Poll           Poll    `toml:"poll"`
	Metrics        Metrics `toml:"metrics"`
}

// API locates the delivery backend.
type API struct {
	BaseURL     string   `toml:"base_url"`
	ChatBaseURL string   `toml:"chat_base_url"`
	Timeout     Duration `toml:"request_timeout"`
}

// Poll holds the refresh interval of each live view.
type Poll struct {
	Orders        Duration `toml:"orders"`
	Chat          Duration `toml:"chat"`
	Notifications Duration `toml:"notifications"`
}

// Metrics configures the debug HTTP listener. An empty Addr disables it.
type Metrics struct {
	Addr string `toml:"addr"`
}

// Duration is a time.Duration written as a Go duration string in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DefaultSession: "main",
		LogLevel:       "info",
		API: API{
			BaseURL:     "https://admin.tadhem.com/api",
			ChatBaseURL: "https://api.tadhem.com/api/driver",
		},
		Poll: Poll{
			Orders:        Duration{10 * time.Second},
			Chat:          Duration{3 * time.Second},
			Notifications: Duration{3 * time.Second},
		},
	}
}

// Load reads config from path on top of Default. A missing file is an
// error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load that falls back to Default when path does not
// exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate rejects settings the daemon cannot run with.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" || c.API.ChatBaseURL == "" {
		return errors.New("api.base_url and api.chat_base_url are required")
	}
	for name, d := range map[string]Duration{
		"poll.orders":        c.Poll.Orders,
		"poll.chat":          c.Poll.Chat,
		"poll.notifications": c.Poll.Notifications,
	} {
		if d.Duration <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d.Duration)
		}
	}
	if c.API.Timeout.Duration < 0 {
		return fmt.Errorf("api.request_timeout must not be negative")
	}
	return nil
}

// Save writes config to path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
