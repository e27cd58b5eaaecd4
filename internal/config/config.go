package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.clack/config.toml.
type Config struct {
	DefaultSession string `toml:"default_session"`
}

// Session represents a per-session session.toml: where the backend
// lives, who we are, and the sync tuning knobs.
type Session struct {
	ServerURL string `toml:"server_url"`
	Token     string `toml:"token"`
	UserID    string `toml:"user_id"`

	// PollIntervalSeconds is the fallback poll period. 0 means the
	// default of 15 seconds.
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
	// RequestTimeoutSeconds bounds every REST call, including polls,
	// so a slow poll cannot stall the next tick. 0 means 10 seconds.
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
	// ReconnectMinSeconds / ReconnectMaxSeconds bound the exponential
	// reconnect backoff. 0 means 1s / 60s.
	ReconnectMinSeconds int `toml:"reconnect_min_seconds"`
	ReconnectMaxSeconds int `toml:"reconnect_max_seconds"`
	// PageSize is the timeline page size for loads and polls. 0 means 50.
	PageSize int `toml:"page_size"`
}

// PollInterval returns the effective poll period.
func (s *Session) PollInterval() time.Duration {
	if s.PollIntervalSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(s.PollIntervalSeconds) * time.Second
}

// RequestTimeout returns the effective per-request timeout.
func (s *Session) RequestTimeout() time.Duration {
	if s.RequestTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// ReconnectBounds returns the (min, max) reconnect backoff window.
func (s *Session) ReconnectBounds() (time.Duration, time.Duration) {
	min := time.Second
	if s.ReconnectMinSeconds > 0 {
		min = time.Duration(s.ReconnectMinSeconds) * time.Second
	}
	max := 60 * time.Second
	if s.ReconnectMaxSeconds > 0 {
		max = time.Duration(s.ReconnectMaxSeconds) * time.Second
	}
	if max < min {
		max = min
	}
	return min, max
}

// EffectivePageSize returns the timeline page size.
func (s *Session) EffectivePageSize() int {
	if s.PageSize <= 0 {
		return 50
	}
	return s.PageSize
}

// Validate checks the fields without which a session cannot sync.
func (s *Session) Validate() error {
	if s.ServerURL == "" {
		return fmt.Errorf("session config: server_url is required")
	}
	if s.Token == "" {
		return fmt.Errorf("session config: token is required")
	}
	if s.UserID == "" {
		return fmt.Errorf("session config: user_id is required")
	}
	return nil
}

// Load reads the global config from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadSession reads a session config from the given path.
func LoadSession(path string) (*Session, error) {
	var cfg Session
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the global config to the given path, creating parent
// dirs as needed.
func Save(path string, cfg *Config) error {
	return write(path, cfg)
}

// SaveSession writes a session config to the given path.
func SaveSession(path string, cfg *Session) error {
	return write(path, cfg)
}

func write(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(v)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
