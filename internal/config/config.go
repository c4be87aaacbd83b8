// Package config loads and validates the jobreach config file.
//
// The file may be yaml or json; yaml is coerced to JSON first so both
// formats go through the same strict decoder. Unknown fields are rejected
// to catch typos early.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	DefaultDelay    = 1500 * time.Millisecond
	DefaultDebounce = 400 * time.Millisecond
	DefaultCron     = "0 10 * * *"
)

// Load reads, decodes and validates the config at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(path, b)
	if err != nil {
		return nil, err
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes raw config bytes without applying defaults or validation.
func Parse(path string, b []byte) (*Config, error) {
	jb, err := toJSON(path, b)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("invalid config: trailing data")
		}
		return nil, err
	}
	return &cfg, nil
}

// finish applies defaults, env overrides and validation.
func (c *Config) finish() error {
	// Secrets may live outside the file.
	if strings.TrimSpace(c.SMTP.Pass) == "" {
		c.SMTP.Pass = os.Getenv("SMTP_PASS")
	}
	if strings.TrimSpace(c.SMTP.User) == "" {
		c.SMTP.User = os.Getenv("SMTP_USER")
	}
	if strings.TrimSpace(c.From.Email) == "" {
		c.From.Email = c.SMTP.User
	}

	if strings.TrimSpace(c.Message.BodyFile) != "" {
		b, err := os.ReadFile(c.Message.BodyFile)
		if err != nil {
			return fmt.Errorf("message.body_file: %w", err)
		}
		c.Message.Body = string(b)
	}

	if c.Schedule.Enabled && strings.TrimSpace(c.Schedule.Cron) == "" {
		c.Schedule.Cron = DefaultCron
	}

	return c.Validate()
}

// Validate checks everything the engine needs to start. SMTP credential
// completeness is checked by the transport factory, which reports the
// missing fields itself.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.Recipients) == "" {
		return fmt.Errorf("paths.recipients is required")
	}
	if strings.TrimSpace(c.Paths.State) == "" {
		return fmt.Errorf("paths.state is required")
	}
	if strings.TrimSpace(c.Message.Subject) == "" {
		return fmt.Errorf("message.subject is required")
	}
	if _, err := parseDuration("deliver.delay", c.Deliver.Delay); err != nil {
		return err
	}
	if _, err := parseDuration("watch.debounce", c.Watch.Debounce); err != nil {
		return err
	}
	if c.Audit != nil {
		if _, err := parseDuration("audit.busy_timeout", c.Audit.BusyTimeout); err != nil {
			return err
		}
	}
	return nil
}

// parseDuration validates a Go duration string like "1500ms" or "2s".
// Empty means unset and parses to zero.
func parseDuration(field, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", field, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %q", field, raw)
	}
	return d, nil
}

// durationOrDefault falls back to def for unset, zero or invalid values.
// Validate has already surfaced invalid ones as errors.
func durationOrDefault(field, raw string, def time.Duration) time.Duration {
	d, err := parseDuration(field, raw)
	if err != nil || d == 0 {
		return def
	}
	return d
}

// Delay returns the effective inter-send pause.
func (c *Config) Delay() time.Duration {
	return durationOrDefault("deliver.delay", c.Deliver.Delay, DefaultDelay)
}

// Debounce returns the effective watcher quiet period.
func (c *Config) Debounce() time.Duration {
	return durationOrDefault("watch.debounce", c.Watch.Debounce, DefaultDebounce)
}

// AuditBusyTimeout returns the sqlite busy timeout, 0 when unset.
func (c *Config) AuditBusyTimeout() time.Duration {
	if c.Audit == nil {
		return 0
	}
	d, err := parseDuration("audit.busy_timeout", c.Audit.BusyTimeout)
	if err != nil {
		return 0
	}
	return d
}
