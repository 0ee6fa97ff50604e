package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// DefaultListenAddr is the default bind address for the HTTP API.
const DefaultListenAddr = ":3000"

// Config holds CLI configuration for outflow.
type Config struct {
	StateDir   string
	ListenAddr string

	CountryCode   string
	AddressDomain string

	// DelayFixed, when positive, replaces the jitter window with a constant
	// inter-send pause.
	DelayFixed time.Duration
	DelayMin   time.Duration
	DelayMax   time.Duration

	SendAttempts    int
	SendBackoffStep time.Duration

	// MaxSendsPerMinute caps the global send rate. Zero disables the cap.
	MaxSendsPerMinute int

	ConnectTimeout time.Duration

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ListenAddr:      DefaultListenAddr,
		CountryCode:     "91",
		AddressDomain:   "s.whatsapp.net",
		DelayMin:        3 * time.Second,
		DelayMax:        5 * time.Second,
		SendAttempts:    5,
		SendBackoffStep: 2 * time.Second,
		ConnectTimeout:  2 * time.Minute,
		SMTPPort:        587,
		SMTPPass:        os.Getenv("OUTFLOW_SMTP_PASS"),
		LogLevel:        "info",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.StateDir == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("state-dir is required when no home directory is available")
		}
		c.StateDir = filepath.Join(h, ".outflow")
	}

	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}

	if c.DelayFixed < 0 {
		return fmt.Errorf("delay-fixed must not be negative")
	}
	if c.DelayMin < 0 || c.DelayMax < 0 {
		return fmt.Errorf("delay bounds must not be negative")
	}
	if c.DelayMax < c.DelayMin {
		return fmt.Errorf("delay-max must be >= delay-min")
	}

	if c.SendAttempts < 1 {
		return fmt.Errorf("send-attempts must be at least 1")
	}
	if c.MaxSendsPerMinute < 0 {
		return fmt.Errorf("max-per-minute must not be negative")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect-timeout must be positive")
	}

	if c.SMTPHost != "" && c.SMTPUser == "" && c.SMTPFrom == "" {
		return fmt.Errorf("smtp-from (or smtp-user) is required when smtp-host is set")
	}

	return nil
}

// MailEnabled reports whether an SMTP server is configured.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}
