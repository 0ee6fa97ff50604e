package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	StateDir   string `toml:"state_dir"`
	ListenAddr string `toml:"listen_addr"`

	CountryCode   string `toml:"country_code"`
	AddressDomain string `toml:"address_domain"`

	DelayFixed string `toml:"delay_fixed"`
	DelayMin   string `toml:"delay_min"`
	DelayMax   string `toml:"delay_max"`

	SendAttempts    int    `toml:"send_attempts"`
	SendBackoffStep string `toml:"send_backoff_step"`

	MaxSendsPerMinute int `toml:"max_per_minute"`

	ConnectTimeout string `toml:"connect_timeout"`

	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	SMTPUser string `toml:"smtp_user"`
	SMTPPass string `toml:"smtp_pass"`
	SMTPFrom string `toml:"smtp_from"`

	LogLevel string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.outflow/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".outflow", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("listen", fc.ListenAddr, &cfg.ListenAddr)
	s.setString("country-code", fc.CountryCode, &cfg.CountryCode)
	s.setString("address-domain", fc.AddressDomain, &cfg.AddressDomain)
	s.setString("smtp-host", fc.SMTPHost, &cfg.SMTPHost)
	s.setString("smtp-user", fc.SMTPUser, &cfg.SMTPUser)
	s.setString("smtp-pass", fc.SMTPPass, &cfg.SMTPPass)
	s.setString("smtp-from", fc.SMTPFrom, &cfg.SMTPFrom)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("delay-fixed", fc.DelayFixed, &cfg.DelayFixed); err != nil {
		return err
	}
	if err := s.setDuration("delay-min", fc.DelayMin, &cfg.DelayMin); err != nil {
		return err
	}
	if err := s.setDuration("delay-max", fc.DelayMax, &cfg.DelayMax); err != nil {
		return err
	}
	if err := s.setDuration("send-backoff", fc.SendBackoffStep, &cfg.SendBackoffStep); err != nil {
		return err
	}
	if err := s.setDuration("connect-timeout", fc.ConnectTimeout, &cfg.ConnectTimeout); err != nil {
		return err
	}

	s.setInt("send-attempts", fc.SendAttempts, &cfg.SendAttempts)
	s.setInt("max-per-minute", fc.MaxSendsPerMinute, &cfg.MaxSendsPerMinute)
	s.setInt("smtp-port", fc.SMTPPort, &cfg.SMTPPort)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
