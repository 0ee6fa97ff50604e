package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (OUTFLOW_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("state-dir", os.Getenv("OUTFLOW_STATE_DIR"), &cfg.StateDir)
	s.setString("listen", os.Getenv("OUTFLOW_LISTEN_ADDR"), &cfg.ListenAddr)
	s.setString("country-code", os.Getenv("OUTFLOW_COUNTRY_CODE"), &cfg.CountryCode)
	s.setString("address-domain", os.Getenv("OUTFLOW_ADDRESS_DOMAIN"), &cfg.AddressDomain)
	s.setString("smtp-host", os.Getenv("OUTFLOW_SMTP_HOST"), &cfg.SMTPHost)
	s.setString("smtp-user", os.Getenv("OUTFLOW_SMTP_USER"), &cfg.SMTPUser)
	s.setString("smtp-pass", os.Getenv("OUTFLOW_SMTP_PASS"), &cfg.SMTPPass)
	s.setString("smtp-from", os.Getenv("OUTFLOW_SMTP_FROM"), &cfg.SMTPFrom)
	s.setString("log-level", os.Getenv("OUTFLOW_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("delay-fixed", os.Getenv("OUTFLOW_DELAY_FIXED"), &cfg.DelayFixed); err != nil {
		return err
	}
	if err := s.setDuration("delay-min", os.Getenv("OUTFLOW_DELAY_MIN"), &cfg.DelayMin); err != nil {
		return err
	}
	if err := s.setDuration("delay-max", os.Getenv("OUTFLOW_DELAY_MAX"), &cfg.DelayMax); err != nil {
		return err
	}
	if err := s.setDuration("send-backoff", os.Getenv("OUTFLOW_SEND_BACKOFF"), &cfg.SendBackoffStep); err != nil {
		return err
	}
	if err := s.setDuration("connect-timeout", os.Getenv("OUTFLOW_CONNECT_TIMEOUT"), &cfg.ConnectTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("send-attempts", os.Getenv("OUTFLOW_SEND_ATTEMPTS"), &cfg.SendAttempts); err != nil {
		return err
	}
	if err := s.setIntFromString("max-per-minute", os.Getenv("OUTFLOW_MAX_PER_MINUTE"), &cfg.MaxSendsPerMinute); err != nil {
		return err
	}
	if err := s.setIntFromString("smtp-port", os.Getenv("OUTFLOW_SMTP_PORT"), &cfg.SMTPPort); err != nil {
		return err
	}

	return nil
}
