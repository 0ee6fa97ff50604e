package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.DelayMin != 3*time.Second || cfg.DelayMax != 5*time.Second {
		t.Errorf("delay window = %v..%v", cfg.DelayMin, cfg.DelayMax)
	}
	if cfg.SendAttempts != 5 {
		t.Errorf("SendAttempts = %d", cfg.SendAttempts)
	}
}

func TestValidateDerivesStateDir(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.StateDir == "" {
		t.Fatal("StateDir not derived")
	}
}

func TestValidateRejectsBadDelayWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StateDir = t.TempDir()
	cfg.DelayMin = 5 * time.Second
	cfg.DelayMax = 3 * time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for inverted delay window")
	}
}

func TestValidateRejectsZeroAttempts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StateDir = t.TempDir()
	cfg.SendAttempts = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero attempts")
	}
}

func TestValidateSMTPNeedsFrom(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StateDir = t.TempDir()
	cfg.SMTPHost = "smtp.example.com"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when smtp host set without sender")
	}
	cfg.SMTPUser = "sender@example.com"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestApplyFileConfigRespectsChangedFlags(t *testing.T) {
	cfg := DefaultConfig()
	fc := FileConfig{
		CountryCode: "44",
		DelayMin:    "10s",
		ListenAddr:  ":9999",
	}
	changed := map[string]bool{"listen": true}

	if err := ApplyFileConfig(&cfg, fc, changed); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}
	if cfg.CountryCode != "44" {
		t.Errorf("CountryCode = %q, want 44", cfg.CountryCode)
	}
	if cfg.DelayMin != 10*time.Second {
		t.Errorf("DelayMin = %v, want 10s", cfg.DelayMin)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q, changed flag should win", cfg.ListenAddr)
	}
}

func TestApplyFileConfigBadDuration(t *testing.T) {
	cfg := DefaultConfig()
	fc := FileConfig{DelayMin: "not-a-duration"}
	if err := ApplyFileConfig(&cfg, fc, nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
listen_addr = ":8080"
country_code = "1"
delay_min = "2s"
delay_max = "4s"
max_per_minute = 12
smtp_host = "smtp.example.com"
smtp_user = "sender@example.com"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig: %v", err)
	}
	if fc.ListenAddr != ":8080" || fc.CountryCode != "1" || fc.MaxSendsPerMinute != 12 {
		t.Fatalf("parsed = %+v", fc)
	}
}
