package cliconfig

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		changed map[string]bool
		check   func(t *testing.T, cfg Config)
		wantErr bool
	}{
		{
			name: "strings and ints applied",
			env: map[string]string{
				"OUTFLOW_COUNTRY_CODE":   "44",
				"OUTFLOW_LISTEN_ADDR":    ":8080",
				"OUTFLOW_SEND_ATTEMPTS":  "3",
				"OUTFLOW_MAX_PER_MINUTE": "20",
			},
			check: func(t *testing.T, cfg Config) {
				if cfg.CountryCode != "44" {
					t.Errorf("CountryCode = %q", cfg.CountryCode)
				}
				if cfg.ListenAddr != ":8080" {
					t.Errorf("ListenAddr = %q", cfg.ListenAddr)
				}
				if cfg.SendAttempts != 3 {
					t.Errorf("SendAttempts = %d", cfg.SendAttempts)
				}
				if cfg.MaxSendsPerMinute != 20 {
					t.Errorf("MaxSendsPerMinute = %d", cfg.MaxSendsPerMinute)
				}
			},
		},
		{
			name: "durations applied",
			env: map[string]string{
				"OUTFLOW_DELAY_MIN":       "7s",
				"OUTFLOW_DELAY_MAX":       "9s",
				"OUTFLOW_CONNECT_TIMEOUT": "30s",
			},
			check: func(t *testing.T, cfg Config) {
				if cfg.DelayMin != 7*time.Second || cfg.DelayMax != 9*time.Second {
					t.Errorf("delay window = %v..%v", cfg.DelayMin, cfg.DelayMax)
				}
				if cfg.ConnectTimeout != 30*time.Second {
					t.Errorf("ConnectTimeout = %v", cfg.ConnectTimeout)
				}
			},
		},
		{
			name: "changed flag wins over env",
			env: map[string]string{
				"OUTFLOW_COUNTRY_CODE": "44",
			},
			changed: map[string]bool{"country-code": true},
			check: func(t *testing.T, cfg Config) {
				if cfg.CountryCode != "91" {
					t.Errorf("CountryCode = %q, flag should win", cfg.CountryCode)
				}
			},
		},
		{
			name:    "invalid duration rejected",
			env:     map[string]string{"OUTFLOW_DELAY_MIN": "soon"},
			wantErr: true,
		},
		{
			name:    "invalid int rejected",
			env:     map[string]string{"OUTFLOW_SEND_ATTEMPTS": "many"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg := DefaultConfig()
			err := ApplyEnvConfig(&cfg, tt.changed)
			if tt.wantErr {
				if err == nil {
					t.Error("ApplyEnvConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnvConfig() unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}
