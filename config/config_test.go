package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "end year before start year",
			mutate: func(cfg *Config) {
				cfg.StartYear = 2020
				cfg.EndYear = 2015
			},
			wantErr: "end year",
		},
		{
			name: "invalid tz sign",
			mutate: func(cfg *Config) {
				cfg.TZSign = 0
			},
			wantErr: "tz sign",
		},
		{
			name: "negative tz hours",
			mutate: func(cfg *Config) {
				cfg.TZHours = -6.0
			},
			wantErr: "tz hours",
		},
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "url without host",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "zero attempts",
			mutate: func(cfg *Config) {
				cfg.MaxAttempts = 0
			},
			wantErr: "max attempts",
		},
		{
			name: "backoff exceeds cap",
			mutate: func(cfg *Config) {
				cfg.RetryBackoff = 30 * time.Second
				cfg.RetryBackoffMax = 16 * time.Second
			},
			wantErr: "retry backoff",
		},
		{
			name: "zero min day rows",
			mutate: func(cfg *Config) {
				cfg.MinDayRows = 0
			},
			wantErr: "min day rows",
		},
		{
			name: "empty output file",
			mutate: func(cfg *Config) {
				cfg.OutputFile = ""
			},
			wantErr: "output file",
		},
		{
			name: "unknown output format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "parquet"
			},
			wantErr: "output format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %T", err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestApplyStateKnown(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.ApplyState("al"); err != nil {
		t.Fatalf("apply state: %v", err)
	}
	if cfg.State != "AL" {
		t.Fatalf("state = %q, want AL", cfg.State)
	}
	if cfg.TZHours != 6.0 || cfg.TZSign != -1 || !cfg.TZLabel {
		t.Fatalf("unexpected tz settings: hours=%v sign=%d label=%v", cfg.TZHours, cfg.TZSign, cfg.TZLabel)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config with state applied should validate, got %v", err)
	}
}

func TestApplyStateUnknown(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyState("ZZ")
	if err == nil {
		t.Fatalf("expected error for unknown state")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	if !strings.Contains(err.Error(), "ZZ") {
		t.Fatalf("error should name the code, got %v", err)
	}
}
