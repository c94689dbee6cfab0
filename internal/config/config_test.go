package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "8000" || cfg.Storage.Driver != "memory" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Upstream.CycleTimeout != 0 || cfg.Upstream.PaymentTimeout != 10*time.Second || cfg.Upstream.DetailTimeout != 10*time.Second {
		t.Errorf("unexpected timeouts: %+v", cfg.Upstream)
	}
	if cfg.Alerts.MinFailuresBeforeAlert != 1 {
		t.Errorf("MinFailuresBeforeAlert = %d", cfg.Alerts.MinFailuresBeforeAlert)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bjwater.yaml")
	data := `
server:
  port: "9000"
storage:
  driver: sqlite
  dsn: /tmp/bjwater.db
upstream:
  base_url: http://portal.test
  payment_timeout: 5s
refresh:
  interval: "*/30 * * * *"
accounts:
  - bjwater:u1
  - u2
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "9100")
	t.Setenv("BJWATER_DETAIL_TIMEOUT", "3s")
	t.Setenv("ALERT_WEBHOOK_URL", "https://hooks.slack.com/services/x")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9100" {
		t.Errorf("Port = %q, want env override", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.DSN != "/tmp/bjwater.db" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Refresh.Interval != "*/30 * * * *" || cfg.Log.Level != "debug" {
		t.Errorf("Refresh = %+v Log = %+v", cfg.Refresh, cfg.Log)
	}
	if !cfg.Alerts.Enabled() {
		t.Error("alerts should be enabled by ALERT_WEBHOOK_URL")
	}

	opts := cfg.BillingOptions()
	if opts.BaseURL != "http://portal.test" || opts.PaymentTimeout != 5*time.Second || opts.DetailTimeout != 3*time.Second {
		t.Errorf("BillingOptions = %+v", opts)
	}

	accounts, err := cfg.ParsedAccounts()
	if err != nil {
		t.Fatalf("ParsedAccounts: %v", err)
	}
	if len(accounts) != 2 || accounts[1].Provider != "bjwater" || accounts[1].UserCode != "u2" {
		t.Errorf("accounts = %+v", accounts)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestLoad_InvalidDurationEnv(t *testing.T) {
	t.Setenv("BJWATER_PAYMENT_TIMEOUT", "ten seconds")
	if _, err := FromEnv(); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestParseAccount(t *testing.T) {
	tests := []struct {
		in       string
		provider string
		userCode string
		wantErr  bool
	}{
		{in: "bjwater:123", provider: "bjwater", userCode: "123"},
		{in: " 456 ", provider: "bjwater", userCode: "456"},
		{in: "bjwater:", wantErr: true},
		{in: ":123", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		a, err := ParseAccount(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidAccount) {
				t.Errorf("ParseAccount(%q): expected ErrInvalidAccount, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || a.Provider != tt.provider || a.UserCode != tt.userCode {
			t.Errorf("ParseAccount(%q) = %+v, %v", tt.in, a, err)
		}
	}
}

func TestLoad_AccountsFromEnv(t *testing.T) {
	t.Setenv("BJWATER_ACCOUNTS", "bjwater:1, 2 ,,")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if len(cfg.Accounts) != 2 {
		t.Errorf("Accounts = %v", cfg.Accounts)
	}
}
