// Package config loads service settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bher20/bjwater/internal/alerting"
	"github.com/bher20/bjwater/internal/billing"
	"github.com/bher20/bjwater/internal/logging"
	"github.com/bher20/bjwater/internal/storage"
)

var (
	// ErrInvalidFormat reports an unparsable file or environment value.
	ErrInvalidFormat = errors.New("config: invalid format")
	// ErrInvalidAccount reports a malformed account entry.
	ErrInvalidAccount = errors.New("config: invalid account")
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig         `yaml:"server"`
	Storage  StorageConfig        `yaml:"storage"`
	Upstream UpstreamConfig       `yaml:"upstream"`
	Refresh  RefreshConfig        `yaml:"refresh"`
	Accounts []string             `yaml:"accounts"`
	Alerts   alerting.AlertConfig `yaml:"alerts"`
	Log      logging.Config       `yaml:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// StorageConfig selects and opens the persistence backend.
type StorageConfig struct {
	// Driver is memory, sqlite, postgres or postgrespool.
	Driver      string `yaml:"driver"`
	DSN         string `yaml:"dsn"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// UpstreamConfig tunes requests to the billing portal.
type UpstreamConfig struct {
	// BaseURL overrides the registered source URL when set.
	BaseURL            string        `yaml:"base_url"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	CycleTimeout       time.Duration `yaml:"cycle_timeout"`
	PaymentTimeout     time.Duration `yaml:"payment_timeout"`
	DetailTimeout      time.Duration `yaml:"detail_timeout"`
}

// RefreshConfig schedules the background refresh worker.
type RefreshConfig struct {
	// Interval is whole seconds ("300") or a standard cron expression.
	Interval string `yaml:"interval"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	opts := billing.DefaultOptions()
	return Config{
		Server:  ServerConfig{Port: "8000"},
		Storage: StorageConfig{Driver: "memory"},
		Upstream: UpstreamConfig{
			CycleTimeout:   opts.CycleTimeout,
			PaymentTimeout: opts.PaymentTimeout,
			DetailTimeout:  opts.DetailTimeout,
		},
		Refresh: RefreshConfig{Interval: "3600"},
		Alerts:  alerting.DefaultAlertConfig(),
		Log:     logging.DefaultConfig(),
	}
}

// Load reads path when it exists, then overlays the environment. An empty
// path means environment only.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidFormat, path, err)
			}
		}
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if _, err := cfg.ParsedAccounts(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables, with sane defaults.
func FromEnv() (Config, error) {
	return Load("")
}

func mergeEnv(cfg *Config) error {
	if v := firstEnv("BJWATER_PORT", "PORT"); v != "" {
		cfg.Server.Port = v
	}

	if v := os.Getenv("BJWATER_DB_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("BJWATER_DB_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("BJWATER_AUTO_MIGRATE"); v != "" {
		cfg.Storage.AutoMigrate = parseBool(v)
	}

	if v := os.Getenv("BJWATER_BASE_URL"); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv("BJWATER_INSECURE_SKIP_VERIFY"); v != "" {
		cfg.Upstream.InsecureSkipVerify = parseBool(v)
	}
	durations := map[string]*time.Duration{
		"BJWATER_CYCLE_TIMEOUT":   &cfg.Upstream.CycleTimeout,
		"BJWATER_PAYMENT_TIMEOUT": &cfg.Upstream.PaymentTimeout,
		"BJWATER_DETAIL_TIMEOUT":  &cfg.Upstream.DetailTimeout,
	}
	for key, ptr := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidFormat, key, err)
			}
			*ptr = d
		}
	}

	if v := os.Getenv("BJWATER_REFRESH_INTERVAL"); v != "" {
		cfg.Refresh.Interval = v
	}
	if v := os.Getenv("BJWATER_ACCOUNTS"); v != "" {
		cfg.Accounts = splitList(v)
	}

	if v := os.Getenv("ALERT_WEBHOOK_URL"); v != "" {
		cfg.Alerts.WebhookURL = v
	}
	if v := os.Getenv("ALERT_WEBHOOK_TYPE"); v != "" {
		cfg.Alerts.WebhookType = v
	}
	if v := os.Getenv("ALERT_MIN_FAILURES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Alerts.MinFailuresBeforeAlert = n
		}
	}

	if v := os.Getenv("BJWATER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("BJWATER_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("BJWATER_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	return nil
}

// BillingOptions maps the upstream settings onto fetcher options.
func (c Config) BillingOptions() billing.Options {
	opts := billing.DefaultOptions()
	opts.BaseURL = c.Upstream.BaseURL
	opts.CycleTimeout = c.Upstream.CycleTimeout
	opts.PaymentTimeout = c.Upstream.PaymentTimeout
	opts.DetailTimeout = c.Upstream.DetailTimeout
	return opts
}

// ParsedAccounts parses the configured accounts. An entry is
// "provider:user_code", or a bare user code for the bjwater source.
func (c Config) ParsedAccounts() ([]storage.Account, error) {
	out := make([]storage.Account, 0, len(c.Accounts))
	for _, raw := range c.Accounts {
		a, err := ParseAccount(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// ParseAccount parses one "provider:user_code" entry.
func ParseAccount(raw string) (storage.Account, error) {
	raw = strings.TrimSpace(raw)
	provider, userCode, ok := strings.Cut(raw, ":")
	if !ok {
		provider, userCode = "bjwater", raw
	}
	provider, userCode = strings.TrimSpace(provider), strings.TrimSpace(userCode)
	if provider == "" || userCode == "" {
		return storage.Account{}, fmt.Errorf("%w: %q", ErrInvalidAccount, raw)
	}
	return storage.Account{Provider: provider, UserCode: userCode}, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true" || v == "yes"
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
