package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from every environment variable before it is mapped
// onto a config key: RANKIT_HTTP_PORT -> http_port.
const EnvPrefix = "RANKIT_"

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string `koanf:"service_name"`
	HTTPPort    string `koanf:"http_port"`
	PostgresDSN string `koanf:"postgres_dsn"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	EloK     float64 `koanf:"elo_k"`
	EloScale float64 `koanf:"elo_scale"`

	NATSURL            string        `koanf:"nats_url"`
	EventSubjectPrefix string        `koanf:"event_subject_prefix"`
	OutboxBatchSize    int           `koanf:"outbox_batch_size"`
	WorkerPollInterval time.Duration `koanf:"worker_poll_interval"`
	PairingTTL         time.Duration `koanf:"pairing_ttl"`
}

func Defaults() Config {
	return Config{
		ServiceName:        "rankit",
		HTTPPort:           "8080",
		LogLevel:           "info",
		LogFormat:          "json",
		EloK:               32,
		EloScale:           400,
		EventSubjectPrefix: "rankit",
		OutboxBatchSize:    100,
		WorkerPollInterval: 2 * time.Second,
	}
}

// Load reads RANKIT_* environment variables over the defaults.
func Load() (Config, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.ServiceName = strings.TrimSpace(cfg.ServiceName)
	cfg.PostgresDSN = strings.TrimSpace(cfg.PostgresDSN)
	cfg.NATSURL = strings.TrimSpace(cfg.NATSURL)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.EloK <= 0 {
		errs = append(errs, fmt.Errorf("elo_k must be positive, got %v", c.EloK))
	}
	if c.EloScale <= 0 {
		errs = append(errs, fmt.Errorf("elo_scale must be positive, got %v", c.EloScale))
	}
	if c.OutboxBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("outbox_batch_size must be positive, got %d", c.OutboxBatchSize))
	}
	if c.WorkerPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("worker_poll_interval must be positive, got %s", c.WorkerPollInterval))
	}
	if c.PairingTTL < 0 {
		errs = append(errs, fmt.Errorf("pairing_ttl must not be negative, got %s", c.PairingTTL))
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log_format must be json or text, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}
