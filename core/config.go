package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultToleranceSeconds = 300
	DefaultSignatureHeader  = "X-Webhook-Signature"
)

type WebhookConfig struct {
	Secret           string `koanf:"secret" mapstructure:"secret"`
	ToleranceSeconds int64  `koanf:"tolerance_seconds" mapstructure:"tolerance_seconds"`
	SignatureHeader  string `koanf:"signature_header" mapstructure:"signature_header"`
}

func (c WebhookConfig) Tolerance() time.Duration {
	return time.Duration(c.ToleranceSeconds) * time.Second
}

type StorageConfig struct {
	Driver      string        `koanf:"driver" mapstructure:"driver"`
	DSN         string        `koanf:"dsn" mapstructure:"dsn"`
	Debug       bool          `koanf:"debug" mapstructure:"debug"`
	PingTimeout time.Duration `koanf:"ping_timeout" mapstructure:"ping_timeout"`
}

// The Get* accessors satisfy the go-persistence-bun client config contract.

func (c StorageConfig) GetDebug() bool {
	return c.Debug
}

func (c StorageConfig) GetDriver() string {
	return c.Driver
}

func (c StorageConfig) GetServer() string {
	return c.DSN
}

func (c StorageConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

func (c StorageConfig) GetOtelIdentifier() string {
	return "go-webhook-ingest"
}

type HTTPConfig struct {
	Addr           string        `koanf:"addr" mapstructure:"addr"`
	RequestTimeout time.Duration `koanf:"request_timeout" mapstructure:"request_timeout"`
}

type CacheConfig struct {
	TTL time.Duration `koanf:"ttl" mapstructure:"ttl"`
}

type Config struct {
	ServiceName string        `koanf:"service_name" mapstructure:"service_name"`
	Webhook     WebhookConfig `koanf:"webhook" mapstructure:"webhook"`
	Storage     StorageConfig `koanf:"storage" mapstructure:"storage"`
	HTTP        HTTPConfig    `koanf:"http" mapstructure:"http"`
	Cache       CacheConfig   `koanf:"cache" mapstructure:"cache"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "ingest",
		Webhook: WebhookConfig{
			ToleranceSeconds: DefaultToleranceSeconds,
			SignatureHeader:  DefaultSignatureHeader,
		},
		Storage: StorageConfig{
			Driver:      "sqlite3",
			PingTimeout: 5 * time.Second,
		},
		HTTP: HTTPConfig{
			Addr:           ":8080",
			RequestTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			TTL: time.Minute,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.Webhook.Secret) == "" {
		return fmt.Errorf("core: webhook.secret is required")
	}
	if c.Webhook.ToleranceSeconds <= 0 {
		return fmt.Errorf("core: webhook.tolerance_seconds must be positive")
	}
	if strings.TrimSpace(c.Webhook.SignatureHeader) == "" {
		return fmt.Errorf("core: webhook.signature_header is required")
	}
	switch strings.TrimSpace(c.Storage.Driver) {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("core: unsupported storage.driver %q", c.Storage.Driver)
	}
	if strings.TrimSpace(c.Storage.DSN) == "" {
		return fmt.Errorf("core: storage.dsn is required")
	}
	return nil
}
