package core

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// ResolveConfig loads configuration through provider and merges it with the
// defaults and runtime overrides. Later layers win.
func ResolveConfig(
	ctx context.Context,
	provider ConfigProvider,
	resolver OptionsResolver,
	runtime Config,
) (Config, error) {
	defaults := DefaultConfig()
	if provider == nil {
		provider = NewCfgxConfigProvider(nil)
	}
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return resolver.Resolve(defaults, loaded, runtime)
}

type StaticRawConfigLoader struct {
	Values map[string]any
}

func (l StaticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// EnvRawConfigLoader reads INGEST_* variables, e.g. INGEST_WEBHOOK_SECRET or
// INGEST_STORAGE_DSN. Unset variables are omitted so defaults survive.
type EnvRawConfigLoader struct {
	Prefix string
	Lookup func(key string) (string, bool)
}

func (l EnvRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	prefix := strings.TrimSpace(l.Prefix)
	if prefix == "" {
		prefix = "INGEST"
	}
	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	raw := map[string]any{}
	set := func(section string, key string, value any) {
		if section == "" {
			raw[key] = value
			return
		}
		nested, ok := raw[section].(map[string]any)
		if !ok {
			nested = map[string]any{}
			raw[section] = nested
		}
		nested[key] = value
	}

	for _, entry := range envBindings {
		value, ok := lookup(prefix + "_" + entry.env)
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		parsed, err := entry.parse(value)
		if err != nil {
			return nil, fmt.Errorf("core: parse %s_%s: %w", prefix, entry.env, err)
		}
		set(entry.section, entry.key, parsed)
	}
	return raw, nil
}

type envBinding struct {
	env     string
	section string
	key     string
	parse   func(string) (any, error)
}

var envBindings = []envBinding{
	{env: "SERVICE_NAME", key: "service_name", parse: parseString},
	{env: "WEBHOOK_SECRET", section: "webhook", key: "secret", parse: parseString},
	{env: "WEBHOOK_TOLERANCE_SECONDS", section: "webhook", key: "tolerance_seconds", parse: parseInt},
	{env: "WEBHOOK_SIGNATURE_HEADER", section: "webhook", key: "signature_header", parse: parseString},
	{env: "STORAGE_DRIVER", section: "storage", key: "driver", parse: parseString},
	{env: "STORAGE_DSN", section: "storage", key: "dsn", parse: parseString},
	{env: "STORAGE_DEBUG", section: "storage", key: "debug", parse: parseBool},
	{env: "STORAGE_PING_TIMEOUT", section: "storage", key: "ping_timeout", parse: parseDuration},
	{env: "HTTP_ADDR", section: "http", key: "addr", parse: parseString},
	{env: "HTTP_REQUEST_TIMEOUT", section: "http", key: "request_timeout", parse: parseDuration},
	{env: "CACHE_TTL", section: "cache", key: "ttl", parse: parseDuration},
}

func parseString(value string) (any, error) {
	return value, nil
}

func parseInt(value string) (any, error) {
	return strconv.ParseInt(value, 10, 64)
}

func parseBool(value string) (any, error) {
	return strconv.ParseBool(value)
}

func parseDuration(value string) (any, error) {
	return time.ParseDuration(value)
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

// Load builds a Config from the raw loader output over defaults. Validation
// is deferred to the options resolver because runtime overrides may still
// supply required values.
func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	put := func(section string, key string, value any, zero bool) {
		if !includeZero && zero {
			return
		}
		if section == "" {
			layer[key] = value
			return
		}
		nested, ok := layer[section].(map[string]any)
		if !ok {
			nested = map[string]any{}
			layer[section] = nested
		}
		nested[key] = value
	}

	put("", "service_name", cfg.ServiceName, strings.TrimSpace(cfg.ServiceName) == "")

	put("webhook", "secret", cfg.Webhook.Secret, cfg.Webhook.Secret == "")
	put("webhook", "tolerance_seconds", cfg.Webhook.ToleranceSeconds, cfg.Webhook.ToleranceSeconds == 0)
	put("webhook", "signature_header", cfg.Webhook.SignatureHeader, strings.TrimSpace(cfg.Webhook.SignatureHeader) == "")

	put("storage", "driver", cfg.Storage.Driver, strings.TrimSpace(cfg.Storage.Driver) == "")
	put("storage", "dsn", cfg.Storage.DSN, strings.TrimSpace(cfg.Storage.DSN) == "")
	put("storage", "debug", cfg.Storage.Debug, !cfg.Storage.Debug)
	put("storage", "ping_timeout", cfg.Storage.PingTimeout, cfg.Storage.PingTimeout == 0)

	put("http", "addr", cfg.HTTP.Addr, strings.TrimSpace(cfg.HTTP.Addr) == "")
	put("http", "request_timeout", cfg.HTTP.RequestTimeout, cfg.HTTP.RequestTimeout == 0)

	put("cache", "ttl", cfg.Cache.TTL, cfg.Cache.TTL == 0)
	return layer
}
