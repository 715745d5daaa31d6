package ingest

import (
	"context"
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-webhook-ingest/adapters/gologger"
	"github.com/goliatone/go-webhook-ingest/core"
	"github.com/goliatone/go-webhook-ingest/inbound"
	sqlstore "github.com/goliatone/go-webhook-ingest/store/sql"
	"github.com/goliatone/go-webhook-ingest/webhooks"
	"github.com/uptrace/bun"
)

type Config = core.Config

type WebhookEvent = core.WebhookEvent

type Transaction = core.Transaction

type Delivery = webhooks.Delivery

type Result = webhooks.Result

func DefaultConfig() Config {
	return core.DefaultConfig()
}

type Option func(*setupOptions)

type setupOptions struct {
	logger          core.Logger
	loggerProvider  core.LoggerProvider
	metrics         core.MetricsRecorder
	persistence     any
	cacheService    repositorycache.CacheService
	configProvider  core.ConfigProvider
	optionsResolver core.OptionsResolver
}

func WithLogger(logger core.Logger) Option {
	return func(o *setupOptions) {
		o.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(o *setupOptions) {
		o.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(o *setupOptions) {
		o.metrics = recorder
	}
}

func WithPersistenceClient(client *persistence.Client) Option {
	return func(o *setupOptions) {
		if client != nil {
			o.persistence = client
		}
	}
}

func WithBunDB(db *bun.DB) Option {
	return func(o *setupOptions) {
		if db != nil {
			o.persistence = db
		}
	}
}

func WithCacheService(service repositorycache.CacheService) Option {
	return func(o *setupOptions) {
		o.cacheService = service
	}
}

func WithConfigProvider(provider core.ConfigProvider) Option {
	return func(o *setupOptions) {
		o.configProvider = provider
	}
}

func WithOptionsResolver(resolver core.OptionsResolver) Option {
	return func(o *setupOptions) {
		o.optionsResolver = resolver
	}
}

// Service is a fully wired ingestion stack: stores, verifier, pipeline,
// cached reads, the HTTP handler and the command/query facade.
type Service struct {
	config       Config
	logger       core.Logger
	stores       *sqlstore.RepositoryFactory
	pipeline     *webhooks.Pipeline
	transactions core.TransactionReader
	handler      *inbound.Handler
	facade       *Facade
}

// Setup resolves cfg over the defaults and any configured provider, then
// builds the service on top of the given persistence client. Migrations are
// the caller's responsibility.
func Setup(ctx context.Context, cfg Config, opts ...Option) (*Service, error) {
	options := setupOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&options)
	}

	resolved, err := core.ResolveConfig(ctx, options.configProvider, options.optionsResolver, cfg)
	if err != nil {
		return nil, fmt.Errorf("ingest: resolve config: %w", err)
	}
	if options.persistence == nil {
		return nil, fmt.Errorf("ingest: persistence client is required")
	}

	provider, logger := gologger.Resolve(gologger.RootLoggerName, options.loggerProvider, options.logger)
	metrics := options.metrics
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}

	stores, err := sqlstore.NewRepositoryFactory().BuildStores(options.persistence)
	if err != nil {
		return nil, err
	}

	pipeline, err := webhooks.NewPipeline(
		webhooks.VerifierFromConfig(resolved.Webhook),
		stores.WebhookEventStore(),
		stores.TransactionStore(),
		webhooks.WithLogger(gologger.Component(provider, logger, "pipeline")),
		webhooks.WithMetricsRecorder(metrics),
	)
	if err != nil {
		return nil, err
	}

	cacheService := options.cacheService
	if cacheService == nil {
		cacheConfig := repositorycache.DefaultConfig()
		if resolved.Cache.TTL > 0 {
			cacheConfig.TTL = resolved.Cache.TTL
		}
		cacheService, err = repositorycache.NewCacheService(cacheConfig)
		if err != nil {
			return nil, fmt.Errorf("ingest: transaction cache: %w", err)
		}
	}
	transactions, err := sqlstore.NewCachedTransactionReader(stores.TransactionStore(), cacheService)
	if err != nil {
		return nil, err
	}

	handler, err := inbound.NewHandler(pipeline,
		inbound.WithTransactionReader(transactions),
		inbound.WithReadinessCheck(stores.DB()),
		inbound.WithSignatureHeader(resolved.Webhook.SignatureHeader),
		inbound.WithLogger(gologger.Component(provider, logger, "http")),
	)
	if err != nil {
		return nil, err
	}

	facade, err := NewFacade(FacadeDependencies{
		Ingester:      pipeline,
		FailureMarker: stores.WebhookEventStore(),
		Transactions:  transactions,
		Events:        stores.WebhookEventStore(),
	})
	if err != nil {
		return nil, err
	}

	return &Service{
		config:       resolved,
		logger:       logger,
		stores:       stores,
		pipeline:     pipeline,
		transactions: transactions,
		handler:      handler,
		facade:       facade,
	}, nil
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Logger() core.Logger {
	if s == nil || s.logger == nil {
		return gologger.Component(nil, nil, "")
	}
	return s.logger
}

func (s *Service) Stores() *sqlstore.RepositoryFactory {
	if s == nil {
		return nil
	}
	return s.stores
}

func (s *Service) Pipeline() *webhooks.Pipeline {
	if s == nil {
		return nil
	}
	return s.pipeline
}

func (s *Service) Transactions() core.TransactionReader {
	if s == nil {
		return nil
	}
	return s.transactions
}

func (s *Service) Handler() *inbound.Handler {
	if s == nil {
		return nil
	}
	return s.handler
}

func (s *Service) Facade() *Facade {
	if s == nil {
		return nil
	}
	return s.facade
}

// Ingest runs one delivery through the pipeline.
func (s *Service) Ingest(ctx context.Context, delivery Delivery) (Result, error) {
	if s == nil || s.pipeline == nil {
		return Result{}, fmt.Errorf("ingest: service is not configured")
	}
	return s.pipeline.Process(ctx, delivery)
}
