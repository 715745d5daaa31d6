package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"
	persistence "github.com/goliatone/go-persistence-bun"
	ingest "github.com/goliatone/go-webhook-ingest"
	"github.com/goliatone/go-webhook-ingest/core"
	"github.com/goliatone/go-webhook-ingest/inbound"
	ingestmigrations "github.com/goliatone/go-webhook-ingest/migrations"
	"github.com/goliatone/go-webhook-ingest/webhooks"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const shutdownTimeout = 10 * time.Second

type cli struct {
	Serve serveCmd `cmd:"" default:"1" help:"Run the webhook ingestion server."`
	Sign  signCmd  `cmd:"" help:"Print the signature header value for a payload."`
}

type serveCmd struct {
	EnvFile  string `name:"env-file" default:".env" help:"Dotenv file loaded before configuration, skipped when missing."`
	LogLevel string `name:"log-level" default:"info" help:"Log level (trace, debug, info, warn, error)."`
}

type signCmd struct {
	Secret string `env:"INGEST_WEBHOOK_SECRET" required:"" help:"Webhook signing secret."`
	File   string `arg:"" optional:"" type:"existingfile" help:"File holding the raw body, stdin when omitted."`
}

func main() {
	var args cli
	ctx := kong.Parse(&args,
		kong.Name("ingestd"),
		kong.Description("Signed payment webhook ingestion service."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}

func (c *serveCmd) Run() error {
	if err := godotenv.Load(c.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", c.EnvFile, err)
	}

	logger := newLogrusLogger(c.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := core.ResolveConfig(ctx, core.NewCfgxConfigProvider(core.EnvRawConfigLoader{}), nil, core.Config{})
	if err != nil {
		return err
	}

	client, err := openPersistence(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer client.Close()

	svc, err := ingest.Setup(ctx, cfg,
		ingest.WithPersistenceClient(client),
		ingest.WithLoggerProvider(logger),
		ingest.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	if !cfg.Storage.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), inbound.RequestTimeout(cfg.HTTP.RequestTimeout))
	svc.Handler().Register(router)

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		defer close(serveErr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	logger.Info("ingestd listening", "addr", cfg.HTTP.Addr, "driver", cfg.Storage.Driver)

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("ingestd shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (c *signCmd) Run() error {
	var (
		body []byte
		err  error
	)
	if c.File == "" {
		body, err = io.ReadAll(os.Stdin)
	} else {
		body, err = os.ReadFile(c.File)
	}
	if err != nil {
		return err
	}
	fmt.Println(webhooks.Sign([]byte(c.Secret), body))
	return nil
}

// openPersistence opens the configured database and applies the embedded
// migrations for its dialect.
func openPersistence(ctx context.Context, cfg core.StorageConfig) (*persistence.Client, error) {
	var (
		dialect       schema.Dialect
		migrationsFor string
	)
	switch cfg.Driver {
	case "postgres":
		dialect = pgdialect.New()
		migrationsFor = ingestmigrations.DialectPostgres
	default:
		dialect = sqlitedialect.New()
		migrationsFor = ingestmigrations.DialectSQLite
	}

	sqlDB, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	client, err := persistence.New(cfg, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	fsys, err := ingestmigrations.Filesystem(migrationsFor)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	client.RegisterSQLMigrations(fsys)
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return client, nil
}
