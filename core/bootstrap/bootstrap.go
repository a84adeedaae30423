// Package bootstrap initializes shared infrastructure before the app graph is built.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/arafat-telecom/chatbot/core/config"
	coredatabase "github.com/arafat-telecom/chatbot/core/database"
	"github.com/arafat-telecom/chatbot/core/logger"
	"github.com/arafat-telecom/chatbot/core/tracing"
)

// Options control the bootstrap pipeline. Nil hooks use the core implementations.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Tracing    func(ctx context.Context, endpoint, serviceName string) (tracing.ShutdownFunc, error)
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	// DB is nil for the in-memory driver.
	DB *sqlx.DB

	shutdownTracing tracing.ShutdownFunc
}

// Close releases the database and flushes traces.
func (r *Result) Close(ctx context.Context) error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.DB != nil {
		if err := r.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if r.shutdownTracing != nil {
		if err := r.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Run initializes the logger and tracing, then connects to the database and
// applies migrations unless the in-memory driver is selected.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	if err := opts.Database.Normalize(); err != nil {
		return nil, fmt.Errorf("bootstrap: database config: %w", err)
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	setupTracing := opts.Tracing
	if setupTracing == nil {
		setupTracing = tracing.Setup
	}
	shutdown, err := setupTracing(ctx, opts.Config.Tracing.Endpoint, opts.Config.Tracing.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: tracing setup failed: %w", err)
	}
	res := &Result{shutdownTracing: shutdown}

	if !opts.Database.Persistent() {
		logger.Info(ctx, "db", "connect",
			slog.String("status", "skip"),
			slog.String("driver", opts.Database.Driver),
		)
		return res, nil
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(opts.Database)
	if err != nil {
		_ = res.Close(ctx)
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	res.DB = db

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(opts.Database); err != nil {
		_ = res.Close(ctx)
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	return res, nil
}
