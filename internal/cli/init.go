// Package cli provides common process initialization shared by
// cmd/fintrack and cmd/fintrack-worker.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/cache"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/events"
	applog "fintrack/internal/log"
	"fintrack/internal/mirror"
	gmirror "fintrack/internal/mirror/google"
	memmirror "fintrack/internal/mirror/memory"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// SetupLogger builds the process logger from the configured level and
// format and installs it as the slog default. Services capture the default
// when they are constructed, so call this first.
func SetupLogger(level, format string, out io.Writer) *applog.Logger {
	lc := applog.DefaultConfig()
	lc.Level = applog.ParseLevel(level)
	lc.Format = format
	if out != nil {
		lc.Output = out
	}
	logger := applog.New(lc)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration, sets up the logger it
// describes on logOut and validates the rest. Exits the process on
// validation failure.
func LoadAndValidateConfig(logOut io.Writer) (*config.Config, *applog.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg.LogLevel, cfg.LogFormat, logOut)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return sqliteRepo
}

// InitEvents connects to the broker when events are enabled. It returns a
// nil client when they are not, or when the broker cannot be reached and
// required is false.
func InitEvents(logger *applog.Logger, cfg *config.Config, required bool) *events.Client {
	if !cfg.EventsEnabled() {
		if required {
			logger.Error("AMQP_URL is required")
			os.Exit(1)
		}
		logger.Info("Ledger events disabled - no AMQP_URL provided")
		return nil
	}
	client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		if required {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		logger.Warn("AMQP unavailable, ledger events will be skipped", applog.FieldError, err)
		return nil
	}
	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

// ServiceOptions maps the configuration onto service options.
func ServiceOptions(cfg *config.Config) services.Options {
	opts := services.DefaultOptions()
	opts.Policy = cfg.InstallmentPolicy()
	opts.CommitmentMonths = cfg.CommitmentMonths
	opts.ReportMonths = cfg.ReportMonths
	opts.InvoiceCache = cache.NewLRUCache[core.Money](cfg.InvoiceCacheSize, cfg.InvoiceCacheTTL)
	return opts
}

// InitMirror builds the configured mirror backend.
func InitMirror(ctx context.Context, logger *applog.Logger, cfg *config.Config) (mirror.Writer, error) {
	switch cfg.MirrorBackend {
	case "sheets":
		c, err := gmirror.New(ctx, gmirror.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("Initialized Google Sheets mirror", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		return c, nil
	default:
		logger.Info("Initialized memory mirror", "backend", cfg.MirrorBackend)
		return memmirror.New(), nil
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
