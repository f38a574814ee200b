// Package cli provides the initialization steps shared by the fintrack
// subcommands: environment, configuration, logging and opening the ledger.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/backend"
	"fintrack/internal/categorize"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

// SetupLogger initializes structured logging at the given level and sets it as
// the default logger. Unknown levels fall back to info.
func SetupLogger(level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	logger := log.New(log.Config{
		Level:     lvl,
		Component: log.ComponentApp,
		Handler:   slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}),
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as the file is optional.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadCategorizer builds the merchant categorizer from the configured rules file,
// or from the built-in rules when none is set.
func LoadCategorizer(cfg *config.Config) (*categorize.Categorizer, error) {
	if cfg.CategoryRulesFile == "" {
		return categorize.New(categorize.DefaultRules()...), nil
	}
	f, err := os.Open(cfg.CategoryRulesFile)
	if err != nil {
		return nil, fmt.Errorf("open category rules: %w", err)
	}
	defer f.Close()

	rules, err := categorize.LoadRules(f)
	if err != nil {
		return nil, fmt.Errorf("load category rules %s: %w", cfg.CategoryRulesFile, err)
	}
	return categorize.New(rules...), nil
}

// OpenLedger creates the configured backend and opens a ledger over it. The
// returned cleanup flushes pending writes and closes the backend.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *log.Logger) (*services.Ledger, func() error, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, nil, err
	}

	categorizer, err := LoadCategorizer(cfg)
	if err != nil {
		_ = result.Cleanup()
		return nil, nil, err
	}

	ledger, err := services.Open(ctx, result.Backend, result.Backend,
		services.WithLogger(logger),
		services.WithCategorizer(categorizer),
		services.WithSummaryCache(cfg.SummaryCacheSize, cfg.SummaryCacheTTL),
	)
	if err != nil {
		_ = result.Cleanup()
		return nil, nil, err
	}
	for family, loadErr := range ledger.LoadErrors() {
		logger.WarnContext(ctx, "Collection could not be restored and starts empty",
			log.FieldFamily, string(family),
			log.FieldError, loadErr.Error())
	}

	cleanup := func() error {
		flushErr := ledger.Flush(context.WithoutCancel(ctx))
		if flushErr != nil {
			logger.Error("Failed to flush ledger on shutdown", log.FieldError, flushErr.Error())
		}
		closeErr := result.Cleanup()
		if closeErr != nil {
			logger.Error("Failed to close backend", log.FieldError, closeErr.Error())
		}
		if flushErr != nil {
			return flushErr
		}
		return closeErr
	}
	return ledger, cleanup, nil
}

// SignalContext returns a context that is cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
