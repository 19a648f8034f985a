package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rpattn/dataql/internal/config"
	"github.com/rpattn/dataql/internal/db"
	"github.com/rpattn/dataql/internal/hooks"
	"github.com/rpattn/dataql/internal/logging"
	"github.com/rpattn/dataql/internal/query"
	"github.com/rpattn/dataql/internal/repository"
	"github.com/rpattn/dataql/internal/schema"
)

// app is the wired process: config, logger, stores and the query service.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	stores  repository.Registry
	service *query.Service
	close   func()
}

// loadConfig reads the config and installs the process logger.
func loadConfig(opts *RootOptions) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.ConfigDir)
	if err != nil {
		return config.Config{}, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	level := logging.ParseLevel(cfg.Log.Level)
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := logging.New(os.Stderr, level)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// resolvePath makes p relative to the config directory.
func resolvePath(opts *RootOptions, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(opts.ConfigDir, p)
}

// newApp loads config and schema and connects every namespace.
func newApp(ctx context.Context, opts *RootOptions) (*app, error) {
	cfg, logger, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	registry := hooks.NewRegistry()
	schemaPath := resolvePath(opts, cfg.Schema.Path)
	graph, err := schema.Load(schemaPath, registry.HasField)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load schema", err)
	}
	logger.Info("schema loaded", "path", schemaPath, "tables", len(graph.Tables()))

	stores, closeAll, err := db.OpenAll(ctx, cfg.Namespaces)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to connect", err)
	}
	logger.Info("namespaces connected", "namespaces", stores.Namespaces())

	service := query.NewService(graph, stores, registry, query.Options{
		PageNames:   cfg.Pagination.PageNames(),
		DefaultSize: cfg.Pagination.DefaultSize,
		MaxSize:     cfg.Pagination.MaxSize,
		Logger:      logger,
	})
	return &app{cfg: cfg, logger: logger, stores: stores, service: service, close: closeAll}, nil
}
