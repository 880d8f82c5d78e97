package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/spice-ledger/internal/aggregate"
	"github.com/Veraticus/spice-ledger/internal/category"
	"github.com/Veraticus/spice-ledger/internal/config"
	"github.com/Veraticus/spice-ledger/internal/ingest"
	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/storage"
)

// envKeyReplacer maps nested keys such as database.path to SPICE_DATABASE_PATH.
var envKeyReplacer = strings.NewReplacer(".", "_")

// app wires the ledger and its collaborators for one command invocation.
type app struct {
	cfg      *config.Config
	store    *storage.SQLiteStorage
	resolver *category.VendorResolver
	ledger   *ledger.Ledger
	ingest   *ingest.Service
	engine   *aggregate.Engine
	logger   *slog.Logger
}

// openApp loads the configuration, migrates the database and opens the ledger.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	logger := slog.Default()

	store, err := initStorage(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	matcher, err := cfg.Matcher()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	resolver := category.NewVendorResolver(store, matcher, cfg.ResolverCacheTTL, logger)

	l, err := ledger.Open(ctx, store, resolver, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	parser, err := cfg.Parser()
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		store:    store,
		resolver: resolver,
		ledger:   l,
		ingest:   ingest.New(l, parser, store, cfg.Ingest(), logger),
		engine:   aggregate.New(cfg.Aggregate()),
		logger:   logger,
	}, nil
}

// Close releases the database; failures are logged.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
}

// initStorage opens the database, creating its directory, and migrates it.
func initStorage(ctx context.Context, dbPath string) (*storage.SQLiteStorage, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}
