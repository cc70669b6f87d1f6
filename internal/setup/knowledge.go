package setup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rx-safety-engine/internal/config"
	"github.com/rx-safety-engine/internal/database"
	"github.com/rx-safety-engine/internal/domain"
	"github.com/rx-safety-engine/internal/knowledge"
	"github.com/rx-safety-engine/internal/repository"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// StoreOptions selects and tunes the knowledge store backend.
type StoreOptions struct {
	Driver       string
	SQLitePath   string
	DatasetPath  string // JSON dataset; empty means the embedded reference data
	WatchDataset bool   // memory driver only
	Migrate      bool   // postgres driver: apply migrations before serving
	Breaker      domain.BreakerConfig
	Database     domain.DatabaseConfig
}

// StoreOptionsFromConfig maps the full server configuration.
func StoreOptionsFromConfig(cfg *domain.Config) StoreOptions {
	return StoreOptions{
		Driver:      cfg.Store.Driver,
		SQLitePath:  cfg.Store.SQLitePath,
		DatasetPath: cfg.Store.DatasetPath,
		Migrate:     cfg.Database.MigrationsPath != "",
		Breaker:     cfg.Store.Breaker,
		Database:    cfg.Database,
	}
}

// StoreOptionsFromLite maps the standalone configuration. Lite mode never
// talks to Postgres.
func StoreOptionsFromLite(cfg *config.LiteConfig) StoreOptions {
	return StoreOptions{
		Driver:       cfg.Store,
		SQLitePath:   cfg.SQLitePath(),
		DatasetPath:  cfg.DatasetPath,
		WatchDataset: cfg.WatchDataset,
		Breaker:      domain.BreakerConfig{Enabled: cfg.Store == DriverSQLite},
	}
}

// KnowledgeBase is an opened knowledge store with its decorators applied.
// Store is what the engines use; Close releases the backend.
type KnowledgeBase struct {
	Store   domain.KnowledgeStore
	Driver  string
	Version string

	health  domain.HealthChecker
	closers []func() error
}

// Health checks the backend through the decorators.
func (kb *KnowledgeBase) Health(ctx context.Context) error {
	if kb.health == nil {
		return nil
	}
	return kb.health.Health(ctx)
}

// Close releases the backend in reverse order of acquisition.
func (kb *KnowledgeBase) Close() error {
	var errs []error
	for i := len(kb.closers) - 1; i >= 0; i-- {
		if err := kb.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	kb.closers = nil
	return errors.Join(errs...)
}

// OpenKnowledgeBase opens the configured backend and wraps it with the
// circuit breaker (when enabled) and the metrics decorator. A dataset
// watcher, when requested, runs until ctx is cancelled or Close is called.
func OpenKnowledgeBase(ctx context.Context, logger *logrus.Logger, opts StoreOptions) (*KnowledgeBase, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	if driver == "" {
		driver = DriverMemory
	}
	kb := &KnowledgeBase{Driver: driver}

	var (
		inner domain.KnowledgeStore
		err   error
	)
	switch driver {
	case DriverMemory:
		inner, err = kb.openMemory(ctx, logger, opts)
	case DriverSQLite:
		inner, err = kb.openSQLite(ctx, logger, opts)
	case DriverPostgres:
		inner, err = kb.openPostgres(ctx, logger, opts)
	default:
		err = fmt.Errorf("unknown store driver %q", opts.Driver)
	}
	if err != nil {
		kb.Close()
		return nil, err
	}

	if opts.Breaker.Enabled {
		inner = knowledge.NewResilientStore(logger, driver, inner, opts.Breaker)
	}
	instrumented := knowledge.NewInstrumentedStore(driver, inner)
	kb.Store = instrumented
	kb.health = instrumented

	logger.WithFields(logrus.Fields{
		"driver":  driver,
		"version": kb.Version,
		"breaker": opts.Breaker.Enabled,
	}).Info("Knowledge store ready")
	return kb, nil
}

func loadDataset(path string) (*knowledge.Dataset, error) {
	if path == "" {
		return knowledge.ReferenceDataset()
	}
	return knowledge.LoadDataset(path)
}

func (kb *KnowledgeBase) openMemory(ctx context.Context, logger *logrus.Logger, opts StoreOptions) (domain.KnowledgeStore, error) {
	ds, err := loadDataset(opts.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	store, err := knowledge.NewMemoryStore(logger, ds)
	if err != nil {
		return nil, err
	}
	kb.Version = store.Version()

	if opts.WatchDataset && opts.DatasetPath != "" {
		watcher, err := knowledge.NewDatasetWatcher(logger, store, opts.DatasetPath)
		if err != nil {
			return nil, err
		}
		go watcher.Run(ctx)
		kb.closers = append(kb.closers, watcher.Stop)
	}
	return store, nil
}

func (kb *KnowledgeBase) openSQLite(ctx context.Context, logger *logrus.Logger, opts StoreOptions) (domain.KnowledgeStore, error) {
	store, err := knowledge.NewSQLiteStore(logger, opts.SQLitePath)
	if err != nil {
		return nil, err
	}
	kb.closers = append(kb.closers, store.Close)

	count, err := store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		ds, err := loadDataset(opts.DatasetPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load seed dataset: %w", err)
		}
		if err := store.Seed(ctx, ds); err != nil {
			return nil, err
		}
		kb.Version = ds.Version
	}
	if kb.Version == "" {
		kb.Version = DriverSQLite
	}
	return store, nil
}

func (kb *KnowledgeBase) openPostgres(ctx context.Context, logger *logrus.Logger, opts StoreOptions) (domain.KnowledgeStore, error) {
	dbConfig := database.ConfigFromDomain(opts.Database)

	if opts.Migrate {
		if err := Migrate(logger, opts.Database, true); err != nil {
			return nil, err
		}
	}

	db, err := database.NewConnection(ctx, dbConfig, logger)
	if err != nil {
		return nil, err
	}
	kb.closers = append(kb.closers, func() error { db.Close(); return nil })
	kb.Version = DriverPostgres

	return repository.NewPostgresStore(db.Pool, logger), nil
}

// Migrate applies (up) or rolls back one step of (down) the knowledge
// schema migrations found under cfg.MigrationsPath.
func Migrate(logger *logrus.Logger, cfg domain.DatabaseConfig, up bool) error {
	path := cfg.MigrationsPath
	if path == "" {
		path = "./migrations"
	}
	migrator, err := database.NewMigrator(database.ConfigFromDomain(cfg).URL(), path, logger)
	if err != nil {
		return err
	}
	defer migrator.Close()

	if up {
		return migrator.Up()
	}
	return migrator.Down(1)
}

// SeedSQLite replaces the contents of the SQLite knowledge database at path
// with the dataset (the embedded reference data when datasetPath is empty)
// and returns the resulting drug count.
func SeedSQLite(ctx context.Context, logger *logrus.Logger, path, datasetPath string) (int64, error) {
	ds, err := loadDataset(datasetPath)
	if err != nil {
		return 0, fmt.Errorf("failed to load seed dataset: %w", err)
	}

	store, err := knowledge.NewSQLiteStore(logger, path)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	if err := store.Seed(ctx, ds); err != nil {
		return 0, err
	}
	count, err := store.Count(ctx)
	if err != nil {
		return 0, err
	}

	logger.WithFields(logrus.Fields{
		"path":    path,
		"version": ds.Version,
		"drugs":   count,
	}).Info("Seeded SQLite knowledge store")
	return count, nil
}
