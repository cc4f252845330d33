// Package bootstrap assembles the storage backend and the application
// services from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/example/reservation-desk/internal/config"
	"github.com/example/reservation-desk/internal/persistence"
	"github.com/example/reservation-desk/internal/persistence/memory"
	"github.com/example/reservation-desk/internal/persistence/postgres"
	"github.com/example/reservation-desk/internal/persistence/sqlite"
)

// OpenStore connects to the configured storage driver and applies its
// migrations.
func OpenStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		store persistence.Store
		err   error
	)
	switch cfg.StorageDriver {
	case config.DriverMemory:
		store = memory.New()
	case config.DriverSQLite, "":
		store, err = sqlite.Open(cfg.SQLitePath, logger)
	case config.DriverPostgres:
		store, err = postgres.Open(ctx, cfg.PostgresDSN, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StorageDriver, err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate %s store: %w", cfg.StorageDriver, err)
	}
	logger.InfoContext(ctx, "storage ready", "driver", cfg.StorageDriver)
	return store, nil
}

// NewID returns a random UUID for entity identifiers.
func NewID() string {
	return uuid.NewString()
}

// NewToken returns an opaque session token built from two random UUIDs.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
