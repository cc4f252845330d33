package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Executor applies migrations against a concrete database.
type Executor interface {
	// InitializeVersionTable creates schema_migrations when missing.
	InitializeVersionTable(ctx context.Context) error
	// AppliedChecksums returns the checksum recorded for each applied version.
	AppliedChecksums(ctx context.Context) (map[string]string, error)
	// Apply runs the migration statements and records the version in one transaction.
	Apply(ctx context.Context, migration Migration, executionTime func() time.Duration) error
}

// Result summarises a Run invocation.
type Result struct {
	Applied        []string
	CurrentVersion string
}

// Run applies every migration whose version is not yet recorded, in order.
// A recorded version whose checksum differs from the file aborts the run.
func Run(ctx context.Context, exec Executor, migrations []Migration, logger *slog.Logger) (result Result, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	started := time.Now()

	logger.InfoContext(ctx, "initializing database migration system")
	if err = exec.InitializeVersionTable(ctx); err != nil {
		return result, fmt.Errorf("initialize version table: %w", err)
	}

	applied, err := exec.AppliedChecksums(ctx)
	if err != nil {
		return result, fmt.Errorf("load applied versions: %w", err)
	}

	pending := make([]Migration, 0, len(migrations))
	for _, m := range migrations {
		checksum, ok := applied[m.Version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		result.CurrentVersion = m.Version
		if checksum != "" && checksum != m.Checksum {
			return result, &MigrationError{Version: m.Version, File: m.File, Operation: "verify checksum", Err: ErrChecksumMismatch}
		}
	}

	logger.InfoContext(ctx, "checked current database schema version",
		"current_version", result.CurrentVersion,
		"pending_count", len(pending),
	)

	for i, m := range pending {
		migrationStarted := time.Now()
		logger.InfoContext(ctx, "executing migration",
			"version", m.Version,
			"description", m.Description,
			"position", i+1,
			"total", len(pending),
		)
		if err = exec.Apply(ctx, m, func() time.Duration { return time.Since(migrationStarted) }); err != nil {
			logger.ErrorContext(ctx, "migration failed", "version", m.Version, "error", err)
			return result, &MigrationError{Version: m.Version, File: m.File, Operation: "execute migration",
				Err: fmt.Errorf("%w: %v", ErrMigrationFailed, err)}
		}
		result.Applied = append(result.Applied, m.Version)
		result.CurrentVersion = m.Version
	}

	logger.InfoContext(ctx, "database migrations completed",
		"applied", len(result.Applied),
		"current_version", result.CurrentVersion,
		"duration", time.Since(started),
	)
	return result, nil
}
