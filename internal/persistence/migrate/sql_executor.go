package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLExecutor applies migrations through database/sql using "?" placeholders.
type SQLExecutor struct {
	db *sql.DB
}

// NewSQLExecutor wraps an open database handle.
func NewSQLExecutor(db *sql.DB) *SQLExecutor {
	return &SQLExecutor{db: db}
}

// InitializeVersionTable creates the schema_migrations table if it doesn't exist.
func (e *SQLExecutor) InitializeVersionTable(ctx context.Context) error {
	_, err := e.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL,
			checksum TEXT,
			execution_time_ms INTEGER
		)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}
	return nil
}

// AppliedChecksums returns recorded versions with their checksums.
func (e *SQLExecutor) AppliedChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := e.db.QueryContext(ctx, `SELECT version, COALESCE(checksum, '') FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var version, checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		applied[version] = checksum
	}
	return applied, rows.Err()
}

// Apply runs the migration and records it inside a single transaction.
func (e *SQLExecutor) Apply(ctx context.Context, migration Migration, executionTime func() time.Duration) (err error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range migration.Statements() {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute statement %d: %w", i+1, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`,
		migration.Version,
		time.Now().UTC().Format(time.RFC3339),
		migration.Checksum,
		executionTime().Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	return tx.Commit()
}
