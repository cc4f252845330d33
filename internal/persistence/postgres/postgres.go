// Package postgres implements persistence.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/reservation-desk/internal/persistence"
	"github.com/example/reservation-desk/internal/persistence/migrate"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store implements persistence.Store on a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ persistence.Store = (*Store)(nil)

// Open connects to the database described by dsn.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Truncate empties every domain table. Migration history is kept.
func (s *Store) Truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE reservations, time_slots, projects, sessions, credentials, profiles`)
	return mapError(err)
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	migrations, err := migrate.Scan(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	_, err = migrate.Run(ctx, &executor{pool: s.pool}, migrations, s.logger.With("store", "postgres"))
	return err
}

// withTx runs fn in a transaction, committing when it returns nil.
func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// executor adapts the pool to migrate.Executor.
type executor struct {
	pool *pgxpool.Pool
}

func (e *executor) InitializeVersionTable(ctx context.Context) error {
	_, err := e.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			checksum TEXT,
			execution_time_ms BIGINT
		)`)
	return err
}

func (e *executor) AppliedChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := e.pool.Query(ctx, `SELECT version, COALESCE(checksum, '') FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var version, checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, err
		}
		applied[version] = checksum
	}
	return applied, rows.Err()
}

func (e *executor) Apply(ctx context.Context, m migrate.Migration, executionTime func() time.Duration) error {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i, stmt := range m.Statements() {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute statement %d: %w", i+1, err)
		}
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (version, checksum, execution_time_ms) VALUES ($1, $2, $3)`,
		m.Version, m.Checksum, executionTime().Milliseconds(),
	); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit(ctx)
}

// mapError translates pgx errors into persistence errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return persistence.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", persistence.ErrDuplicate, pgErr.ConstraintName)
		case "23503", "23514", "23502":
			return fmt.Errorf("%w: %s", persistence.ErrConstraintViolation, pgErr.ConstraintName)
		}
	}
	return err
}

func expectOneRow(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
