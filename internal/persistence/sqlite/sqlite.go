// Package sqlite implements persistence.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"log/slog"

	"github.com/example/reservation-desk/internal/persistence"
	"github.com/example/reservation-desk/internal/persistence/migrate"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store bundles the table repositories over one connection pool.
type Store struct {
	*ProfileRepository
	*ProjectRepository
	*TimeSlotRepository
	*ReservationRepository
	*CredentialRepository
	*SessionRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

var _ persistence.Store = (*Store)(nil)

// Open connects to the database file at path. Use ":memory:" for a private in-memory database.
func Open(path string, logger *slog.Logger) (*Store, error) {
	pool, err := NewConnectionPool(path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		ProfileRepository:     NewProfileRepository(pool),
		ProjectRepository:     NewProjectRepository(pool),
		TimeSlotRepository:    NewTimeSlotRepository(pool),
		ReservationRepository: NewReservationRepository(pool),
		CredentialRepository:  NewCredentialRepository(pool),
		SessionRepository:     NewSessionRepository(pool),
		pool:                  pool,
		logger:                logger,
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	migrations, err := migrate.Scan(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	_, err = migrate.Run(ctx, migrate.NewSQLExecutor(s.pool.DB()), migrations, s.logger.With("store", "sqlite"))
	return err
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.pool.Close()
}

// DB exposes the underlying handle for maintenance queries.
func (s *Store) DB() *sql.DB {
	return s.pool.DB()
}
