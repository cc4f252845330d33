package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/reservation-desk/internal/persistence"
)

const sessionColumns = `id, user_id, token, expires_at, revoked_at, created_at, updated_at`

// SessionRepository implements persistence.SessionRepository using SQLite.
type SessionRepository struct {
	pool *ConnectionPool
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// CreateSession stores a new session token for a user.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" || session.UserID == "" || strings.TrimSpace(session.Token) == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.Token,
		formatTime(session.ExpiresAt),
		nullableTime(session.RevokedAt),
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	return r.GetSession(ctx, session.Token)
}

// GetSession retrieves a session by token.
func (r *SessionRepository) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	row := r.pool.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE token = ?`, strings.TrimSpace(token))
	return scanSession(row)
}

// UpdateSession rewrites the token and validity window of the session with the same ID.
func (r *SessionRepository) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE sessions
		SET token = ?, expires_at = ?, revoked_at = ?, updated_at = ?
		WHERE id = ?`,
		session.Token,
		formatTime(session.ExpiresAt),
		nullableTime(session.RevokedAt),
		formatTime(session.UpdatedAt),
		session.ID,
	)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	if err := expectOneRow(result); err != nil {
		return persistence.Session{}, err
	}
	return r.GetSession(ctx, session.Token)
}

// RevokeSession marks the session identified by token as revoked.
func (r *SessionRepository) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	result, err := r.pool.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = ?, updated_at = ? WHERE token = ?`,
		formatTime(revokedAt), formatTime(revokedAt), token,
	)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	if err := expectOneRow(result); err != nil {
		return persistence.Session{}, err
	}
	return r.GetSession(ctx, token)
}

// DeleteExpiredSessions removes sessions that expired at or before the reference time.
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	_, err := r.pool.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(reference))
	return mapError(err)
}

func scanSession(row scanner) (persistence.Session, error) {
	var (
		session                         persistence.Session
		expiresAt, createdAt, updatedAt string
		revokedAt                       sql.NullString
	)
	err := row.Scan(&session.ID, &session.UserID, &session.Token, &expiresAt, &revokedAt, &createdAt, &updatedAt)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}

	if session.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return persistence.Session{}, err
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Session{}, err
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Session{}, err
	}
	if revokedAt.Valid {
		at, err := parseTime(revokedAt.String)
		if err != nil {
			return persistence.Session{}, err
		}
		session.RevokedAt = &at
	}
	return session, nil
}

func nullableTime(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*value), Valid: true}
}
