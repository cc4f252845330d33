package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/reservation-desk/internal/persistence"
)

const profileColumns = `id, email, name, role, is_blocked, phone_number, avatar_url, must_change_password, created_at`

// ProfileRepository implements persistence.ProfileRepository using SQLite.
type ProfileRepository struct {
	pool *ConnectionPool
}

// NewProfileRepository creates a new SQLite profile repository.
func NewProfileRepository(pool *ConnectionPool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// CreateProfile inserts a new profile.
func (r *ProfileRepository) CreateProfile(ctx context.Context, profile persistence.Profile) error {
	if profile.ID == "" || strings.TrimSpace(profile.Email) == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		profile.ID,
		normalizeEmail(profile.Email),
		profile.Name,
		profile.Role,
		profile.IsBlocked,
		nullableString(profile.PhoneNumber),
		nullableString(profile.AvatarURL),
		profile.MustChangePassword,
		formatTime(profile.CreatedAt),
	)
	return mapError(err)
}

// UpdateProfile updates every mutable profile column.
func (r *ProfileRepository) UpdateProfile(ctx context.Context, profile persistence.Profile) error {
	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE profiles
		SET email = ?, name = ?, role = ?, is_blocked = ?, phone_number = ?, avatar_url = ?, must_change_password = ?
		WHERE id = ?`,
		normalizeEmail(profile.Email),
		profile.Name,
		profile.Role,
		profile.IsBlocked,
		nullableString(profile.PhoneNumber),
		nullableString(profile.AvatarURL),
		profile.MustChangePassword,
		profile.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result)
}

// GetProfile retrieves a profile by ID.
func (r *ProfileRepository) GetProfile(ctx context.Context, id string) (persistence.Profile, error) {
	row := r.pool.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	return scanProfile(row)
}

// GetProfileByEmail retrieves a profile by case-insensitive email.
func (r *ProfileRepository) GetProfileByEmail(ctx context.Context, email string) (persistence.Profile, error) {
	row := r.pool.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = ?`, normalizeEmail(email))
	return scanProfile(row)
}

// ListProfiles returns all profiles, newest first.
func (r *ProfileRepository) ListProfiles(ctx context.Context) ([]persistence.Profile, error) {
	rows, err := r.pool.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	profiles := make([]persistence.Profile, 0)
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

// DeleteProfile removes a profile; reservations, credentials and sessions cascade.
func (r *ProfileRepository) DeleteProfile(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result)
}

func scanProfile(row scanner) (persistence.Profile, error) {
	var (
		profile   persistence.Profile
		phone     sql.NullString
		avatar    sql.NullString
		createdAt string
	)
	err := row.Scan(
		&profile.ID,
		&profile.Email,
		&profile.Name,
		&profile.Role,
		&profile.IsBlocked,
		&phone,
		&avatar,
		&profile.MustChangePassword,
		&createdAt,
	)
	if err != nil {
		return persistence.Profile{}, mapError(err)
	}

	profile.PhoneNumber = stringPtr(phone)
	profile.AvatarURL = stringPtr(avatar)
	if profile.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Profile{}, err
	}
	return profile, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CredentialRepository implements persistence.CredentialRepository using SQLite.
type CredentialRepository struct {
	pool *ConnectionPool
}

// NewCredentialRepository creates a new SQLite credential repository.
func NewCredentialRepository(pool *ConnectionPool) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

// UpsertCredential stores or replaces the password hash of a profile.
func (r *CredentialRepository) UpsertCredential(ctx context.Context, credential persistence.Credential) error {
	if credential.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO credentials (user_id, password_hash, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET password_hash = excluded.password_hash, updated_at = excluded.updated_at`,
		credential.UserID,
		credential.PasswordHash,
		formatTime(credential.UpdatedAt),
	)
	return mapError(err)
}

// GetCredential retrieves the password hash of a profile.
func (r *CredentialRepository) GetCredential(ctx context.Context, userID string) (persistence.Credential, error) {
	var (
		credential persistence.Credential
		updatedAt  string
	)
	err := r.pool.db.QueryRowContext(ctx,
		`SELECT user_id, password_hash, updated_at FROM credentials WHERE user_id = ?`, userID,
	).Scan(&credential.UserID, &credential.PasswordHash, &updatedAt)
	if err != nil {
		return persistence.Credential{}, mapError(err)
	}
	if credential.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Credential{}, fmt.Errorf("credential %s: %w", userID, err)
	}
	return credential, nil
}
