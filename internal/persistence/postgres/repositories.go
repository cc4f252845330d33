package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/example/reservation-desk/internal/persistence"
)

const profileColumns = `id, email, name, role, is_blocked, phone_number, avatar_url, must_change_password, created_at`

// CreateProfile inserts a new profile.
func (s *Store) CreateProfile(ctx context.Context, p persistence.Profile) error {
	if p.ID == "" || strings.TrimSpace(p.Email) == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO profiles (`+profileColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, normalizeEmail(p.Email), p.Name, p.Role, p.IsBlocked, p.PhoneNumber, p.AvatarURL, p.MustChangePassword, p.CreatedAt.UTC())
	return mapError(err)
}

// UpdateProfile updates every mutable profile column.
func (s *Store) UpdateProfile(ctx context.Context, p persistence.Profile) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE profiles
		SET email = $1, name = $2, role = $3, is_blocked = $4, phone_number = $5, avatar_url = $6, must_change_password = $7
		WHERE id = $8`,
		normalizeEmail(p.Email), p.Name, p.Role, p.IsBlocked, p.PhoneNumber, p.AvatarURL, p.MustChangePassword, p.ID)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(tag)
}

// GetProfile retrieves a profile by ID.
func (s *Store) GetProfile(ctx context.Context, id string) (persistence.Profile, error) {
	return scanProfile(s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
}

// GetProfileByEmail retrieves a profile by case-insensitive email.
func (s *Store) GetProfileByEmail(ctx context.Context, email string) (persistence.Profile, error) {
	return scanProfile(s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE lower(email) = $1`, normalizeEmail(email)))
}

// ListProfiles returns all profiles, newest first.
func (s *Store) ListProfiles(ctx context.Context) ([]persistence.Profile, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	profiles := make([]persistence.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, mapError(rows.Err())
}

// DeleteProfile removes a profile; dependent rows cascade.
func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(tag)
}

func scanProfile(row pgx.Row) (persistence.Profile, error) {
	var p persistence.Profile
	err := row.Scan(&p.ID, &p.Email, &p.Name, &p.Role, &p.IsBlocked, &p.PhoneNumber, &p.AvatarURL, &p.MustChangePassword, &p.CreatedAt)
	if err != nil {
		return persistence.Profile{}, mapError(err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateProject inserts a new project.
func (s *Store) CreateProject(ctx context.Context, p persistence.Project) error {
	if p.ID == "" || strings.TrimSpace(p.Name) == "" {
		return persistence.ErrConstraintViolation
	}
	var createdBy *string
	if p.CreatedBy != "" {
		createdBy = &p.CreatedBy
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO projects (id, name, starting_date, created_by, created_at) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Name, p.StartingDate.UTC(), createdBy, p.CreatedAt.UTC())
	return mapError(err)
}

// GetProject retrieves a project by ID.
func (s *Store) GetProject(ctx context.Context, id string) (persistence.Project, error) {
	return scanProject(s.pool.QueryRow(ctx,
		`SELECT id, name, starting_date, created_by, created_at FROM projects WHERE id = $1`, id))
}

// ListProjects returns every project, latest starting date first.
func (s *Store) ListProjects(ctx context.Context) ([]persistence.Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, starting_date, created_by, created_at FROM projects ORDER BY starting_date DESC, created_at DESC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	projects := make([]persistence.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, mapError(rows.Err())
}

// DeleteProject removes a project; slots and reservations cascade.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(tag)
}

func scanProject(row pgx.Row) (persistence.Project, error) {
	var (
		p         persistence.Project
		createdBy *string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.StartingDate, &createdBy, &p.CreatedAt); err != nil {
		return persistence.Project{}, mapError(err)
	}
	if createdBy != nil {
		p.CreatedBy = *createdBy
	}
	p.StartingDate = p.StartingDate.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

// CreateTimeSlot inserts a single slot.
func (s *Store) CreateTimeSlot(ctx context.Context, slot persistence.TimeSlot) error {
	return s.CreateTimeSlots(ctx, []persistence.TimeSlot{slot})
}

// CreateTimeSlots inserts all slots in one transaction using a pgx batch.
func (s *Store) CreateTimeSlots(ctx context.Context, slots []persistence.TimeSlot) error {
	for _, slot := range slots {
		if slot.ID == "" || slot.TotalSeats < 1 || !slot.Start.Before(slot.End) {
			return persistence.ErrConstraintViolation
		}
	}
	return s.withTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, slot := range slots {
			batch.Queue(`
				INSERT INTO time_slots (id, project_id, start_time, end_time, total_seats, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				slot.ID, slot.ProjectID, slot.Start.UTC(), slot.End.UTC(), slot.TotalSeats, slot.CreatedAt.UTC())
		}
		results := tx.SendBatch(ctx, batch)
		for range slots {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return mapError(err)
			}
		}
		return mapError(results.Close())
	})
}

// GetTimeSlot retrieves a slot by ID.
func (s *Store) GetTimeSlot(ctx context.Context, id string) (persistence.TimeSlot, error) {
	return scanTimeSlot(s.pool.QueryRow(ctx, `
		SELECT id, project_id, start_time, end_time, total_seats, created_at FROM time_slots WHERE id = $1`, id))
}

// ListTimeSlots returns a project's slots ordered by start time.
func (s *Store) ListTimeSlots(ctx context.Context, projectID string, filter persistence.SlotFilter) ([]persistence.TimeSlot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_id, start_time, end_time, total_seats, created_at
		FROM time_slots
		WHERE project_id = $1
		  AND ($2::timestamptz IS NULL OR start_time >= $2)
		  AND ($3::timestamptz IS NULL OR start_time <= $3)
		ORDER BY start_time ASC, id ASC`,
		projectID, utcPtr(filter.StartsFrom), utcPtr(filter.StartsTo))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	slots := make([]persistence.TimeSlot, 0)
	for rows.Next() {
		slot, err := scanTimeSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, mapError(rows.Err())
}

// DeleteTimeSlot removes a slot; reservations cascade.
func (s *Store) DeleteTimeSlot(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM time_slots WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(tag)
}

func scanTimeSlot(row pgx.Row) (persistence.TimeSlot, error) {
	var slot persistence.TimeSlot
	if err := row.Scan(&slot.ID, &slot.ProjectID, &slot.Start, &slot.End, &slot.TotalSeats, &slot.CreatedAt); err != nil {
		return persistence.TimeSlot{}, mapError(err)
	}
	slot.Start = slot.Start.UTC()
	slot.End = slot.End.UTC()
	slot.CreatedAt = slot.CreatedAt.UTC()
	return slot, nil
}

// CreateReservation inserts a row without consulting the slot's capacity.
func (s *Store) CreateReservation(ctx context.Context, r persistence.Reservation) error {
	if r.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reservations (id, time_slot_id, worker_id, created_at) VALUES ($1, $2, $3, $4)`,
		r.ID, r.TimeSlotID, r.WorkerID, r.CreatedAt.UTC())
	return mapError(err)
}

// ReserveSeat locks the slot row, counts its reservations and inserts only
// when a seat is free. Concurrent callers for the same slot queue on the lock.
func (s *Store) ReserveSeat(ctx context.Context, r persistence.Reservation) error {
	if r.ID == "" {
		return persistence.ErrConstraintViolation
	}
	return s.withTx(ctx, func(tx pgx.Tx) error {
		var seats int
		err := tx.QueryRow(ctx, `SELECT total_seats FROM time_slots WHERE id = $1 FOR UPDATE`, r.TimeSlotID).Scan(&seats)
		if err != nil {
			return mapError(err)
		}

		var taken int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM reservations WHERE time_slot_id = $1`, r.TimeSlotID).Scan(&taken); err != nil {
			return mapError(err)
		}

		var held bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM reservations WHERE time_slot_id = $1 AND worker_id = $2)`,
			r.TimeSlotID, r.WorkerID).Scan(&held); err != nil {
			return mapError(err)
		}
		if held {
			return persistence.ErrDuplicate
		}
		if taken >= seats {
			return persistence.ErrCapacityExceeded
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO reservations (id, time_slot_id, worker_id, created_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (time_slot_id, worker_id) DO NOTHING`,
			r.ID, r.TimeSlotID, r.WorkerID, r.CreatedAt.UTC())
		if err != nil {
			return mapError(err)
		}
		if tag.RowsAffected() == 0 {
			return persistence.ErrDuplicate
		}
		return nil
	})
}

// GetReservation retrieves a reservation by ID.
func (s *Store) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	return scanReservation(s.pool.QueryRow(ctx,
		`SELECT id, time_slot_id, worker_id, created_at FROM reservations WHERE id = $1`, id))
}

// DeleteReservation removes a reservation by ID.
func (s *Store) DeleteReservation(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(tag)
}

// CountReservations returns the number of reservations referencing the slot.
func (s *Store) CountReservations(ctx context.Context, slotID string) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reservations WHERE time_slot_id = $1`, slotID).Scan(&count); err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

// ListReservationsForSlots returns reservations referencing any of the slots.
func (s *Store) ListReservationsForSlots(ctx context.Context, slotIDs []string) ([]persistence.Reservation, error) {
	if len(slotIDs) == 0 {
		return []persistence.Reservation{}, nil
	}
	return s.listReservations(ctx, `
		SELECT id, time_slot_id, worker_id, created_at FROM reservations
		WHERE time_slot_id = ANY($1)
		ORDER BY created_at ASC, id ASC`, slotIDs)
}

// ListReservationsForWorker returns the worker's reservations.
func (s *Store) ListReservationsForWorker(ctx context.Context, workerID string) ([]persistence.Reservation, error) {
	return s.listReservations(ctx, `
		SELECT id, time_slot_id, worker_id, created_at FROM reservations
		WHERE worker_id = $1
		ORDER BY created_at ASC, id ASC`, workerID)
}

func (s *Store) listReservations(ctx context.Context, query string, args ...any) ([]persistence.Reservation, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := make([]persistence.Reservation, 0)
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, mapError(rows.Err())
}

func scanReservation(row pgx.Row) (persistence.Reservation, error) {
	var r persistence.Reservation
	if err := row.Scan(&r.ID, &r.TimeSlotID, &r.WorkerID, &r.CreatedAt); err != nil {
		return persistence.Reservation{}, mapError(err)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}

// UpsertCredential stores or replaces a password hash.
func (s *Store) UpsertCredential(ctx context.Context, c persistence.Credential) error {
	if c.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO credentials (user_id, password_hash, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = EXCLUDED.updated_at`,
		c.UserID, c.PasswordHash, c.UpdatedAt.UTC())
	return mapError(err)
}

// GetCredential retrieves a password hash.
func (s *Store) GetCredential(ctx context.Context, userID string) (persistence.Credential, error) {
	var c persistence.Credential
	err := s.pool.QueryRow(ctx, `SELECT user_id, password_hash, updated_at FROM credentials WHERE user_id = $1`, userID).
		Scan(&c.UserID, &c.PasswordHash, &c.UpdatedAt)
	if err != nil {
		return persistence.Credential{}, mapError(err)
	}
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

const sessionColumns = `id, user_id, token, expires_at, revoked_at, created_at, updated_at`

// CreateSession stores a new session.
func (s *Store) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" || session.UserID == "" || strings.TrimSpace(session.Token) == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}
	return scanSession(s.pool.QueryRow(ctx, `
		INSERT INTO sessions (`+sessionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+sessionColumns,
		session.ID, session.UserID, session.Token, session.ExpiresAt.UTC(), utcPtr(session.RevokedAt),
		session.CreatedAt.UTC(), session.UpdatedAt.UTC()))
}

// GetSession retrieves a session by token.
func (s *Store) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	return scanSession(s.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE token = $1`, strings.TrimSpace(token)))
}

// UpdateSession rewrites the session with the same ID.
func (s *Store) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	return scanSession(s.pool.QueryRow(ctx, `
		UPDATE sessions SET token = $1, expires_at = $2, revoked_at = $3, updated_at = $4
		WHERE id = $5
		RETURNING `+sessionColumns,
		session.Token, session.ExpiresAt.UTC(), utcPtr(session.RevokedAt), session.UpdatedAt.UTC(), session.ID))
}

// RevokeSession marks the session as revoked.
func (s *Store) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	return scanSession(s.pool.QueryRow(ctx, `
		UPDATE sessions SET revoked_at = $1, updated_at = $1 WHERE token = $2
		RETURNING `+sessionColumns, revokedAt.UTC(), token))
}

// DeleteExpiredSessions removes sessions that expired at or before reference.
func (s *Store) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, reference.UTC())
	return mapError(err)
}

func scanSession(row pgx.Row) (persistence.Session, error) {
	var session persistence.Session
	err := row.Scan(&session.ID, &session.UserID, &session.Token, &session.ExpiresAt, &session.RevokedAt, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	session.ExpiresAt = session.ExpiresAt.UTC()
	session.CreatedAt = session.CreatedAt.UTC()
	session.UpdatedAt = session.UpdatedAt.UTC()
	if session.RevokedAt != nil {
		at := session.RevokedAt.UTC()
		session.RevokedAt = &at
	}
	return session, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
