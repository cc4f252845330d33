package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/reservation-desk/internal/persistence"
)

// ReservationRepository implements persistence.ReservationRepository using SQLite.
type ReservationRepository struct {
	pool *ConnectionPool
}

// NewReservationRepository creates a new SQLite reservation repository.
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

// CreateReservation inserts a row without consulting the slot's capacity.
func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO reservations (id, time_slot_id, worker_id, created_at)
		VALUES (?, ?, ?, ?)`,
		reservation.ID,
		reservation.TimeSlotID,
		reservation.WorkerID,
		formatTime(reservation.CreatedAt),
	)
	return mapError(err)
}

// ReserveSeat inserts the row only when the slot still has a free seat. The
// count and the insert run as one statement inside a transaction, so two
// callers racing for the last seat cannot both succeed.
func (r *ReservationRepository) ReserveSeat(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO reservations (id, time_slot_id, worker_id, created_at)
			SELECT ?, ts.id, ?, ?
			FROM time_slots ts
			WHERE ts.id = ?
			  AND (SELECT COUNT(*) FROM reservations r WHERE r.time_slot_id = ts.id) < ts.total_seats`,
			reservation.ID,
			reservation.WorkerID,
			formatTime(reservation.CreatedAt),
			reservation.TimeSlotID,
		)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 1 {
			return nil
		}
		return explainRejectedReservation(ctx, tx, reservation)
	})
}

// explainRejectedReservation tells a missing slot, an existing claim and a full slot apart.
func explainRejectedReservation(ctx context.Context, tx *sql.Tx, reservation persistence.Reservation) error {
	var exists int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM time_slots WHERE id = ?`, reservation.TimeSlotID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}
	if err != nil {
		return mapError(err)
	}

	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM reservations WHERE time_slot_id = ? AND worker_id = ?`,
		reservation.TimeSlotID, reservation.WorkerID,
	).Scan(&exists)
	if err == nil {
		return persistence.ErrDuplicate
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return mapError(err)
	}
	return persistence.ErrCapacityExceeded
}

// GetReservation retrieves a reservation by ID.
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	row := r.pool.db.QueryRowContext(ctx,
		`SELECT id, time_slot_id, worker_id, created_at FROM reservations WHERE id = ?`, id)
	return scanReservation(row)
}

// DeleteReservation removes a reservation by ID.
func (r *ReservationRepository) DeleteReservation(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result)
}

// CountReservations returns the number of reservations referencing a slot.
func (r *ReservationRepository) CountReservations(ctx context.Context, slotID string) (int, error) {
	var count int
	err := r.pool.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE time_slot_id = ?`, slotID).Scan(&count)
	if err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

// ListReservationsForSlots returns reservations referencing any of the slots.
func (r *ReservationRepository) ListReservationsForSlots(ctx context.Context, slotIDs []string) ([]persistence.Reservation, error) {
	if len(slotIDs) == 0 {
		return []persistence.Reservation{}, nil
	}

	args := make([]any, len(slotIDs))
	for i, id := range slotIDs {
		args[i] = id
	}
	return r.list(ctx, `
		SELECT id, time_slot_id, worker_id, created_at FROM reservations
		WHERE time_slot_id IN (`+placeholders(len(slotIDs))+`)
		ORDER BY created_at ASC, id ASC`, args...)
}

// ListReservationsForWorker returns the worker's reservations.
func (r *ReservationRepository) ListReservationsForWorker(ctx context.Context, workerID string) ([]persistence.Reservation, error) {
	return r.list(ctx, `
		SELECT id, time_slot_id, worker_id, created_at FROM reservations
		WHERE worker_id = ?
		ORDER BY created_at ASC, id ASC`, workerID)
}

func (r *ReservationRepository) list(ctx context.Context, query string, args ...any) ([]persistence.Reservation, error) {
	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	reservations := make([]persistence.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

func scanReservation(row scanner) (persistence.Reservation, error) {
	var (
		res       persistence.Reservation
		createdAt string
	)
	if err := row.Scan(&res.ID, &res.TimeSlotID, &res.WorkerID, &createdAt); err != nil {
		return persistence.Reservation{}, mapError(err)
	}
	var err error
	if res.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Reservation{}, err
	}
	return res, nil
}
