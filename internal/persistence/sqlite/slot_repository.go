package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/reservation-desk/internal/persistence"
)

// TimeSlotRepository implements persistence.TimeSlotRepository using SQLite.
type TimeSlotRepository struct {
	pool *ConnectionPool
}

// NewTimeSlotRepository creates a new SQLite time slot repository.
func NewTimeSlotRepository(pool *ConnectionPool) *TimeSlotRepository {
	return &TimeSlotRepository{pool: pool}
}

// CreateTimeSlot inserts a single slot.
func (r *TimeSlotRepository) CreateTimeSlot(ctx context.Context, slot persistence.TimeSlot) error {
	return r.CreateTimeSlots(ctx, []persistence.TimeSlot{slot})
}

// CreateTimeSlots inserts all slots in one transaction.
func (r *TimeSlotRepository) CreateTimeSlots(ctx context.Context, slots []persistence.TimeSlot) error {
	for _, slot := range slots {
		if slot.ID == "" || slot.TotalSeats < 1 || !slot.Start.Before(slot.End) {
			return persistence.ErrConstraintViolation
		}
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO time_slots (id, project_id, start_time, end_time, total_seats, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return mapError(err)
		}
		defer stmt.Close()

		for _, slot := range slots {
			_, err := stmt.ExecContext(ctx,
				slot.ID,
				slot.ProjectID,
				formatTime(slot.Start),
				formatTime(slot.End),
				slot.TotalSeats,
				formatTime(slot.CreatedAt),
			)
			if err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// GetTimeSlot retrieves a slot by ID.
func (r *TimeSlotRepository) GetTimeSlot(ctx context.Context, id string) (persistence.TimeSlot, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, project_id, start_time, end_time, total_seats, created_at
		FROM time_slots WHERE id = ?`, id)
	return scanTimeSlot(row)
}

// ListTimeSlots returns a project's slots ordered by start time.
func (r *TimeSlotRepository) ListTimeSlots(ctx context.Context, projectID string, filter persistence.SlotFilter) ([]persistence.TimeSlot, error) {
	var (
		query strings.Builder
		args  = []any{projectID}
	)
	query.WriteString(`
		SELECT id, project_id, start_time, end_time, total_seats, created_at
		FROM time_slots
		WHERE project_id = ?`)
	if filter.StartsFrom != nil {
		query.WriteString(` AND start_time >= ?`)
		args = append(args, formatTime(*filter.StartsFrom))
	}
	if filter.StartsTo != nil {
		query.WriteString(` AND start_time <= ?`)
		args = append(args, formatTime(*filter.StartsTo))
	}
	query.WriteString(` ORDER BY start_time ASC, id ASC`)

	rows, err := r.pool.db.QueryContext(ctx, query.String(), args...)
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
	return slots, rows.Err()
}

// DeleteTimeSlot removes a slot; its reservations cascade.
func (r *TimeSlotRepository) DeleteTimeSlot(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM time_slots WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(result)
}

func scanTimeSlot(row scanner) (persistence.TimeSlot, error) {
	var (
		slot                        persistence.TimeSlot
		startTime, endTime, created string
	)
	if err := row.Scan(&slot.ID, &slot.ProjectID, &startTime, &endTime, &slot.TotalSeats, &created); err != nil {
		return persistence.TimeSlot{}, mapError(err)
	}

	var err error
	if slot.Start, err = parseTime(startTime); err != nil {
		return persistence.TimeSlot{}, err
	}
	if slot.End, err = parseTime(endTime); err != nil {
		return persistence.TimeSlot{}, err
	}
	if slot.CreatedAt, err = parseTime(created); err != nil {
		return persistence.TimeSlot{}, err
	}
	return slot, nil
}
