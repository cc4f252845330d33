package persistence

import (
	"context"
	"time"
)

// ProfileRepository exposes CRUD operations for profiles.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile Profile) error
	UpdateProfile(ctx context.Context, profile Profile) error
	GetProfile(ctx context.Context, id string) (Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (Profile, error)
	// ListProfiles returns profiles ordered by CreatedAt descending.
	ListProfiles(ctx context.Context) ([]Profile, error)
	// DeleteProfile removes the profile together with its reservations, credential and sessions.
	DeleteProfile(ctx context.Context, id string) error
}

// ProjectRepository exposes CRUD operations for projects.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project Project) error
	GetProject(ctx context.Context, id string) (Project, error)
	// ListProjects returns projects ordered by CreatedAt descending.
	ListProjects(ctx context.Context) ([]Project, error)
	// DeleteProject removes the project, its time slots and their reservations.
	DeleteProject(ctx context.Context, id string) error
}

// SlotFilter narrows time slot queries. Both bounds are inclusive.
type SlotFilter struct {
	StartsFrom *time.Time
	StartsTo   *time.Time
}

// TimeSlotRepository stores time slots.
type TimeSlotRepository interface {
	CreateTimeSlot(ctx context.Context, slot TimeSlot) error
	// CreateTimeSlots inserts every slot or none of them.
	CreateTimeSlots(ctx context.Context, slots []TimeSlot) error
	GetTimeSlot(ctx context.Context, id string) (TimeSlot, error)
	// ListTimeSlots returns the project's slots ordered by Start ascending.
	ListTimeSlots(ctx context.Context, projectID string, filter SlotFilter) ([]TimeSlot, error)
	DeleteTimeSlot(ctx context.Context, id string) error
}

// ReservationRepository stores reservations.
type ReservationRepository interface {
	// CreateReservation inserts a row without consulting the slot's capacity.
	// The (time slot, worker) pair is still unique.
	CreateReservation(ctx context.Context, reservation Reservation) error
	// ReserveSeat inserts a row only while the slot has fewer reservations
	// than seats. The check and the insert are a single atomic step.
	ReserveSeat(ctx context.Context, reservation Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
	CountReservations(ctx context.Context, slotID string) (int, error)
	// ListReservationsForSlots returns reservations referencing any of the slots, ordered by CreatedAt.
	ListReservationsForSlots(ctx context.Context, slotIDs []string) ([]Reservation, error)
	ListReservationsForWorker(ctx context.Context, workerID string) ([]Reservation, error)
}

// CredentialRepository stores password hashes.
type CredentialRepository interface {
	UpsertCredential(ctx context.Context, credential Credential) error
	GetCredential(ctx context.Context, userID string) (Credential, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// Store bundles every repository behind one handle.
type Store interface {
	ProfileRepository
	ProjectRepository
	TimeSlotRepository
	ReservationRepository
	CredentialRepository
	SessionRepository
	Migrate(ctx context.Context) error
	Close() error
}
