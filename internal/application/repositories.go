package application

import (
	"context"
	"time"
)

// ProfileRepository captures the profile persistence used by the services.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile Profile) error
	UpdateProfile(ctx context.Context, profile Profile) error
	GetProfile(ctx context.Context, id string) (Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (Profile, error)
	ListProfiles(ctx context.Context) ([]Profile, error)
	DeleteProfile(ctx context.Context, id string) error
}

// CredentialRepository stores password hashes.
type CredentialRepository interface {
	UpsertCredential(ctx context.Context, credential Credential) error
	GetCredential(ctx context.Context, userID string) (Credential, error)
}

// SessionRepository captures the persistence interactions for issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// ProjectRepository stores projects.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project Project) error
	GetProject(ctx context.Context, id string) (Project, error)
	ListProjects(ctx context.Context) ([]Project, error)
	DeleteProject(ctx context.Context, id string) error
}

// TimeSlotRepository stores time slots. From and To bound the slot start
// inclusively; zero values leave the bound open.
type TimeSlotRepository interface {
	CreateTimeSlot(ctx context.Context, slot TimeSlot) error
	CreateTimeSlots(ctx context.Context, slots []TimeSlot) error
	GetTimeSlot(ctx context.Context, id string) (TimeSlot, error)
	ListTimeSlots(ctx context.Context, projectID string, from, to time.Time) ([]TimeSlot, error)
	DeleteTimeSlot(ctx context.Context, id string) error
}

// ReservationRepository stores reservations.
type ReservationRepository interface {
	ReserveSeat(ctx context.Context, reservation Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
	CountReservations(ctx context.Context, slotID string) (int, error)
	ListReservationsForSlots(ctx context.Context, slotIDs []string) ([]Reservation, error)
	ListReservationsForWorker(ctx context.Context, workerID string) ([]Reservation, error)
}
