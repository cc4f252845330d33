package persistence

import "time"

// Role values stored on profiles.
const (
	RoleAdmin  = "admin"
	RoleWorker = "worker"
)

// Profile is the identity record linked 1:1 with a sign-in identity.
type Profile struct {
	ID                 string
	Email              string
	Name               string
	Role               string
	IsBlocked          bool
	PhoneNumber        *string
	AvatarURL          *string
	MustChangePassword bool
	CreatedAt          time.Time
}

// Project is a named campaign grouping time slots.
type Project struct {
	ID           string
	Name         string
	StartingDate time.Time
	CreatedBy    string
	CreatedAt    time.Time
}

// TimeSlot is a bounded interval of bookable seats within a project.
type TimeSlot struct {
	ID         string
	ProjectID  string
	Start      time.Time
	End        time.Time
	TotalSeats int
	CreatedAt  time.Time
}

// Reservation is one worker's claim on one seat of a time slot.
type Reservation struct {
	ID         string
	TimeSlotID string
	WorkerID   string
	CreatedAt  time.Time
}

// Credential holds the password hash for a profile.
type Credential struct {
	UserID       string
	PasswordHash string
	UpdatedAt    time.Time
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
