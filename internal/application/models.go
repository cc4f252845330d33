package application

import "time"

// Role distinguishes administrators from workers.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleWorker Role = "worker"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleWorker
}

// Principal identifies the caller of a service operation.
type Principal struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// IsWorker reports whether the principal carries the worker role.
func (p Principal) IsWorker() bool {
	return p.Role == RoleWorker
}

// Profile is the application view of a user.
type Profile struct {
	ID                 string
	Email              string
	Name               string
	Role               Role
	IsBlocked          bool
	PhoneNumber        *string
	AvatarURL          *string
	MustChangePassword bool
	CreatedAt          time.Time
}

// Principal returns the principal acting as this profile.
func (p Profile) Principal() Principal {
	return Principal{UserID: p.ID, Role: p.Role}
}

// Credential stores the password hash of a profile.
type Credential struct {
	UserID       string
	PasswordHash string
	UpdatedAt    time.Time
}

// Session captures issued authentication session metadata.
type Session struct {
	ID        string
	UserID    string
	Token     string
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Project groups time slots.
type Project struct {
	ID           string
	Name         string
	StartingDate time.Time
	CreatedBy    string
	CreatedAt    time.Time
}

// TimeSlot is a bookable interval with a fixed number of seats.
type TimeSlot struct {
	ID         string
	ProjectID  string
	Start      time.Time
	End        time.Time
	TotalSeats int
	CreatedAt  time.Time
}

// Reservation is a worker's claim on one seat.
type Reservation struct {
	ID         string
	TimeSlotID string
	WorkerID   string
	CreatedAt  time.Time
}

// SlotReservation is a reservation annotated with the worker's identity for admins.
type SlotReservation struct {
	ID          string
	WorkerID    string
	WorkerName  string
	WorkerEmail string
	CreatedAt   time.Time
}

// SlotView is a time slot with its derived occupancy.
type SlotView struct {
	TimeSlot
	ReservationCount int
	IsFull           bool
	// UserReserved and UserReservationID describe the acting worker's own seat.
	UserReserved      bool
	UserReservationID string
	// Reservations is populated for administrators only.
	Reservations []SlotReservation
}

// Available reports whether a seat is still free.
func (v SlotView) Available() bool {
	return !v.IsFull
}

// Availability filters slots by occupancy.
type Availability string

const (
	AvailabilityAll       Availability = "all"
	AvailabilityAvailable Availability = "available"
	AvailabilityFull      Availability = "full"
)

// ParseAvailability converts a query value into an Availability; empty selects all.
func ParseAvailability(value string) (Availability, error) {
	switch Availability(value) {
	case "", AvailabilityAll:
		return AvailabilityAll, nil
	case AvailabilityAvailable, AvailabilityFull:
		return Availability(value), nil
	}
	return "", newValidationError("availability", "must be one of all, available, full")
}

func (a Availability) matches(view SlotView) bool {
	switch a {
	case AvailabilityAvailable:
		return !view.IsFull
	case AvailabilityFull:
		return view.IsFull
	default:
		return true
	}
}

// DayCount is one bar of the daily reservation chart.
type DayCount struct {
	Day   string
	Count int
}

// AuthenticateParams carries sign-in input.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult is returned after a successful sign-in or sign-up.
type AuthenticateResult struct {
	Profile Profile
	Session Session
}

// RefreshSessionParams carries the session token to rotate.
type RefreshSessionParams struct {
	Token string
}

// RefreshSessionResult returns the rotated session.
type RefreshSessionResult struct {
	Session Session
}

// SignUpParams carries self-registration input.
type SignUpParams struct {
	Email    string
	Name     string
	Password string
}

// ChangePasswordParams carries a password change for the acting user.
type ChangePasswordParams struct {
	Principal       Principal
	CurrentPassword string
	NewPassword     string
}

// AccessToken is a signed bearer credential for the privileged functions.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// UpdateProfileParams carries the fields a user may change on their own profile.
// Nil leaves the field untouched; an empty string clears it.
type UpdateProfileParams struct {
	Principal   Principal
	PhoneNumber *string
	AvatarURL   *string
}

// SetBlockedParams blocks or unblocks a user.
type SetBlockedParams struct {
	Principal Principal
	UserID    string
	Blocked   bool
}

// CreateProjectParams carries project creation input.
type CreateProjectParams struct {
	Principal    Principal
	Name         string
	StartingDate time.Time
}

// ListSlotsParams selects the slots of a project. From and To are calendar
// days; zero values leave the bound open.
type ListSlotsParams struct {
	Principal    Principal
	ProjectID    string
	From         time.Time
	To           time.Time
	Availability Availability
}

// CreateSlotParams carries single slot creation input.
type CreateSlotParams struct {
	Principal  Principal
	ProjectID  string
	Start      time.Time
	End        time.Time
	TotalSeats int
}

// CreateSlotBatchParams carries a recurring weekday pattern. A nil Weekdays
// selects Monday through Friday; an empty non-nil slice is rejected.
type CreateSlotBatchParams struct {
	Principal  Principal
	ProjectID  string
	StartDate  time.Time
	EndDate    time.Time
	Weekdays   []time.Weekday
	StartTime  string
	EndTime    string
	TotalSeats int
}

// DailyReservationsParams selects the reporting window. Zero values fall back
// to today and today plus fourteen days.
type DailyReservationsParams struct {
	Principal Principal
	ProjectID string
	Start     time.Time
	End       time.Time
}

// CreateAdminParams carries the privileged create-admin input.
type CreateAdminParams struct {
	Principal Principal
	Name      string
	Email     string
}

// CreateAdminResult returns the created administrator and their temporary password.
type CreateAdminResult struct {
	Profile           Profile
	TemporaryPassword string
}

// ResetPasswordParams carries the privileged reset-password input.
type ResetPasswordParams struct {
	Principal Principal
	UserID    string
}

// UserExport is a rendered CSV file.
type UserExport struct {
	Filename string
	Content  []byte
}
