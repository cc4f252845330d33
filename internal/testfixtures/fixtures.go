package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/reservation-desk/internal/application"
	"github.com/example/reservation-desk/internal/persistence"
)

var (
	profileCounter     uint64
	projectCounter     uint64
	slotCounter        uint64
	reservationCounter uint64
	sessionCounter     uint64
)

var referenceTime = time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
// It falls on a Monday at 09:00 UTC.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Profile fixtures -----------------------------

// ProfileFixture represents a deterministic profile that can be materialised
// for application or persistence tests.
type ProfileFixture struct {
	ID                 string
	Email              string
	Name               string
	Role               string
	IsBlocked          bool
	PhoneNumber        *string
	MustChangePassword bool
	CreatedAt          time.Time
}

// ProfileOption configures the generated profile fixture.
type ProfileOption func(*ProfileFixture)

// NewProfileFixture returns a worker profile fixture with optional overrides.
func NewProfileFixture(opts ...ProfileOption) ProfileFixture {
	idx := atomic.AddUint64(&profileCounter, 1)
	id := fmt.Sprintf("profile-%03d", idx)
	fixture := ProfileFixture{
		ID:        id,
		Email:     fmt.Sprintf("%s@example.com", id),
		Name:      fmt.Sprintf("Worker %03d", idx),
		Role:      persistence.RoleWorker,
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithProfileID overrides the generated profile ID.
func WithProfileID(id string) ProfileOption {
	return func(f *ProfileFixture) { f.ID = id }
}

// WithProfileEmail overrides the generated email address.
func WithProfileEmail(email string) ProfileOption {
	return func(f *ProfileFixture) { f.Email = email }
}

// WithProfileName overrides the generated display name.
func WithProfileName(name string) ProfileOption {
	return func(f *ProfileFixture) { f.Name = name }
}

// AsAdmin gives the fixture the admin role.
func AsAdmin() ProfileOption {
	return func(f *ProfileFixture) { f.Role = persistence.RoleAdmin }
}

// Blocked marks the fixture as blocked.
func Blocked() ProfileOption {
	return func(f *ProfileFixture) { f.IsBlocked = true }
}

// WithProfilePhone sets the optional phone number.
func WithProfilePhone(phone string) ProfileOption {
	return func(f *ProfileFixture) { f.PhoneNumber = &phone }
}

// WithProfileCreatedAt sets the creation timestamp.
func WithProfileCreatedAt(t time.Time) ProfileOption {
	return func(f *ProfileFixture) { f.CreatedAt = t }
}

// Persistence returns the fixture as a persistence.Profile value.
func (f ProfileFixture) Persistence() persistence.Profile {
	return persistence.Profile{
		ID:                 f.ID,
		Email:              f.Email,
		Name:               f.Name,
		Role:               f.Role,
		IsBlocked:          f.IsBlocked,
		PhoneNumber:        f.PhoneNumber,
		MustChangePassword: f.MustChangePassword,
		CreatedAt:          f.CreatedAt,
	}
}

// Application returns the fixture as an application.Profile value.
func (f ProfileFixture) Application() application.Profile {
	return application.Profile{
		ID:                 f.ID,
		Email:              f.Email,
		Name:               f.Name,
		Role:               application.Role(f.Role),
		IsBlocked:          f.IsBlocked,
		PhoneNumber:        f.PhoneNumber,
		MustChangePassword: f.MustChangePassword,
		CreatedAt:          f.CreatedAt,
	}
}

// Principal returns the principal acting as the fixture.
func (f ProfileFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, Role: application.Role(f.Role)}
}

// ----------------------------- Project fixtures -----------------------------

// ProjectFixture represents a deterministic project.
type ProjectFixture struct {
	ID           string
	Name         string
	StartingDate time.Time
	CreatedBy    string
	CreatedAt    time.Time
}

// ProjectOption configures the generated project fixture.
type ProjectOption func(*ProjectFixture)

// NewProjectFixture returns a project fixture with optional overrides.
func NewProjectFixture(opts ...ProjectOption) ProjectFixture {
	idx := atomic.AddUint64(&projectCounter, 1)
	fixture := ProjectFixture{
		ID:           fmt.Sprintf("project-%03d", idx),
		Name:         fmt.Sprintf("Project %03d", idx),
		StartingDate: referenceTime.Truncate(24 * time.Hour),
		CreatedAt:    referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithProjectID overrides the generated project ID.
func WithProjectID(id string) ProjectOption {
	return func(f *ProjectFixture) { f.ID = id }
}

// WithProjectName overrides the generated project name.
func WithProjectName(name string) ProjectOption {
	return func(f *ProjectFixture) { f.Name = name }
}

// WithProjectCreator records the creating profile.
func WithProjectCreator(profileID string) ProjectOption {
	return func(f *ProjectFixture) { f.CreatedBy = profileID }
}

// WithProjectStartingDate sets the project's starting date.
func WithProjectStartingDate(t time.Time) ProjectOption {
	return func(f *ProjectFixture) { f.StartingDate = t }
}

// WithProjectCreatedAt sets the creation timestamp.
func WithProjectCreatedAt(t time.Time) ProjectOption {
	return func(f *ProjectFixture) { f.CreatedAt = t }
}

// Persistence returns the fixture as a persistence.Project value.
func (f ProjectFixture) Persistence() persistence.Project {
	return persistence.Project{
		ID:           f.ID,
		Name:         f.Name,
		StartingDate: f.StartingDate,
		CreatedBy:    f.CreatedBy,
		CreatedAt:    f.CreatedAt,
	}
}

// Application returns the fixture as an application.Project value.
func (f ProjectFixture) Application() application.Project {
	return application.Project(f.Persistence())
}

// ------------------------------ Slot fixtures -------------------------------

// SlotFixture represents a deterministic time slot.
type SlotFixture struct {
	ID         string
	ProjectID  string
	Start      time.Time
	End        time.Time
	TotalSeats int
	CreatedAt  time.Time
}

// SlotOption configures the generated slot fixture.
type SlotOption func(*SlotFixture)

// NewSlotFixture returns a two hour, three seat slot starting one day after
// the previous fixture.
func NewSlotFixture(projectID string, opts ...SlotOption) SlotFixture {
	idx := atomic.AddUint64(&slotCounter, 1)
	start := referenceTime.AddDate(0, 0, int(idx))
	fixture := SlotFixture{
		ID:         fmt.Sprintf("slot-%03d", idx),
		ProjectID:  projectID,
		Start:      start,
		End:        start.Add(2 * time.Hour),
		TotalSeats: 3,
		CreatedAt:  referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSlotID overrides the generated slot ID.
func WithSlotID(id string) SlotOption {
	return func(f *SlotFixture) { f.ID = id }
}

// WithSlotWindow sets the start and end of the slot.
func WithSlotWindow(start, end time.Time) SlotOption {
	return func(f *SlotFixture) {
		f.Start = start
		f.End = end
	}
}

// WithSeats sets the seat capacity.
func WithSeats(n int) SlotOption {
	return func(f *SlotFixture) { f.TotalSeats = n }
}

// Persistence returns the fixture as a persistence.TimeSlot value.
func (f SlotFixture) Persistence() persistence.TimeSlot {
	return persistence.TimeSlot{
		ID:         f.ID,
		ProjectID:  f.ProjectID,
		Start:      f.Start,
		End:        f.End,
		TotalSeats: f.TotalSeats,
		CreatedAt:  f.CreatedAt,
	}
}

// Application returns the fixture as an application.TimeSlot value.
func (f SlotFixture) Application() application.TimeSlot {
	return application.TimeSlot(f.Persistence())
}

// --------------------------- Reservation fixtures ---------------------------

// NewReservation returns a persistence reservation of slotID by workerID.
func NewReservation(slotID, workerID string) persistence.Reservation {
	idx := atomic.AddUint64(&reservationCounter, 1)
	return persistence.Reservation{
		ID:         fmt.Sprintf("reservation-%03d", idx),
		TimeSlotID: slotID,
		WorkerID:   workerID,
		CreatedAt:  referenceTime.Add(time.Duration(idx) * time.Second),
	}
}

// ----------------------------- Session fixtures -----------------------------

// SessionFixture represents a deterministic session record.
type SessionFixture struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a session for userID valid for one hour after
// ReferenceTime.
func NewSessionFixture(userID string, opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	fixture := SessionFixture{
		ID:        fmt.Sprintf("session-%03d", idx),
		UserID:    userID,
		Token:     fmt.Sprintf("token-%03d", idx),
		ExpiresAt: referenceTime.Add(time.Hour),
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionToken overrides the session token.
func WithSessionToken(token string) SessionOption {
	return func(f *SessionFixture) { f.Token = token }
}

// WithSessionExpiry sets the expiry timestamp.
func WithSessionExpiry(t time.Time) SessionOption {
	return func(f *SessionFixture) { f.ExpiresAt = t }
}

// Persistence returns the fixture as a persistence.Session value.
func (f SessionFixture) Persistence() persistence.Session {
	return persistence.Session{
		ID:        f.ID,
		UserID:    f.UserID,
		Token:     f.Token,
		ExpiresAt: f.ExpiresAt,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
		RevokedAt: f.RevokedAt,
	}
}
