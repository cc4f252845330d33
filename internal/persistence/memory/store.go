// Package memory provides a map backed implementation of persistence.Store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/reservation-desk/internal/persistence"
)

// Store keeps every table in maps guarded by a single RWMutex so that
// multi-table operations such as cascading deletes and ReserveSeat are atomic.
type Store struct {
	mu           sync.RWMutex
	profiles     map[string]persistence.Profile
	projects     map[string]persistence.Project
	slots        map[string]persistence.TimeSlot
	reservations map[string]persistence.Reservation
	credentials  map[string]persistence.Credential
	sessions     map[string]persistence.Session
}

var _ persistence.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		profiles:     make(map[string]persistence.Profile),
		projects:     make(map[string]persistence.Project),
		slots:        make(map[string]persistence.TimeSlot),
		reservations: make(map[string]persistence.Reservation),
		credentials:  make(map[string]persistence.Credential),
		sessions:     make(map[string]persistence.Session),
	}
}

// Close releases resources held by the store. No-op for the in-memory implementation.
func (s *Store) Close() error {
	return nil
}

// Migrate initialises the store. No-op for the in-memory implementation.
func (s *Store) Migrate(context.Context) error {
	return nil
}

// --- ProfileRepository implementation ---

// CreateProfile stores a new profile.
func (s *Store) CreateProfile(ctx context.Context, profile persistence.Profile) error {
	if profile.ID == "" || strings.TrimSpace(profile.Email) == "" {
		return persistence.ErrConstraintViolation
	}
	if !validRole(profile.Role) {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[profile.ID]; ok {
		return persistence.ErrDuplicate
	}
	if s.emailTakenLocked(profile.ID, profile.Email) {
		return persistence.ErrDuplicate
	}

	s.profiles[profile.ID] = cloneProfile(profile)
	return nil
}

// UpdateProfile replaces an existing profile.
func (s *Store) UpdateProfile(ctx context.Context, profile persistence.Profile) error {
	if !validRole(profile.Role) {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[profile.ID]; !ok {
		return persistence.ErrNotFound
	}
	if s.emailTakenLocked(profile.ID, profile.Email) {
		return persistence.ErrDuplicate
	}

	s.profiles[profile.ID] = cloneProfile(profile)
	return nil
}

// GetProfile retrieves a profile by ID.
func (s *Store) GetProfile(ctx context.Context, id string) (persistence.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[id]
	if !ok {
		return persistence.Profile{}, persistence.ErrNotFound
	}
	return cloneProfile(profile), nil
}

// GetProfileByEmail retrieves a profile by case-insensitive email.
func (s *Store) GetProfileByEmail(ctx context.Context, email string) (persistence.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lower := strings.ToLower(strings.TrimSpace(email))
	for _, profile := range s.profiles {
		if strings.ToLower(profile.Email) == lower {
			return cloneProfile(profile), nil
		}
	}
	return persistence.Profile{}, persistence.ErrNotFound
}

// ListProfiles returns all profiles, newest first.
func (s *Store) ListProfiles(ctx context.Context) ([]persistence.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profiles := make([]persistence.Profile, 0, len(s.profiles))
	for _, profile := range s.profiles {
		profiles = append(profiles, cloneProfile(profile))
	}

	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].CreatedAt.Equal(profiles[j].CreatedAt) {
			return profiles[i].ID < profiles[j].ID
		}
		return profiles[i].CreatedAt.After(profiles[j].CreatedAt)
	})
	return profiles, nil
}

// DeleteProfile removes the profile and everything that references it.
func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[id]; !ok {
		return persistence.ErrNotFound
	}

	delete(s.profiles, id)
	delete(s.credentials, id)
	for resID, res := range s.reservations {
		if res.WorkerID == id {
			delete(s.reservations, resID)
		}
	}
	for token, session := range s.sessions {
		if session.UserID == id {
			delete(s.sessions, token)
		}
	}
	return nil
}

func (s *Store) emailTakenLocked(id, email string) bool {
	lower := strings.ToLower(strings.TrimSpace(email))
	for existingID, profile := range s.profiles {
		if existingID == id {
			continue
		}
		if strings.ToLower(profile.Email) == lower {
			return true
		}
	}
	return false
}

// --- ProjectRepository implementation ---

// CreateProject stores a new project.
func (s *Store) CreateProject(ctx context.Context, project persistence.Project) error {
	if project.ID == "" || strings.TrimSpace(project.Name) == "" {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[project.ID]; ok {
		return persistence.ErrDuplicate
	}
	s.projects[project.ID] = project
	return nil
}

// GetProject retrieves a project by ID.
func (s *Store) GetProject(ctx context.Context, id string) (persistence.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	project, ok := s.projects[id]
	if !ok {
		return persistence.Project{}, persistence.ErrNotFound
	}
	return project, nil
}

// ListProjects returns all projects, latest starting date first.
func (s *Store) ListProjects(ctx context.Context) ([]persistence.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := make([]persistence.Project, 0, len(s.projects))
	for _, project := range s.projects {
		projects = append(projects, project)
	}

	sort.Slice(projects, func(i, j int) bool {
		a, b := projects[i], projects[j]
		if !a.StartingDate.Equal(b.StartingDate) {
			return a.StartingDate.After(b.StartingDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return projects, nil
}

// DeleteProject removes a project with its slots and their reservations.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return persistence.ErrNotFound
	}

	delete(s.projects, id)
	for slotID, slot := range s.slots {
		if slot.ProjectID == id {
			s.deleteSlotLocked(slotID)
		}
	}
	return nil
}

// --- TimeSlotRepository implementation ---

// CreateTimeSlot stores a single slot.
func (s *Store) CreateTimeSlot(ctx context.Context, slot persistence.TimeSlot) error {
	return s.CreateTimeSlots(ctx, []persistence.TimeSlot{slot})
}

// CreateTimeSlots stores every slot or, on the first invalid one, none.
func (s *Store) CreateTimeSlots(ctx context.Context, slots []persistence.TimeSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		if err := s.checkSlotLocked(slot); err != nil {
			return err
		}
		if _, ok := seen[slot.ID]; ok {
			return persistence.ErrDuplicate
		}
		seen[slot.ID] = struct{}{}
	}

	for _, slot := range slots {
		s.slots[slot.ID] = slot
	}
	return nil
}

func (s *Store) checkSlotLocked(slot persistence.TimeSlot) error {
	if slot.ID == "" || slot.TotalSeats < 1 || !slot.Start.Before(slot.End) {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.projects[slot.ProjectID]; !ok {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.slots[slot.ID]; ok {
		return persistence.ErrDuplicate
	}
	return nil
}

// GetTimeSlot retrieves a slot by ID.
func (s *Store) GetTimeSlot(ctx context.Context, id string) (persistence.TimeSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.slots[id]
	if !ok {
		return persistence.TimeSlot{}, persistence.ErrNotFound
	}
	return slot, nil
}

// ListTimeSlots returns the project's slots matching the filter ordered by start.
func (s *Store) ListTimeSlots(ctx context.Context, projectID string, filter persistence.SlotFilter) ([]persistence.TimeSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slots := make([]persistence.TimeSlot, 0)
	for _, slot := range s.slots {
		if slot.ProjectID != projectID {
			continue
		}
		if filter.StartsFrom != nil && slot.Start.Before(*filter.StartsFrom) {
			continue
		}
		if filter.StartsTo != nil && slot.Start.After(*filter.StartsTo) {
			continue
		}
		slots = append(slots, slot)
	}

	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Start.Equal(slots[j].Start) {
			return slots[i].ID < slots[j].ID
		}
		return slots[i].Start.Before(slots[j].Start)
	})
	return slots, nil
}

// DeleteTimeSlot removes a slot and its reservations.
func (s *Store) DeleteTimeSlot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slots[id]; !ok {
		return persistence.ErrNotFound
	}
	s.deleteSlotLocked(id)
	return nil
}

func (s *Store) deleteSlotLocked(id string) {
	delete(s.slots, id)
	for resID, res := range s.reservations {
		if res.TimeSlotID == id {
			delete(s.reservations, resID)
		}
	}
}

// --- ReservationRepository implementation ---

// CreateReservation inserts a reservation without checking capacity.
func (s *Store) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkReservationLocked(reservation); err != nil {
		return err
	}
	s.reservations[reservation.ID] = reservation
	return nil
}

// ReserveSeat inserts a reservation only while the slot has a free seat.
func (s *Store) ReserveSeat(ctx context.Context, reservation persistence.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[reservation.TimeSlotID]
	if !ok {
		return persistence.ErrNotFound
	}
	if err := s.checkReservationLocked(reservation); err != nil {
		return err
	}
	if s.countLocked(slot.ID) >= slot.TotalSeats {
		return persistence.ErrCapacityExceeded
	}
	s.reservations[reservation.ID] = reservation
	return nil
}

func (s *Store) checkReservationLocked(reservation persistence.Reservation) error {
	if reservation.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.slots[reservation.TimeSlotID]; !ok {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.profiles[reservation.WorkerID]; !ok {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.reservations[reservation.ID]; ok {
		return persistence.ErrDuplicate
	}
	for _, existing := range s.reservations {
		if existing.TimeSlotID == reservation.TimeSlotID && existing.WorkerID == reservation.WorkerID {
			return persistence.ErrDuplicate
		}
	}
	return nil
}

// GetReservation retrieves a reservation by ID.
func (s *Store) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.reservations[id]
	if !ok {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	return res, nil
}

// DeleteReservation removes a reservation by ID.
func (s *Store) DeleteReservation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reservations[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.reservations, id)
	return nil
}

// CountReservations returns the number of reservations referencing the slot.
func (s *Store) CountReservations(ctx context.Context, slotID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(slotID), nil
}

func (s *Store) countLocked(slotID string) int {
	count := 0
	for _, res := range s.reservations {
		if res.TimeSlotID == slotID {
			count++
		}
	}
	return count
}

// ListReservationsForSlots returns reservations referencing any of the given slots.
func (s *Store) ListReservationsForSlots(ctx context.Context, slotIDs []string) ([]persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(slotIDs))
	for _, id := range slotIDs {
		wanted[id] = struct{}{}
	}

	out := make([]persistence.Reservation, 0)
	for _, res := range s.reservations {
		if _, ok := wanted[res.TimeSlotID]; ok {
			out = append(out, res)
		}
	}
	sortReservations(out)
	return out, nil
}

// ListReservationsForWorker returns the worker's reservations.
func (s *Store) ListReservationsForWorker(ctx context.Context, workerID string) ([]persistence.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.Reservation, 0)
	for _, res := range s.reservations {
		if res.WorkerID == workerID {
			out = append(out, res)
		}
	}
	sortReservations(out)
	return out, nil
}

func sortReservations(values []persistence.Reservation) {
	sort.Slice(values, func(i, j int) bool {
		if values[i].CreatedAt.Equal(values[j].CreatedAt) {
			return values[i].ID < values[j].ID
		}
		return values[i].CreatedAt.Before(values[j].CreatedAt)
	})
}

// --- CredentialRepository implementation ---

// UpsertCredential stores or replaces the credential of an existing profile.
func (s *Store) UpsertCredential(ctx context.Context, credential persistence.Credential) error {
	if credential.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[credential.UserID]; !ok {
		return persistence.ErrConstraintViolation
	}
	s.credentials[credential.UserID] = credential
	return nil
}

// GetCredential retrieves the credential of a profile.
func (s *Store) GetCredential(ctx context.Context, userID string) (persistence.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	credential, ok := s.credentials[userID]
	if !ok {
		return persistence.Credential{}, persistence.ErrNotFound
	}
	return credential, nil
}

// --- SessionRepository implementation ---

// CreateSession stores a new session keyed by its token.
func (s *Store) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	if session.ID == "" || session.UserID == "" || strings.TrimSpace(session.Token) == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[session.UserID]; !ok {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}
	if _, ok := s.sessions[session.Token]; ok {
		return persistence.Session{}, persistence.ErrDuplicate
	}
	s.sessions[session.Token] = cloneSession(session)
	return cloneSession(session), nil
}

// GetSession retrieves a session by token.
func (s *Store) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return cloneSession(session), nil
}

// UpdateSession replaces the session with the same ID, re-keying it when the token rotated.
func (s *Store) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, existing := range s.sessions {
		if existing.ID != session.ID {
			continue
		}
		delete(s.sessions, token)
		s.sessions[session.Token] = cloneSession(session)
		return cloneSession(session), nil
	}
	return persistence.Session{}, persistence.ErrNotFound
}

// RevokeSession marks the session as revoked.
func (s *Store) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	at := revokedAt
	session.RevokedAt = &at
	session.UpdatedAt = revokedAt
	s.sessions[token] = session
	return cloneSession(session), nil
}

// DeleteExpiredSessions removes sessions expired at the reference time.
func (s *Store) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if !session.ExpiresAt.After(reference) {
			delete(s.sessions, token)
		}
	}
	return nil
}

func validRole(role string) bool {
	return role == persistence.RoleAdmin || role == persistence.RoleWorker
}

func cloneProfile(profile persistence.Profile) persistence.Profile {
	profile.PhoneNumber = cloneString(profile.PhoneNumber)
	profile.AvatarURL = cloneString(profile.AvatarURL)
	return profile
}

func cloneSession(session persistence.Session) persistence.Session {
	if session.RevokedAt != nil {
		at := *session.RevokedAt
		session.RevokedAt = &at
	}
	return session
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copy := *value
	return &copy
}
