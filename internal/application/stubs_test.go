package application

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/example/reservation-desk/internal/persistence"
)

// repoStub implements every repository interface over maps. Setting a key in
// errs makes the method of that name fail with the stored error.
type repoStub struct {
	mu           sync.Mutex
	profiles     map[string]Profile
	credentials  map[string]Credential
	sessions     map[string]Session
	projects     map[string]Project
	slots        map[string]TimeSlot
	reservations map[string]Reservation

	errs         map[string]error
	deleteCalls  []time.Time
	countCalls   int
	deletedUsers []string
}

func newRepoStub() *repoStub {
	return &repoStub{
		profiles:     make(map[string]Profile),
		credentials:  make(map[string]Credential),
		sessions:     make(map[string]Session),
		projects:     make(map[string]Project),
		slots:        make(map[string]TimeSlot),
		reservations: make(map[string]Reservation),
		errs:         make(map[string]error),
	}
}

func (r *repoStub) fail(method string, err error) *repoStub {
	r.mu.Lock()
	r.errs[method] = err
	r.mu.Unlock()
	return r
}

func (r *repoStub) err(method string) error {
	return r.errs[method]
}

func (r *repoStub) CreateProfile(_ context.Context, profile Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.err("CreateProfile"); err != nil {
		return err
	}
	for _, existing := range r.profiles {
		if strings.EqualFold(existing.Email, profile.Email) {
			return ErrAlreadyExists
		}
	}
	r.profiles[profile.ID] = profile
	return nil
}

func (r *repoStub) UpdateProfile(_ context.Context, profile Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.err("UpdateProfile"); err != nil {
		return err
	}
	if _, ok := r.profiles[profile.ID]; !ok {
		return ErrNotFound
	}
	r.profiles[profile.ID] = profile
	return nil
}

func (r *repoStub) GetProfile(_ context.Context, id string) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.err("GetProfile"); err != nil {
		return Profile{}, err
	}
	p, ok := r.profiles[id]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (r *repoStub) GetProfileByEmail(_ context.Context, email string) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return Profile{}, ErrNotFound
}

func (r *repoStub) ListProfiles(_ context.Context) ([]Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.err("ListProfiles"); err != nil {
		return nil, err
	}
	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *repoStub) DeleteProfile(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.err("DeleteProfile"); err != nil {
		return err
	}
	if _, ok := r.profiles[id]; !ok {
		return ErrNotFound
	}
	delete(r.profiles, id)
	delete(r.credentials, id)
	for rid, res := range r.reservations {
		if res.WorkerID == id {
			delete(r.reservations, rid)
		}
	}
	r.deletedUsers = append(r.deletedUsers, id)
	return nil
}

func (r *repoStub) UpsertCredential(_ context.Context, credential Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.err("UpsertCredential"); err != nil {
		return err
	}
	r.credentials[credential.UserID] = credential
	return nil
}

func (r *repoStub) GetCredential(_ context.Context, userID string) (Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.credentials[userID]
	if !ok {
		return Credential{}, ErrNotFound
	}
	return c, nil
}

func (r *repoStub) CreateSession(_ context.Context, session Session) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.err("CreateSession"); err != nil {
		return Session{}, err
	}
	r.sessions[session.Token] = session
	return session, nil
}

func (r *repoStub) GetSession(_ context.Context, token string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (r *repoStub) UpdateSession(_ context.Context, session Session) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, existing := range r.sessions {
		if existing.ID == session.ID {
			delete(r.sessions, token)
			r.sessions[session.Token] = session
			return session, nil
		}
	}
	return Session{}, ErrNotFound
}

func (r *repoStub) RevokeSession(_ context.Context, token string, revokedAt time.Time) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	s.RevokedAt = &revokedAt
	s.UpdatedAt = revokedAt
	r.sessions[token] = s
	return s, nil
}

func (r *repoStub) DeleteExpiredSessions(_ context.Context, reference time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCalls = append(r.deleteCalls, reference)
	for token, s := range r.sessions {
		if !s.ExpiresAt.After(reference) {
			delete(r.sessions, token)
		}
	}
	return nil
}

func (r *repoStub) CreateProject(_ context.Context, project Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.err("CreateProject"); err != nil {
		return err
	}
	r.projects[project.ID] = project
	return nil
}

func (r *repoStub) GetProject(_ context.Context, id string) (Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return Project{}, ErrNotFound
	}
	return p, nil
}

func (r *repoStub) ListProjects(_ context.Context) ([]Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Project, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *repoStub) DeleteProject(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[id]; !ok {
		return ErrNotFound
	}
	delete(r.projects, id)
	for sid, slot := range r.slots {
		if slot.ProjectID == id {
			r.deleteSlotLocked(sid)
		}
	}
	return nil
}

func (r *repoStub) CreateTimeSlot(ctx context.Context, slot TimeSlot) error {
	return r.CreateTimeSlots(ctx, []TimeSlot{slot})
}

func (r *repoStub) CreateTimeSlots(_ context.Context, slots []TimeSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.err("CreateTimeSlots"); err != nil {
		return err
	}
	for _, slot := range slots {
		r.slots[slot.ID] = slot
	}
	return nil
}

func (r *repoStub) GetTimeSlot(_ context.Context, id string) (TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return TimeSlot{}, ErrNotFound
	}
	return s, nil
}

func (r *repoStub) ListTimeSlots(_ context.Context, projectID string, from, to time.Time) ([]TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TimeSlot, 0)
	for _, s := range r.slots {
		if s.ProjectID != projectID {
			continue
		}
		if !from.IsZero() && s.Start.Before(from) {
			continue
		}
		if !to.IsZero() && s.Start.After(to) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (r *repoStub) DeleteTimeSlot(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[id]; !ok {
		return ErrNotFound
	}
	r.deleteSlotLocked(id)
	return nil
}

func (r *repoStub) deleteSlotLocked(id string) {
	delete(r.slots, id)
	for rid, res := range r.reservations {
		if res.TimeSlotID == id {
			delete(r.reservations, rid)
		}
	}
}

// ReserveSeat mirrors the store contract using the persistence sentinels so
// the service's error translation is exercised.
func (r *repoStub) ReserveSeat(_ context.Context, reservation Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.err("ReserveSeat"); err != nil {
		return err
	}
	slot, ok := r.slots[reservation.TimeSlotID]
	if !ok {
		return ErrNotFound
	}
	count := 0
	for _, res := range r.reservations {
		if res.TimeSlotID != slot.ID {
			continue
		}
		if res.WorkerID == reservation.WorkerID {
			return persistence.ErrDuplicate
		}
		count++
	}
	if count >= slot.TotalSeats {
		return persistence.ErrCapacityExceeded
	}
	r.reservations[reservation.ID] = reservation
	return nil
}

func (r *repoStub) GetReservation(_ context.Context, id string) (Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok {
		return Reservation{}, ErrNotFound
	}
	return res, nil
}

func (r *repoStub) DeleteReservation(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reservations[id]; !ok {
		return ErrNotFound
	}
	delete(r.reservations, id)
	return nil
}

func (r *repoStub) CountReservations(_ context.Context, slotID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.countCalls++
	if err := r.err("CountReservations"); err != nil {
		return 0, err
	}
	n := 0
	for _, res := range r.reservations {
		if res.TimeSlotID == slotID {
			n++
		}
	}
	return n, nil
}

func (r *repoStub) ListReservationsForSlots(_ context.Context, slotIDs []string) ([]Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[string]bool, len(slotIDs))
	for _, id := range slotIDs {
		wanted[id] = true
	}
	out := make([]Reservation, 0)
	for _, res := range r.reservations {
		if wanted[res.TimeSlotID] {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *repoStub) ListReservationsForWorker(_ context.Context, workerID string) ([]Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Reservation, 0)
	for _, res := range r.reservations {
		if res.WorkerID == workerID {
			out = append(out, res)
		}
	}
	return out, nil
}

// seed helpers

func (r *repoStub) addProfile(p Profile) Profile {
	r.mu.Lock()
	r.profiles[p.ID] = p
	r.mu.Unlock()
	return p
}

func (r *repoStub) addProject(p Project) Project {
	r.mu.Lock()
	r.projects[p.ID] = p
	r.mu.Unlock()
	return p
}

func (r *repoStub) addSlot(s TimeSlot) TimeSlot {
	r.mu.Lock()
	r.slots[s.ID] = s
	r.mu.Unlock()
	return s
}

func (r *repoStub) addReservation(res Reservation) Reservation {
	r.mu.Lock()
	r.reservations[res.ID] = res
	r.mu.Unlock()
	return res
}

func sequence(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func plainHash(password string) (string, error) {
	return "hash:" + password, nil
}

func plainVerify(hashed, password string) error {
	if hashed != "hash:"+password {
		return ErrInvalidCredentials
	}
	return nil
}

var (
	adminPrincipal  = Principal{UserID: "admin-1", Role: RoleAdmin}
	workerPrincipal = Principal{UserID: "worker-1", Role: RoleWorker}
)
