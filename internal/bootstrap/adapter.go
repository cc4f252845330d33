package bootstrap

import (
	"context"
	"time"

	"github.com/example/reservation-desk/internal/application"
	"github.com/example/reservation-desk/internal/persistence"
)

// StoreAdapter exposes a persistence.Store through the application
// repository interfaces. Errors pass through unchanged; the services map
// persistence sentinels themselves.
type StoreAdapter struct {
	store persistence.Store
}

var (
	_ application.ProfileRepository     = (*StoreAdapter)(nil)
	_ application.CredentialRepository  = (*StoreAdapter)(nil)
	_ application.SessionRepository     = (*StoreAdapter)(nil)
	_ application.ProjectRepository     = (*StoreAdapter)(nil)
	_ application.TimeSlotRepository    = (*StoreAdapter)(nil)
	_ application.ReservationRepository = (*StoreAdapter)(nil)
)

// NewStoreAdapter wraps store.
func NewStoreAdapter(store persistence.Store) *StoreAdapter {
	return &StoreAdapter{store: store}
}

// Store returns the wrapped store.
func (a *StoreAdapter) Store() persistence.Store {
	return a.store
}

func (a *StoreAdapter) CreateProfile(ctx context.Context, profile application.Profile) error {
	return a.store.CreateProfile(ctx, toPersistenceProfile(profile))
}

func (a *StoreAdapter) UpdateProfile(ctx context.Context, profile application.Profile) error {
	return a.store.UpdateProfile(ctx, toPersistenceProfile(profile))
}

func (a *StoreAdapter) GetProfile(ctx context.Context, id string) (application.Profile, error) {
	stored, err := a.store.GetProfile(ctx, id)
	if err != nil {
		return application.Profile{}, err
	}
	return toApplicationProfile(stored), nil
}

func (a *StoreAdapter) GetProfileByEmail(ctx context.Context, email string) (application.Profile, error) {
	stored, err := a.store.GetProfileByEmail(ctx, email)
	if err != nil {
		return application.Profile{}, err
	}
	return toApplicationProfile(stored), nil
}

func (a *StoreAdapter) ListProfiles(ctx context.Context) ([]application.Profile, error) {
	stored, err := a.store.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make([]application.Profile, 0, len(stored))
	for _, p := range stored {
		profiles = append(profiles, toApplicationProfile(p))
	}
	return profiles, nil
}

func (a *StoreAdapter) DeleteProfile(ctx context.Context, id string) error {
	return a.store.DeleteProfile(ctx, id)
}

func (a *StoreAdapter) UpsertCredential(ctx context.Context, credential application.Credential) error {
	return a.store.UpsertCredential(ctx, persistence.Credential(credential))
}

func (a *StoreAdapter) GetCredential(ctx context.Context, userID string) (application.Credential, error) {
	stored, err := a.store.GetCredential(ctx, userID)
	if err != nil {
		return application.Credential{}, err
	}
	return application.Credential(stored), nil
}

func (a *StoreAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.store.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *StoreAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.store.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *StoreAdapter) UpdateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.store.UpdateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *StoreAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.store.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *StoreAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.store.DeleteExpiredSessions(ctx, reference)
}

func (a *StoreAdapter) CreateProject(ctx context.Context, project application.Project) error {
	return a.store.CreateProject(ctx, persistence.Project(project))
}

func (a *StoreAdapter) GetProject(ctx context.Context, id string) (application.Project, error) {
	stored, err := a.store.GetProject(ctx, id)
	if err != nil {
		return application.Project{}, err
	}
	return application.Project(stored), nil
}

func (a *StoreAdapter) ListProjects(ctx context.Context) ([]application.Project, error) {
	stored, err := a.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	projects := make([]application.Project, 0, len(stored))
	for _, p := range stored {
		projects = append(projects, application.Project(p))
	}
	return projects, nil
}

func (a *StoreAdapter) DeleteProject(ctx context.Context, id string) error {
	return a.store.DeleteProject(ctx, id)
}

func (a *StoreAdapter) CreateTimeSlot(ctx context.Context, slot application.TimeSlot) error {
	return a.store.CreateTimeSlot(ctx, persistence.TimeSlot(slot))
}

func (a *StoreAdapter) CreateTimeSlots(ctx context.Context, slots []application.TimeSlot) error {
	converted := make([]persistence.TimeSlot, 0, len(slots))
	for _, s := range slots {
		converted = append(converted, persistence.TimeSlot(s))
	}
	return a.store.CreateTimeSlots(ctx, converted)
}

func (a *StoreAdapter) GetTimeSlot(ctx context.Context, id string) (application.TimeSlot, error) {
	stored, err := a.store.GetTimeSlot(ctx, id)
	if err != nil {
		return application.TimeSlot{}, err
	}
	return application.TimeSlot(stored), nil
}

// ListTimeSlots treats a zero bound as unbounded.
func (a *StoreAdapter) ListTimeSlots(ctx context.Context, projectID string, from, to time.Time) ([]application.TimeSlot, error) {
	var filter persistence.SlotFilter
	if !from.IsZero() {
		filter.StartsFrom = &from
	}
	if !to.IsZero() {
		filter.StartsTo = &to
	}
	stored, err := a.store.ListTimeSlots(ctx, projectID, filter)
	if err != nil {
		return nil, err
	}
	slots := make([]application.TimeSlot, 0, len(stored))
	for _, s := range stored {
		slots = append(slots, application.TimeSlot(s))
	}
	return slots, nil
}

func (a *StoreAdapter) DeleteTimeSlot(ctx context.Context, id string) error {
	return a.store.DeleteTimeSlot(ctx, id)
}

func (a *StoreAdapter) ReserveSeat(ctx context.Context, reservation application.Reservation) error {
	return a.store.ReserveSeat(ctx, persistence.Reservation(reservation))
}

func (a *StoreAdapter) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	stored, err := a.store.GetReservation(ctx, id)
	if err != nil {
		return application.Reservation{}, err
	}
	return application.Reservation(stored), nil
}

func (a *StoreAdapter) DeleteReservation(ctx context.Context, id string) error {
	return a.store.DeleteReservation(ctx, id)
}

func (a *StoreAdapter) CountReservations(ctx context.Context, slotID string) (int, error) {
	return a.store.CountReservations(ctx, slotID)
}

func (a *StoreAdapter) ListReservationsForSlots(ctx context.Context, slotIDs []string) ([]application.Reservation, error) {
	stored, err := a.store.ListReservationsForSlots(ctx, slotIDs)
	if err != nil {
		return nil, err
	}
	return toApplicationReservations(stored), nil
}

func (a *StoreAdapter) ListReservationsForWorker(ctx context.Context, workerID string) ([]application.Reservation, error) {
	stored, err := a.store.ListReservationsForWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	return toApplicationReservations(stored), nil
}

func toApplicationReservations(stored []persistence.Reservation) []application.Reservation {
	out := make([]application.Reservation, 0, len(stored))
	for _, r := range stored {
		out = append(out, application.Reservation(r))
	}
	return out
}

func toApplicationProfile(model persistence.Profile) application.Profile {
	return application.Profile{
		ID:                 model.ID,
		Email:              model.Email,
		Name:               model.Name,
		Role:               application.Role(model.Role),
		IsBlocked:          model.IsBlocked,
		PhoneNumber:        cloneString(model.PhoneNumber),
		AvatarURL:          cloneString(model.AvatarURL),
		MustChangePassword: model.MustChangePassword,
		CreatedAt:          model.CreatedAt,
	}
}

func toPersistenceProfile(profile application.Profile) persistence.Profile {
	return persistence.Profile{
		ID:                 profile.ID,
		Email:              profile.Email,
		Name:               profile.Name,
		Role:               string(profile.Role),
		IsBlocked:          profile.IsBlocked,
		PhoneNumber:        cloneString(profile.PhoneNumber),
		AvatarURL:          cloneString(profile.AvatarURL),
		MustChangePassword: profile.MustChangePassword,
		CreatedAt:          profile.CreatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:        model.ID,
		UserID:    model.UserID,
		Token:     model.Token,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
		ExpiresAt: model.ExpiresAt,
		RevokedAt: cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
