// Package storetest holds the behavioural contract every persistence.Store
// implementation must satisfy.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/example/reservation-desk/internal/persistence"
	"github.com/example/reservation-desk/internal/testfixtures"
)

// Opener returns a fresh, migrated and empty store for each call.
type Opener func(t *testing.T) persistence.Store

// Run exercises the store returned by open against the shared contract.
func Run(t *testing.T, open Opener) {
	t.Run("profiles", func(t *testing.T) { testProfiles(t, open(t)) })
	t.Run("project order", func(t *testing.T) { testProjectOrder(t, open(t)) })
	t.Run("projects cascade", func(t *testing.T) { testProjectCascade(t, open(t)) })
	t.Run("time slots", func(t *testing.T) { testTimeSlots(t, open(t)) })
	t.Run("reservations", func(t *testing.T) { testReservations(t, open(t)) })
	t.Run("concurrent reserve", func(t *testing.T) { testConcurrentReserve(t, open(t)) })
	t.Run("credentials and sessions", func(t *testing.T) { testSessions(t, open(t)) })
}

func seed(t *testing.T, store persistence.Store) (admin, worker testfixtures.ProfileFixture, project testfixtures.ProjectFixture) {
	t.Helper()
	ctx := context.Background()
	admin = testfixtures.NewProfileFixture(testfixtures.AsAdmin())
	worker = testfixtures.NewProfileFixture()
	project = testfixtures.NewProjectFixture(testfixtures.WithProjectCreator(admin.ID))
	for _, p := range []testfixtures.ProfileFixture{admin, worker} {
		if err := store.CreateProfile(ctx, p.Persistence()); err != nil {
			t.Fatalf("CreateProfile %s failed: %v", p.ID, err)
		}
	}
	if err := store.CreateProject(ctx, project.Persistence()); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	return admin, worker, project
}

func testProfiles(t *testing.T, store persistence.Store) {
	ctx := context.Background()
	base := testfixtures.ReferenceTime()
	older := testfixtures.NewProfileFixture(
		testfixtures.WithProfileEmail("Older@Example.com"),
		testfixtures.WithProfileCreatedAt(base),
	)
	newer := testfixtures.NewProfileFixture(
		testfixtures.AsAdmin(),
		testfixtures.WithProfilePhone("555-0100"),
		testfixtures.WithProfileCreatedAt(base.Add(time.Hour)),
	)
	for _, p := range []testfixtures.ProfileFixture{older, newer} {
		if err := store.CreateProfile(ctx, p.Persistence()); err != nil {
			t.Fatalf("CreateProfile failed: %v", err)
		}
	}

	got, err := store.GetProfileByEmail(ctx, "older@example.com")
	if err != nil {
		t.Fatalf("GetProfileByEmail failed: %v", err)
	}
	if got.ID != older.ID {
		t.Fatalf("expected case-insensitive lookup to find %s, got %s", older.ID, got.ID)
	}

	dup := testfixtures.NewProfileFixture(testfixtures.WithProfileEmail("OLDER@example.com"))
	if err := store.CreateProfile(ctx, dup.Persistence()); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for reused email, got %v", err)
	}

	list, err := store.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("ListProfiles failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Fatalf("expected newest first, got %#v", list)
	}
	if list[0].PhoneNumber == nil || *list[0].PhoneNumber != "555-0100" || list[0].Role != persistence.RoleAdmin {
		t.Fatalf("unexpected stored profile %#v", list[0])
	}

	updated := older.Persistence()
	updated.IsBlocked = true
	updated.MustChangePassword = true
	avatar := "https://example.com/a.png"
	updated.AvatarURL = &avatar
	if err := store.UpdateProfile(ctx, updated); err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	got, err = store.GetProfile(ctx, older.ID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if !got.IsBlocked || !got.MustChangePassword || got.AvatarURL == nil || *got.AvatarURL != avatar {
		t.Fatalf("update not persisted: %#v", got)
	}

	missing := testfixtures.NewProfileFixture().Persistence()
	if err := store.UpdateProfile(ctx, missing); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating unknown profile, got %v", err)
	}
	if _, err := store.GetProfile(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteProfile(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting unknown profile, got %v", err)
	}
}

// testProjectOrder expects the latest starting date first, ties broken by
// the newest creation.
func testProjectOrder(t *testing.T, store persistence.Store) {
	ctx := context.Background()
	day := testfixtures.ReferenceTime().Truncate(24 * time.Hour)
	created := testfixtures.ReferenceTime()

	early := testfixtures.NewProjectFixture(
		testfixtures.WithProjectStartingDate(day),
		testfixtures.WithProjectCreatedAt(created.Add(2*time.Hour)),
	)
	lateOld := testfixtures.NewProjectFixture(
		testfixtures.WithProjectStartingDate(day.AddDate(0, 1, 0)),
		testfixtures.WithProjectCreatedAt(created),
	)
	lateNew := testfixtures.NewProjectFixture(
		testfixtures.WithProjectStartingDate(day.AddDate(0, 1, 0)),
		testfixtures.WithProjectCreatedAt(created.Add(time.Hour)),
	)
	for _, p := range []testfixtures.ProjectFixture{early, lateOld, lateNew} {
		if err := store.CreateProject(ctx, p.Persistence()); err != nil {
			t.Fatalf("CreateProject %s failed: %v", p.ID, err)
		}
	}

	projects, err := store.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects failed: %v", err)
	}
	got := make([]string, 0, len(projects))
	for _, p := range projects {
		got = append(got, p.ID)
	}
	want := []string{lateNew.ID, lateOld.ID, early.ID}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("project order mismatch (-want +got):\n%s", diff)
	}
}

// testProjectCascade deletes a project with slots and reservations and
// expects nothing to remain.
func testProjectCascade(t *testing.T, store persistence.Store) {
	ctx := context.Background()
	_, worker, project := seed(t, store)

	var slotIDs []string
	for i := 0; i < 3; i++ {
		slot := testfixtures.NewSlotFixture(project.ID)
		if err := store.CreateTimeSlot(ctx, slot.Persistence()); err != nil {
			t.Fatalf("CreateTimeSlot failed: %v", err)
		}
		if err := store.ReserveSeat(ctx, testfixtures.NewReservation(slot.ID, worker.ID)); err != nil {
			t.Fatalf("ReserveSeat failed: %v", err)
		}
		slotIDs = append(slotIDs, slot.ID)
	}

	if err := store.DeleteProject(ctx, project.ID); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}
	if _, err := store.GetProject(ctx, project.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected project to be gone, got %v", err)
	}
	slots, err := store.ListTimeSlots(ctx, project.ID, persistence.SlotFilter{})
	if err != nil {
		t.Fatalf("ListTimeSlots failed: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
	reservations, err := store.ListReservationsForSlots(ctx, slotIDs)
	if err != nil {
		t.Fatalf("ListReservationsForSlots failed: %v", err)
	}
	if len(reservations) != 0 {
		t.Fatalf("expected no reservations, got %d", len(reservations))
	}
	if err := store.DeleteProject(ctx, project.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func testTimeSlots(t *testing.T, store persistence.Store) {
	ctx := context.Background()
	_, _, project := seed(t, store)

	day := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	at := func(days, hour int) time.Time { return day.AddDate(0, 0, days).Add(time.Duration(hour) * time.Hour) }

	batch := []persistence.TimeSlot{
		testfixtures.NewSlotFixture(project.ID, testfixtures.WithSlotWindow(at(2, 9), at(2, 11))).Persistence(),
		testfixtures.NewSlotFixture(project.ID, testfixtures.WithSlotWindow(at(0, 0), at(0, 1))).Persistence(),
		testfixtures.NewSlotFixture(project.ID, testfixtures.WithSlotWindow(at(1, 13), at(1, 15))).Persistence(),
	}
	if err := store.CreateTimeSlots(ctx, batch); err != nil {
		t.Fatalf("CreateTimeSlots failed: %v", err)
	}

	all, err := store.ListTimeSlots(ctx, project.ID, persistence.SlotFilter{})
	if err != nil {
		t.Fatalf("ListTimeSlots failed: %v", err)
	}
	gotOrder := make([]string, len(all))
	for i, s := range all {
		gotOrder[i] = s.ID
	}
	wantOrder := []string{batch[1].ID, batch[2].ID, batch[0].ID}
	if diff := cmp.Diff(wantOrder, gotOrder); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
	if !all[0].Start.Equal(at(0, 0)) || all[0].TotalSeats != batch[1].TotalSeats {
		t.Fatalf("unexpected round trip %#v", all[0])
	}

	from := at(0, 0)
	to := at(1, 24).Add(-time.Millisecond)
	window, err := store.ListTimeSlots(ctx, project.ID, persistence.SlotFilter{StartsFrom: &from, StartsTo: &to})
	if err != nil {
		t.Fatalf("ListTimeSlots with filter failed: %v", err)
	}
	if len(window) != 2 {
		t.Fatalf("expected inclusive window of 2 slots, got %d", len(window))
	}

	bad := []persistence.TimeSlot{
		testfixtures.NewSlotFixture(project.ID).Persistence(),
		testfixtures.NewSlotFixture(project.ID, testfixtures.WithSeats(0)).Persistence(),
	}
	if err := store.CreateTimeSlots(ctx, bad); err == nil {
		t.Fatalf("expected batch with an invalid slot to fail")
	}
	if _, err := store.GetTimeSlot(ctx, bad[0].ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected failed batch to insert nothing, got %v", err)
	}

	inverted := testfixtures.NewSlotFixture(project.ID, testfixtures.WithSlotWindow(at(3, 10), at(3, 9)))
	if err := store.CreateTimeSlot(ctx, inverted.Persistence()); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for inverted window, got %v", err)
	}
	orphan := testfixtures.NewSlotFixture("no-such-project")
	if err := store.CreateTimeSlot(ctx, orphan.Persistence()); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation for unknown project, got %v", err)
	}

	if err := store.DeleteTimeSlot(ctx, batch[0].ID); err != nil {
		t.Fatalf("DeleteTimeSlot failed: %v", err)
	}
	if err := store.DeleteTimeSlot(ctx, batch[0].ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testReservations(t *testing.T, store persistence.Store) {
	ctx := context.Background()
	admin, worker, project := seed(t, store)
	other := testfixtures.NewProfileFixture()
	third := testfixtures.NewProfileFixture()
	for _, p := range []testfixtures.ProfileFixture{other, third} {
		if err := store.CreateProfile(ctx, p.Persistence()); err != nil {
			t.Fatalf("CreateProfile failed: %v", err)
		}
	}

	slot := testfixtures.NewSlotFixture(project.ID, testfixtures.WithSeats(1))
	if err := store.CreateTimeSlot(ctx, slot.Persistence()); err != nil {
		t.Fatalf("CreateTimeSlot failed: %v", err)
	}

	first := testfixtures.NewReservation(slot.ID, worker.ID)
	if err := store.ReserveSeat(ctx, first); err != nil {
		t.Fatalf("ReserveSeat failed: %v", err)
	}
	if err := store.ReserveSeat(ctx, testfixtures.NewReservation(slot.ID, worker.ID)); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for second seat by same worker, got %v", err)
	}
	if err := store.ReserveSeat(ctx, testfixtures.NewReservation(slot.ID, other.ID)); !errors.Is(err, persistence.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if err := store.ReserveSeat(ctx, testfixtures.NewReservation("no-such-slot", other.ID)); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown slot, got %v", err)
	}

	// The raw insert skips the capacity check and may overbook.
	if err := store.CreateReservation(ctx, testfixtures.NewReservation(slot.ID, other.ID)); err != nil {
		t.Fatalf("CreateReservation failed: %v", err)
	}
	count, err := store.CountReservations(ctx, slot.ID)
	if err != nil {
		t.Fatalf("CountReservations failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected overbooked count 2, got %d", count)
	}
	if err := store.CreateReservation(ctx, testfixtures.NewReservation(slot.ID, other.ID)); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected raw insert to honour uniqueness, got %v", err)
	}

	got, err := store.GetReservation(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetReservation failed: %v", err)
	}
	if got.WorkerID != worker.ID || got.TimeSlotID != slot.ID || !got.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("unexpected reservation %#v", got)
	}

	mine, err := store.ListReservationsForWorker(ctx, worker.ID)
	if err != nil {
		t.Fatalf("ListReservationsForWorker failed: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != first.ID {
		t.Fatalf("unexpected worker reservations %#v", mine)
	}

	// Deleting a profile removes its reservations.
	if err := store.DeleteProfile(ctx, other.ID); err != nil {
		t.Fatalf("DeleteProfile failed: %v", err)
	}
	bySlot, err := store.ListReservationsForSlots(ctx, []string{slot.ID})
	if err != nil {
		t.Fatalf("ListReservationsForSlots failed: %v", err)
	}
	if len(bySlot) != 1 || bySlot[0].ID != first.ID {
		t.Fatalf("expected only the first reservation to remain, got %#v", bySlot)
	}

	if err := store.DeleteReservation(ctx, first.ID); err != nil {
		t.Fatalf("DeleteReservation failed: %v", err)
	}
	if err := store.DeleteReservation(ctx, first.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.ReserveSeat(ctx, testfixtures.NewReservation(slot.ID, third.ID)); err != nil {
		t.Fatalf("expected the freed seat to be reservable, got %v", err)
	}

	empty, err := store.ListReservationsForSlots(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty result for no slots, got %v, %v", empty, err)
	}
	_ = admin
}

// testConcurrentReserve races more workers than seats for one slot.
func testConcurrentReserve(t *testing.T, store persistence.Store) {
	ctx := context.Background()
	_, _, project := seed(t, store)

	const seats, racers = 3, 10
	slot := testfixtures.NewSlotFixture(project.ID, testfixtures.WithSeats(seats))
	if err := store.CreateTimeSlot(ctx, slot.Persistence()); err != nil {
		t.Fatalf("CreateTimeSlot failed: %v", err)
	}

	workers := make([]string, racers)
	for i := range workers {
		p := testfixtures.NewProfileFixture(testfixtures.WithProfileEmail(fmt.Sprintf("racer-%d-%s@example.com", i, slot.ID)))
		if err := store.CreateProfile(ctx, p.Persistence()); err != nil {
			t.Fatalf("CreateProfile failed: %v", err)
		}
		workers[i] = p.ID
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		full     int
	)
	start := make(chan struct{})
	for _, id := range workers {
		reservation := testfixtures.NewReservation(slot.ID, id)
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := store.ReserveSeat(ctx, reservation)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, persistence.ErrCapacityExceeded):
				full++
			default:
				t.Errorf("unexpected ReserveSeat error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if accepted != seats || full != racers-seats {
		t.Fatalf("expected %d accepted and %d full, got %d and %d", seats, racers-seats, accepted, full)
	}
	count, err := store.CountReservations(ctx, slot.ID)
	if err != nil {
		t.Fatalf("CountReservations failed: %v", err)
	}
	if count != seats {
		t.Fatalf("expected %d stored reservations, got %d", seats, count)
	}
}

func testSessions(t *testing.T, store persistence.Store) {
	ctx := context.Background()
	_, worker, _ := seed(t, store)
	base := testfixtures.ReferenceTime()

	if err := store.UpsertCredential(ctx, persistence.Credential{UserID: worker.ID, PasswordHash: "h1", UpdatedAt: base}); err != nil {
		t.Fatalf("UpsertCredential failed: %v", err)
	}
	if err := store.UpsertCredential(ctx, persistence.Credential{UserID: worker.ID, PasswordHash: "h2", UpdatedAt: base.Add(time.Minute)}); err != nil {
		t.Fatalf("UpsertCredential overwrite failed: %v", err)
	}
	cred, err := store.GetCredential(ctx, worker.ID)
	if err != nil {
		t.Fatalf("GetCredential failed: %v", err)
	}
	if cred.PasswordHash != "h2" {
		t.Fatalf("expected overwritten hash, got %q", cred.PasswordHash)
	}

	live := testfixtures.NewSessionFixture(worker.ID, testfixtures.WithSessionExpiry(base.Add(time.Hour)))
	stale := testfixtures.NewSessionFixture(worker.ID, testfixtures.WithSessionExpiry(base.Add(-time.Hour)))
	for _, s := range []testfixtures.SessionFixture{live, stale} {
		if _, err := store.CreateSession(ctx, s.Persistence()); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	revoked, err := store.RevokeSession(ctx, live.Token, base)
	if err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if revoked.RevokedAt == nil || !revoked.RevokedAt.Equal(base) {
		t.Fatalf("expected revoked timestamp, got %#v", revoked.RevokedAt)
	}

	if err := store.DeleteExpiredSessions(ctx, base); err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}
	if _, err := store.GetSession(ctx, stale.Token); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected expired session to be pruned, got %v", err)
	}

	refreshed := revoked
	refreshed.Token = "rotated-" + live.Token
	refreshed.RevokedAt = nil
	refreshed.ExpiresAt = base.Add(2 * time.Hour)
	refreshed.UpdatedAt = base.Add(time.Minute)
	if _, err := store.UpdateSession(ctx, refreshed); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}
	got, err := store.GetSession(ctx, refreshed.Token)
	if err != nil {
		t.Fatalf("GetSession after rotation failed: %v", err)
	}
	if got.ID != live.ID || got.RevokedAt != nil || !got.ExpiresAt.Equal(refreshed.ExpiresAt) {
		t.Fatalf("unexpected rotated session %#v", got)
	}

	if err := store.DeleteProfile(ctx, worker.ID); err != nil {
		t.Fatalf("DeleteProfile failed: %v", err)
	}
	if _, err := store.GetSession(ctx, refreshed.Token); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected sessions to follow the profile, got %v", err)
	}
	if _, err := store.GetCredential(ctx, worker.ID); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected credential to follow the profile, got %v", err)
	}
}
