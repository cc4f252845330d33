package console_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/example/reservation-desk/internal/application"
	"github.com/example/reservation-desk/internal/bootstrap"
	"github.com/example/reservation-desk/internal/console"
	"github.com/example/reservation-desk/internal/testfixtures"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type world struct {
	harness  *testfixtures.StoreHarness
	services *bootstrap.Services
	clock    *testfixtures.Clock
	admin    testfixtures.ProfileFixture
	worker   testfixtures.ProfileFixture
	project  testfixtures.ProjectFixture
	slots    []testfixtures.SlotFixture
}

// newWorld seeds one project with three daily slots starting tomorrow. The
// worker holds a seat on the first slot, which has a single seat.
func newWorld(t *testing.T) *world {
	t.Helper()
	harness := testfixtures.NewMemoryHarness(t)
	clock := testfixtures.NewClock(time.Time{})
	w := &world{
		harness:  harness,
		services: testfixtures.NewServiceFactory(testfixtures.WithClock(clock)).Services(t, harness),
		clock:    clock,
		admin:    harness.SeedProfile(testfixtures.NewProfileFixture(testfixtures.AsAdmin())),
		worker:   harness.SeedProfile(testfixtures.NewProfileFixture()),
	}
	w.project = harness.SeedProject(testfixtures.NewProjectFixture(testfixtures.WithProjectCreator(w.admin.ID)))

	tomorrow := clock.Today(time.UTC).AddDate(0, 0, 1).Add(9 * time.Hour)
	for i := 0; i < 3; i++ {
		start := tomorrow.AddDate(0, 0, i)
		seats := 2
		if i == 0 {
			seats = 1
		}
		w.slots = append(w.slots, harness.SeedSlot(testfixtures.NewSlotFixture(w.project.ID,
			testfixtures.WithSlotWindow(start, start.Add(2*time.Hour)),
			testfixtures.WithSeats(seats),
		)))
	}
	harness.SeedReservation(w.slots[0].ID, w.worker.ID)
	return w
}

func (w *world) deps() console.Deps {
	return console.Deps{
		Projects: w.services.Projects,
		Slots:    w.services.Slots,
		Reports:  w.services.Reports,
		Users:    w.services.Profiles,
	}
}

func TestForPrincipal(t *testing.T) {
	deps := console.Deps{}

	admin, err := console.ForPrincipal(application.Principal{UserID: "a", Role: application.RoleAdmin}, deps)
	if err != nil {
		t.Fatalf("ForPrincipal admin: %v", err)
	}
	if _, ok := admin.(*console.AdminConsole); !ok || admin.Role() != application.RoleAdmin {
		t.Fatalf("expected admin console, got %T", admin)
	}

	worker, err := console.ForPrincipal(application.Principal{UserID: "w", Role: application.RoleWorker}, deps)
	if err != nil {
		t.Fatalf("ForPrincipal worker: %v", err)
	}
	if _, ok := worker.(*console.WorkerConsole); !ok {
		t.Fatalf("expected worker console, got %T", worker)
	}

	if _, err := console.ForPrincipal(application.Principal{UserID: "x"}, deps); !errors.Is(err, application.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown role, got %v", err)
	}
}

func TestAdminDashboard(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	c := console.NewAdminConsole(w.deps())
	view := console.NewView(c, w.admin.Principal(), w.clock.NowFunc(), time.UTC)

	view.SelectProject(w.project.ID)
	d, err := view.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if d.Role != application.RoleAdmin || d.ProjectID != w.project.ID || len(d.Projects) != 1 {
		t.Fatalf("unexpected dashboard header %#v", d)
	}
	if len(d.Slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(d.Slots))
	}
	first := d.Slots[0]
	if !first.IsFull || first.ReservationCount != 1 || len(first.Reservations) != 1 || first.Reservations[0].WorkerName != w.worker.Name {
		t.Fatalf("unexpected first slot %#v", first)
	}
	if len(d.Chart) != 15 {
		t.Fatalf("expected 15 chart buckets for the default preset, got %d", len(d.Chart))
	}
	if d.Chart[1].Count != 1 {
		t.Fatalf("expected tomorrow's bucket to hold the reservation, got %#v", d.Chart[:3])
	}
	if len(d.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(d.Users))
	}

	view.SetAvailability(application.AvailabilityAvailable)
	d, err = view.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(d.Slots) != 2 {
		t.Fatalf("expected only available slots, got %d", len(d.Slots))
	}

	if _, err := c.Dashboard(ctx, console.DashboardRequest{Principal: w.worker.Principal()}); !errors.Is(err, application.ErrUnauthorized) {
		t.Fatalf("expected workers to be refused, got %v", err)
	}
}

func TestWorkerDashboard(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	c := console.NewWorkerConsole(w.deps())

	d, err := c.Dashboard(ctx, console.DashboardRequest{Principal: w.worker.Principal()})
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if len(d.Projects) != 1 || d.ProjectID != w.project.ID || d.Chart != nil || d.Users != nil {
		t.Fatalf("expected the only project to be selected, got %#v", d)
	}

	d, err = c.Dashboard(ctx, console.DashboardRequest{Principal: w.worker.Principal(), ProjectID: w.project.ID})
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if len(d.Slots) != 3 || !d.Slots[0].UserReserved || d.Slots[1].UserReserved {
		t.Fatalf("unexpected worker flags %#v", d.Slots)
	}
	if d.Slots[0].Reservations != nil {
		t.Fatalf("workers must not see other reservations")
	}

	if _, err := c.Dashboard(ctx, console.DashboardRequest{Principal: w.admin.Principal()}); !errors.Is(err, application.ErrUnauthorized) {
		t.Fatalf("expected admins to be refused, got %v", err)
	}
}

func TestDashboardSelectsLatestProject(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	later := w.harness.SeedProject(testfixtures.NewProjectFixture(
		testfixtures.WithProjectCreator(w.admin.ID),
		testfixtures.WithProjectStartingDate(w.clock.Today(time.UTC).AddDate(0, 1, 0)),
	))

	for _, tc := range []struct {
		name    string
		console console.Console
		user    testfixtures.ProfileFixture
	}{
		{name: "admin", console: console.NewAdminConsole(w.deps()), user: w.admin},
		{name: "worker", console: console.NewWorkerConsole(w.deps()), user: w.worker},
	} {
		t.Run(tc.name, func(t *testing.T) {
			for _, selected := range []string{"", "missing"} {
				d, err := tc.console.Dashboard(ctx, console.DashboardRequest{Principal: tc.user.Principal(), ProjectID: selected})
				if err != nil {
					t.Fatalf("Dashboard failed: %v", err)
				}
				if len(d.Projects) != 2 || d.Projects[0].ID != later.ID || d.ProjectID != later.ID {
					t.Fatalf("selection %q: expected the latest project, got %q", selected, d.ProjectID)
				}
				if len(d.Slots) != 0 {
					t.Fatalf("selection %q: expected the slots of the latest project, got %#v", selected, d.Slots)
				}
			}
		})
	}

	view := console.NewView(console.NewAdminConsole(w.deps()), w.admin.Principal(), w.clock.NowFunc(), time.UTC)
	if _, err := view.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if view.State().ProjectID != later.ID {
		t.Fatalf("expected the view to adopt the latest project, got %q", view.State().ProjectID)
	}

	if err := w.services.Projects.DeleteProject(ctx, w.admin.Principal(), later.ID); err != nil {
		t.Fatalf("DeleteProject failed: %v", err)
	}
	view.ProjectDeleted(later.ID)
	d, err := view.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if d.ProjectID != w.project.ID || view.State().ProjectID != w.project.ID || len(d.Slots) != 3 {
		t.Fatalf("expected the remaining project after deletion, got %q with %d slots", d.ProjectID, len(d.Slots))
	}
}

func TestAdminDashboardPropagatesErrors(t *testing.T) {
	w := newWorld(t)
	deps := w.deps()
	deps.Users = failingUsers{}
	c := console.NewAdminConsole(deps)

	_, err := c.Dashboard(context.Background(), console.DashboardRequest{Principal: w.admin.Principal(), ProjectID: w.project.ID})
	if !errors.Is(err, errUsersDown) {
		t.Fatalf("expected users failure, got %v", err)
	}
}

var errUsersDown = errors.New("users down")

type failingUsers struct{}

func (failingUsers) ListUsers(context.Context, application.Principal) ([]application.Profile, error) {
	return nil, errUsersDown
}
