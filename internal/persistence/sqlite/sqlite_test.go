package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/reservation-desk/internal/persistence"
	"github.com/example/reservation-desk/internal/persistence/sqlite"
	"github.com/example/reservation-desk/internal/persistence/storetest"
	"github.com/example/reservation-desk/internal/testfixtures"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) persistence.Store {
		return testfixtures.NewSQLiteHarness(t).Store
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reservations.db")

	store, err := sqlite.Open(path, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	for i := 0; i < 2; i++ {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("Migrate run %d failed: %v", i+1, err)
		}
	}

	var applied int
	if err := store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&applied); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if applied != 3 {
		t.Fatalf("expected 3 recorded migrations, got %d", applied)
	}
}

func TestReservationTimestampsKeepOrder(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)

	worker := harness.SeedProfile(testfixtures.NewProfileFixture())
	project := harness.SeedProject(testfixtures.NewProjectFixture())
	slot := harness.SeedSlot(testfixtures.NewSlotFixture(project.ID, testfixtures.WithSeats(5)))
	other := harness.SeedProfile(testfixtures.NewProfileFixture())

	first := harness.SeedReservation(slot.ID, worker.ID)
	second := harness.SeedReservation(slot.ID, other.ID)

	list, err := harness.Store.ListReservationsForSlots(ctx, []string{slot.ID})
	if err != nil {
		t.Fatalf("ListReservationsForSlots failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("expected creation order, got %#v", list)
	}
}
