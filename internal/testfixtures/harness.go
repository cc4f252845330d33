package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/reservation-desk/internal/persistence"
	"github.com/example/reservation-desk/internal/persistence/memory"
	"github.com/example/reservation-desk/internal/persistence/sqlite"
)

// StoreHarness gives persistence and integration tests a migrated store plus
// seeding helpers that fail the test on error.
type StoreHarness struct {
	Store persistence.Store

	tb      testing.TB
	cleanup func()
}

// Close releases resources associated with the harness.
func (h *StoreHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewMemoryHarness returns a harness over a fresh in-memory store.
func NewMemoryHarness(tb testing.TB) *StoreHarness {
	tb.Helper()
	return &StoreHarness{Store: memory.New(), tb: tb}
}

// NewSQLiteHarness returns a harness over a migrated SQLite file in a
// temporary directory. Close is registered with tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *StoreHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "reservations.db")
	store, err := sqlite.Open(path, nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &StoreHarness{
		Store:   store,
		tb:      tb,
		cleanup: func() { _ = store.Close() },
	}
	tb.Cleanup(harness.Close)
	return harness
}

// SeedProfile stores the fixture and returns it.
func (h *StoreHarness) SeedProfile(f ProfileFixture) ProfileFixture {
	h.tb.Helper()
	if err := h.Store.CreateProfile(context.Background(), f.Persistence()); err != nil {
		h.tb.Fatalf("seed profile %s: %v", f.ID, err)
	}
	return f
}

// SeedProject stores the fixture and returns it.
func (h *StoreHarness) SeedProject(f ProjectFixture) ProjectFixture {
	h.tb.Helper()
	if err := h.Store.CreateProject(context.Background(), f.Persistence()); err != nil {
		h.tb.Fatalf("seed project %s: %v", f.ID, err)
	}
	return f
}

// SeedSlot stores the fixture and returns it.
func (h *StoreHarness) SeedSlot(f SlotFixture) SlotFixture {
	h.tb.Helper()
	if err := h.Store.CreateTimeSlot(context.Background(), f.Persistence()); err != nil {
		h.tb.Fatalf("seed slot %s: %v", f.ID, err)
	}
	return f
}

// SeedReservation inserts a reservation without a capacity check.
func (h *StoreHarness) SeedReservation(slotID, workerID string) persistence.Reservation {
	h.tb.Helper()
	r := NewReservation(slotID, workerID)
	if err := h.Store.CreateReservation(context.Background(), r); err != nil {
		h.tb.Fatalf("seed reservation: %v", err)
	}
	return r
}

// SeedSession stores the session fixture and returns it.
func (h *StoreHarness) SeedSession(f SessionFixture) SessionFixture {
	h.tb.Helper()
	if _, err := h.Store.CreateSession(context.Background(), f.Persistence()); err != nil {
		h.tb.Fatalf("seed session %s: %v", f.ID, err)
	}
	return f
}
