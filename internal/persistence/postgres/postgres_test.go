package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/example/reservation-desk/internal/persistence"
	"github.com/example/reservation-desk/internal/persistence/postgres"
	"github.com/example/reservation-desk/internal/persistence/storetest"
)

// The contract runs against a live database when RESERVATIONS_TEST_POSTGRES_DSN
// points at one. Every subtest truncates the tables first.
func TestStoreContract(t *testing.T) {
	dsn := os.Getenv("RESERVATIONS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RESERVATIONS_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	store, err := postgres.Open(ctx, dsn, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	storetest.Run(t, func(t *testing.T) persistence.Store {
		if err := store.Truncate(ctx); err != nil {
			t.Fatalf("Truncate failed: %v", err)
		}
		return store
	})
}
