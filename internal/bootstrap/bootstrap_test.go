package bootstrap_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/example/reservation-desk/internal/application"
	"github.com/example/reservation-desk/internal/bootstrap"
	"github.com/example/reservation-desk/internal/config"
	"github.com/example/reservation-desk/internal/persistence"
	"github.com/example/reservation-desk/internal/persistence/memory"
	"github.com/example/reservation-desk/internal/testfixtures"
)

func TestStoreAdapterRoundTrip(t *testing.T) {
	ctx := context.Background()
	adapter := bootstrap.NewStoreAdapter(memory.New())

	phone := "090-0000-0000"
	profile := testfixtures.NewProfileFixture(testfixtures.WithProfilePhone(phone)).Application()
	if err := adapter.CreateProfile(ctx, profile); err != nil {
		t.Fatalf("CreateProfile failed: %v", err)
	}
	got, err := adapter.GetProfile(ctx, profile.ID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if diff := cmp.Diff(profile, got); diff != "" {
		t.Fatalf("profile mismatch (-want +got):\n%s", diff)
	}
	if got.PhoneNumber == profile.PhoneNumber {
		t.Fatalf("expected phone number to be copied")
	}

	project := testfixtures.NewProjectFixture(testfixtures.WithProjectCreator(profile.ID))
	if err := adapter.CreateProject(ctx, project.Application()); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	slots := []application.TimeSlot{
		testfixtures.NewSlotFixture(project.ID).Application(),
		testfixtures.NewSlotFixture(project.ID).Application(),
	}
	if err := adapter.CreateTimeSlots(ctx, slots); err != nil {
		t.Fatalf("CreateTimeSlots failed: %v", err)
	}

	all, err := adapter.ListTimeSlots(ctx, project.ID, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("ListTimeSlots failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected open bounds to return both slots, got %d", len(all))
	}
	bounded, err := adapter.ListTimeSlots(ctx, project.ID, slots[1].Start, time.Time{})
	if err != nil {
		t.Fatalf("ListTimeSlots failed: %v", err)
	}
	if len(bounded) != 1 || bounded[0].ID != slots[1].ID {
		t.Fatalf("expected only the later slot, got %#v", bounded)
	}

	if _, err := adapter.GetProject(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected persistence.ErrNotFound to pass through, got %v", err)
	}
}

func TestStoreAdapterSessions(t *testing.T) {
	ctx := context.Background()
	adapter := bootstrap.NewStoreAdapter(memory.New())
	profile := testfixtures.NewProfileFixture().Application()
	if err := adapter.CreateProfile(ctx, profile); err != nil {
		t.Fatalf("CreateProfile failed: %v", err)
	}

	now := testfixtures.ReferenceTime()
	created, err := adapter.CreateSession(ctx, application.Session{
		ID:        "session-1",
		UserID:    profile.ID,
		Token:     "token-1",
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	revoked, err := adapter.RevokeSession(ctx, created.Token, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if revoked.RevokedAt == nil || !revoked.RevokedAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("expected revocation time, got %v", revoked.RevokedAt)
	}
}

func TestNewServices(t *testing.T) {
	ctx := context.Background()

	if _, err := bootstrap.NewServices(nil, bootstrap.Options{TokenSecret: "s"}); err == nil {
		t.Fatalf("expected error without repositories")
	}
	adapter := bootstrap.NewStoreAdapter(memory.New())
	if _, err := bootstrap.NewServices(adapter, bootstrap.Options{}); err == nil {
		t.Fatalf("expected error without a token secret")
	}

	services, err := bootstrap.NewServices(adapter, bootstrap.Options{
		TokenSecret:    "secret",
		HashPassword:   testfixtures.PlainHash,
		VerifyPassword: testfixtures.PlainVerify,
	})
	if err != nil {
		t.Fatalf("NewServices failed: %v", err)
	}
	if services.Location != time.UTC {
		t.Fatalf("expected UTC default, got %v", services.Location)
	}

	result, err := services.Auth.SignUp(ctx, application.SignUpParams{Email: "w@example.com", Name: "Worker", Password: "long-enough"})
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if _, err := uuid.Parse(result.Profile.ID); err != nil {
		t.Fatalf("expected UUID profile id, got %q", result.Profile.ID)
	}

	token, err := services.Auth.IssueAccessToken(ctx, result.Profile.Principal())
	if err != nil {
		t.Fatalf("IssueAccessToken failed: %v", err)
	}
	principal, err := services.Auth.VerifyAccessToken(ctx, token.Token)
	if err != nil {
		t.Fatalf("VerifyAccessToken failed: %v", err)
	}
	if principal != result.Profile.Principal() {
		t.Fatalf("unexpected principal %#v", principal)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	loc := time.FixedZone("JST", 9*60*60)
	cfg := config.Config{
		Location:         loc,
		SessionTTL:       time.Hour,
		TokenSecret:      "secret",
		TokenTTL:         time.Minute,
		CountConcurrency: 3,
	}
	opts := bootstrap.OptionsFromConfig(cfg, nil)
	if opts.Location != loc || opts.SessionTTL != time.Hour || opts.TokenSecret != "secret" || opts.TokenTTL != time.Minute || opts.CountConcurrency != 3 {
		t.Fatalf("unexpected options %#v", opts)
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		store, err := bootstrap.OpenStore(ctx, config.Config{StorageDriver: config.DriverMemory}, nil)
		if err != nil {
			t.Fatalf("OpenStore failed: %v", err)
		}
		defer store.Close()
		if _, ok := store.(*memory.Store); !ok {
			t.Fatalf("expected memory store, got %T", store)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reservations.db")
		store, err := bootstrap.OpenStore(ctx, config.Config{StorageDriver: config.DriverSQLite, SQLitePath: path}, nil)
		if err != nil {
			t.Fatalf("OpenStore failed: %v", err)
		}
		defer store.Close()
		if _, err := store.ListProjects(ctx); err != nil {
			t.Fatalf("expected migrated schema, got %v", err)
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		if _, err := bootstrap.OpenStore(ctx, config.Config{StorageDriver: "mongo"}, nil); err == nil {
			t.Fatalf("expected error for unknown driver")
		}
	})
}

func TestIdentifiers(t *testing.T) {
	if _, err := uuid.Parse(bootstrap.NewID()); err != nil {
		t.Fatalf("NewID is not a UUID: %v", err)
	}
	a, b := bootstrap.NewToken(), bootstrap.NewToken()
	if len(a) != 64 || strings.Contains(a, "-") {
		t.Fatalf("unexpected token format %q", a)
	}
	if a == b {
		t.Fatalf("expected distinct tokens")
	}
}
