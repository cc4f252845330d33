package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestProfileService(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC)

	newFixture := func() (*ProfileService, *repoStub) {
		repo := newRepoStub()
		repo.addProfile(Profile{ID: adminPrincipal.UserID, Email: "ada@example.com", Name: "Ada", Role: RoleAdmin, CreatedAt: now.Add(-48 * time.Hour)})
		repo.addProfile(Profile{ID: workerPrincipal.UserID, Email: "wes@example.com", Name: "Wes", Role: RoleWorker, CreatedAt: now.Add(-24 * time.Hour)})
		return NewProfileService(repo, fixedNow(now), time.UTC), repo
	}

	t.Run("updates own contact fields and clears empty values", func(t *testing.T) {
		t.Parallel()

		svc, repo := newFixture()
		phone, avatar := " 555-0100 ", "https://example.com/a.png"
		updated, err := svc.UpdateProfile(ctx, UpdateProfileParams{Principal: workerPrincipal, PhoneNumber: &phone, AvatarURL: &avatar})
		if err != nil {
			t.Fatalf("UpdateProfile failed: %v", err)
		}
		if updated.PhoneNumber == nil || *updated.PhoneNumber != "555-0100" {
			t.Fatalf("expected trimmed phone, got %v", updated.PhoneNumber)
		}

		empty := "   "
		updated, err = svc.UpdateProfile(ctx, UpdateProfileParams{Principal: workerPrincipal, PhoneNumber: &empty})
		if err != nil {
			t.Fatalf("UpdateProfile failed: %v", err)
		}
		if updated.PhoneNumber != nil {
			t.Fatalf("expected phone to be cleared, got %q", *updated.PhoneNumber)
		}
		if updated.AvatarURL == nil || *repo.profiles[workerPrincipal.UserID].AvatarURL != avatar {
			t.Fatalf("expected avatar to be untouched")
		}
	})

	t.Run("list is admin only", func(t *testing.T) {
		t.Parallel()

		svc, _ := newFixture()
		if _, err := svc.ListUsers(ctx, workerPrincipal); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		users, err := svc.ListUsers(ctx, adminPrincipal)
		if err != nil || len(users) != 2 || users[0].ID != workerPrincipal.UserID {
			t.Fatalf("expected newest first, got %#v (%v)", users, err)
		}
	})

	t.Run("blocks and unblocks other users", func(t *testing.T) {
		t.Parallel()

		svc, repo := newFixture()
		if _, err := svc.SetBlocked(ctx, SetBlockedParams{Principal: adminPrincipal, UserID: workerPrincipal.UserID, Blocked: true}); err != nil {
			t.Fatalf("SetBlocked failed: %v", err)
		}
		if !repo.profiles[workerPrincipal.UserID].IsBlocked {
			t.Fatalf("expected worker to be blocked")
		}

		var vErr *ValidationError
		if _, err := svc.SetBlocked(ctx, SetBlockedParams{Principal: adminPrincipal, UserID: adminPrincipal.UserID, Blocked: true}); !errors.As(err, &vErr) {
			t.Fatalf("expected self block to be rejected, got %v", err)
		}
		if _, err := svc.SetBlocked(ctx, SetBlockedParams{Principal: adminPrincipal, UserID: "missing", Blocked: true}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("deletes users", func(t *testing.T) {
		t.Parallel()

		svc, repo := newFixture()
		repo.addReservation(Reservation{ID: "r1", WorkerID: workerPrincipal.UserID, TimeSlotID: "s1"})

		if err := svc.DeleteUser(ctx, workerPrincipal, adminPrincipal.UserID); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if err := svc.DeleteUser(ctx, adminPrincipal, workerPrincipal.UserID); err != nil {
			t.Fatalf("DeleteUser failed: %v", err)
		}
		if len(repo.reservations) != 0 {
			t.Fatalf("expected reservations to be removed with the user")
		}
	})

	t.Run("exports the user list", func(t *testing.T) {
		t.Parallel()

		svc, _ := newFixture()
		export, err := svc.ExportUsers(ctx, adminPrincipal)
		if err != nil {
			t.Fatalf("ExportUsers failed: %v", err)
		}
		if export.Filename != "registered_users_2025-06-01.csv" {
			t.Fatalf("unexpected filename %q", export.Filename)
		}
	})
}
