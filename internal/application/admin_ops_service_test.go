package application

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"
)

func TestGenerateTemporaryPassword(t *testing.T) {
	t.Parallel()

	pattern := regexp.MustCompile(`^Admin[a-z0-9]{8}!$`)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		password, err := GenerateTemporaryPassword()
		if err != nil {
			t.Fatalf("GenerateTemporaryPassword failed: %v", err)
		}
		if !pattern.MatchString(password) {
			t.Fatalf("unexpected password shape %q", password)
		}
		seen[password] = true
	}
	if len(seen) < 45 {
		t.Fatalf("expected mostly distinct passwords, got %d of 50", len(seen))
	}
}

func TestAdminOpsService(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC)

	newFixture := func() (*AdminOpsService, *repoStub) {
		repo := newRepoStub()
		repo.addProfile(Profile{ID: adminPrincipal.UserID, Email: "ada@example.com", Role: RoleAdmin})
		repo.addProfile(Profile{ID: workerPrincipal.UserID, Email: "wes@example.com", Role: RoleWorker})
		svc := NewAdminOpsService(repo, repo, sequence("user"), fixedNow(now)).
			WithPasswordFuncs(plainHash, func() (string, error) { return "Admin0000abcd!", nil })
		return svc, repo
	}

	t.Run("creates an admin with a temporary password", func(t *testing.T) {
		t.Parallel()

		svc, repo := newFixture()
		result, err := svc.CreateAdmin(ctx, CreateAdminParams{Principal: adminPrincipal, Name: " Grace ", Email: "Grace@Example.com"})
		if err != nil {
			t.Fatalf("CreateAdmin failed: %v", err)
		}
		if result.TemporaryPassword != "Admin0000abcd!" {
			t.Fatalf("unexpected password %q", result.TemporaryPassword)
		}
		stored := repo.profiles[result.Profile.ID]
		if stored.Role != RoleAdmin || stored.Name != "Grace" || stored.Email != "grace@example.com" || !stored.MustChangePassword {
			t.Fatalf("unexpected stored profile %#v", stored)
		}
		if repo.credentials[stored.ID].PasswordHash != "hash:Admin0000abcd!" {
			t.Fatalf("expected credential for the temporary password")
		}
	})

	t.Run("requires an admin caller from the stored profile", func(t *testing.T) {
		t.Parallel()

		svc, _ := newFixture()
		forged := Principal{UserID: workerPrincipal.UserID, Role: RoleAdmin}
		if _, err := svc.CreateAdmin(ctx, CreateAdminParams{Principal: forged, Name: "X", Email: "x@example.com"}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if _, err := svc.CreateAdmin(ctx, CreateAdminParams{Principal: Principal{UserID: "ghost", Role: RoleAdmin}, Name: "X", Email: "x@example.com"}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized for unknown caller, got %v", err)
		}
	})

	t.Run("requires name and email", func(t *testing.T) {
		t.Parallel()

		svc, _ := newFixture()
		var vErr *ValidationError
		if _, err := svc.CreateAdmin(ctx, CreateAdminParams{Principal: adminPrincipal, Name: "", Email: ""}); !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("rolls back the identity when promotion fails", func(t *testing.T) {
		t.Parallel()

		svc, repo := newFixture()
		repo.fail("UpdateProfile", errors.New("update failed"))

		_, err := svc.CreateAdmin(ctx, CreateAdminParams{Principal: adminPrincipal, Name: "Grace", Email: "grace@example.com"})
		if !errors.Is(err, ErrProfileSetupFailed) {
			t.Fatalf("expected ErrProfileSetupFailed, got %v", err)
		}
		if _, err := repo.GetProfileByEmail(ctx, "grace@example.com"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected identity to be removed, got %v", err)
		}
		if len(repo.deletedUsers) != 1 {
			t.Fatalf("expected one rollback delete, got %v", repo.deletedUsers)
		}
	})

	t.Run("resets passwords and flags them for change", func(t *testing.T) {
		t.Parallel()

		svc, repo := newFixture()
		password, err := svc.ResetPassword(ctx, ResetPasswordParams{Principal: adminPrincipal, UserID: workerPrincipal.UserID})
		if err != nil {
			t.Fatalf("ResetPassword failed: %v", err)
		}
		if password != "Admin0000abcd!" || repo.credentials[workerPrincipal.UserID].PasswordHash != "hash:"+password {
			t.Fatalf("expected credential to be replaced")
		}
		if !repo.profiles[workerPrincipal.UserID].MustChangePassword {
			t.Fatalf("expected must-change flag")
		}

		if _, err := svc.ResetPassword(ctx, ResetPasswordParams{Principal: workerPrincipal, UserID: adminPrincipal.UserID}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if _, err := svc.ResetPassword(ctx, ResetPasswordParams{Principal: adminPrincipal, UserID: "missing"}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
