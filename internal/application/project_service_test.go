package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestProjectService(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC)

	t.Run("admins create projects", func(t *testing.T) {
		t.Parallel()

		repo := newRepoStub()
		svc := NewProjectService(repo, sequence("project"), fixedNow(now))

		project, err := svc.CreateProject(ctx, CreateProjectParams{Principal: adminPrincipal, Name: "  Stocktake ", StartingDate: now})
		if err != nil {
			t.Fatalf("CreateProject failed: %v", err)
		}
		if project.ID != "project-1" || project.Name != "Stocktake" || project.CreatedBy != adminPrincipal.UserID || !project.CreatedAt.Equal(now) {
			t.Fatalf("unexpected project %#v", project)
		}

		projects, err := svc.ListProjects(ctx, workerPrincipal)
		if err != nil || len(projects) != 1 {
			t.Fatalf("expected workers to list projects, got %#v (%v)", projects, err)
		}
	})

	t.Run("validates and authorizes", func(t *testing.T) {
		t.Parallel()

		repo := newRepoStub()
		svc := NewProjectService(repo, sequence("project"), fixedNow(now))

		if _, err := svc.CreateProject(ctx, CreateProjectParams{Principal: workerPrincipal, Name: "x", StartingDate: now}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}

		_, err := svc.CreateProject(ctx, CreateProjectParams{Principal: adminPrincipal, Name: " "})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["name"] == "" || vErr.FieldErrors["starting_date"] == "" {
			t.Fatalf("expected name and starting_date errors, got %v", err)
		}

		if _, err := svc.ListProjects(ctx, Principal{}); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("deleting a project cascades to slots and reservations", func(t *testing.T) {
		t.Parallel()

		repo := newRepoStub()
		svc := NewProjectService(repo, sequence("project"), fixedNow(now))
		repo.addProject(Project{ID: "p1"})
		repo.addSlot(TimeSlot{ID: "s1", ProjectID: "p1"})
		repo.addSlot(TimeSlot{ID: "s2", ProjectID: "p1"})
		repo.addReservation(Reservation{ID: "r1", TimeSlotID: "s1"})
		repo.addReservation(Reservation{ID: "r2", TimeSlotID: "s1"})
		repo.addReservation(Reservation{ID: "r3", TimeSlotID: "s2"})

		if err := svc.DeleteProject(ctx, workerPrincipal, "p1"); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if err := svc.DeleteProject(ctx, adminPrincipal, "p1"); err != nil {
			t.Fatalf("DeleteProject failed: %v", err)
		}
		if len(repo.slots) != 0 || len(repo.reservations) != 0 {
			t.Fatalf("expected cascade, have %d slots and %d reservations", len(repo.slots), len(repo.reservations))
		}
		if err := svc.DeleteProject(ctx, adminPrincipal, "p1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
