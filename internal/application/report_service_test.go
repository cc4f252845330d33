package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestReportService_DailyReservations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, time.June, 1, 15, 30, 0, 0, time.UTC)

	newFixture := func() (*ReportService, *repoStub) {
		repo := newRepoStub()
		repo.addProject(Project{ID: "p1"})
		return NewReportService(repo, repo, repo, fixedNow(now), time.UTC), repo
	}

	t.Run("buckets by slot start day and zero fills", func(t *testing.T) {
		t.Parallel()

		svc, repo := newFixture()
		day2 := time.Date(2025, time.June, 2, 23, 0, 0, 0, time.UTC)
		day4 := time.Date(2025, time.June, 4, 9, 0, 0, 0, time.UTC)
		outside := time.Date(2025, time.June, 6, 9, 0, 0, 0, time.UTC)
		repo.addSlot(TimeSlot{ID: "s2", ProjectID: "p1", Start: day2, End: day2.Add(2 * time.Hour), TotalSeats: 5})
		repo.addSlot(TimeSlot{ID: "s4", ProjectID: "p1", Start: day4, End: day4.Add(time.Hour), TotalSeats: 5})
		repo.addSlot(TimeSlot{ID: "s6", ProjectID: "p1", Start: outside, End: outside.Add(time.Hour), TotalSeats: 5})
		// created long before the slot day; attribution follows the slot
		repo.addReservation(Reservation{ID: "r1", TimeSlotID: "s2", CreatedAt: now.AddDate(0, -1, 0)})
		repo.addReservation(Reservation{ID: "r2", TimeSlotID: "s2"})
		repo.addReservation(Reservation{ID: "r3", TimeSlotID: "s4"})
		repo.addReservation(Reservation{ID: "r4", TimeSlotID: "s6"})

		got, err := svc.DailyReservations(ctx, DailyReservationsParams{
			Principal: adminPrincipal,
			ProjectID: "p1",
			Start:     time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
			End:       time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("DailyReservations failed: %v", err)
		}
		want := []DayCount{
			{Day: "2025-06-01", Count: 0},
			{Day: "2025-06-02", Count: 2},
			{Day: "2025-06-03", Count: 0},
			{Day: "2025-06-04", Count: 1},
			{Day: "2025-06-05", Count: 0},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("unexpected series (-want +got):\n%s", diff)
		}
	})

	t.Run("defaults to today through fourteen days ahead", func(t *testing.T) {
		t.Parallel()

		svc, _ := newFixture()
		got, err := svc.DailyReservations(ctx, DailyReservationsParams{Principal: adminPrincipal, ProjectID: "p1"})
		if err != nil {
			t.Fatalf("DailyReservations failed: %v", err)
		}
		if len(got) != 15 || got[0].Day != "2025-06-01" || got[14].Day != "2025-06-15" {
			t.Fatalf("unexpected default window %#v", got)
		}
		for _, bucket := range got {
			if bucket.Count != 0 {
				t.Fatalf("expected zero filled series, got %#v", got)
			}
		}
	})

	t.Run("caps the number of days", func(t *testing.T) {
		t.Parallel()

		svc, _ := newFixture()
		start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
		got, err := svc.DailyReservations(ctx, DailyReservationsParams{
			Principal: adminPrincipal, ProjectID: "p1",
			Start: start, End: start.AddDate(0, 0, MaxReportDays-1),
		})
		if err != nil || len(got) != MaxReportDays {
			t.Fatalf("expected %d buckets, got %d (%v)", MaxReportDays, len(got), err)
		}

		_, err = svc.DailyReservations(ctx, DailyReservationsParams{
			Principal: adminPrincipal, ProjectID: "p1",
			Start: start, End: start.AddDate(0, 0, MaxReportDays),
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["end_date"] == "" {
			t.Fatalf("expected end_date validation error, got %v", err)
		}
	})

	t.Run("rejects inverted windows, workers and unknown projects", func(t *testing.T) {
		t.Parallel()

		svc, _ := newFixture()
		var vErr *ValidationError
		_, err := svc.DailyReservations(ctx, DailyReservationsParams{
			Principal: adminPrincipal, ProjectID: "p1",
			Start: now, End: now.AddDate(0, 0, -1),
		})
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["end_date"]; !ok {
			t.Fatalf("expected end_date error, got %#v", vErr.FieldErrors)
		}
		if _, err := svc.DailyReservations(ctx, DailyReservationsParams{Principal: workerPrincipal, ProjectID: "p1"}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if _, err := svc.DailyReservations(ctx, DailyReservationsParams{Principal: adminPrincipal, ProjectID: "nope"}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
