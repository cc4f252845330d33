package application

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestRenderUserExport(t *testing.T) {
	t.Parallel()

	phone := "555-0100"
	profiles := []Profile{
		{
			Name:        `Jo "JJ" Smith`,
			Email:       "jo@example.com",
			PhoneNumber: &phone,
			Role:        RoleWorker,
			IsBlocked:   true,
			CreatedAt:   time.Date(2024, time.March, 5, 23, 30, 0, 0, time.UTC),
		},
		{
			Name:      "Ada",
			Email:     "ada@example.com",
			Role:      RoleAdmin,
			CreatedAt: time.Date(2024, time.January, 2, 10, 0, 0, 0, time.UTC),
		},
	}

	export := RenderUserExport(profiles, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), time.UTC)

	want := "Name,Email,Phone,Role,Status,Joined\n" +
		`"Jo ""JJ"" Smith","jo@example.com","555-0100",worker,Blocked,"March 5, 2024"` + "\n" +
		`"Ada","ada@example.com","Not provided",admin,Active,"January 2, 2024"`
	if diff := cmp.Diff(want, string(export.Content)); diff != "" {
		t.Fatalf("unexpected CSV (-want +got):\n%s", diff)
	}
	if export.Filename != "registered_users_2025-06-01.csv" {
		t.Fatalf("unexpected filename %q", export.Filename)
	}

	t.Run("joined date follows the configured zone", func(t *testing.T) {
		t.Parallel()

		tokyo := time.FixedZone("JST", 9*60*60)
		export := RenderUserExport(profiles[:1], time.Date(2025, time.June, 1, 0, 0, 0, 0, tokyo), tokyo)
		want := "Name,Email,Phone,Role,Status,Joined\n" +
			`"Jo ""JJ"" Smith","jo@example.com","555-0100",worker,Blocked,"March 6, 2024"`
		if got := string(export.Content); got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	})

	t.Run("header only for no users", func(t *testing.T) {
		t.Parallel()

		export := RenderUserExport(nil, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), nil)
		if got := string(export.Content); got != "Name,Email,Phone,Role,Status,Joined" {
			t.Fatalf("unexpected content %q", got)
		}
	})
}
