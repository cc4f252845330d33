package daterange

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolve(t *testing.T) {
	now := time.Date(2025, time.June, 1, 16, 45, 0, 0, time.UTC)

	tests := []struct {
		preset Preset
		want   Range
	}{
		{PresetNextTwoWeeks, Range{Start: day(2025, time.June, 1), End: day(2025, time.June, 15)}},
		{PresetLastTwoWeeks, Range{Start: day(2025, time.May, 18), End: day(2025, time.June, 1)}},
		{PresetLastMonth, Range{Start: day(2025, time.May, 1), End: day(2025, time.June, 1)}},
		{PresetNextMonth, Range{Start: day(2025, time.June, 1), End: day(2025, time.July, 1)}},
		{PresetAllTime, Range{}},
		{PresetNone, Range{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			got, err := Resolve(tt.preset, now, time.UTC)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("range mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("unknown preset", func(t *testing.T) {
		if _, err := Resolve("yesterday", now, time.UTC); !errors.Is(err, ErrUnknownPreset) {
			t.Fatalf("expected ErrUnknownPreset, got %v", err)
		}
	})

	t.Run("all-time is zero", func(t *testing.T) {
		got, _ := Resolve(PresetAllTime, now, time.UTC)
		if !got.IsZero() {
			t.Fatalf("expected zero range, got %+v", got)
		}
	})
}

func TestResolveUsesLocalMidnight(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	// 20:00 UTC on May 31 is already June 1 in UTC+9.
	now := time.Date(2025, time.May, 31, 20, 0, 0, 0, time.UTC)

	got, err := Resolve(PresetNextTwoWeeks, now, loc)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if DayKey(got.Start, loc) != "2025-06-01" || DayKey(got.End, loc) != "2025-06-15" {
		t.Fatalf("unexpected range %v - %v", got.Start, got.End)
	}
}

func TestParsePreset(t *testing.T) {
	p, err := ParsePreset(" Next-Month ")
	if err != nil || p != PresetNextMonth {
		t.Fatalf("expected next-month, got %q (%v)", p, err)
	}
	if _, err := ParsePreset("fortnight"); !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("expected ErrUnknownPreset, got %v", err)
	}
}

func TestDays(t *testing.T) {
	days := Days(day(2025, time.June, 1), time.Date(2025, time.June, 15, 23, 59, 0, 0, time.UTC), time.UTC)
	if len(days) != 15 {
		t.Fatalf("expected 15 inclusive days, got %d", len(days))
	}
	if DayKey(days[0], time.UTC) != "2025-06-01" || DayKey(days[14], time.UTC) != "2025-06-15" {
		t.Fatalf("unexpected bounds %v .. %v", days[0], days[14])
	}
	if Days(day(2025, time.June, 2), day(2025, time.June, 1), time.UTC) != nil {
		t.Fatal("expected nil for inverted range")
	}
}

func TestEndOfDay(t *testing.T) {
	got := EndOfDay(time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC), time.UTC)
	want := time.Date(2025, time.June, 1, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
