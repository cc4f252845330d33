package recurrence

import (
	"errors"
	"testing"
	"time"
)

func TestEngine_Expand(t *testing.T) {
	t.Parallel()

	engine := NewEngine(time.UTC)
	nineToTen := func(p Pattern) Pattern {
		p.StartTime = TimeOfDay{Hour: 9}
		p.EndTime = TimeOfDay{Hour: 10}
		return p
	}

	t.Run("selects only the requested weekdays", func(t *testing.T) {
		t.Parallel()

		windows, err := engine.Expand(nineToTen(Pattern{
			StartDate: time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2025, time.June, 8, 0, 0, 0, 0, time.UTC),
			Weekdays:  []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		}))
		if err != nil {
			t.Fatalf("Expand failed: %v", err)
		}

		want := []time.Time{
			time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC),
			time.Date(2025, time.June, 4, 9, 0, 0, 0, time.UTC),
			time.Date(2025, time.June, 6, 9, 0, 0, 0, time.UTC),
		}
		if len(windows) != len(want) {
			t.Fatalf("expected %d windows, got %d", len(want), len(windows))
		}
		for i, w := range windows {
			if !w.Start.Equal(want[i]) || !w.End.Equal(want[i].Add(time.Hour)) {
				t.Fatalf("window %d: got %v-%v", i, w.Start, w.End)
			}
		}
	})

	t.Run("count equals matching days in range", func(t *testing.T) {
		t.Parallel()

		start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)
		for _, days := range [][]time.Weekday{
			{time.Sunday},
			DefaultWeekdays,
			{time.Saturday, time.Sunday},
			{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday},
		} {
			windows, err := engine.Expand(nineToTen(Pattern{StartDate: start, EndDate: end, Weekdays: days}))
			if err != nil {
				t.Fatalf("Expand failed: %v", err)
			}
			if got, want := len(windows), engine.CountMatchingDays(start, end, days); got != want {
				t.Fatalf("weekdays %v: expected %d windows, got %d", days, want, got)
			}
			for _, w := range windows {
				if !w.Start.Before(w.End) {
					t.Fatalf("window does not end after start: %v", w)
				}
			}
		}
	})

	t.Run("keeps wall clock times across DST changes", func(t *testing.T) {
		t.Parallel()

		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			t.Skipf("timezone database unavailable: %v", err)
		}
		local := NewEngine(loc)
		windows, err := local.Expand(nineToTen(Pattern{
			StartDate: time.Date(2025, time.March, 7, 0, 0, 0, 0, loc),
			EndDate:   time.Date(2025, time.March, 11, 0, 0, 0, 0, loc),
			Weekdays:  []time.Weekday{time.Friday, time.Monday, time.Tuesday},
		}))
		if err != nil {
			t.Fatalf("Expand failed: %v", err)
		}
		for _, w := range windows {
			if w.Start.Hour() != 9 || w.End.Hour() != 10 {
				t.Fatalf("expected 09:00-10:00 local, got %v-%v", w.Start, w.End)
			}
		}
	})

	t.Run("rejects invalid patterns", func(t *testing.T) {
		t.Parallel()

		day := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
		tests := []struct {
			name    string
			pattern Pattern
			want    error
		}{
			{"no weekdays", nineToTen(Pattern{StartDate: day, EndDate: day.AddDate(0, 0, 7)}), ErrNoWeekdays},
			{"same day", nineToTen(Pattern{StartDate: day, EndDate: day, Weekdays: DefaultWeekdays}), ErrInvalidDateRange},
			{"end before start", nineToTen(Pattern{StartDate: day, EndDate: day.AddDate(0, 0, -1), Weekdays: DefaultWeekdays}), ErrInvalidDateRange},
			{"inverted times", Pattern{StartDate: day, EndDate: day.AddDate(0, 0, 7), Weekdays: DefaultWeekdays, StartTime: TimeOfDay{Hour: 10}, EndTime: TimeOfDay{Hour: 9}}, ErrInvalidTimeRange},
			{"bad weekday", nineToTen(Pattern{StartDate: day, EndDate: day.AddDate(0, 0, 7), Weekdays: []time.Weekday{7}}), ErrInvalidWeekday},
		}
		for _, tt := range tests {
			if _, err := engine.Expand(tt.pattern); !errors.Is(err, tt.want) {
				t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, err)
			}
		}
	})

	t.Run("returns no windows when no day matches", func(t *testing.T) {
		t.Parallel()

		windows, err := engine.Expand(nineToTen(Pattern{
			StartDate: time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC),
			Weekdays:  []time.Weekday{time.Saturday},
		}))
		if err != nil {
			t.Fatalf("Expand failed: %v", err)
		}
		if len(windows) != 0 {
			t.Fatalf("expected no windows, got %d", len(windows))
		}
	})
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30")
	if err != nil {
		t.Fatalf("ParseTimeOfDay failed: %v", err)
	}
	if tod.Hour != 9 || tod.Minute != 30 || tod.String() != "09:30" {
		t.Fatalf("unexpected time of day: %+v", tod)
	}
	if _, err := ParseTimeOfDay("25:00"); !errors.Is(err, ErrInvalidTimeOfDay) {
		t.Fatalf("expected ErrInvalidTimeOfDay, got %v", err)
	}
}

func BenchmarkEngineExpand(b *testing.B) {
	engine := NewEngine(nil)
	start := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	pattern := Pattern{
		StartDate: start,
		EndDate:   start.AddDate(0, 3, 0),
		Weekdays:  DefaultWeekdays,
		StartTime: TimeOfDay{Hour: 9},
		EndTime:   TimeOfDay{Hour: 10, Minute: 30},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		windows, err := engine.Expand(pattern)
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		if len(windows) == 0 {
			b.Fatal("expected windows to be generated")
		}
	}
}
