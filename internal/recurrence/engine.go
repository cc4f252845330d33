// Package recurrence expands a weekday pattern over a date range into
// concrete time windows, one per matching calendar day.
package recurrence

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoWeekdays indicates the weekday selection is empty.
	ErrNoWeekdays = errors.New("recurrence: at least one weekday is required")
	// ErrInvalidWeekday indicates a weekday outside Sunday..Saturday.
	ErrInvalidWeekday = errors.New("recurrence: weekday out of range")
	// ErrInvalidDateRange indicates the end date is not after the start date.
	ErrInvalidDateRange = errors.New("recurrence: end date must be after start date")
	// ErrInvalidTimeRange indicates a generated window does not end after it starts.
	ErrInvalidTimeRange = errors.New("recurrence: end time must be after start time")
	// ErrInvalidTimeOfDay indicates a malformed HH:MM value.
	ErrInvalidTimeOfDay = errors.New("recurrence: invalid time of day")
)

// DefaultWeekdays is Monday through Friday.
var DefaultWeekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// TimeOfDay is a wall clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24 hour clock).
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, value)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// String formats the value as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Pattern selects weekdays within an inclusive date range and a daily time window.
type Pattern struct {
	StartDate time.Time
	EndDate   time.Time
	Weekdays  []time.Weekday
	StartTime TimeOfDay
	EndTime   TimeOfDay
}

// Window is one generated [Start, End) interval.
type Window struct {
	Start time.Time
	End   time.Time
}

// Engine expands patterns in a fixed location.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that interprets dates and times in loc.
// If loc is nil, UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// Location returns the engine's time zone.
func (e *Engine) Location() *time.Location {
	return e.location
}

// Expand returns one window per calendar day in [StartDate, EndDate] whose
// weekday is selected, in chronological order. Only the calendar date of
// StartDate and EndDate is used.
func (e *Engine) Expand(p Pattern) ([]Window, error) {
	if len(p.Weekdays) == 0 {
		return nil, ErrNoWeekdays
	}

	selected := make(map[time.Weekday]struct{}, len(p.Weekdays))
	for _, day := range p.Weekdays {
		if day < time.Sunday || day > time.Saturday {
			return nil, fmt.Errorf("%w: %d", ErrInvalidWeekday, day)
		}
		selected[day] = struct{}{}
	}

	first := e.dateOf(p.StartDate)
	last := e.dateOf(p.EndDate)
	if !last.After(first) {
		return nil, ErrInvalidDateRange
	}

	windows := make([]Window, 0)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if _, ok := selected[day.Weekday()]; !ok {
			continue
		}
		start := e.at(day, p.StartTime)
		end := e.at(day, p.EndTime)
		if !end.After(start) {
			return nil, ErrInvalidTimeRange
		}
		windows = append(windows, Window{Start: start, End: end})
	}
	return windows, nil
}

// CountMatchingDays returns how many days in [start, end] fall on a selected weekday.
func (e *Engine) CountMatchingDays(start, end time.Time, weekdays []time.Weekday) int {
	selected := make(map[time.Weekday]struct{}, len(weekdays))
	for _, day := range weekdays {
		selected[day] = struct{}{}
	}
	count := 0
	for day, last := e.dateOf(start), e.dateOf(end); !day.After(last); day = day.AddDate(0, 0, 1) {
		if _, ok := selected[day.Weekday()]; ok {
			count++
		}
	}
	return count
}

func (e *Engine) dateOf(t time.Time) time.Time {
	y, m, d := t.In(e.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.location)
}

func (e *Engine) at(day time.Time, tod TimeOfDay) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), tod.Hour, tod.Minute, 0, 0, e.location)
}
