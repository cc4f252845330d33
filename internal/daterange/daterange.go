// Package daterange resolves named presets into calendar date windows and
// provides the day arithmetic shared by slot listing and reporting.
package daterange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Preset names a relative date window.
type Preset string

const (
	// PresetNone applies no date filter.
	PresetNone Preset = ""
	// PresetAllTime applies no date filter.
	PresetAllTime Preset = "all-time"
	// PresetLastMonth covers one calendar month back to today.
	PresetLastMonth Preset = "last-month"
	// PresetLastTwoWeeks covers the 14 days before today and today.
	PresetLastTwoWeeks Preset = "last-two-weeks"
	// PresetNextTwoWeeks covers today and the following 14 days.
	PresetNextTwoWeeks Preset = "next-two-weeks"
	// PresetNextMonth covers today through the same day next month.
	PresetNextMonth Preset = "next-month"
)

// DefaultPreset is selected when an admin view opens.
const DefaultPreset = PresetNextTwoWeeks

// DayLayout is the ISO calendar day format used for bucket keys and query parameters.
const DayLayout = "2006-01-02"

// ErrUnknownPreset is returned for preset tokens outside the known set.
var ErrUnknownPreset = errors.New("daterange: unknown preset")

// Range is an inclusive pair of calendar days. A zero Range means no filter.
type Range struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the range carries no bounds.
func (r Range) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// ParsePreset validates a preset token.
func ParsePreset(value string) (Preset, error) {
	p := Preset(strings.TrimSpace(strings.ToLower(value)))
	switch p {
	case PresetNone, PresetAllTime, PresetLastMonth, PresetLastTwoWeeks, PresetNextTwoWeeks, PresetNextMonth:
		return p, nil
	}
	return PresetNone, fmt.Errorf("%w: %q", ErrUnknownPreset, value)
}

// Resolve maps a preset to concrete bounds relative to now truncated to
// midnight in loc.
func Resolve(p Preset, now time.Time, loc *time.Location) (Range, error) {
	today := StartOfDay(now, loc)
	switch p {
	case PresetNone, PresetAllTime:
		return Range{}, nil
	case PresetLastMonth:
		return Range{Start: today.AddDate(0, -1, 0), End: today}, nil
	case PresetLastTwoWeeks:
		return Range{Start: today.AddDate(0, 0, -14), End: today}, nil
	case PresetNextTwoWeeks:
		return Range{Start: today, End: today.AddDate(0, 0, 14)}, nil
	case PresetNextMonth:
		return Range{Start: today, End: today.AddDate(0, 1, 0)}, nil
	}
	return Range{}, fmt.Errorf("%w: %q", ErrUnknownPreset, string(p))
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// EndOfDay returns 23:59:59.999 of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Millisecond)
}

// Days returns the midnight of every calendar day in [start, end], ascending.
// It returns nil when end falls before start.
func Days(start, end time.Time, loc *time.Location) []time.Time {
	first := StartOfDay(start, loc)
	last := StartOfDay(end, loc)
	if last.Before(first) {
		return nil
	}
	days := make([]time.Time, 0, int(last.Sub(first).Hours()/24)+1)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}

// DayKey formats t's calendar day in loc as YYYY-MM-DD.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DayLayout)
}

// ParseDay parses a YYYY-MM-DD value as midnight in loc.
func ParseDay(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DayLayout, strings.TrimSpace(value), loc)
}
