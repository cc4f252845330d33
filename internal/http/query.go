package http

import (
	"net/url"
	"strings"
	"time"

	"github.com/example/reservation-desk/internal/application"
	"github.com/example/reservation-desk/internal/daterange"
)

// Calendar supplies the clock and location used to resolve date presets
// and YYYY-MM-DD parameters.
type Calendar struct {
	Now      func() time.Time
	Location *time.Location
}

func (c Calendar) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c Calendar) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// dateRange reads preset, from and to. The preset sets both bounds first;
// explicit from and to override the matching bound.
func (c Calendar) dateRange(q url.Values) (daterange.Preset, time.Time, time.Time, error) {
	preset, err := daterange.ParsePreset(q.Get("preset"))
	if err != nil {
		return daterange.PresetNone, time.Time{}, time.Time{}, err
	}
	r, err := daterange.Resolve(preset, c.now(), c.location())
	if err != nil {
		return daterange.PresetNone, time.Time{}, time.Time{}, err
	}

	from, to := r.Start, r.End
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		if from, err = daterange.ParseDay(v, c.location()); err != nil {
			return daterange.PresetNone, time.Time{}, time.Time{}, err
		}
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		if to, err = daterange.ParseDay(v, c.location()); err != nil {
			return daterange.PresetNone, time.Time{}, time.Time{}, err
		}
	}
	return preset, from, to, nil
}

func parseAvailability(q url.Values) (application.Availability, error) {
	return application.ParseAvailability(q.Get("availability"))
}

func formatDay(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return daterange.DayKey(t, loc)
}
