package console

import (
	"context"
	"sync"
	"time"

	"github.com/example/reservation-desk/internal/application"
	"github.com/example/reservation-desk/internal/daterange"
)

// State is the user controlled part of a view.
type State struct {
	ProjectID    string
	Preset       daterange.Preset
	From         time.Time
	To           time.Time
	Availability application.Availability
}

// View owns one session's console state. Every refresh is tagged with a
// sequence number and only the response to the latest issued request is
// applied; older responses are dropped.
type View struct {
	console   Console
	principal application.Principal
	now       func() time.Time
	loc       *time.Location

	mu        sync.Mutex
	state     State
	issued    uint64
	applied   uint64
	requested string
	snapshot  Dashboard
}

// NewView opens a view for principal. Admin views start on the default
// preset; worker views start unfiltered.
func NewView(console Console, principal application.Principal, now func() time.Time, loc *time.Location) *View {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	v := &View{
		console:   console,
		principal: principal,
		now:       now,
		loc:       loc,
		state:     State{Availability: application.AvailabilityAll},
	}
	if console.Role() == application.RoleAdmin {
		// The default preset is always known to Resolve.
		_ = v.ApplyPreset(daterange.DefaultPreset)
	}
	return v
}

// State returns a copy of the current state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// SelectProject changes the selected project.
func (v *View) SelectProject(projectID string) {
	v.mu.Lock()
	v.state.ProjectID = projectID
	v.mu.Unlock()
}

// ApplyPreset sets the preset label and overwrites both bounds.
func (v *View) ApplyPreset(p daterange.Preset) error {
	r, err := daterange.Resolve(p, v.now(), v.loc)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.state.Preset = p
	v.state.From, v.state.To = r.Start, r.End
	v.mu.Unlock()
	return nil
}

// SetFrom edits the lower bound. The preset label is left as is.
func (v *View) SetFrom(t time.Time) {
	v.mu.Lock()
	v.state.From = t
	v.mu.Unlock()
}

// SetTo edits the upper bound. The preset label is left as is.
func (v *View) SetTo(t time.Time) {
	v.mu.Lock()
	v.state.To = t
	v.mu.Unlock()
}

// SetAvailability changes the availability filter.
func (v *View) SetAvailability(a application.Availability) {
	v.mu.Lock()
	v.state.Availability = a
	v.mu.Unlock()
}

// ProjectDeleted clears the selection when it pointed at projectID.
func (v *View) ProjectDeleted(projectID string) {
	v.mu.Lock()
	if v.state.ProjectID == projectID {
		v.state.ProjectID = ""
	}
	v.mu.Unlock()
}

// Begin issues a new sequence number and the request for the current state.
func (v *View) Begin() (uint64, DashboardRequest) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.issued++
	v.requested = v.state.ProjectID
	return v.issued, DashboardRequest{
		Principal:    v.principal,
		ProjectID:    v.state.ProjectID,
		From:         v.state.From,
		To:           v.state.To,
		Availability: v.state.Availability,
	}
}

// Apply stores d when seq is the latest issued sequence and reports whether
// it did. The dashboard's project becomes the selection unless the user
// picked another project after the request was issued.
func (v *View) Apply(seq uint64, d Dashboard) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if seq != v.issued || seq <= v.applied {
		return false
	}
	v.applied = seq
	v.snapshot = d
	if v.state.ProjectID == v.requested {
		v.state.ProjectID = d.ProjectID
	}
	return true
}

// Snapshot returns the last applied dashboard and its sequence number.
func (v *View) Snapshot() (Dashboard, uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot, v.applied
}

// Refresh fetches a dashboard for the current state and applies it. When a
// newer refresh overtook this one the newer snapshot is returned instead,
// or this response when nothing has been applied yet.
func (v *View) Refresh(ctx context.Context) (Dashboard, error) {
	seq, req := v.Begin()
	d, err := v.console.Dashboard(ctx, req)
	if err != nil {
		return Dashboard{}, err
	}
	if v.Apply(seq, d) {
		return d, nil
	}
	latest, applied := v.Snapshot()
	if applied == 0 {
		return d, nil
	}
	return latest, nil
}
