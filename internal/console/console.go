// Package console composes the application services into the two role
// specific dashboards and tracks per-session view state.
package console

import (
	"context"
	"time"

	"github.com/example/reservation-desk/internal/application"
)

// ProjectLister lists projects visible to a principal.
type ProjectLister interface {
	ListProjects(ctx context.Context, principal application.Principal) ([]application.Project, error)
}

// SlotLister lists a project's slots with occupancy.
type SlotLister interface {
	ListSlots(ctx context.Context, params application.ListSlotsParams) ([]application.SlotView, error)
}

// ReportBuilder produces the daily reservation chart.
type ReportBuilder interface {
	DailyReservations(ctx context.Context, params application.DailyReservationsParams) ([]application.DayCount, error)
}

// UserLister lists registered profiles.
type UserLister interface {
	ListUsers(ctx context.Context, principal application.Principal) ([]application.Profile, error)
}

// Deps are the services a console reads from. Reports and Users are only
// consulted by the admin console.
type Deps struct {
	Projects ProjectLister
	Slots    SlotLister
	Reports  ReportBuilder
	Users    UserLister
}

// DashboardRequest selects what a dashboard shows. Zero From and To leave
// the slot list unbounded.
type DashboardRequest struct {
	Principal    application.Principal
	ProjectID    string
	From         time.Time
	To           time.Time
	Availability application.Availability
}

// Dashboard is one rendered console state.
type Dashboard struct {
	Role      application.Role
	Projects  []application.Project
	ProjectID string
	Slots     []application.SlotView
	// Chart and Users are filled for administrators only.
	Chart []application.DayCount
	Users []application.Profile
}

// Console is the capability shared by the admin and worker variants.
type Console interface {
	Role() application.Role
	Dashboard(ctx context.Context, req DashboardRequest) (Dashboard, error)
}

// ForPrincipal picks the console variant for the principal's role.
func ForPrincipal(principal application.Principal, deps Deps) (Console, error) {
	switch principal.Role {
	case application.RoleAdmin:
		return NewAdminConsole(deps), nil
	case application.RoleWorker:
		return NewWorkerConsole(deps), nil
	}
	return nil, application.ErrUnauthorized
}

// selectProject returns id when it is among projects and otherwise falls
// back to the first listed project, or "" when there is none.
func selectProject(projects []application.Project, id string) string {
	for _, p := range projects {
		if p.ID == id {
			return id
		}
	}
	if len(projects) == 0 {
		return ""
	}
	return projects[0].ID
}
