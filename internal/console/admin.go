package console

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/example/reservation-desk/internal/application"
)

// AdminConsole shows projects, the selected project's slots filtered by
// availability, the daily reservation chart and the user list.
type AdminConsole struct {
	deps Deps
}

// NewAdminConsole returns the admin variant.
func NewAdminConsole(deps Deps) *AdminConsole {
	return &AdminConsole{deps: deps}
}

// Role returns application.RoleAdmin.
func (c *AdminConsole) Role() application.Role {
	return application.RoleAdmin
}

// Dashboard loads the project list first, then the slot list, chart and
// users concurrently. Without a valid selection the first listed project is
// shown.
func (c *AdminConsole) Dashboard(ctx context.Context, req DashboardRequest) (Dashboard, error) {
	if !req.Principal.IsAdmin() {
		return Dashboard{}, application.ErrUnauthorized
	}

	projects, err := c.deps.Projects.ListProjects(ctx, req.Principal)
	if err != nil {
		return Dashboard{}, err
	}
	out := Dashboard{
		Role:      application.RoleAdmin,
		Projects:  projects,
		ProjectID: selectProject(projects, req.ProjectID),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		users, err := c.deps.Users.ListUsers(gctx, req.Principal)
		out.Users = users
		return err
	})
	if out.ProjectID != "" {
		g.Go(func() error {
			slots, err := c.deps.Slots.ListSlots(gctx, application.ListSlotsParams{
				Principal:    req.Principal,
				ProjectID:    out.ProjectID,
				From:         req.From,
				To:           req.To,
				Availability: req.Availability,
			})
			out.Slots = slots
			return err
		})
		g.Go(func() error {
			chart, err := c.deps.Reports.DailyReservations(gctx, application.DailyReservationsParams{
				Principal: req.Principal,
				ProjectID: out.ProjectID,
				Start:     req.From,
				End:       req.To,
			})
			out.Chart = chart
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return out, nil
}
