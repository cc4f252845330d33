package console

import (
	"context"

	"github.com/example/reservation-desk/internal/application"
)

// WorkerConsole shows projects and the selected project's slots with the
// worker's own reservation flags.
type WorkerConsole struct {
	deps Deps
}

// NewWorkerConsole returns the worker variant.
func NewWorkerConsole(deps Deps) *WorkerConsole {
	return &WorkerConsole{deps: deps}
}

// Role returns application.RoleWorker.
func (c *WorkerConsole) Role() application.Role {
	return application.RoleWorker
}

// Dashboard lists projects and the slots of the selected one, falling back
// to the first listed project.
func (c *WorkerConsole) Dashboard(ctx context.Context, req DashboardRequest) (Dashboard, error) {
	if !req.Principal.IsWorker() {
		return Dashboard{}, application.ErrUnauthorized
	}

	projects, err := c.deps.Projects.ListProjects(ctx, req.Principal)
	if err != nil {
		return Dashboard{}, err
	}
	out := Dashboard{
		Role:      application.RoleWorker,
		Projects:  projects,
		ProjectID: selectProject(projects, req.ProjectID),
	}
	if out.ProjectID == "" {
		return out, nil
	}

	out.Slots, err = c.deps.Slots.ListSlots(ctx, application.ListSlotsParams{
		Principal: req.Principal,
		ProjectID: out.ProjectID,
		From:      req.From,
		To:        req.To,
	})
	if err != nil {
		return Dashboard{}, err
	}
	return out, nil
}
