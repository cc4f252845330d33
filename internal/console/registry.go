package console

import (
	"sync"
	"time"

	"github.com/example/reservation-desk/internal/application"
)

// Registry keeps one View per session token.
type Registry struct {
	deps Deps
	now  func() time.Time
	loc  *time.Location

	mu    sync.Mutex
	views map[string]*View
}

// NewRegistry returns an empty registry building consoles from deps.
func NewRegistry(deps Deps, now func() time.Time, loc *time.Location) *Registry {
	return &Registry{deps: deps, now: now, loc: loc, views: make(map[string]*View)}
}

// View returns the view bound to token, opening one for principal on first
// use. A token whose principal changed role gets a fresh view.
func (r *Registry) View(token string, principal application.Principal) (*View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.views[token]; ok && v.principal == principal {
		return v, nil
	}
	c, err := ForPrincipal(principal, r.deps)
	if err != nil {
		return nil, err
	}
	v := NewView(c, principal, r.now, r.loc)
	r.views[token] = v
	return v, nil
}

// Drop forgets the view bound to token.
func (r *Registry) Drop(token string) {
	r.mu.Lock()
	delete(r.views, token)
	r.mu.Unlock()
}

// UserDeleted forgets every view opened for userID.
func (r *Registry) UserDeleted(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, v := range r.views {
		if v.principal.UserID == userID {
			delete(r.views, token)
		}
	}
}

// ProjectDeleted clears the selection of every view pointing at projectID.
func (r *Registry) ProjectDeleted(projectID string) {
	r.mu.Lock()
	views := make([]*View, 0, len(r.views))
	for _, v := range r.views {
		views = append(views, v)
	}
	r.mu.Unlock()

	for _, v := range views {
		v.ProjectDeleted(projectID)
	}
}

// Len returns the number of tracked views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}
