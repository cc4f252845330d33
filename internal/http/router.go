package http

import (
	"log/slog"
	"net/http"
)

// RouterConfig lists the handlers to mount. Nil handlers leave their routes
// unregistered. Sessions guards every route except sign up, sign in and
// refresh.
type RouterConfig struct {
	Auth       *AuthHandler
	Profiles   *ProfileHandler
	Users      *UserHandler
	Projects   *ProjectHandler
	Slots      *SlotHandler
	Console    *ConsoleHandler
	Sessions   SessionValidator
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	protect := func(h http.HandlerFunc) http.Handler { return h }
	if cfg.Sessions != nil {
		guard := RequireSession(cfg.Sessions, cfg.Logger)
		protect = func(h http.HandlerFunc) http.Handler { return guard(h) }
	}

	if cfg.Auth != nil {
		mux.HandleFunc("POST /signup", cfg.Auth.SignUp)
		mux.HandleFunc("POST /sessions", cfg.Auth.CreateSession)
		mux.HandleFunc("POST /sessions/refresh", cfg.Auth.RefreshSession)
		mux.Handle("DELETE /sessions/current", protect(cfg.Auth.DeleteCurrentSession))
		mux.Handle("POST /me/token", protect(cfg.Auth.IssueToken))
	}

	if cfg.Profiles != nil {
		mux.Handle("GET /me", protect(cfg.Profiles.Get))
		mux.Handle("PATCH /me", protect(cfg.Profiles.Update))
		mux.Handle("POST /me/password", protect(cfg.Profiles.ChangePassword))
	}

	if cfg.Users != nil {
		mux.Handle("GET /users", protect(cfg.Users.List))
		mux.Handle("GET /users/export", protect(cfg.Users.Export))
		mux.Handle("PATCH /users/{id}", protect(cfg.Users.Update))
		mux.Handle("DELETE /users/{id}", protect(cfg.Users.Delete))
	}

	if cfg.Projects != nil {
		mux.Handle("GET /projects", protect(cfg.Projects.List))
		mux.Handle("POST /projects", protect(cfg.Projects.Create))
		mux.Handle("DELETE /projects/{id}", protect(cfg.Projects.Delete))
		mux.Handle("GET /projects/{id}/report", protect(cfg.Projects.Report))
	}

	if cfg.Slots != nil {
		mux.Handle("GET /projects/{id}/slots", protect(cfg.Slots.List))
		mux.Handle("POST /projects/{id}/slots", protect(cfg.Slots.Create))
		mux.Handle("POST /projects/{id}/slots/batch", protect(cfg.Slots.CreateBatch))
		mux.Handle("DELETE /slots/{id}", protect(cfg.Slots.Delete))
		mux.Handle("POST /slots/{id}/reservations", protect(cfg.Slots.Reserve))
		mux.Handle("DELETE /reservations/{id}", protect(cfg.Slots.Cancel))
	}

	if cfg.Console != nil {
		mux.Handle("GET /console", protect(cfg.Console.Get))
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}
