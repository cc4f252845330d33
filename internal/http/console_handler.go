package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/reservation-desk/internal/application"
	"github.com/example/reservation-desk/internal/console"
	"github.com/example/reservation-desk/internal/daterange"
)

type viewRegistry interface {
	View(token string, principal application.Principal) (*console.View, error)
}

// ConsoleHandler serves the role specific dashboard. Query parameters edit
// the session's view state before it is refreshed; omitted parameters keep
// the previous value.
type ConsoleHandler struct {
	registry  viewRegistry
	calendar  Calendar
	responder responder
	logger    *slog.Logger
}

func NewConsoleHandler(registry viewRegistry, calendar Calendar, logger *slog.Logger) *ConsoleHandler {
	base := defaultLogger(logger)
	return &ConsoleHandler{registry: registry, calendar: calendar, responder: newResponder(base), logger: base}
}

func (h *ConsoleHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ConsoleHandler", operation, attrs...)
}

func (h *ConsoleHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.registry == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	token, _ := SessionTokenFromContext(r.Context())
	logger := h.log(r.Context(), "Get", "principal_id", principal.UserID)

	view, err := h.registry.View(token, principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	if err := h.applyQuery(view, r); err != nil {
		logger.ErrorContext(r.Context(), "invalid console query", "error", err, "error_kind", application.ErrorKind(err))
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
		return
	}

	dashboard, err := view.Refresh(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "console refresh failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.toConsoleResponse(view.State(), dashboard))
}

func (h *ConsoleHandler) applyQuery(view *console.View, r *http.Request) error {
	q := r.URL.Query()

	if q.Has("project_id") {
		view.SelectProject(strings.TrimSpace(q.Get("project_id")))
	}
	if q.Has("preset") {
		preset, err := daterange.ParsePreset(q.Get("preset"))
		if err != nil {
			return err
		}
		if err := view.ApplyPreset(preset); err != nil {
			return err
		}
	}
	if q.Has("from") {
		from, err := parseOptionalDay(q.Get("from"), h.calendar)
		if err != nil {
			return err
		}
		view.SetFrom(from)
	}
	if q.Has("to") {
		to, err := parseOptionalDay(q.Get("to"), h.calendar)
		if err != nil {
			return err
		}
		view.SetTo(to)
	}
	if q.Has("availability") {
		availability, err := parseAvailability(q)
		if err != nil {
			return err
		}
		view.SetAvailability(availability)
	}
	return nil
}

func parseOptionalDay(value string, calendar Calendar) (t time.Time, err error) {
	if strings.TrimSpace(value) == "" {
		return t, nil
	}
	return daterange.ParseDay(value, calendar.location())
}

type consoleResponse struct {
	Role     string          `json:"role"`
	State    consoleStateDTO `json:"state"`
	Projects []projectDTO    `json:"projects"`
	Slots    []slotDTO       `json:"slots,omitempty"`
	Chart    []dayCountDTO   `json:"chart,omitempty"`
	Users    []profileDTO    `json:"users,omitempty"`
}

type consoleStateDTO struct {
	ProjectID    string `json:"project_id"`
	Preset       string `json:"preset"`
	From         string `json:"from"`
	To           string `json:"to"`
	Availability string `json:"availability"`
}

func (h *ConsoleHandler) toConsoleResponse(state console.State, d console.Dashboard) consoleResponse {
	loc := h.calendar.location()
	resp := consoleResponse{
		Role: string(d.Role),
		State: consoleStateDTO{
			ProjectID:    state.ProjectID,
			Preset:       string(state.Preset),
			From:         formatDay(state.From, loc),
			To:           formatDay(state.To, loc),
			Availability: string(state.Availability),
		},
		Projects: toProjectDTOs(d.Projects, loc),
	}
	if d.Slots != nil {
		resp.Slots = toSlotDTOs(d.Slots)
	}
	if d.Chart != nil {
		resp.Chart = toDayCountDTOs(d.Chart)
	}
	if d.Users != nil {
		resp.Users = toProfileDTOs(d.Users)
	}
	return resp
}
