package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/reservation-desk/internal/application"
	"github.com/example/reservation-desk/internal/daterange"
)

type projectService interface {
	ListProjects(ctx context.Context, principal application.Principal) ([]application.Project, error)
	CreateProject(ctx context.Context, params application.CreateProjectParams) (application.Project, error)
	DeleteProject(ctx context.Context, principal application.Principal, projectID string) error
}

type reportService interface {
	DailyReservations(ctx context.Context, params application.DailyReservationsParams) ([]application.DayCount, error)
}

// ProjectHandler serves projects and their daily reservation report.
type ProjectHandler struct {
	service   projectService
	reports   reportService
	calendar  Calendar
	responder responder
	logger    *slog.Logger
	deleted   []func(projectID string)
}

func NewProjectHandler(service projectService, reports reportService, calendar Calendar, logger *slog.Logger) *ProjectHandler {
	base := defaultLogger(logger)
	return &ProjectHandler{service: service, reports: reports, calendar: calendar, responder: newResponder(base), logger: base}
}

// OnProjectDeleted registers fn to run after a project is deleted.
func (h *ProjectHandler) OnProjectDeleted(fn func(projectID string)) *ProjectHandler {
	if fn != nil {
		h.deleted = append(h.deleted, fn)
	}
	return h
}

func (h *ProjectHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ProjectHandler", operation, attrs...)
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)
	projects, err := h.service.ListProjects(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "project list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(projects)).InfoContext(r.Context(), "projects listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listProjectsResponse{Projects: toProjectDTOs(projects, h.calendar.location())})
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode project request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	params := application.CreateProjectParams{Principal: principal, Name: req.Name}
	if v := strings.TrimSpace(req.StartingDate); v != "" {
		day, err := daterange.ParseDay(v, h.calendar.location())
		if err != nil {
			h.responder.handleServiceError(r.Context(), w, &application.ValidationError{
				FieldErrors: map[string]string{"starting_date": "must be a YYYY-MM-DD date"},
			})
			return
		}
		params.StartingDate = day
	}

	project, err := h.service.CreateProject(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "principal_id", principal.UserID, "project_id", project.ID).InfoContext(r.Context(), "project created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, projectResponse{Project: toProjectDTO(project, h.calendar.location())})
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	projectID := strings.TrimSpace(r.PathValue("id"))
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteProject(r.Context(), principal, projectID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	for _, fn := range h.deleted {
		fn(projectID)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Report returns the daily reservation counts of a project.
func (h *ProjectHandler) Report(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.reports == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	projectID := strings.TrimSpace(r.PathValue("id"))
	principal, _ := PrincipalFromContext(r.Context())

	_, from, to, err := h.calendar.dateRange(r.URL.Query())
	if err != nil {
		h.log(r.Context(), "Report", "project_id", projectID, "error_kind", "bad_request").ErrorContext(r.Context(), "invalid report query", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
		return
	}

	series, err := h.reports.DailyReservations(r.Context(), application.DailyReservationsParams{
		Principal: principal,
		ProjectID: projectID,
		Start:     from,
		End:       to,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, reportResponse{Days: toDayCountDTOs(series)})
}

type projectRequest struct {
	Name         string `json:"name"`
	StartingDate string `json:"starting_date"`
}

type projectResponse struct {
	Project projectDTO `json:"project"`
}

type listProjectsResponse struct {
	Projects []projectDTO `json:"projects"`
}

type projectDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	StartingDate string `json:"starting_date"`
	CreatedBy    string `json:"created_by"`
	CreatedAt    string `json:"created_at"`
}

func toProjectDTO(project application.Project, loc *time.Location) projectDTO {
	return projectDTO{
		ID:           project.ID,
		Name:         project.Name,
		StartingDate: formatDay(project.StartingDate, loc),
		CreatedBy:    project.CreatedBy,
		CreatedAt:    formatTime(project.CreatedAt),
	}
}

func toProjectDTOs(projects []application.Project, loc *time.Location) []projectDTO {
	out := make([]projectDTO, 0, len(projects))
	for _, project := range projects {
		out = append(out, toProjectDTO(project, loc))
	}
	return out
}

type reportResponse struct {
	Days []dayCountDTO `json:"days"`
}

type dayCountDTO struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

func toDayCountDTOs(series []application.DayCount) []dayCountDTO {
	out := make([]dayCountDTO, 0, len(series))
	for _, d := range series {
		out = append(out, dayCountDTO{Day: d.Day, Count: d.Count})
	}
	return out
}
