package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/reservation-desk/internal/application"
)

type userService interface {
	ListUsers(ctx context.Context, principal application.Principal) ([]application.Profile, error)
	SetBlocked(ctx context.Context, params application.SetBlockedParams) (application.Profile, error)
	DeleteUser(ctx context.Context, principal application.Principal, userID string) error
	ExportUsers(ctx context.Context, principal application.Principal) (application.UserExport, error)
}

// UserHandler serves the administrator user management endpoints.
type UserHandler struct {
	service   userService
	responder responder
	logger    *slog.Logger
	deleted   []func(userID string)
}

func NewUserHandler(service userService, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{service: service, responder: newResponder(base), logger: base}
}

// OnUserDeleted registers fn to run after a user is deleted.
func (h *UserHandler) OnUserDeleted(fn func(userID string)) *UserHandler {
	if fn != nil {
		h.deleted = append(h.deleted, fn)
	}
	return h
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "List", "principal_id", principal.UserID)

	users, err := h.service.ListUsers(r.Context(), principal)
	if err != nil {
		logger.ErrorContext(r.Context(), "user list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(users)).InfoContext(r.Context(), "users listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listUsersResponse{Users: toProfileDTOs(users)})
}

// Update toggles the blocked flag of a user.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID := strings.TrimSpace(r.PathValue("id"))
	principal, _ := PrincipalFromContext(r.Context())

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsBlocked == nil {
		h.log(r.Context(), "Update", "principal_id", principal.UserID, "user_id", userID, "error_kind", "bad_request").ErrorContext(r.Context(), "invalid user update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	profile, err := h.service.SetBlocked(r.Context(), application.SetBlockedParams{
		Principal: principal,
		UserID:    userID,
		Blocked:   *req.IsBlocked,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, profileResponse{Profile: toProfileDTO(profile)})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID := strings.TrimSpace(r.PathValue("id"))
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteUser(r.Context(), principal, userID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	for _, fn := range h.deleted {
		fn(userID)
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Export downloads the user list as CSV.
func (h *UserHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	export, err := h.service.ExportUsers(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(export.Content); err != nil {
		h.log(r.Context(), "Export", "principal_id", principal.UserID).ErrorContext(r.Context(), "failed to write export", "error", err)
	}
}

type updateUserRequest struct {
	IsBlocked *bool `json:"is_blocked"`
}

type listUsersResponse struct {
	Users []profileDTO `json:"users"`
}
