package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/example/reservation-desk/internal/application"
)

type profileService interface {
	GetProfile(ctx context.Context, principal application.Principal) (application.Profile, error)
	UpdateProfile(ctx context.Context, params application.UpdateProfileParams) (application.Profile, error)
}

type passwordChanger interface {
	ChangePassword(ctx context.Context, params application.ChangePasswordParams) error
}

// ProfileHandler serves the acting user's own profile.
type ProfileHandler struct {
	profiles  profileService
	passwords passwordChanger
	responder responder
	logger    *slog.Logger
}

func NewProfileHandler(profiles profileService, passwords passwordChanger, logger *slog.Logger) *ProfileHandler {
	base := defaultLogger(logger)
	return &ProfileHandler{profiles: profiles, passwords: passwords, responder: newResponder(base), logger: base}
}

func (h *ProfileHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ProfileHandler", operation, attrs...)
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.profiles == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	profile, err := h.profiles.GetProfile(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "Get", "principal_id", principal.UserID).ErrorContext(r.Context(), "profile lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, profileResponse{Profile: toProfileDTO(profile)})
}

// Update changes phone number and avatar URL. Omitted fields are kept and
// empty strings clear the value.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.profiles == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode profile update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	profile, err := h.profiles.UpdateProfile(r.Context(), application.UpdateProfileParams{
		Principal:   principal,
		PhoneNumber: req.PhoneNumber,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, profileResponse{Profile: toProfileDTO(profile)})
}

func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.passwords == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "ChangePassword", "principal_id", principal.UserID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode password change", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if err := h.passwords.ChangePassword(r.Context(), application.ChangePasswordParams{
		Principal:       principal,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	}); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type updateProfileRequest struct {
	PhoneNumber *string `json:"phone_number"`
	AvatarURL   *string `json:"avatar_url"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type profileResponse struct {
	Profile profileDTO `json:"profile"`
}

type profileDTO struct {
	ID                 string  `json:"id"`
	Email              string  `json:"email"`
	Name               string  `json:"name"`
	Role               string  `json:"role"`
	IsBlocked          bool    `json:"is_blocked"`
	PhoneNumber        *string `json:"phone_number"`
	AvatarURL          *string `json:"avatar_url"`
	MustChangePassword bool    `json:"must_change_password"`
	CreatedAt          string  `json:"created_at"`
}

func toProfileDTO(profile application.Profile) profileDTO {
	return profileDTO{
		ID:                 profile.ID,
		Email:              profile.Email,
		Name:               profile.Name,
		Role:               string(profile.Role),
		IsBlocked:          profile.IsBlocked,
		PhoneNumber:        profile.PhoneNumber,
		AvatarURL:          profile.AvatarURL,
		MustChangePassword: profile.MustChangePassword,
		CreatedAt:          formatTime(profile.CreatedAt),
	}
}

func toProfileDTOs(profiles []application.Profile) []profileDTO {
	out := make([]profileDTO, 0, len(profiles))
	for _, profile := range profiles {
		out = append(out, toProfileDTO(profile))
	}
	return out
}
