package adminfn

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/reservation-desk/internal/application"
)

type handler struct {
	ops    AdminOps
	logger *slog.Logger
}

type createAdminRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type createAdminResponse struct {
	Success           bool   `json:"success"`
	Email             string `json:"email"`
	TemporaryPassword string `json:"temporaryPassword"`
	Message           string `json:"message"`
}

type resetPasswordRequest struct {
	UserID string `json:"userId"`
}

type resetPasswordResponse struct {
	TemporaryPassword string `json:"temporaryPassword"`
}

// POST /create-admin-user
func (h *handler) createAdminUser(c *gin.Context) {
	var req createAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and email are required"})
		return
	}

	result, err := h.ops.CreateAdmin(c.Request.Context(), application.CreateAdminParams{
		Principal: principalFrom(c),
		Name:      req.Name,
		Email:     req.Email,
	})
	if err != nil {
		h.fail(c, err, "Failed to create admin profile")
		return
	}

	c.JSON(http.StatusOK, createAdminResponse{
		Success:           true,
		Email:             result.Profile.Email,
		TemporaryPassword: result.TemporaryPassword,
		Message:           "Admin user created successfully",
	})
}

// POST /reset-user-password
func (h *handler) resetUserPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	password, err := h.ops.ResetPassword(c.Request.Context(), application.ResetPasswordParams{
		Principal: principalFrom(c),
		UserID:    strings.TrimSpace(req.UserID),
	})
	if err != nil {
		h.fail(c, err, "Failed to reset password")
		return
	}

	c.JSON(http.StatusOK, resetPasswordResponse{TemporaryPassword: password})
}

// fail maps service errors to the function error body. setupMessage is
// reported for ErrProfileSetupFailed and unexpected failures.
func (h *handler) fail(c *gin.Context, err error, setupMessage string) {
	var vErr *application.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": firstFieldMessage(vErr)})
	case errors.Is(err, application.ErrAlreadyExists):
		c.JSON(http.StatusBadRequest, gin.H{"error": "A user with this email address has already been registered"})
	case errors.Is(err, application.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized: Admin access required"})
	case errors.Is(err, application.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, application.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, application.ErrProfileSetupFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"error": setupMessage})
	default:
		h.logger.ErrorContext(c.Request.Context(), "privileged operation failed", "error", err, "error_kind", application.ErrorKind(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": setupMessage})
	}
}

// firstFieldMessage picks the message of the alphabetically first field so
// the response is stable.
func firstFieldMessage(vErr *application.ValidationError) string {
	var field string
	for f := range vErr.FieldErrors {
		if field == "" || f < field {
			field = f
		}
	}
	if field == "" {
		return vErr.Error()
	}
	return vErr.FieldErrors[field]
}
