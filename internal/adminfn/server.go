// Package adminfn serves the privileged administrator functions
// (create-admin-user and reset-user-password) on a gin engine that runs
// separately from the reservations API.
package adminfn

import (
	"context"
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/example/reservation-desk/internal/application"
)

// TokenVerifier resolves a bearer access token to its principal.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (application.Principal, error)
}

// AdminOps performs the privileged operations.
type AdminOps interface {
	CreateAdmin(ctx context.Context, params application.CreateAdminParams) (application.CreateAdminResult, error)
	ResetPassword(ctx context.Context, params application.ResetPasswordParams) (string, error)
}

// Config wires the engine. Limiter may be nil to disable rate limiting.
type Config struct {
	Tokens   TokenVerifier
	AdminOps AdminOps
	Limiter  Limiter
	Logger   *slog.Logger
}

// NewEngine builds the gin engine serving the privileged functions.
func NewEngine(cfg Config) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("component", "adminfn")

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger), cors())

	h := &handler{ops: cfg.AdminOps, logger: logger}
	protected := engine.Group("/",
		requireAdmin(cfg.Tokens, logger),
		rateLimit(cfg.Limiter, logger),
	)
	protected.POST("/create-admin-user", h.createAdminUser)
	protected.POST("/reset-user-password", h.resetUserPassword)

	return engine
}
