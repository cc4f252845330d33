package adminfn

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/example/reservation-desk/internal/application"
	"github.com/example/reservation-desk/internal/logging"
)

const principalKey = "adminfn.principal"

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST, PUT, DELETE, OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type, Authorization, X-Client-Info, Apikey",
}

// cors answers preflight requests and decorates every response.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		for k, v := range corsHeaders {
			c.Header(k, v)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// requestLogger replaces gin's logger with a structured access log and
// attaches a request scoped logger to the request context.
func requestLogger(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		logger := base.With("request_id", requestID, "method", c.Request.Method, "path", c.FullPath())
		ctx := logging.ContextWithLogger(c.Request.Context(), logger)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{"status", status, "duration", time.Since(start)}
		switch {
		case status >= http.StatusInternalServerError:
			logger.ErrorContext(ctx, "request completed", attrs...)
		case status >= http.StatusBadRequest:
			logger.WarnContext(ctx, "request completed", attrs...)
		default:
			logger.InfoContext(ctx, "request completed", attrs...)
		}
	}
}

// requireAdmin verifies the bearer access token and requires the admin role.
func requireAdmin(tokens TokenVerifier, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing authorization header"})
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		ctx := c.Request.Context()
		principal, err := tokens.VerifyAccessToken(ctx, token)
		if err != nil {
			logger.WarnContext(ctx, "access token rejected", "error", err, "error_kind", application.ErrorKind(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if !principal.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Unauthorized: Admin access required"})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// rateLimit throttles each caller. Limiter failures let the request through.
func rateLimit(limiter Limiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		principal := principalFrom(c)

		decision, err := limiter.Allow(ctx, principal.UserID)
		if err != nil {
			logger.WarnContext(ctx, "rate limiter unavailable", "error", err, "user_id", principal.UserID)
			c.Next()
			return
		}
		if !decision.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(decision.RetryAfter.Round(time.Second)/time.Second)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) application.Principal {
	value, _ := c.Get(principalKey)
	principal, _ := value.(application.Principal)
	return principal
}
