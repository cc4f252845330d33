package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/reservation-desk/internal/application"
)

var (
	errBadRequestBody      = errors.New("無効なリクエスト形式です。")
	errInvalidQuery        = errors.New("検索条件が正しくありません。")
	errMissingSessionToken = errors.New("認証トークンを指定してください")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	status, body := errorPayload(err)
	if status >= http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}
	r.writeJSON(ctx, w, status, body)
}

// errorPayload maps application errors to a status code and response body.
func errorPayload(err error) (int, errorResponse) {
	switch {
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusForbidden, errorResponse{ErrorCode: "AUTH_FORBIDDEN", Message: "この操作を実行する権限がありません。"}
	case errors.Is(err, application.ErrAccountDisabled):
		return http.StatusForbidden, errorResponse{ErrorCode: "AUTH_ACCOUNT_DISABLED", Message: "このアカウントは利用停止されています。"}
	case errors.Is(err, application.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_INVALID_CREDENTIALS", Message: "メールアドレスまたはパスワードが正しくありません"}
	case errors.Is(err, application.ErrSessionExpired):
		return http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_SESSION_EXPIRED", Message: "セッションの有効期限が切れました。再度ログインしてください。"}
	case errors.Is(err, application.ErrSessionRevoked):
		return http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_SESSION_REVOKED", Message: "セッションが無効です。再度ログインしてください。"}
	case errors.Is(err, application.ErrInvalidToken):
		return http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_INVALID_TOKEN", Message: "アクセストークンが無効です。"}
	case errors.Is(err, application.ErrUnauthenticated):
		return http.StatusUnauthorized, errorResponse{ErrorCode: "AUTH_REQUIRED", Message: "認証が必要です。"}
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, errorResponse{Message: "指定されたリソースが見つかりません。"}
	case errors.Is(err, application.ErrSlotFull):
		return http.StatusConflict, errorResponse{ErrorCode: "SLOT_FULL", Message: "この時間枠は満席です。"}
	case errors.Is(err, application.ErrAlreadyReserved):
		return http.StatusConflict, errorResponse{ErrorCode: "ALREADY_RESERVED", Message: "この時間枠はすでに予約済みです。"}
	case errors.Is(err, application.ErrAlreadyExists):
		return http.StatusConflict, errorResponse{ErrorCode: "ALREADY_EXISTS", Message: "既に登録されています。"}
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusUnprocessableEntity, errorResponse{
			Message: "入力内容に誤りがあります。",
			Errors:  validationDetails(vErr),
		}
	}
	return http.StatusInternalServerError, errorResponse{Message: "サーバー内部でエラーが発生しました。"}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func validationDetails(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}
	details := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		details[field] = msg
	}
	return details
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
