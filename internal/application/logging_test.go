package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/example/reservation-desk/internal/logging"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestServiceLogger_PrefersContextLogger(t *testing.T) {
	t.Parallel()

	var base, scoped bytes.Buffer
	baseLogger := slog.New(slog.NewJSONHandler(&base, nil))
	ctxLogger := slog.New(slog.NewJSONHandler(&scoped, nil))
	ctx := logging.ContextWithLogger(context.Background(), ctxLogger)

	serviceLogger(ctx, baseLogger, "SlotService", "Reserve", "slot_id", "slot-1").Info("hello")

	if base.Len() != 0 {
		t.Fatalf("expected base logger to stay silent, got %s", base.String())
	}
	var record map[string]any
	if err := json.Unmarshal(scoped.Bytes(), &record); err != nil {
		t.Fatalf("decode log record: %v", err)
	}
	if record["service"] != "SlotService" || record["operation"] != "Reserve" || record["slot_id"] != "slot-1" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := map[error]string{
		nil:                  "",
		ErrUnauthorized:      "unauthorized",
		ErrUnauthenticated:   "unauthenticated",
		ErrSlotFull:          "slot_full",
		ErrAlreadyReserved:   "already_reserved",
		ErrInvalidToken:      "invalid_token",
		&ValidationError{}:   "validation",
		errors.New("boom"):   "unexpected",
	}
	for err, want := range tests {
		if got := ErrorKind(err); got != want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", err, got, want)
		}
	}
}
