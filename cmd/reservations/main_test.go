package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/reservation-desk/internal/testfixtures"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "storage:\n" +
		"  driver: sqlite\n" +
		"  sqlite_path: " + filepath.Join(dir, "reservations.db") + "\n" +
		"auth:\n" +
		"  token_secret: cli-test-secret\n" +
		"log:\n" +
		"  level: error\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	cmd := newRootCommand(&stdout, io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestCreateAdminAndExportUsers(t *testing.T) {
	configPath := writeConfig(t)

	out, err := execute(t, "--config", configPath, "migrate")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, "sqlite store is up to date") {
		t.Fatalf("unexpected migrate output %q", out)
	}

	out, err = execute(t, "--config", configPath, "create-admin", "--name", "First Admin", "--email", "First@Example.com")
	if err != nil {
		t.Fatalf("create-admin: %v", err)
	}
	if !strings.Contains(out, "email: first@example.com") || !strings.Contains(out, "temporary password: Admin") {
		t.Fatalf("unexpected create-admin output %q", out)
	}

	out, err = execute(t, "--config", configPath, "export-users", "--out", "-")
	if err != nil {
		t.Fatalf("export-users: %v", err)
	}
	if !strings.Contains(out, "first@example.com") || !strings.Contains(out, "First Admin") {
		t.Fatalf("export does not contain the new admin: %q", out)
	}

	target := filepath.Join(t.TempDir(), "users.csv")
	if _, err := execute(t, "--config", configPath, "export-users", "--out", target); err != nil {
		t.Fatalf("export-users to file: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), "first@example.com") {
		t.Fatalf("unexpected export file %q", data)
	}
}

func TestCreateAdminRequiresFlags(t *testing.T) {
	if _, err := execute(t, "--config", writeConfig(t), "create-admin", "--name", "Only Name"); err == nil {
		t.Fatalf("expected missing --email to fail")
	}
}

func TestCommandsRejectMissingSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  driver: memory\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("RESERVATIONS_AUTH_TOKEN_SECRET", "")

	_, err := execute(t, "--config", path, "migrate")
	if err == nil || !strings.Contains(err.Error(), "RESERVATIONS_AUTH_TOKEN_SECRET") {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}

func TestAPIHandlerServesSignUp(t *testing.T) {
	harness := testfixtures.NewMemoryHarness(t)
	factory := testfixtures.NewServiceFactory()
	services := factory.Services(t, harness)
	handler := newAPIHandler(services, factory.Clock.NowFunc(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	body := strings.NewReader(`{"email":"worker@example.com","name":"Worker","password":"long-enough"}`)
	req := httptest.NewRequest(http.MethodPost, "/signup", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/console", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected console to require a session, got %d", rec.Code)
	}
}
