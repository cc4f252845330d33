package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/example/reservation-desk/internal/application"
	"github.com/example/reservation-desk/internal/config"
	"github.com/example/reservation-desk/internal/recurrence"
)

// Services groups every application service over one store.
type Services struct {
	Auth     *application.AuthService
	Profiles *application.ProfileService
	Projects *application.ProjectService
	Slots    *application.SlotService
	Reports  *application.ReportService
	AdminOps *application.AdminOpsService
	Location *time.Location
}

// Options tune NewServices. Zero values select production defaults.
type Options struct {
	Now              func() time.Time
	NewID            func() string
	NewToken         func() string
	Location         *time.Location
	SessionTTL       time.Duration
	TokenSecret      string
	TokenTTL         time.Duration
	CountConcurrency int
	HashPassword     application.PasswordHasher
	VerifyPassword   application.PasswordVerifier
	Logger           *slog.Logger
}

// OptionsFromConfig copies the service related settings out of cfg.
func OptionsFromConfig(cfg config.Config, logger *slog.Logger) Options {
	return Options{
		Location:         cfg.Location,
		SessionTTL:       cfg.SessionTTL,
		TokenSecret:      cfg.TokenSecret,
		TokenTTL:         cfg.TokenTTL,
		CountConcurrency: cfg.CountConcurrency,
		Logger:           logger,
	}
}

// NewServices wires the application services to repos.
func NewServices(repos *StoreAdapter, opts Options) (*Services, error) {
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = NewID
	}
	newToken := opts.NewToken
	if newToken == nil {
		newToken = NewToken
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := opts.Logger

	signer, err := application.NewTokenSigner([]byte(opts.TokenSecret), opts.TokenTTL, now)
	if err != nil {
		return nil, fmt.Errorf("configure access tokens: %w", err)
	}

	auth := application.NewAuthServiceWithLogger(repos, repos, repos, newID, newToken, now, opts.SessionTTL, logger).
		WithPasswordFuncs(opts.HashPassword, opts.VerifyPassword).
		WithAccessTokens(signer)

	slots := application.NewSlotServiceWithLogger(repos, repos, repos, repos, recurrence.NewEngine(loc), newID, now, logger)
	if opts.CountConcurrency > 0 {
		slots.SetCountConcurrency(opts.CountConcurrency)
	}

	return &Services{
		Auth:     auth,
		Profiles: application.NewProfileServiceWithLogger(repos, now, loc, logger),
		Projects: application.NewProjectServiceWithLogger(repos, newID, now, logger),
		Slots:    slots,
		Reports:  application.NewReportServiceWithLogger(repos, repos, repos, now, loc, logger),
		AdminOps: application.NewAdminOpsServiceWithLogger(repos, repos, newID, now, logger).
			WithPasswordFuncs(opts.HashPassword, nil),
		Location: loc,
	}, nil
}
