package testfixtures

import (
	"log/slog"
	"testing"
	"time"

	"github.com/example/reservation-desk/internal/application"
	"github.com/example/reservation-desk/internal/bootstrap"
)

// TestTokenSecret signs access tokens issued by factory built services.
const TestTokenSecret = "test-token-secret"

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Tokens      *IDGenerator
	Location    *time.Location
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Tokens:      NewIDGenerator("token"),
		Location:    time.UTC,
	}
	for _, opt := range opts {
		opt(factory)
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithLocation overrides the calendar location.
func WithLocation(loc *time.Location) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Location = loc
	}
}

// WithLogger routes service logs to logger.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// PlainHash stores passwords as "plain:<password>" to keep tests fast.
func PlainHash(password string) (string, error) {
	return "plain:" + password, nil
}

// PlainVerify checks hashes produced by PlainHash.
func PlainVerify(hashed, password string) error {
	if hashed != "plain:"+password {
		return application.ErrInvalidCredentials
	}
	return nil
}

// Services builds every application service over the harness store.
func (f *ServiceFactory) Services(tb testing.TB, harness *StoreHarness) *bootstrap.Services {
	tb.Helper()
	services, err := bootstrap.NewServices(bootstrap.NewStoreAdapter(harness.Store), bootstrap.Options{
		Now:            f.Clock.NowFunc(),
		NewID:          f.IDGenerator.NextFunc(),
		NewToken:       f.Tokens.NextFunc(),
		Location:       f.Location,
		TokenSecret:    TestTokenSecret,
		HashPassword:   PlainHash,
		VerifyPassword: PlainVerify,
		Logger:         f.Logger,
	})
	if err != nil {
		tb.Fatalf("build services: %v", err)
	}
	return services
}
