package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/reservation-desk/internal/bootstrap"
	"github.com/example/reservation-desk/internal/console"
	httptransport "github.com/example/reservation-desk/internal/http"
)

func newServeCommand(open func(context.Context) (*runtime, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reservations HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := open(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			server := &http.Server{
				Addr:              fmt.Sprintf(":%d", rt.cfg.HTTPPort),
				Handler:           newAPIHandler(rt.services, time.Now, rt.logger),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			return serve(ctx, server, rt.logger, "reservations API listening")
		},
	}
}

// newAPIHandler wires the HTTP transport over services. Console views live
// for as long as their session.
func newAPIHandler(services *bootstrap.Services, now func() time.Time, logger *slog.Logger) http.Handler {
	calendar := httptransport.Calendar{Now: now, Location: services.Location}
	registry := console.NewRegistry(console.Deps{
		Projects: services.Projects,
		Slots:    services.Slots,
		Reports:  services.Reports,
		Users:    services.Profiles,
	}, now, services.Location)

	return httptransport.NewRouter(httptransport.RouterConfig{
		Auth:     httptransport.NewAuthHandler(services.Auth, logger).OnSessionEnd(registry.Drop),
		Profiles: httptransport.NewProfileHandler(services.Profiles, services.Auth, logger),
		Users:    httptransport.NewUserHandler(services.Profiles, logger).OnUserDeleted(registry.UserDeleted),
		Projects: httptransport.NewProjectHandler(services.Projects, services.Reports, calendar, logger).OnProjectDeleted(registry.ProjectDeleted),
		Slots:    httptransport.NewSlotHandler(services.Slots, calendar, logger),
		Console:  httptransport.NewConsoleHandler(registry, calendar, logger),
		Sessions: services.Auth,
		Logger:   logger,
	})
}

// serve runs server until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, server *http.Server, logger *slog.Logger, msg string) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info(msg, "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server encountered error: %w", err)
	}
	return nil
}
