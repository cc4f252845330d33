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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/example/reservation-desk/internal/adminfn"
	"github.com/example/reservation-desk/internal/bootstrap"
	"github.com/example/reservation-desk/internal/config"
	"github.com/example/reservation-desk/internal/logging"
)

func main() {
	var configPath string
	cmd := &cobra.Command{
		Use:          "adminfn",
		Short:        "Serve the privileged administrator functions",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML configuration file (default: $"+config.ConfigPathEnv+")")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat, "adminfn")
	if err != nil {
		return err
	}
	gin.SetMode(gin.ReleaseMode)

	store, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	services, err := bootstrap.NewServices(bootstrap.NewStoreAdapter(store), bootstrap.OptionsFromConfig(cfg, logger))
	if err != nil {
		return err
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.AdminFnPort),
		Handler: adminfn.NewEngine(adminfn.Config{
			Tokens:   services.Auth,
			AdminOps: services.AdminOps,
			Limiter:  limiter,
			Logger:   logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("admin functions listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server encountered error: %w", err)
	}
	return nil
}

// newLimiter connects the Redis rate limiter. Without redis.addr calls are
// not limited.
func newLimiter(ctx context.Context, cfg config.Config, logger *slog.Logger) (adminfn.Limiter, func(), error) {
	if cfg.RedisAddr == "" || cfg.RateLimitRequests == 0 {
		logger.Info("rate limiting disabled")
		return nil, func() {}, nil
	}
	client, err := adminfn.NewRedisClient(ctx, adminfn.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("rate limiting enabled", "redis_addr", cfg.RedisAddr, "requests", cfg.RateLimitRequests, "window", cfg.RateLimitWindow)
	return adminfn.NewRedisLimiter(client, cfg.RateLimitRequests, cfg.RateLimitWindow), func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close redis client", "error", err)
		}
	}, nil
}
