package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/reservation-desk/internal/application"
	"github.com/example/reservation-desk/internal/bootstrap"
	"github.com/example/reservation-desk/internal/config"
	"github.com/example/reservation-desk/internal/logging"
	"github.com/example/reservation-desk/internal/persistence"
)

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

// runtime is what every subcommand needs before doing its work.
type runtime struct {
	cfg      config.Config
	logger   *slog.Logger
	store    persistence.Store
	services *bootstrap.Services
}

func (r *runtime) Close() {
	if err := r.store.Close(); err != nil {
		r.logger.Error("failed to close storage", "error", err)
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "reservations",
		Short:        "Time slot seat reservations: API server and operator tasks",
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file (default: $"+config.ConfigPathEnv+")")

	open := func(ctx context.Context) (*runtime, error) {
		return openRuntime(ctx, configPath, stderr)
	}

	root.AddCommand(
		newServeCommand(open),
		newMigrateCommand(open),
		newExportUsersCommand(open),
		newCreateAdminCommand(open),
	)
	return root
}

func openRuntime(ctx context.Context, configPath string, logOutput io.Writer) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logOutput, cfg.LogLevel, cfg.LogFormat, "reservations")
	if err != nil {
		return nil, err
	}

	store, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	services, err := bootstrap.NewServices(bootstrap.NewStoreAdapter(store), bootstrap.OptionsFromConfig(cfg, logger))
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &runtime{cfg: cfg, logger: logger, store: store, services: services}, nil
}

// operator is the principal used by commands run on the server host.
var operator = application.Principal{UserID: "operator", Role: application.RoleAdmin}

func newMigrateCommand(open func(context.Context) (*runtime, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "%s store is up to date\n", rt.cfg.StorageDriver)
			return nil
		},
	}
}

func newExportUsersCommand(open func(context.Context) (*runtime, error)) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-users",
		Short: "Write the registered users CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			export, err := rt.services.Profiles.ExportUsers(cmd.Context(), operator)
			if err != nil {
				return err
			}
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(export.Content)
				return err
			}
			if out == "" {
				out = export.Filename
			}
			if err := os.WriteFile(out, []byte(export.Content), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", `output path, "-" for stdout (default: registered_users_<date>.csv)`)
	return cmd
}

func newCreateAdminCommand(open func(context.Context) (*runtime, error)) *cobra.Command {
	var name, email string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Provision an administrator with a temporary password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.services.AdminOps.ProvisionAdmin(cmd.Context(), name, email)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "email: %s\ntemporary password: %s\n", result.Profile.Email, result.TemporaryPassword)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "administrator name")
	cmd.Flags().StringVar(&email, "email", "", "administrator email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
