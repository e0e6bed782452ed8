package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"login-portal/internal/config"
	"login-portal/internal/logging"
	"login-portal/internal/server"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the login portal HTTP server. Settings come from flag defaults,
then the --config file, then flags given on the command line.`,
		RunE: runServe,
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Format)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "starting login portal",
		"addr", cfg.Server.Addr,
		"storage", cfg.Storage.Backend,
		"verifier", cfg.Auth.Verifier,
	)

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		return oops.Code("STARTUP_FAILED").With("operation", "wire server").Wrap(err)
	}
	if err := srv.Start(ctx); err != nil {
		return oops.Code("SERVE_FAILED").Wrap(err)
	}

	logger.Info(context.Background(), "shutdown complete")
	return nil
}
