package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"salaryslip/internal/app/server"
	"salaryslip/internal/platform/config"
	"salaryslip/internal/platform/logging"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := logging.New(os.Stdout, cfg.LogLevel, cfg.Environment)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := server.New(ctx, cfg, logger)
			if err != nil {
				logger.Error("startup failed", "err", err)
				return err
			}
			defer app.Close()
			return app.Run(ctx)
		},
	}
}
