package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"taskbot/internal/app"
)

func newServeCmd() *cobra.Command {
	var (
		debug   bool
		noWatch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot",
		Long: `Starts the bot's HTTP server and, when nats.enabled is set, the NATS
subscriber.

Routes:
  GET  <server.callbackPath>  OAuth redirect target (rate limited per client)
  POST /api/messages          inbound activities (unless server.ingress is false)
  GET  /healthz               liveness
  GET  /metrics               Prometheus metrics

The allow-list (oauth.allowedDomains) and message overrides are reloaded when
the configuration file changes. Other settings need a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := app.NewApplication(app.Options{
				ConfigPath: configPath,
				Debug:      debug,
				Watch:      !noWatch,
			})
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return application.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload the configuration file on change")
	return cmd
}
