package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/logging"
)

// NewServeCmd runs the HTTP API until SIGINT or SIGTERM.
func NewServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: "Run the HTTP API server.  With --config the file is watched and log level\n" +
			"changes apply without a restart.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, app, err := commandApp(cmd)
			if err != nil {
				return err
			}
			if port > 0 {
				app.Config.Server.Port = port
			}

			opts := cliCtx.Options
			pinned := opts.LogLevel != "" || opts.Verbose
			if opts.ConfigPath != "" && !pinned {
				if err := app.WatchConfig(opts.ConfigPath); err != nil {
					app.Logger.Warn("config watch disabled", logging.Err(err))
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			app.Logger.Info("starting archem API server",
				logging.String("version", Version),
				logging.String("addr", app.Config.Server.Addr()))
			return app.Serve(ctx, nil, Version)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}
