package cli

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/angelsen/termtap/internal/config"
	"github.com/angelsen/termtap/internal/mcp"
)

func newServeCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the RPC façade over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			defer app.Sup.Streams().StopAll()

			server := mcp.NewServer(app.Sup, app.Init, app.Mux, app.Config)

			if watch {
				go func() {
					// Pane and group defaults refresh atomically; the
					// wired subsystems keep their startup settings.
					err := config.Watch(ctx, flagConfig, app.SetConfig)
					if err != nil && ctx.Err() == nil {
						slog.Default().Warn("config watcher stopped", "error", err)
					}
				}()
			}

			if err := server.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch-config", false, "reload pane and group config on change")
	return cmd
}
