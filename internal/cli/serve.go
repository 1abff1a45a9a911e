package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/tilesim/internal/server"
	"github.com/matzehuels/tilesim/pkg/config"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		flags runFlags
		addr  string
		start bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a run over the HTTP control API",
		Long: `Build the configured scenario and expose it over HTTP. The run is idle until
it is started with POST /run, or right away with --start.`,
		Example: `  tilesim serve --scenario membrane --addr :9090
  curl -X POST 'localhost:9090/run?steps=50'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig(cmd, func(cfg *config.Run) {
				if cmd.Flags().Changed("addr") {
					cfg.Server.Addr = addr
				}
			})
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			ctrl, err := c.newController(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := ctrl.Sink.Close(); err != nil {
					c.Logger.Warn("close snapshot sink", "err", err)
				}
			}()

			if start {
				if err := ctrl.Start(ctx, cfg.Steps); err != nil {
					return err
				}
			}
			printInfo(cmd.OutOrStdout(), "Serving run %s of %s on %s", ctrl.RunID(), cfg.Scenario, cfg.Server.Addr)
			return server.New(ctrl, c.Logger).Run(ctx, cfg.Server.Addr)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", config.DefaultServerAddr, "listen address")
	cmd.Flags().BoolVar(&start, "start", false, "start the configured number of steps immediately")

	return cmd
}
