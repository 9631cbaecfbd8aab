package cli

import (
	"github.com/spf13/cobra"
	"github.com/tanpawarit/businessinsightbot/server"
)

func newServeCmd(withApp runWithApp) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the turn API over HTTP",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			orch, err := a.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			cfg := a.serverCfg
			if addr != "" {
				cfg.Addr = addr
			}
			return server.Run(cmd.Context(), server.New(cfg, orch))
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides APP_HTTP_ADDR)")
	return cmd
}
