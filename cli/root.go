// Package cli holds the command line entry points.
package cli

import (
	"context"

	"github.com/spf13/cobra"
	configx "github.com/tanpawarit/businessinsightbot/pkg/config"
)

func Execute(ctx context.Context) error {
	return newRootCmd(wireApp).ExecuteContext(ctx)
}

type wireFunc func(ctx context.Context) (*app, error)

func newRootCmd(wire wireFunc) *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "businessinsightbot",
		Short:         "Conversational business assistant with memory and pluggable agents",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to .env file")

	// withApp defers wiring until flags are parsed so --env is honoured.
	withApp := func(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			configx.SetEnvFile(envFile)
			a, err := wire(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return run(cmd, args, a)
		}
	}

	rootCmd.AddCommand(
		newServeCmd(withApp),
		newChatCmd(withApp),
		newAgentsCmd(withApp),
		newMemoryCmd(withApp),
	)

	return rootCmd
}

type runWithApp func(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error
