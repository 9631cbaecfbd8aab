package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newAgentsCmd(withApp runWithApp) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List discovered capabilities and where they came from",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			set := a.registry.Discover(cmd.Context())
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSOURCE\tORIGIN")
			for _, e := range set.Entries() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Handler.Descriptor().Name, e.Source, e.Origin)
			}
			return tw.Flush()
		}),
	}
}
