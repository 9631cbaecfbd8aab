package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tanpawarit/businessinsightbot/agent/memory"
)

func newMemoryCmd(withApp runWithApp) *cobra.Command {
	var (
		guid        string
		keywords    []string
		maxMessages int
	)

	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Print a recall of the shared or an identity memory scope",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			ctx := cmd.Context()
			scope := a.store.Open(ctx, guid)
			res := a.store.Read(ctx, scope)
			if res.Degraded() {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: fell back to %s: %v\n", res.Scope, res.Fallback)
			}

			opts := memory.RecallOptions{MaxMessages: maxMessages, Keywords: keywords}
			opts.FullRecall = maxMessages == 0 && len(keywords) == 0
			_, err := fmt.Fprintln(cmd.OutOrStdout(), memory.Recall(res.Document, res.Scope, opts))
			return err
		}),
	}
	cmd.Flags().StringVar(&guid, "guid", "", "identity token (shared memory when empty)")
	cmd.Flags().StringSliceVar(&keywords, "keywords", nil, "only records containing any of these keywords")
	cmd.Flags().IntVar(&maxMessages, "max", 0, "most recent records to show")
	return cmd
}
