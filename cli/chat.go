package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	voiceStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244"))
	logStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newChatCmd(withApp runWithApp) *cobra.Command {
	var (
		guid   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "chat <text>",
		Short: "Run one conversational turn from the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			orch, err := a.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			reply, err := orch.HandleTurn(cmd.Context(), contractx.TurnRequest{
				UserInput: strings.Join(args, " "),
				UserGUID:  guid,
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(reply)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderReply(reply))
			return err
		}),
	}
	cmd.Flags().StringVar(&guid, "guid", "", "identity token to converse as")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw reply as JSON")
	return cmd
}

func renderReply(reply contractx.Reply) string {
	parts := []string{
		reply.Rich,
		"",
		labelStyle.Render("voice") + " " + voiceStyle.Render(reply.Voice),
	}
	if reply.AgentLog != "" {
		parts = append(parts, labelStyle.Render("agents"), logStyle.Render(reply.AgentLog))
	}
	parts = append(parts, labelStyle.Render("user_guid")+" "+reply.UserGUID)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
