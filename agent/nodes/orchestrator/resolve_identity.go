package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
	"github.com/tanpawarit/businessinsightbot/agent/identity"
)

// ResolveIdentity trims history to the most recent limit turns, drops a leading
// token-only user turn, and adopts the token found in history or in the input.
func ResolveIdentity(ctx context.Context, in *GraphState, historyLimit int) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if historyLimit > 0 && len(in.History) > historyLimit {
		in.History = in.History[len(in.History)-historyLimit:]
	}

	var historyToken string
	if len(in.History) > 0 {
		first := in.History[0]
		if first.Role == contractx.RoleUser && identity.IsBare(first.Content) {
			historyToken = strings.ToLower(strings.TrimSpace(first.Content))
			in.History = in.History[1:]
		}
	}

	in.PromptToken, _ = identity.Extract(in.Input)

	target := historyToken
	if target == "" {
		target = in.PromptToken
	}
	if target != "" && target != in.Session.Identity {
		in.Session = in.Session.WithIdentity(target)
		log.Ctx(ctx).Info().Str("user_guid", target).Msg("orchestrator: identity adopted")
	}

	in.Acknowledge = identity.IsBare(in.Input) && in.PromptToken == in.Session.Identity
	return in, nil
}
