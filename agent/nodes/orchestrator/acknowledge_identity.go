package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
)

const (
	identityLoadedRich  = "I've successfully loaded your conversation memory. How can I assist you today?"
	identityLoadedVoice = "I've loaded your memory - what can I help you with?"
)

// AcknowledgeIdentity answers a token-only turn without calling the model.
func AcknowledgeIdentity(in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.Terminal = &contractx.Reply{
		Rich:  identityLoadedRich,
		Voice: identityLoadedVoice,
	}
	return in, nil
}
