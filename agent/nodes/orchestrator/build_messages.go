package orchestratornode

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
	promptx "github.com/tanpawarit/businessinsightbot/agent/prompt"
)

// Persona names the assistant in the system prompt.
type Persona struct {
	AssistantName  string
	Characteristic string
}

// CapabilitySource discovers the handlers available for one turn.
type CapabilitySource func(ctx context.Context) contractx.Capabilities

func DiscoverCapabilities(ctx context.Context, in *GraphState, source CapabilitySource) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.Capabilities = source(ctx)
	return in, nil
}

// BuildMessages composes system prompt, replayed history and the new user turn.
func BuildMessages(ctx context.Context, in *GraphState, persona Persona) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	system, err := promptx.SystemMessage(ctx, promptx.SystemVars{
		AssistantName:  persona.AssistantName,
		Characteristic: persona.Characteristic,
		SharedMemory:   in.Session.SharedMemory,
		IdentityMemory: in.Session.IdentityMemory,
		Now:            in.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrValidation, err)
	}

	messages := make([]*schema.Message, 0, len(in.History)+2)
	messages = append(messages, system)
	for _, turn := range in.History {
		messages = append(messages, toMessage(turn))
	}
	messages = append(messages, schema.UserMessage(in.Input))

	in.Messages = messages
	return in, nil
}

// toMessage replays a history turn. Function results lose their call pairing in
// history, so they are replayed as assistant text.
func toMessage(turn contractx.Turn) *schema.Message {
	switch turn.Role {
	case contractx.RoleSystem:
		return schema.SystemMessage(turn.Content)
	case contractx.RoleAssistant, contractx.RoleFunction:
		return schema.AssistantMessage(turn.Content, nil)
	default:
		return schema.UserMessage(turn.Content)
	}
}
