package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tanpawarit/businessinsightbot/agent/capability"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
)

// EinoProvider adapts an eino tool-calling chat model.
type EinoProvider struct {
	model model.ToolCallingChatModel
}

var _ contractx.CompletionProvider = (*EinoProvider)(nil)

func NewEinoProvider(m model.ToolCallingChatModel) *EinoProvider {
	return &EinoProvider{model: m}
}

func (p *EinoProvider) Complete(ctx context.Context, messages []*schema.Message, tools []contractx.Descriptor) (*schema.Message, error) {
	if p == nil || p.model == nil {
		return nil, errors.New("chat model is nil")
	}

	chatModel := p.model
	if len(tools) > 0 {
		bound, err := p.model.WithTools(capability.ToolInfos(tools))
		if err != nil {
			return nil, fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)
		}
		chatModel = bound
	}

	msg, err := chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: generate: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: empty completion", contractx.ErrModelInvoke)
	}
	return msg, nil
}
