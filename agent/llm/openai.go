package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go"
	"github.com/tanpawarit/businessinsightbot/agent/capability"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
)

// OpenAIProvider talks to any OpenAI-compatible chat completions API through openai-go,
// including Azure OpenAI deployments.
type OpenAIProvider struct {
	client   *openai.Client
	model    string
	sampling Sampling
}

var _ contractx.CompletionProvider = (*OpenAIProvider)(nil)

func NewOpenAIProvider(client *openai.Client, model string, sampling Sampling) *OpenAIProvider {
	return &OpenAIProvider{
		client:   client,
		model:    strings.TrimSpace(model),
		sampling: sampling,
	}
}

func (p *OpenAIProvider) Complete(ctx context.Context, messages []*schema.Message, tools []contractx.Descriptor) (*schema.Message, error) {
	if p == nil || p.client == nil {
		return nil, errors.New("openai client is nil")
	}

	params := openai.ChatCompletionNewParams{
		Model:    p.model,
		Messages: toOpenAIMessages(messages),
	}
	if p.sampling.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.sampling.MaxTokens))
	}
	if p.sampling.Temperature >= 0 {
		params.Temperature = openai.Float(float64(p.sampling.Temperature))
	}
	for _, d := range tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        d.Name,
				Description: openai.String(d.Description),
				Parameters:  openai.FunctionParameters(capability.JSONSchema(d)),
			},
		})
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: chat completion: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: completion has no choices", contractx.ErrModelInvoke)
	}

	choice := resp.Choices[0].Message
	out := &schema.Message{
		Role:    schema.Assistant,
		Content: choice.Content,
	}
	for _, call := range choice.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, schema.ToolCall{
			ID: call.ID,
			Function: schema.FunctionCall{
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			},
		})
	}
	return out, nil
}

func toOpenAIMessages(messages []*schema.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		if m == nil {
			continue
		}
		switch m.Role {
		case schema.System:
			out = append(out, openai.SystemMessage(m.Content))
		case schema.Tool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case schema.Assistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				assistant.Content.OfString = openai.String(m.Content)
			}
			for _, call := range m.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: call.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Function.Name,
						Arguments: call.Function.Arguments,
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
