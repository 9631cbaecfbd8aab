package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
	openrouterx "github.com/tanpawarit/businessinsightbot/pkg/openrouter"
)

// NewProvider builds the completion provider selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg Config) (contractx.CompletionProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.provider() {
	case ProviderOpenRouter:
		orCfg := cfg.OpenRouter()
		chatModel, err := orCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
		}
		return NewEinoProvider(chatModel), nil
	case ProviderOpenAI:
		client := openrouterx.NewClient(cfg.OpenRouter())
		if client == nil {
			return nil, fmt.Errorf("%w: openai-compatible client could not be built", contractx.ErrValidation)
		}
		return NewOpenAIProvider(client, cfg.Model, cfg.sampling()), nil
	default:
		client := openai.NewClient(
			azure.WithEndpoint(strings.TrimSpace(cfg.AzureEndpoint), strings.TrimSpace(cfg.AzureAPIVersion)),
			azure.WithAPIKey(strings.TrimSpace(cfg.AzureAPIKey)),
			option.WithRequestTimeout(cfg.Timeout),
		)
		return NewOpenAIProvider(&client, cfg.AzureDeployment, cfg.sampling()), nil
	}
}

// Sampling carries the generation knobs shared by every provider.
type Sampling struct {
	MaxTokens   int
	Temperature float32
}

func (c Config) sampling() Sampling {
	return Sampling{MaxTokens: c.MaxCompletionToken, Temperature: c.Temperature}
}
