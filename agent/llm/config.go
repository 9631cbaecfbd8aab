package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
	openrouterx "github.com/tanpawarit/businessinsightbot/pkg/openrouter"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderAzure      = "azure"
)

type Config struct {
	Provider string `split_words:"true" default:"openrouter"`

	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	AzureEndpoint   string `split_words:"true"`
	AzureAPIKey     string `envconfig:"AZURE_API_KEY"`
	AzureAPIVersion string `envconfig:"AZURE_API_VERSION" default:"2024-02-01"`
	AzureDeployment string `split_words:"true" default:"gpt-deployment"`
}

func (c Config) provider() string {
	p := strings.ToLower(strings.TrimSpace(c.Provider))
	if p == "" {
		return ProviderOpenRouter
	}
	return p
}

func (c Config) Validate() error {
	switch c.provider() {
	case ProviderOpenRouter, ProviderOpenAI:
		if strings.TrimSpace(c.APIKey) == "" {
			return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
		}
		if strings.TrimSpace(c.Model) == "" {
			return fmt.Errorf("%w: llm model is required", contractx.ErrValidation)
		}
	case ProviderAzure:
		if strings.TrimSpace(c.AzureEndpoint) == "" {
			return fmt.Errorf("%w: azure endpoint is required", contractx.ErrValidation)
		}
		if strings.TrimSpace(c.AzureAPIKey) == "" {
			return fmt.Errorf("%w: azure api key is required", contractx.ErrValidation)
		}
		if strings.TrimSpace(c.AzureDeployment) == "" {
			return fmt.Errorf("%w: azure deployment is required", contractx.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown llm provider %q", contractx.ErrValidation, c.Provider)
	}
	return nil
}

func (c Config) OpenRouter() openrouterx.Config {
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              strings.TrimSpace(c.Model),
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        c.Temperature,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
