package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/tanpawarit/businessinsightbot/agent/agents/builtin"
	"github.com/tanpawarit/businessinsightbot/agent/agents/orchestrator"
	"github.com/tanpawarit/businessinsightbot/agent/capability"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
	"github.com/tanpawarit/businessinsightbot/agent/llm"
	"github.com/tanpawarit/businessinsightbot/agent/memory"
	"github.com/tanpawarit/businessinsightbot/agent/storage"
	configx "github.com/tanpawarit/businessinsightbot/pkg/config"
	logx "github.com/tanpawarit/businessinsightbot/pkg/logger"
	qstashx "github.com/tanpawarit/businessinsightbot/pkg/qstash"
	"github.com/tanpawarit/businessinsightbot/pkg/workflow"
	"github.com/tanpawarit/businessinsightbot/server"
)

type appConfig struct {
	AssistantName             string `split_words:"true" default:"BusinessInsightBot"`
	CharacteristicDescription string `split_words:"true" default:"helpful business assistant"`
}

type app struct {
	backend  storage.Backend
	store    *memory.Store
	contexts *memory.ContextBuilder
	registry *capability.Registry

	orchestratorCfg orchestrator.Config
	llmCfg          llm.Config
	serverCfg       server.Config

	newProvider func(ctx context.Context, cfg llm.Config) (contractx.CompletionProvider, error)
}

func wireApp(ctx context.Context) (*app, error) {
	logCfg, err := configx.New[logx.Config]("LOG")
	if err != nil {
		return nil, fmt.Errorf("load log config: %w", err)
	}
	logx.Init(*logCfg)

	appCfg, err := configx.New[appConfig]("APP")
	if err != nil {
		return nil, fmt.Errorf("%w: load app config: %v", contractx.ErrValidation, err)
	}
	serverCfg, err := configx.New[server.Config]("APP")
	if err != nil {
		return nil, fmt.Errorf("%w: load server config: %v", contractx.ErrValidation, err)
	}
	orchestratorCfg, err := configx.New[orchestrator.Config]("ORCHESTRATOR")
	if err != nil {
		return nil, fmt.Errorf("%w: load orchestrator config: %v", contractx.ErrValidation, err)
	}
	orchestratorCfg.AssistantName = appCfg.AssistantName
	orchestratorCfg.Characteristic = appCfg.CharacteristicDescription

	llmCfg, err := configx.New[llm.Config]("LLM")
	if err != nil {
		return nil, fmt.Errorf("%w: load llm config: %v", contractx.ErrValidation, err)
	}
	storageCfg, err := configx.New[storage.Config]("STORAGE")
	if err != nil {
		return nil, fmt.Errorf("%w: load storage config: %v", contractx.ErrValidation, err)
	}
	workflowCfg, err := configx.New[workflow.Config]("WORKFLOW")
	if err != nil {
		return nil, fmt.Errorf("%w: load workflow config: %v", contractx.ErrValidation, err)
	}
	qstashCfg, err := configx.New[qstashx.Config]("QSTASH")
	if err != nil {
		return nil, fmt.Errorf("%w: load qstash config: %v", contractx.ErrValidation, err)
	}

	backend, err := storage.Open(ctx, *storageCfg)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	store, err := memory.NewStore(backend)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}

	var posterOpts []workflow.PosterOption
	if qstashCfg.Enabled() {
		client, err := qstashx.NewClient(*qstashCfg)
		if err != nil {
			return nil, fmt.Errorf("wire qstash: %w", err)
		}
		posterOpts = append(posterOpts, workflow.WithPublisher(client))
	}
	poster := workflow.NewPoster(workflowCfg.Timeout, posterOpts...)

	registry := capability.NewRegistry(backend, poster, builtin.Factories(builtin.Deps{
		Memory:   store,
		Poster:   poster,
		Workflow: *workflowCfg,
	})...)

	return &app{
		backend:         backend,
		store:           store,
		contexts:        memory.NewContextBuilder(store, orchestratorCfg.SnapshotLimit),
		registry:        registry,
		orchestratorCfg: *orchestratorCfg,
		llmCfg:          *llmCfg,
		serverCfg:       *serverCfg,
		newProvider:     llm.NewProvider,
	}, nil
}

// orchestrator builds the turn pipeline. The model provider is only wired for
// commands that talk to the model.
func (a *app) orchestrator(ctx context.Context) (*orchestrator.Orchestrator, error) {
	provider, err := a.newProvider(ctx, a.llmCfg)
	if err != nil {
		return nil, fmt.Errorf("wire completion provider: %w", err)
	}
	return orchestrator.New(provider, a.contexts, a.discover, a.orchestratorCfg)
}

func (a *app) discover(ctx context.Context) contractx.Capabilities {
	return a.registry.Discover(ctx)
}

func (a *app) Close() error {
	if c, ok := a.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
