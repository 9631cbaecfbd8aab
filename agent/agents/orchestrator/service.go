package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
	nodex "github.com/tanpawarit/businessinsightbot/agent/nodes/orchestrator"
)

var ErrInvalidMessage = nodex.ErrInvalidMessage

// Config tunes the completion loop. Persona fields come from the app config.
type Config struct {
	AssistantName  string        `ignored:"true"`
	Characteristic string        `ignored:"true"`
	MaxAttempts    int           `split_words:"true" default:"3"`
	RetryDelay     time.Duration `split_words:"true" default:"2s"`
	MaxFollowUps   int           `split_words:"true" default:"3"`
	HistoryLimit   int           `split_words:"true" default:"20"`
	SnapshotLimit  int           `split_words:"true" default:"5000"`
}

type Orchestrator struct {
	provider     contractx.CompletionProvider
	memory       contractx.MemoryContext
	capabilities nodex.CapabilitySource

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	persona      nodex.Persona
	policy       nodex.LoopPolicy
	historyLimit int

	now    func() time.Time
	turnID func() string
}

type Option func(*Orchestrator)

// WithClock overrides the time source used for the prompt's date line.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithSleep overrides the wait between transport attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.policy.Sleep = sleep }
}

func New(
	provider contractx.CompletionProvider,
	memory contractx.MemoryContext,
	capabilities nodex.CapabilitySource,
	cfg Config,
	opts ...Option,
) (*Orchestrator, error) {
	if provider == nil {
		return nil, errors.New("completion provider is required")
	}
	if memory == nil {
		return nil, errors.New("memory context is required")
	}
	if capabilities == nil {
		capabilities = func(context.Context) contractx.Capabilities { return noCapabilities{} }
	}

	name := strings.TrimSpace(cfg.AssistantName)
	if name == "" {
		name = "BusinessInsightBot"
	}
	characteristic := strings.TrimSpace(cfg.Characteristic)
	if characteristic == "" {
		characteristic = "helpful business assistant"
	}
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = nodex.DefaultHistoryLimit
	}

	o := &Orchestrator{
		provider:     provider,
		memory:       memory,
		capabilities: capabilities,
		persona:      nodex.Persona{AssistantName: name, Characteristic: characteristic},
		policy: nodex.LoopPolicy{
			MaxAttempts:  cfg.MaxAttempts,
			RetryDelay:   cfg.RetryDelay,
			MaxFollowUps: cfg.MaxFollowUps,
		},
		historyLimit: historyLimit,
		now:          time.Now,
		turnID:       func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(o)
	}

	graphRunner, err := o.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleTurn runs one conversational turn. Only request validation errors are
// returned; every other failure is folded into the reply.
func (o *Orchestrator) HandleTurn(ctx context.Context, req contractx.TurnRequest) (contractx.Reply, error) {
	turnID := o.turnID()
	logger := log.Ctx(ctx).With().Str("turn_id", turnID).Logger()
	ctx = logger.WithContext(ctx)

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{TurnID: turnID, Request: req})
	if err != nil {
		logger.Warn().Err(err).Msg("orchestrator: turn failed")
		return contractx.Reply{}, err
	}

	logger.Info().
		Str("user_guid", out.Reply.UserGUID).
		Bool("agents_used", out.Reply.AgentLog != "").
		Msg("orchestrator: turn complete")
	return out.Reply, nil
}

type noCapabilities struct{}

func (noCapabilities) Lookup(string) (contractx.Handler, bool) { return nil, false }

func (noCapabilities) Descriptors() []contractx.Descriptor { return nil }
