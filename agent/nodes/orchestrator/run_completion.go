package orchestratornode

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/businessinsightbot/agent/capability"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
)

const completedSentinel = "Agent completed successfully"

// RunCompletion drives Complete -> Dispatch cycles until the model answers in
// prose, a terminal reply is produced, or transport attempts run out.
func RunCompletion(
	ctx context.Context,
	in *GraphState,
	provider contractx.CompletionProvider,
	policy LoopPolicy,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	policy = policy.withDefaults()
	logger := log.Ctx(ctx)

	loop := &completionLoop{
		provider:     provider,
		capabilities: in.Capabilities,
		identity:     in.Session.Identity,
		messages:     append([]*schema.Message(nil), in.Messages...),
		maxFollowUps: policy.MaxFollowUps,
	}

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		outcome, err := loop.run(ctx)
		if err == nil {
			in.Messages = loop.messages
			in.AgentLog = loop.logs
			if outcome.terminal != nil {
				in.Terminal = outcome.terminal
				in.AgentLog = nil
			} else {
				in.Content = outcome.content
			}
			return in, nil
		}

		logger.Warn().Err(err).
			Int("attempt", attempt).
			Int("max_attempts", policy.MaxAttempts).
			Msg("orchestrator: completion attempt failed")

		if attempt == policy.MaxAttempts {
			break
		}
		if err := policy.Sleep(ctx, policy.RetryDelay); err != nil {
			logger.Warn().Err(err).Msg("orchestrator: retry wait interrupted")
			break
		}
	}

	logger.Error().Int("max_attempts", policy.MaxAttempts).Msg("orchestrator: completion attempts exhausted")
	reply := unavailableReply()
	in.Terminal = &reply
	in.AgentLog = nil
	return in, nil
}

type loopOutcome struct {
	content  string
	terminal *contractx.Reply
}

// completionLoop keeps the transcript across transport retries so a handler
// that already ran is not dispatched again once the loop is finalizing.
type completionLoop struct {
	provider     contractx.CompletionProvider
	capabilities contractx.Capabilities
	identity     string

	messages     []*schema.Message
	logs         []string
	followUps    int
	maxFollowUps int
	finalizing   bool
	calls        int
}

func (l *completionLoop) run(ctx context.Context) (loopOutcome, error) {
	for {
		var tools []contractx.Descriptor
		if !l.finalizing && l.capabilities != nil {
			tools = l.capabilities.Descriptors()
		}

		msg, err := l.provider.Complete(ctx, l.messages, tools)
		if err != nil {
			return loopOutcome{}, err
		}
		if msg == nil {
			return loopOutcome{}, fmt.Errorf("%w: provider returned no message", contractx.ErrModelInvoke)
		}
		if l.finalizing || len(msg.ToolCalls) == 0 {
			return loopOutcome{content: msg.Content}, nil
		}

		call := msg.ToolCalls[0]
		name := call.Function.Name
		handler, ok := l.lookup(name)
		if !ok {
			log.Ctx(ctx).Warn().Str("agent", name).Msg("orchestrator: capability not found")
			reply := notFoundReply(name)
			return loopOutcome{terminal: &reply}, nil
		}

		params, err := ParseArguments(call.Function.Arguments)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("agent", name).Msg("orchestrator: argument parse failed")
			reply := parseErrorReply(err)
			return loopOutcome{terminal: &reply}, nil
		}
		if capability.IsIdentityScoped(handler) {
			params[contractx.IdentityParam] = l.identity
		}

		result, err := perform(ctx, handler, name, params)
		if err != nil {
			return loopOutcome{}, err
		}
		if result == "" {
			result = completedSentinel
		}
		l.logs = append(l.logs, "Performed "+name+" and got result: "+result)
		log.Ctx(ctx).Info().Str("agent", name).Int("result_len", len(result)).Msg("orchestrator: capability performed")

		l.calls++
		if call.ID == "" {
			call.ID = "call_" + strconv.Itoa(l.calls)
		}
		l.messages = append(l.messages,
			&schema.Message{Role: schema.Assistant, Content: msg.Content, ToolCalls: []schema.ToolCall{call}},
			schema.ToolMessage(result, call.ID),
		)

		if capability.DecodeEnvelope(result).NeedsFollowUp() && l.followUps < l.maxFollowUps {
			l.followUps++
			continue
		}
		l.finalizing = true
	}
}

// perform runs the handler, turning a panic into an error so it is retried
// like a transport failure.
func perform(ctx context.Context, h contractx.Handler, name string, params map[string]any) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("perform %s: panic: %v", name, r)
		}
	}()
	result, err = h.Perform(ctx, params)
	if err != nil {
		return "", fmt.Errorf("perform %s: %w", name, err)
	}
	return result, nil
}

func (l *completionLoop) lookup(name string) (contractx.Handler, bool) {
	if l.capabilities == nil {
		return nil, false
	}
	return l.capabilities.Lookup(name)
}

// ParseArguments decodes the model's argument text into a parameter map.
// Blank text is an empty map; JSON null values become empty strings.
func ParseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrArgumentParse, err)
	}
	params, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: arguments must be a JSON object", contractx.ErrArgumentParse)
	}
	for key, value := range params {
		if value == nil {
			params[key] = ""
		}
	}
	return params, nil
}
