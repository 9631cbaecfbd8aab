package orchestratornode

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
	"github.com/tanpawarit/businessinsightbot/agent/identity"
	statex "github.com/tanpawarit/businessinsightbot/agent/state"
)

var ErrInvalidMessage = errors.New("user_input is empty")

type GraphInput struct {
	TurnID  string
	Request contractx.TurnRequest
}

type GraphOutput struct {
	Reply contractx.Reply
}

type GraphState struct {
	TurnID string
	Now    time.Time

	Input   string
	History []contractx.Turn
	Session statex.Session

	// PromptToken is the identity token carried by Input, if any.
	PromptToken string
	Acknowledge bool

	Capabilities contractx.Capabilities
	Messages     []*schema.Message

	// Terminal is set when the completion loop ends the turn with a canned reply.
	Terminal *contractx.Reply
	Content  string
	AgentLog []string
}

// ValidateRequest rejects blank input and seeds the session from the request override.
func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	text := in.Request.UserInput
	if strings.TrimSpace(text) == "" && !identity.IsBare(text) {
		return nil, fmt.Errorf("%w: %w", contractx.ErrValidation, ErrInvalidMessage)
	}

	history := make([]contractx.Turn, 0, len(in.Request.History))
	for _, turn := range in.Request.History {
		history = append(history, contractx.Turn{
			Role:    contractx.NormalizeRole(string(turn.Role)),
			Content: turn.Content,
		})
	}

	return &GraphState{
		TurnID:  in.TurnID,
		Now:     nowFn(),
		Input:   text,
		History: history,
		Session: statex.NewSession(in.Request.UserGUID),
	}, nil
}
