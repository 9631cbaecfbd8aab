package orchestratornode

import (
	"context"
	"time"

	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
)

const (
	DefaultMaxAttempts  = 3
	DefaultRetryDelay   = 2 * time.Second
	DefaultMaxFollowUps = 3
	DefaultHistoryLimit = 20
)

// LoopPolicy bounds the completion loop. Transport attempts and follow-up
// iterations are counted independently. Zero values take the defaults; a
// negative MaxFollowUps disables follow-ups.
type LoopPolicy struct {
	MaxAttempts  int
	RetryDelay   time.Duration
	MaxFollowUps int
	Sleep        func(ctx context.Context, d time.Duration) error
}

func (p LoopPolicy) withDefaults() LoopPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.RetryDelay < 0 {
		p.RetryDelay = 0
	}
	switch {
	case p.MaxFollowUps == 0:
		p.MaxFollowUps = DefaultMaxFollowUps
	case p.MaxFollowUps < 0:
		p.MaxFollowUps = 0
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func notFoundReply(name string) contractx.Reply {
	return contractx.Reply{
		Rich:  "Agent '" + name + "' does not exist",
		Voice: "I couldn't find that agent.",
	}
}

func parseErrorReply(err error) contractx.Reply {
	return contractx.Reply{
		Rich:  "Error parsing parameters: " + err.Error(),
		Voice: "I hit an error processing that.",
	}
}

func unavailableReply() contractx.Reply {
	return contractx.Reply{
		Rich:  "Service temporarily unavailable. Please try again later.",
		Voice: "Service is down - try again later.",
	}
}
