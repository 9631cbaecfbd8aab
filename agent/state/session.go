// Package state holds the per-turn session value threaded through the orchestrator.
package state

import (
	"fmt"
	"strings"

	"github.com/tanpawarit/businessinsightbot/agent/identity"
)

// Session is the orchestrator's view of one turn: the identity in effect and the
// memory snapshots rendered for it. Transitions return a new value.
type Session struct {
	Identity       string `json:"user_guid"`
	SharedMemory   string `json:"-"`
	IdentityMemory string `json:"-"`
	// Loaded is set once both snapshots reflect Identity.
	Loaded bool `json:"-"`
}

// NewSession starts a turn with token, or the default identity when token is not a valid UUID.
func NewSession(token string) Session {
	if identity.IsBare(token) {
		return Session{Identity: strings.ToLower(strings.TrimSpace(token))}
	}
	return Session{Identity: identity.Default}
}

// WithIdentity switches to token. Snapshots are dropped when the identity changes.
func (s Session) WithIdentity(token string) Session {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == s.Identity {
		return s
	}
	return Session{Identity: token}
}

// WithMemory records the snapshots rendered for the current identity.
func (s Session) WithMemory(shared, identityMemory string) Session {
	s.SharedMemory = shared
	s.IdentityMemory = identityMemory
	s.Loaded = true
	return s
}

func (s Session) Validate() error {
	if !identity.IsBare(s.Identity) {
		return fmt.Errorf("session identity %q is not a valid token", s.Identity)
	}
	return nil
}
