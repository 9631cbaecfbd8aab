package memory

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/businessinsightbot/agent/identity"
)

const (
	DefaultSnapshotLimit = 5000

	NoSharedContext   = "No shared context memory available."
	NoIdentityContext = "No specific context memory available."
)

// ContextBuilder renders the full-recall snapshots that prime the system prompt.
type ContextBuilder struct {
	store *Store
	limit int
}

func NewContextBuilder(store *Store, limit int) *ContextBuilder {
	if limit <= 0 {
		limit = DefaultSnapshotLimit
	}
	return &ContextBuilder{store: store, limit: limit}
}

func (b *ContextBuilder) Shared(ctx context.Context) string {
	return b.snapshot(ctx, Scope{}, NoSharedContext)
}

func (b *ContextBuilder) Identity(ctx context.Context, token string) string {
	if !identity.IsBare(token) {
		return NoIdentityContext
	}
	return b.snapshot(ctx, b.store.Open(ctx, token), NoIdentityContext)
}

func (b *ContextBuilder) snapshot(ctx context.Context, scope Scope, none string) string {
	res := b.store.Read(ctx, scope)
	if len(res.Document.Records()) == 0 {
		return none
	}
	out := Truncate(Recall(res.Document, res.Scope, RecallOptions{FullRecall: true}), b.limit)
	log.Ctx(ctx).Debug().
		Str("scope", res.Scope.String()).
		Bool("degraded", res.Degraded()).
		Int("chars", len([]rune(out))).
		Msg("memory: snapshot built")
	return out
}

// Truncate cuts s to at most limit characters.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
