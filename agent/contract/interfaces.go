package contract

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// Handler is a single capability ("agent") the model can call by name.
// Perform receives parameters that were already sanitized (nulls replaced by "").
type Handler interface {
	Descriptor() Descriptor
	Perform(ctx context.Context, params map[string]any) (string, error)
}

// IdentityScoped is implemented by handlers that operate on a memory scope.
// The orchestrator always overwrites their identity parameter with the session token.
type IdentityScoped interface {
	IdentityScoped() bool
}

// Capabilities is the discovered, name-indexed set of handlers for one turn.
type Capabilities interface {
	Lookup(name string) (Handler, bool)
	Descriptors() []Descriptor
}

// CompletionProvider is the black-box function-calling model.
// The returned message either carries plain Content or at least one ToolCall.
type CompletionProvider interface {
	Complete(ctx context.Context, messages []*schema.Message, tools []Descriptor) (*schema.Message, error)
}

// MemoryContext renders the two memory snapshots that prime a conversation.
type MemoryContext interface {
	Shared(ctx context.Context) string
	Identity(ctx context.Context, token string) string
}
