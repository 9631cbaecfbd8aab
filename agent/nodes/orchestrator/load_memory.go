package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
)

func LoadMemory(ctx context.Context, in *GraphState, mem contractx.MemoryContext) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if err := in.Session.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrValidation, err)
	}
	if in.Session.Loaded {
		return in, nil
	}
	in.Session = in.Session.WithMemory(mem.Shared(ctx), mem.Identity(ctx, in.Session.Identity))
	return in, nil
}
