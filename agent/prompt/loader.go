package prompt

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

const datetimeLayout = "Monday, January 02, 2006 at 03:04 PM"

//go:embed template/system.txt
var systemRaw string

// SystemVars fills the system prompt template.
type SystemVars struct {
	AssistantName  string
	Characteristic string
	SharedMemory   string
	IdentityMemory string
	Now            time.Time
}

var systemTemplate = einoprompt.FromMessages(
	schema.FString,
	schema.SystemMessage(strings.TrimSpace(systemRaw)),
)

// SystemMessage renders the system prompt with both memory snapshots embedded.
func SystemMessage(ctx context.Context, vars SystemVars) (*schema.Message, error) {
	msgs, err := systemTemplate.Format(ctx, map[string]any{
		"assistant_name":   vars.AssistantName,
		"characteristic":   vars.Characteristic,
		"current_datetime": vars.Now.Format(datetimeLayout),
		"shared_memory":    vars.SharedMemory,
		"identity_memory":  vars.IdentityMemory,
	})
	if err != nil {
		return nil, fmt.Errorf("format system prompt: %w", err)
	}
	if len(msgs) != 1 {
		return nil, fmt.Errorf("format system prompt: got %d messages", len(msgs))
	}
	return msgs[0], nil
}
