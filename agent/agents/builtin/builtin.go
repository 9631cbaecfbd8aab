// Package builtin holds the statically bundled capability handlers.
package builtin

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"github.com/tanpawarit/businessinsightbot/agent/capability"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
	"github.com/tanpawarit/businessinsightbot/agent/memory"
	"github.com/tanpawarit/businessinsightbot/pkg/workflow"
)

type Deps struct {
	Memory   *memory.Store
	Poster   capability.Poster
	Workflow workflow.Config

	Now   func() time.Time
	NewID func() string
}

// Factories returns the bundled handlers in registration order.
func Factories(deps Deps) []capability.Factory {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	return []capability.Factory{
		{Name: contextMemoryName, Build: func() (contractx.Handler, error) { return NewContextMemory(deps.Memory) }},
		{Name: manageMemoryName, Build: func() (contractx.Handler, error) { return NewManageMemory(deps.Memory, deps.Now, deps.NewID) }},
		{Name: emailDraftingName, Build: func() (contractx.Handler, error) {
			return NewEmailDrafting(deps.Workflow.EmailURL, deps.Poster)
		}},
		{Name: adaptiveCardName, Build: func() (contractx.Handler, error) {
			return NewAdaptiveCard(deps.Workflow.AdaptiveCardURL, deps.Poster)
		}},
		{Name: calculateMetricName, Build: func() (contractx.Handler, error) { return NewCalculateMetric() }},
	}
}

// decode weakly maps model-supplied params onto out; "" from nulls becomes the zero value.
func decode(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrArgumentParse, err)
	}
	return nil
}

func paramError(err error) string {
	return envelope(map[string]any{"status": "error", "message": err.Error()})
}

func envelope(v map[string]any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"status":"error","message":%q}`, err.Error())
	}
	return string(raw)
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func ptr(f float64) *float64 {
	return &f
}
