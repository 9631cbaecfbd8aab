package capability

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Status is the conventional status field of a handler result envelope.
type Status string

const (
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
	StatusWarning    Status = "warning"
	StatusInfo       Status = "info"
	StatusIncomplete Status = "incomplete"
	// StatusOpaque marks results that are not a JSON object, or carry no known status.
	StatusOpaque Status = ""
)

// Envelope is the defensive decoding of a handler result string.
// Results that are not JSON objects decode to a non-structured envelope.
type Envelope struct {
	Structured     bool
	Status         Status
	RawStatus      string
	Message        string
	HasError       bool
	RequiresAction bool
}

func DecodeEnvelope(result string) Envelope {
	trimmed := strings.TrimSpace(result)
	if !gjson.Valid(trimmed) {
		return Envelope{}
	}
	root := gjson.Parse(trimmed)
	if !root.IsObject() {
		return Envelope{}
	}

	raw := root.Get("status")
	env := Envelope{
		Structured:     true,
		RawStatus:      raw.String(),
		Message:        root.Get("message").String(),
		HasError:       truthy(root.Get("error")),
		RequiresAction: root.Get("requires_additional_action").Type == gjson.True,
	}
	if raw.Type == gjson.String {
		env.Status = knownStatus(raw.Str)
	}
	return env
}

// NeedsFollowUp reports whether the model should be called again before finalizing.
// An error status alone is treated as a finished, reportable result.
func (e Envelope) NeedsFollowUp() bool {
	if !e.Structured {
		return false
	}
	return e.HasError || e.RawStatus == string(StatusIncomplete) || e.RequiresAction
}

func knownStatus(s string) Status {
	switch st := Status(s); st {
	case StatusSuccess, StatusError, StatusWarning, StatusInfo, StatusIncomplete:
		return st
	default:
		return StatusOpaque
	}
}

// truthy mirrors loose JSON truthiness: null, false, 0, "", {} and [] are false.
func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return v.Num != 0
	case gjson.String:
		return v.Str != ""
	case gjson.JSON:
		empty := true
		v.ForEach(func(_, _ gjson.Result) bool {
			empty = false
			return false
		})
		return !empty
	default:
		return false
	}
}
