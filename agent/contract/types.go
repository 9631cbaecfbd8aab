package contract

import "strings"

// IdentityParam is the parameter name identity-scoped handlers read their scope from.
const IdentityParam = "user_guid"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
)

// Turn is one replayed conversation entry. Content is never absent.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TurnRequest is one inbound conversational turn after request coercion.
type TurnRequest struct {
	UserInput string `json:"user_input"`
	History   []Turn `json:"conversation_history"`
	UserGUID  string `json:"user_guid,omitempty"`
}

// Reply is the dual-channel outcome of a turn.
type Reply struct {
	Rich     string `json:"assistant_response"`
	Voice    string `json:"voice_response"`
	AgentLog string `json:"agent_logs"`
	UserGUID string `json:"user_guid"`
}

// Parameter describes one named capability parameter.
type Parameter struct {
	Type        string     `json:"type" yaml:"type" toml:"type"`
	Description string     `json:"description,omitempty" yaml:"description" toml:"description"`
	Enum        []string   `json:"enum,omitempty" yaml:"enum" toml:"enum"`
	Default     any        `json:"default,omitempty" yaml:"default" toml:"default"`
	Items       *Parameter `json:"items,omitempty" yaml:"items" toml:"items"`
	Minimum     *float64   `json:"minimum,omitempty" yaml:"minimum" toml:"minimum"`
	Maximum     *float64   `json:"maximum,omitempty" yaml:"maximum" toml:"maximum"`
}

// Descriptor is the declared contract of a capability.
type Descriptor struct {
	Name        string               `json:"name" yaml:"name" toml:"name"`
	Description string               `json:"description" yaml:"description" toml:"description"`
	Parameters  map[string]Parameter `json:"parameters,omitempty" yaml:"parameters" toml:"parameters"`
	Required    []string             `json:"required,omitempty" yaml:"required" toml:"required"`
}

func (d Descriptor) IsRequired(name string) bool {
	for _, r := range d.Required {
		if r == name {
			return true
		}
	}
	return false
}

// NormalizeRole maps inbound role labels onto the roles replayed to the model.
func NormalizeRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleSystem:
		return RoleSystem
	case RoleAssistant:
		return RoleAssistant
	case RoleFunction, "tool":
		return RoleFunction
	default:
		return RoleUser
	}
}
