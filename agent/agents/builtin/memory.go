package builtin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
	"github.com/tanpawarit/businessinsightbot/agent/memory"
)

const (
	contextMemoryName = "ContextMemory"
	manageMemoryName  = "ManageMemory"
)

type ContextMemory struct {
	store *memory.Store
}

var (
	_ contractx.Handler        = (*ContextMemory)(nil)
	_ contractx.IdentityScoped = (*ContextMemory)(nil)
)

func NewContextMemory(store *memory.Store) (*ContextMemory, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: memory store is required", contractx.ErrValidation)
	}
	return &ContextMemory{store: store}, nil
}

func (h *ContextMemory) IdentityScoped() bool { return true }

func (h *ContextMemory) Descriptor() contractx.Descriptor {
	return contractx.Descriptor{
		Name:        contextMemoryName,
		Description: "Recalls and provides context based on stored memories of the past interactions with the user.",
		Parameters: map[string]contractx.Parameter{
			contractx.IdentityParam: {
				Type:        "string",
				Description: "Optional unique identifier of the user to recall memories from a user-specific location.",
			},
			"max_messages": {
				Type:        "integer",
				Description: "Optional maximum number of messages to include in the context.",
				Default:     memory.DefaultMaxMessages,
			},
			"keywords": {
				Type:        "array",
				Description: "Optional list of keywords to filter memories by. Only messages containing these keywords will be included.",
				Items:       &contractx.Parameter{Type: "string"},
			},
			"full_recall": {
				Type:        "boolean",
				Description: "Optional flag to return all memories without filtering.",
				Default:     false,
			},
		},
	}
}

type contextMemoryParams struct {
	UserGUID    string   `mapstructure:"user_guid"`
	MaxMessages int      `mapstructure:"max_messages"`
	Keywords    []string `mapstructure:"keywords"`
	FullRecall  bool     `mapstructure:"full_recall"`
}

func (h *ContextMemory) Perform(ctx context.Context, params map[string]any) (string, error) {
	var p contextMemoryParams
	if err := decode(params, &p); err != nil {
		return paramError(err), nil
	}

	_, hasMax := params["max_messages"]
	_, hasKeywords := params["keywords"]
	opts := memory.RecallOptions{
		FullRecall:  p.FullRecall || (!hasMax && !hasKeywords),
		MaxMessages: p.MaxMessages,
		Keywords:    nonBlank(p.Keywords),
	}

	res := h.store.Read(ctx, h.store.Open(ctx, p.UserGUID))
	return memory.Recall(res.Document, res.Scope, opts), nil
}

type ManageMemory struct {
	store *memory.Store
	now   func() time.Time
	newID func() string
}

var (
	_ contractx.Handler        = (*ManageMemory)(nil)
	_ contractx.IdentityScoped = (*ManageMemory)(nil)
)

func NewManageMemory(store *memory.Store, now func() time.Time, newID func() string) (*ManageMemory, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: memory store is required", contractx.ErrValidation)
	}
	return &ManageMemory{store: store, now: now, newID: newID}, nil
}

func (h *ManageMemory) IdentityScoped() bool { return true }

func (h *ManageMemory) Descriptor() contractx.Descriptor {
	return contractx.Descriptor{
		Name:        manageMemoryName,
		Description: "Manages memories in the conversation system. This agent allows me to save important information to our memory system for future reference.",
		Parameters: map[string]contractx.Parameter{
			"memory_type": {
				Type:        "string",
				Description: "Type of memory to store. Can be 'fact', 'preference', 'insight', or 'task'.",
				Enum:        []string{"fact", "preference", "insight", "task"},
			},
			"content": {
				Type:        "string",
				Description: "The content to store in memory. This should be a concise statement that captures the important information.",
			},
			"importance": {
				Type:        "integer",
				Description: "Importance rating from 1-5, where 5 is most important.",
				Minimum:     ptr(1),
				Maximum:     ptr(5),
			},
			"tags": {
				Type:        "array",
				Description: "Optional list of tags to categorize this memory.",
				Items:       &contractx.Parameter{Type: "string"},
			},
			contractx.IdentityParam: {
				Type:        "string",
				Description: "Optional unique identifier of the user to store memory in a user-specific location.",
			},
		},
		Required: []string{"memory_type", "content"},
	}
}

type manageMemoryParams struct {
	MemoryType string   `mapstructure:"memory_type"`
	Content    string   `mapstructure:"content"`
	Importance int      `mapstructure:"importance"`
	Tags       []string `mapstructure:"tags"`
	UserGUID   string   `mapstructure:"user_guid"`
}

func (h *ManageMemory) Perform(ctx context.Context, params map[string]any) (string, error) {
	var p manageMemoryParams
	if err := decode(params, &p); err != nil {
		return paramError(err), nil
	}

	content := strings.TrimSpace(p.Content)
	if content == "" {
		return "Error: No content provided for memory storage.", nil
	}
	memoryType := strings.TrimSpace(p.MemoryType)
	if memoryType == "" {
		memoryType = "fact"
	}

	read := h.store.Read(ctx, h.store.Open(ctx, p.UserGUID))
	conversationID := read.Scope.Token
	if conversationID == "" {
		conversationID = "current"
	}

	now := h.now()
	record := memory.Record{
		ConversationID: conversationID,
		SessionID:      "current",
		Message:        content,
		Mood:           "neutral",
		Theme:          memoryType,
		Date:           now.Format(memory.DateLayout),
		Time:           now.Format(memory.TimeLayout),
	}
	if err := read.Document.Put(h.newID(), record); err != nil {
		return "", err
	}

	written := h.store.Write(ctx, read.Scope, read.Document)
	log.Ctx(ctx).Info().
		Str("scope", written.Scope.String()).
		Str("memory_type", memoryType).
		Int("importance", p.Importance).
		Strs("tags", nonBlank(p.Tags)).
		Msg("memory: record stored")

	if written.Scope.Shared() {
		return fmt.Sprintf("Successfully stored %s memory in shared memory: \"%s\"", memoryType, content), nil
	}
	return fmt.Sprintf("Successfully stored %s memory for user %s: \"%s\"", memoryType, written.Scope.Token, content), nil
}
