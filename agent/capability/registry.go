package capability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
	"github.com/tanpawarit/businessinsightbot/agent/storage"
)

const (
	SourceBuiltin     = "builtin"
	SourceAgents      = "agents"
	SourceMultiAgents = "multi_agents"
)

// Factory builds one statically bundled handler. Build may fail, e.g. on missing configuration.
type Factory struct {
	Name  string
	Build func() (contractx.Handler, error)
}

// Registry discovers handlers from the bundled factories and from manifests in storage.
type Registry struct {
	factories []Factory
	backend   storage.Backend
	poster    Poster
}

func NewRegistry(backend storage.Backend, poster Poster, factories ...Factory) *Registry {
	return &Registry{
		factories: factories,
		backend:   backend,
		poster:    poster,
	}
}

// Entry is one discovered handler and where it came from.
type Entry struct {
	Handler contractx.Handler
	Source  string
	Origin  string
}

// Set is the name-indexed result of one discovery pass.
type Set struct {
	entries map[string]Entry
}

var _ contractx.Capabilities = (*Set)(nil)

// Discover enumerates builtin factories, then agents/ manifests, then multi_agents/ manifests.
// A later definition with the same name replaces an earlier one. Failing definitions are
// logged and skipped.
func (r *Registry) Discover(ctx context.Context) *Set {
	set := &Set{entries: map[string]Entry{}}
	logger := log.Ctx(ctx)

	for _, f := range r.factories {
		h, err := instantiate(f.Build)
		if err != nil {
			logger.Warn().Err(err).Str("factory", f.Name).Msg("capability: builtin skipped")
			continue
		}
		set.add(ctx, Entry{Handler: h, Source: SourceBuiltin, Origin: f.Name})
	}

	if r.backend == nil {
		return set
	}
	for _, source := range []string{SourceAgents, SourceMultiAgents} {
		keys, err := r.backend.List(ctx, source)
		if err != nil {
			logger.Warn().Err(err).Str("source", source).Msg("capability: list manifests failed")
			continue
		}
		for _, key := range keys {
			if !IsManifestKey(key) {
				continue
			}
			h, err := r.load(ctx, key)
			if err != nil {
				logger.Warn().Err(err).Str("manifest", key).Msg("capability: manifest skipped")
				continue
			}
			set.add(ctx, Entry{Handler: h, Source: source, Origin: key})
		}
	}

	logger.Debug().Int("count", len(set.entries)).Msg("capability: discovery finished")
	return set
}

func (r *Registry) load(ctx context.Context, key string) (contractx.Handler, error) {
	data, err := r.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	m, err := ParseManifest(key, data)
	if err != nil {
		return nil, err
	}
	return NewWebhookHandler(m, r.poster)
}

func instantiate(build func() (contractx.Handler, error)) (h contractx.Handler, err error) {
	if build == nil {
		return nil, errors.New("factory has no build function")
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("factory panicked: %v", rec)
		}
	}()
	h, err = build()
	if err == nil && h == nil {
		err = errors.New("factory returned nil handler")
	}
	return h, err
}

func (s *Set) add(ctx context.Context, e Entry) {
	d := e.Handler.Descriptor()
	if err := ValidateDescriptor(d); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("origin", e.Origin).Msg("capability: invalid descriptor skipped")
		return
	}
	if prev, ok := s.entries[d.Name]; ok {
		log.Ctx(ctx).Info().
			Str("capability", d.Name).
			Str("replaced", prev.Origin).
			Str("by", e.Origin).
			Msg("capability: overridden")
	}
	s.entries[d.Name] = e
}

func (s *Set) Lookup(name string) (contractx.Handler, bool) {
	e, ok := s.entries[strings.TrimSpace(name)]
	if !ok {
		return nil, false
	}
	return e.Handler, true
}

// Invoke runs the named handler.
func (s *Set) Invoke(ctx context.Context, name string, params map[string]any) (string, error) {
	h, ok := s.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", contractx.ErrCapabilityNotFound, name)
	}
	return h.Perform(ctx, params)
}

// Entries returns the discovered handlers sorted by name.
func (s *Set) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Handler.Descriptor().Name < out[j].Handler.Descriptor().Name
	})
	return out
}

func (s *Set) Descriptors() []contractx.Descriptor {
	entries := s.Entries()
	out := make([]contractx.Descriptor, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Handler.Descriptor())
	}
	return out
}

func (s *Set) Len() int {
	return len(s.entries)
}

// IsIdentityScoped reports whether h wants the session identity injected.
func IsIdentityScoped(h contractx.Handler) bool {
	scoped, ok := h.(contractx.IdentityScoped)
	return ok && scoped.IdentityScoped()
}
