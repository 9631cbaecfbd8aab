// Package memory implements scoped memory documents with shared-scope fallback.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
	"github.com/tanpawarit/businessinsightbot/agent/identity"
	"github.com/tanpawarit/businessinsightbot/agent/storage"
)

const (
	SharedKey = "shared_memories/memory.json"

	identityDir  = "memory"
	identityFile = "user_memory.json"
)

// Scope selects exactly one memory document. The zero value is the shared scope.
type Scope struct {
	Token string
}

func (s Scope) Shared() bool {
	return s.Token == ""
}

func (s Scope) Key() string {
	if s.Shared() {
		return SharedKey
	}
	return identityDir + "/" + s.Token + "/" + identityFile
}

func (s Scope) String() string {
	if s.Shared() {
		return "shared"
	}
	return s.Token
}

// Result is the outcome of a read or write. Scope is the scope actually used;
// Fallback holds the failure that forced a degradation, if any.
type Result struct {
	Document Document
	Scope    Scope
	Fallback error
}

func (r Result) Degraded() bool {
	return r.Fallback != nil
}

// Store reads and writes memory documents on a storage backend.
// None of its operations return errors; failures degrade to the shared scope.
type Store struct {
	backend storage.Backend
}

func NewStore(backend storage.Backend) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: storage backend is required", contractx.ErrValidation)
	}
	return &Store{backend: backend}, nil
}

// Open resolves token into a scope. Invalid or empty tokens select the shared scope.
// A valid token's document is materialized as "{}" on first access.
func (s *Store) Open(ctx context.Context, token string) Scope {
	token = strings.ToLower(strings.TrimSpace(token))
	if !identity.IsBare(token) {
		return Scope{}
	}

	scope := Scope{Token: token}
	_, err := s.backend.Get(ctx, scope.Key())
	switch {
	case err == nil:
		return scope
	case errors.Is(err, contractx.ErrNotFound):
		if err := s.backend.Put(ctx, scope.Key(), []byte("{}")); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("scope", token).Msg("memory: create identity scope failed, using shared")
			return Scope{}
		}
		log.Ctx(ctx).Debug().Str("scope", token).Msg("memory: identity scope created")
		return scope
	default:
		log.Ctx(ctx).Warn().Err(err).Str("scope", token).Msg("memory: open identity scope failed, using shared")
		return Scope{}
	}
}

func (s *Store) Read(ctx context.Context, scope Scope) Result {
	doc, err := s.load(ctx, scope)
	if err == nil {
		return Result{Document: doc, Scope: scope}
	}

	if !scope.Shared() {
		log.Ctx(ctx).Warn().Err(err).Str("scope", scope.String()).Msg("memory: identity read failed, falling back to shared")
		shared, sharedErr := s.load(ctx, Scope{})
		if sharedErr != nil {
			log.Ctx(ctx).Error().Err(sharedErr).Msg("memory: shared read failed")
			shared = Document{}
		}
		return Result{Document: shared, Scope: Scope{}, Fallback: err}
	}

	log.Ctx(ctx).Error().Err(err).Msg("memory: shared read failed")
	return Result{Document: Document{}, Scope: Scope{}, Fallback: err}
}

func (s *Store) Write(ctx context.Context, scope Scope, doc Document) Result {
	err := s.save(ctx, scope, doc)
	if err == nil {
		return Result{Document: doc, Scope: scope}
	}

	if !scope.Shared() {
		log.Ctx(ctx).Warn().Err(err).Str("scope", scope.String()).Msg("memory: identity write failed, falling back to shared")
		if sharedErr := s.save(ctx, Scope{}, doc); sharedErr != nil {
			log.Ctx(ctx).Error().Err(sharedErr).Msg("memory: shared write failed")
		}
		return Result{Document: doc, Scope: Scope{}, Fallback: err}
	}

	log.Ctx(ctx).Error().Err(err).Msg("memory: shared write failed")
	return Result{Document: doc, Scope: Scope{}, Fallback: err}
}

func (s *Store) load(ctx context.Context, scope Scope) (Document, error) {
	data, err := s.backend.Get(ctx, scope.Key())
	if err != nil {
		if errors.Is(err, contractx.ErrNotFound) {
			return Document{}, nil
		}
		return nil, err
	}
	return ParseDocument(data)
}

func (s *Store) save(ctx context.Context, scope Scope, doc Document) error {
	data, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("%w: encode memory document: %v", contractx.ErrStorage, err)
	}
	return s.backend.Put(ctx, scope.Key(), data)
}
