// Package storage holds the durable key-value backends memory documents live in.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
)

// Backend is a flat key-value blob store. Keys are slash separated paths.
// Get returns contract.ErrNotFound for a missing key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	List(ctx context.Context, prefix string) ([]string, error)
}

const (
	DriverFS       = "fs"
	DriverUpstash  = "upstash"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver       string        `split_words:"true" default:"fs"`
	FSRoot       string        `envconfig:"FS_ROOT" default:"./data"`
	UpstashURL   string        `split_words:"true"`
	UpstashToken string        `split_words:"true"`
	PostgresDSN  string        `envconfig:"POSTGRES_DSN"`
	SQLitePath   string        `envconfig:"SQLITE_PATH" default:"./data/memory.db"`
	Timeout      time.Duration `split_words:"true" default:"10s"`
}

// Open builds the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverFS:
		return NewFSBackend(cfg.FSRoot)
	case DriverUpstash:
		return NewUpstashBackend(UpstashConfig{
			URL:     cfg.UpstashURL,
			Token:   cfg.UpstashToken,
			Timeout: cfg.Timeout,
		})
	case DriverPostgres:
		return NewPostgresBackend(ctx, cfg.PostgresDSN)
	case DriverSQLite:
		return NewSQLiteBackend(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", contractx.ErrValidation, cfg.Driver)
	}
}

func cleanKey(key string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(key), "/")
	if trimmed == "" {
		return "", fmt.Errorf("%w: storage key is empty", contractx.ErrValidation)
	}
	for _, part := range strings.Split(trimmed, "/") {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("%w: invalid storage key %q", contractx.ErrValidation, key)
		}
	}
	return trimmed, nil
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", contractx.ErrNotFound, key)
}
