package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type memoryDocumentRow struct {
	bun.BaseModel `bun:"table:memory_documents"`

	Key       string    `bun:"doc_key,pk"`
	Body      string    `bun:"body,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// PostgresBackend stores blobs as rows of the memory_documents table.
type PostgresBackend struct {
	db *bun.DB
}

func NewPostgresBackend(ctx context.Context, dsn string) (*PostgresBackend, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is required", contractx.ErrValidation)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	b := &PostgresBackend{db: db}
	if err := b.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate postgres: %v", contractx.ErrStorage, err)
	}
	return b, nil
}

func (b *PostgresBackend) migrate(ctx context.Context) error {
	_, err := b.db.NewCreateTable().
		Model((*memoryDocumentRow)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (b *PostgresBackend) Close() error {
	return b.db.Close()
}

func (b *PostgresBackend) Get(ctx context.Context, key string) ([]byte, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	var row memoryDocumentRow
	err = b.db.NewSelect().
		Model(&row).
		Where("doc_key = ?", clean).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(clean)
		}
		return nil, fmt.Errorf("%w: select %s: %v", contractx.ErrStorage, clean, err)
	}
	return []byte(row.Body), nil
}

func (b *PostgresBackend) Put(ctx context.Context, key string, data []byte) error {
	clean, err := cleanKey(key)
	if err != nil {
		return err
	}

	row := &memoryDocumentRow{
		Key:       clean,
		Body:      string(data),
		UpdatedAt: time.Now().UTC(),
	}
	_, err = b.db.NewInsert().
		Model(row).
		On("CONFLICT (doc_key) DO UPDATE").
		Set("body = EXCLUDED.body").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %v", contractx.ErrStorage, clean, err)
	}
	return nil
}

func (b *PostgresBackend) List(ctx context.Context, prefix string) ([]string, error) {
	p := strings.Trim(strings.TrimSpace(prefix), "/") + "/"

	var keys []string
	err := b.db.NewSelect().
		Model((*memoryDocumentRow)(nil)).
		Column("doc_key").
		Where("left(doc_key, ?) = ?", len(p), p).
		Order("doc_key ASC").
		Scan(ctx, &keys)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", contractx.ErrStorage, p, err)
	}
	return keys, nil
}
