package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
	_ "modernc.org/sqlite"
)

// SQLiteBackend keeps blobs in a single-table SQLite database.
type SQLiteBackend struct {
	db *sql.DB
}

func NewSQLiteBackend(ctx context.Context, dbPath string) (*SQLiteBackend, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", contractx.ErrValidation)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create db dir: %v", contractx.ErrStorage, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", contractx.ErrStorage, err)
	}

	b := &SQLiteBackend{db: db}
	if err := b.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate sqlite: %v", contractx.ErrStorage, err)
	}
	return b, nil
}

func (b *SQLiteBackend) migrate(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS memory_documents (
		doc_key    TEXT PRIMARY KEY,
		body       TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	return err
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func (b *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	var body string
	err = b.db.QueryRowContext(ctx, `SELECT body FROM memory_documents WHERE doc_key = ?`, clean).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(clean)
		}
		return nil, fmt.Errorf("%w: select %s: %v", contractx.ErrStorage, clean, err)
	}
	return []byte(body), nil
}

func (b *SQLiteBackend) Put(ctx context.Context, key string, data []byte) error {
	clean, err := cleanKey(key)
	if err != nil {
		return err
	}

	_, err = b.db.ExecContext(ctx, `
	INSERT INTO memory_documents (doc_key, body, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(doc_key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		clean, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %v", contractx.ErrStorage, clean, err)
	}
	return nil
}

func (b *SQLiteBackend) List(ctx context.Context, prefix string) ([]string, error) {
	p := strings.Trim(strings.TrimSpace(prefix), "/") + "/"

	rows, err := b.db.QueryContext(ctx,
		`SELECT doc_key FROM memory_documents WHERE substr(doc_key, 1, ?) = ? ORDER BY doc_key`,
		len(p), p)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", contractx.ErrStorage, p, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("%w: scan key: %v", contractx.ErrStorage, err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate keys: %v", contractx.ErrStorage, err)
	}
	return keys, nil
}
