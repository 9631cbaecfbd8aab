package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	contractx "github.com/tanpawarit/businessinsightbot/agent/contract"
)

// FSBackend stores each key as a file below a root directory.
type FSBackend struct {
	fs afero.Fs
}

func NewFSBackend(root string) (*FSBackend, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("%w: fs root is required", contractx.ErrValidation)
	}
	base := afero.NewOsFs()
	if err := base.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create fs root: %v", contractx.ErrStorage, err)
	}
	return NewFSBackendOn(afero.NewBasePathFs(base, root)), nil
}

// NewFSBackendOn wraps an existing afero filesystem, e.g. afero.NewMemMapFs in tests.
func NewFSBackendOn(fsys afero.Fs) *FSBackend {
	return &FSBackend{fs: fsys}
}

func (b *FSBackend) Get(_ context.Context, key string) ([]byte, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(b.fs, "/"+clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(clean)
		}
		return nil, fmt.Errorf("%w: read %s: %v", contractx.ErrStorage, clean, err)
	}
	return data, nil
}

func (b *FSBackend) Put(_ context.Context, key string, data []byte) error {
	clean, err := cleanKey(key)
	if err != nil {
		return err
	}
	name := "/" + clean
	if err := b.fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return fmt.Errorf("%w: create dir for %s: %v", contractx.ErrStorage, clean, err)
	}
	if err := afero.WriteFile(b.fs, name, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", contractx.ErrStorage, clean, err)
	}
	return nil
}

// List returns the keys of all files below prefix, sorted.
func (b *FSBackend) List(_ context.Context, prefix string) ([]string, error) {
	dir := "/" + strings.Trim(strings.TrimSpace(prefix), "/")
	ok, err := afero.DirExists(b.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", contractx.ErrStorage, dir, err)
	}
	if !ok {
		return nil, nil
	}

	var keys []string
	err = afero.Walk(b.fs, dir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		keys = append(keys, strings.TrimPrefix(path.Clean(filepath.ToSlash(p)), "/"))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", contractx.ErrStorage, dir, err)
	}
	sort.Strings(keys)
	return keys, nil
}
