package preference

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileStore keeps every theme in one YAML map, rewritten atomically on Set.
type FileStore struct {
	path string

	mu     sync.Mutex
	themes map[string]Theme
}

// NewFileStore loads path if it exists.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("preference: file path is empty")
	}
	fs := &FileStore{path: path, themes: make(map[string]Theme)}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fs, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, &fs.themes); err != nil {
		return nil, fmt.Errorf("preference: decode %s: %w", path, err)
	}
	if fs.themes == nil {
		fs.themes = make(map[string]Theme)
	}
	return fs, nil
}

func (f *FileStore) Get(_ context.Context, visitor string) (Theme, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.themes[Key(visitor)]
	if !ok {
		return "", ErrNotFound
	}
	return t, nil
}

func (f *FileStore) Set(_ context.Context, visitor string, theme Theme) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.themes[Key(visitor)]
	f.themes[Key(visitor)] = theme
	if err := f.save(); err != nil {
		if had {
			f.themes[Key(visitor)] = prev
		} else {
			delete(f.themes, Key(visitor))
		}
		return err
	}
	return nil
}

func (f *FileStore) Close() error { return nil }

// save writes to a temp file and renames it over the target.
func (f *FileStore) save() error {
	data, err := yaml.Marshal(f.themes)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
