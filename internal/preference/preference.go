// Package preference persists the per-visitor theme choice.
package preference

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when a visitor has no stored theme.
var ErrNotFound = errors.New("preference: not found")

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme accepts "light" or "dark".
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case ThemeLight, ThemeDark:
		return Theme(s), nil
	default:
		return "", fmt.Errorf("preference: unknown theme %q", s)
	}
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// Key is the storage key for a visitor.
func Key(visitor string) string {
	return "theme:" + visitor
}

// Store reads and writes one theme per visitor.
type Store interface {
	Get(ctx context.Context, visitor string) (Theme, error)
	Set(ctx context.Context, visitor string, theme Theme) error
	Close() error
}

// GetOr returns the stored theme, or def when none is stored or the store
// fails. Failures are returned for logging.
func GetOr(ctx context.Context, s Store, visitor string, def Theme) (Theme, error) {
	t, err := s.Get(ctx, visitor)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return def, nil
		}
		return def, err
	}
	return t, nil
}

// MemoryStore keeps themes in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	themes map[string]Theme
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{themes: make(map[string]Theme)}
}

func (m *MemoryStore) Get(_ context.Context, visitor string) (Theme, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.themes[Key(visitor)]
	if !ok {
		return "", ErrNotFound
	}
	return t, nil
}

func (m *MemoryStore) Set(_ context.Context, visitor string, theme Theme) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.themes[Key(visitor)] = theme
	return nil
}

func (m *MemoryStore) Close() error { return nil }
