package storage

import (
	"errors"
	"strings"
	"sync"
)

var (
	// ErrInvalidValues indicates the provided mapping violates validation rules.
	ErrInvalidValues = errors.New("values must be keyed by non-empty strings")
)

// Store provides access to the named configuration values consulted by the
// resolver.
type Store interface {
	Snapshot() (map[string]any, error)
	Replace(values map[string]any) error
	Get(key string) (any, bool, error)
}

// MemoryStore keeps the configuration mapping in-memory and guards access
// with a RWMutex.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewMemoryStore initialises an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: map[string]any{},
	}
}

// Snapshot returns a defensive copy of the current mapping.
func (s *MemoryStore) Snapshot() (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneValues(s.values), nil
}

// Replace validates and stores the provided mapping, discarding the previous
// contents.
func (s *MemoryStore) Replace(values map[string]any) error {
	normalized, err := normalizeValues(values)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.values = normalized
	s.mu.Unlock()

	return nil
}

// Get returns a single entry and whether it exists.
func (s *MemoryStore) Get(key string) (any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok, nil
}

func cloneValues(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func normalizeValues(values map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if strings.TrimSpace(k) == "" {
			return nil, ErrInvalidValues
		}
		out[k] = v
	}
	return out, nil
}
