package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemStore is an in-memory Store with the same contract as the flat-file
// backend. It backs tests and short-lived sessions that should not touch disk.
type MemStore struct {
	mu     sync.RWMutex
	tables map[string][]Record
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{tables: make(map[string][]Record)}
}

// Table returns the named table, creating it lazily on first mutation.
func (s *MemStore) Table(name string) Table {
	return &memTable{store: s, name: name}
}

// Close is a no-op.
func (s *MemStore) Close() error { return nil }

type memTable struct {
	store *MemStore
	name  string
}

func (t *memTable) ReadAll(ctx context.Context) ([]Record, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	recs := t.store.tables[t.name]
	out := make([]Record, len(recs))
	for i, r := range recs {
		cp := make(Record, len(r))
		copy(cp, r)
		out[i] = cp
	}
	return out, nil
}

func (t *memTable) Find(ctx context.Context, key string) (Record, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	for _, r := range t.store.tables[t.name] {
		if r.Key() == key {
			cp := make(Record, len(r))
			copy(cp, r)
			return cp, nil
		}
	}
	return nil, fmt.Errorf("table %s key %s: %w", t.name, key, ErrNotFound)
}

func (t *memTable) Append(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	cp := make(Record, len(rec))
	copy(cp, rec)
	t.store.tables[t.name] = append(t.store.tables[t.name], cp)
	return nil
}

func (t *memTable) Update(ctx context.Context, key string, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for i, r := range t.store.tables[t.name] {
		if r.Key() == key {
			cp := make(Record, len(rec))
			copy(cp, rec)
			t.store.tables[t.name][i] = cp
			return nil
		}
	}
	return fmt.Errorf("table %s key %s: %w", t.name, key, ErrNotFound)
}

func (t *memTable) UpdateField(ctx context.Context, key string, index int, value string) error {
	if strings.Contains(value, Delimiter) {
		return fmt.Errorf("%w: value contains delimiter %q", ErrInvalidFormat, Delimiter)
	}

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for i, r := range t.store.tables[t.name] {
		if r.Key() == key {
			if index < 0 || index >= len(r) {
				return fmt.Errorf("%w: field index %d out of range for table %s", ErrInvalidFormat, index, t.name)
			}
			cp := make(Record, len(r))
			copy(cp, r)
			cp[index] = value
			t.store.tables[t.name][i] = cp
			return nil
		}
	}
	return fmt.Errorf("table %s key %s: %w", t.name, key, ErrNotFound)
}

func (t *memTable) Delete(ctx context.Context, key string) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	recs := t.store.tables[t.name]
	for i, r := range recs {
		if r.Key() == key {
			t.store.tables[t.name] = append(recs[:i:i], recs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("table %s key %s: %w", t.name, key, ErrNotFound)
}
