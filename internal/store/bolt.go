package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// BoltStore is an embedded-store backend. Each table maps to a bucket whose
// keys are insertion sequence numbers, so the flat-file contract is kept
// unchanged: records stay in append order, duplicate record keys are allowed,
// and lookups are linear scans on field 0.
type BoltStore struct {
	db     *bolt.DB
	logger *zap.Logger
}

// OpenBoltStore opens (or creates) the bolt file at path.
func OpenBoltStore(path string, logger *zap.Logger) (*BoltStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}
	return &BoltStore{db: db, logger: logger}, nil
}

// Table returns the named table backed by a bolt bucket.
func (s *BoltStore) Table(name string) Table {
	return &boltTable{store: s, name: name}
}

// Close closes the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

type boltTable struct {
	store *BoltStore
	name  string
}

func seqKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func (t *boltTable) ReadAll(ctx context.Context) ([]Record, error) {
	var recs []Record
	err := t.store.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(t.name))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			rec, err := ParseLine(string(v))
			if err != nil {
				return fmt.Errorf("table %s: %w", t.name, err)
			}
			recs = append(recs, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (t *boltTable) Find(ctx context.Context, key string) (Record, error) {
	recs, err := t.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if rec.Key() == key {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("table %s key %s: %w", t.name, key, ErrNotFound)
}

func (t *boltTable) Append(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return t.store.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(t.name))
		if err != nil {
			return fmt.Errorf("table %s: %w", t.name, err)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("table %s: %w", t.name, err)
		}
		return b.Put(seqKey(seq), []byte(rec.Join()))
	})
}

func (t *boltTable) Update(ctx context.Context, key string, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	return t.store.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(t.name))
		if b == nil {
			return fmt.Errorf("table %s key %s: %w", t.name, key, ErrNotFound)
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			existing, err := ParseLine(string(v))
			if err != nil {
				return fmt.Errorf("table %s: %w", t.name, err)
			}
			if existing.Key() == key {
				return b.Put(append([]byte(nil), k...), []byte(rec.Join()))
			}
		}
		return fmt.Errorf("table %s key %s: %w", t.name, key, ErrNotFound)
	})
}

func (t *boltTable) UpdateField(ctx context.Context, key string, index int, value string) error {
	if strings.Contains(value, Delimiter) {
		return fmt.Errorf("%w: value contains delimiter %q", ErrInvalidFormat, Delimiter)
	}
	rec, err := t.Find(ctx, key)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(rec) {
		return fmt.Errorf("%w: field index %d out of range for table %s", ErrInvalidFormat, index, t.name)
	}
	updated := make(Record, len(rec))
	copy(updated, rec)
	updated[index] = value
	return t.Update(ctx, key, updated)
}

func (t *boltTable) Delete(ctx context.Context, key string) error {
	return t.store.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(t.name))
		if b == nil {
			return fmt.Errorf("table %s key %s: %w", t.name, key, ErrNotFound)
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			existing, err := ParseLine(string(v))
			if err != nil {
				return fmt.Errorf("table %s: %w", t.name, err)
			}
			if existing.Key() == key {
				return b.Delete(append([]byte(nil), k...))
			}
		}
		return fmt.Errorf("table %s key %s: %w", t.name, key, ErrNotFound)
	})
}
