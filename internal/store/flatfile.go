package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// FileStore keeps one text file per table under a data directory. Mutations
// rewrite the file through a temp-file-and-rename so a crash mid-write never
// leaves a half-written table behind.
type FileStore struct {
	fs     afero.Fs
	dir    string
	logger *zap.Logger
	tracer trace.Tracer
}

// NewFileStore creates a flat-file store rooted at dir. The directory is
// created if missing.
func NewFileStore(fs afero.Fs, dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{
		fs:     fs,
		dir:    dir,
		logger: logger,
		tracer: otel.Tracer("store"),
	}, nil
}

// Table returns the table stored in <dir>/<name>.txt.
func (s *FileStore) Table(name string) Table {
	return &fileTable{
		store: s,
		name:  name,
		path:  filepath.Join(s.dir, name+".txt"),
	}
}

// Close is a no-op; no file handle outlives a single operation.
func (s *FileStore) Close() error { return nil }

type fileTable struct {
	store *FileStore
	name  string
	path  string
}

// readLines loads and parses the whole table. A missing file is an empty
// table, not an error: tables come into existence on first append.
func (t *fileTable) readLines() ([]Record, error) {
	data, err := afero.ReadFile(t.store.fs, t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read table %s: %w", t.name, err)
	}

	lines := strings.Split(string(data), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1] // trailing newline
	}

	var recs []Record
	for _, line := range lines {
		rec, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.name, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// writeLines atomically replaces the table file with the given records.
func (t *fileTable) writeLines(recs []Record) error {
	tmp, err := afero.TempFile(t.store.fs, t.store.dir, t.name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", t.name, err)
	}
	tmpName := tmp.Name()

	var b strings.Builder
	for _, rec := range recs {
		b.WriteString(rec.Join())
		b.WriteByte('\n')
	}
	if _, err := tmp.Write([]byte(b.String())); err != nil {
		tmp.Close()
		t.store.fs.Remove(tmpName)
		return fmt.Errorf("write temp file for %s: %w", t.name, err)
	}
	if err := tmp.Close(); err != nil {
		t.store.fs.Remove(tmpName)
		return fmt.Errorf("close temp file for %s: %w", t.name, err)
	}
	if err := t.store.fs.Rename(tmpName, t.path); err != nil {
		t.store.fs.Remove(tmpName)
		return fmt.Errorf("replace table %s: %w", t.name, err)
	}
	return nil
}

func (t *fileTable) ReadAll(ctx context.Context) ([]Record, error) {
	return t.readLines()
}

func (t *fileTable) Find(ctx context.Context, key string) (Record, error) {
	recs, err := t.readLines()
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

func (t *fileTable) Append(ctx context.Context, rec Record) error {
	ctx, span := t.store.tracer.Start(ctx, "store_append",
		trace.WithAttributes(attribute.String("table", t.name)))
	defer span.End()

	if err := rec.Validate(); err != nil {
		span.RecordError(err)
		return err
	}

	f, err := t.store.fs.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("open table %s: %w", t.name, err)
	}
	defer f.Close()

	if _, err := f.Write([]byte(rec.Join() + "\n")); err != nil {
		span.RecordError(err)
		return fmt.Errorf("append to table %s: %w", t.name, err)
	}

	t.store.logger.Debug("record appended",
		zap.String("table", t.name),
		zap.String("key", rec.Key()))
	return nil
}

func (t *fileTable) Update(ctx context.Context, key string, rec Record) error {
	ctx, span := t.store.tracer.Start(ctx, "store_update",
		trace.WithAttributes(
			attribute.String("table", t.name),
			attribute.String("key", key)))
	defer span.End()

	if err := rec.Validate(); err != nil {
		span.RecordError(err)
		return err
	}

	recs, err := t.readLines()
	if err != nil {
		span.RecordError(err)
		return err
	}

	found := false
	for i, r := range recs {
		if r.Key() == key {
			recs[i] = rec
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("table %s key %s: %w", t.name, key, ErrNotFound)
	}

	if err := t.writeLines(recs); err != nil {
		span.RecordError(err)
		return err
	}
	t.store.logger.Debug("record updated",
		zap.String("table", t.name),
		zap.String("key", key))
	return nil
}

func (t *fileTable) UpdateField(ctx context.Context, key string, index int, value string) error {
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

func (t *fileTable) Delete(ctx context.Context, key string) error {
	ctx, span := t.store.tracer.Start(ctx, "store_delete",
		trace.WithAttributes(
			attribute.String("table", t.name),
			attribute.String("key", key)))
	defer span.End()

	recs, err := t.readLines()
	if err != nil {
		span.RecordError(err)
		return err
	}

	kept := recs[:0]
	found := false
	for _, r := range recs {
		if !found && r.Key() == key {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return fmt.Errorf("table %s key %s: %w", t.name, key, ErrNotFound)
	}

	if err := t.writeLines(kept); err != nil {
		span.RecordError(err)
		return err
	}
	t.store.logger.Debug("record deleted",
		zap.String("table", t.name),
		zap.String("key", key))
	return nil
}
