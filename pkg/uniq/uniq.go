// Package uniq enforces key uniqueness ahead of table appends and allocates
// record identifiers. The store itself never deduplicates keys; callers
// reserve them here first.
package uniq

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/clinicware/hms/internal/store"
)

// ErrDuplicateKey indicates the key is already present in the table.
var ErrDuplicateKey = errors.New("duplicate key: already present")

// Guard checks a table for key collisions before appending. The
// check-then-append window is safe under the single-writer discipline the
// rest of the system runs with.
type Guard struct {
	table  store.Table
	name   string
	logger *zap.Logger
	tracer trace.Tracer
}

// NewGuard creates a guard over the given table.
func NewGuard(table store.Table, name string, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		table:  table,
		name:   name,
		logger: logger,
		tracer: otel.Tracer("uniq"),
	}
}

// Ensure fails with ErrDuplicateKey when key already exists in the table.
func (g *Guard) Ensure(ctx context.Context, key string) error {
	ctx, span := g.tracer.Start(ctx, "uniq_ensure",
		trace.WithAttributes(
			attribute.String("table", g.name),
			attribute.String("key", key)))
	defer span.End()

	_, err := g.table.Find(ctx, key)
	if err == nil {
		span.SetAttributes(attribute.Bool("duplicate", true))
		return fmt.Errorf("table %s key %s: %w", g.name, key, ErrDuplicateKey)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("check key %s: %w", key, err)
}

// Reserve appends rec only if its key is not yet present.
func (g *Guard) Reserve(ctx context.Context, rec store.Record) error {
	if err := g.Ensure(ctx, rec.Key()); err != nil {
		return err
	}
	if err := g.table.Append(ctx, rec); err != nil {
		return err
	}
	g.logger.Debug("key reserved",
		zap.String("table", g.name),
		zap.String("key", rec.Key()))
	return nil
}

// Allocator hands out sequential, prefixed record IDs ("A1001", "A1002", ...)
// by scanning the table for the highest suffix in use.
type Allocator struct {
	table  store.Table
	prefix string
	start  int
}

// NewAllocator creates an allocator for the table. IDs start at prefix+start+1.
func NewAllocator(table store.Table, prefix string, start int) *Allocator {
	if start <= 0 {
		start = 1000
	}
	return &Allocator{table: table, prefix: prefix, start: start}
}

// Next returns the next unused ID for the table.
func (a *Allocator) Next(ctx context.Context) (string, error) {
	recs, err := a.table.ReadAll(ctx)
	if err != nil {
		return "", fmt.Errorf("allocate id: %w", err)
	}

	max := a.start
	for _, rec := range recs {
		key := rec.Key()
		if !strings.HasPrefix(key, a.prefix) {
			continue
		}
		n, err := strconv.Atoi(key[len(a.prefix):])
		if err != nil {
			continue // foreign key shape, not ours to count
		}
		if n > max {
			max = n
		}
	}
	return a.prefix + strconv.Itoa(max+1), nil
}

// NewID returns a random identifier for records that have no sequential
// ID scheme (journal entries, feedback).
func NewID() string {
	return uuid.New().String()
}
