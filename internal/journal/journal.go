// Package journal keeps an append-only audit trail of record mutations.
// Every workflow transition and controller mutation lands here with who did
// it, to which table, and to which key.
package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clinicware/hms/internal/store"
	"github.com/clinicware/hms/pkg/uniq"
)

// Action classifies what happened to the record.
type Action string

const (
	ActionCreate     Action = "CREATE"
	ActionUpdate     Action = "UPDATE"
	ActionDelete     Action = "DELETE"
	ActionTransition Action = "TRANSITION"
)

// timeLayout carries seconds; journal entries are ordered within a minute.
const timeLayout = "02-01-2006 15:04:05"

// Entry is one audit record.
type Entry struct {
	ID     string
	Time   time.Time
	Actor  string
	Table  string
	Action Action
	Key    string
	Detail string
}

// Journal appends audit entries to its own table.
type Journal struct {
	table  store.Table
	logger *zap.Logger
	clock  func() time.Time
}

// New creates a journal writing to the given table.
func New(table store.Table, logger *zap.Logger) *Journal {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{
		table:  table,
		logger: logger,
		clock:  time.Now,
	}
}

// WithClock overrides the time source. For tests.
func (j *Journal) WithClock(clock func() time.Time) *Journal {
	j.clock = clock
	return j
}

// Record appends one audit entry.
func (j *Journal) Record(ctx context.Context, actor, table string, action Action, key, detail string) error {
	e := Entry{
		ID:     uniq.NewID(),
		Time:   j.clock(),
		Actor:  actor,
		Table:  table,
		Action: action,
		Key:    key,
		Detail: detail,
	}
	if err := j.table.Append(ctx, encode(e)); err != nil {
		return fmt.Errorf("journal append: %w", err)
	}
	j.logger.Debug("journal entry recorded",
		zap.String("actor", actor),
		zap.String("table", table),
		zap.String("action", string(action)),
		zap.String("key", key))
	return nil
}

// Recent returns the newest n entries, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]Entry, error) {
	recs, err := j.table.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, rec := range recs {
		e, err := parse(rec)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	// reverse to newest-first
	for i, jj := 0, len(entries)-1; i < jj; i, jj = i+1, jj-1 {
		entries[i], entries[jj] = entries[jj], entries[i]
	}
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// sanitize keeps free-text detail from breaking the line format.
func sanitize(s string) string {
	return strings.ReplaceAll(s, store.Delimiter, "/")
}

func encode(e Entry) store.Record {
	return store.Record{
		e.ID,
		e.Time.Format(timeLayout),
		e.Actor,
		e.Table,
		string(e.Action),
		e.Key,
		sanitize(e.Detail),
	}
}

func parse(rec store.Record) (Entry, error) {
	if len(rec) != 7 {
		return Entry{}, fmt.Errorf("%w: journal record has %d fields", store.ErrInvalidFormat, len(rec))
	}
	at, err := time.Parse(timeLayout, rec.Field(1))
	if err != nil {
		return Entry{}, fmt.Errorf("%w: bad journal timestamp %q", store.ErrInvalidFormat, rec.Field(1))
	}
	action := Action(rec.Field(4))
	switch action {
	case ActionCreate, ActionUpdate, ActionDelete, ActionTransition:
	default:
		return Entry{}, fmt.Errorf("%w: unknown journal action %q", store.ErrInvalidFormat, rec.Field(4))
	}
	return Entry{
		ID:     rec.Field(0),
		Time:   at,
		Actor:  rec.Field(2),
		Table:  rec.Field(3),
		Action: action,
		Key:    rec.Field(5),
		Detail: rec.Field(6),
	}, nil
}
