package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicware/hms/internal/store"
)

func testJournal(t *testing.T) (*Journal, store.Store) {
	t.Helper()
	s := store.NewMemStore()
	at := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	j := New(s.Table(store.TableJournal), nil).WithClock(func() time.Time {
		at = at.Add(time.Second)
		return at
	})
	return j, s
}

func TestRecordAndRecent(t *testing.T) {
	j, _ := testJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, "D100", store.TableAppointments, ActionCreate, "A1001", "availability created"))
	require.NoError(t, j.Record(ctx, "P200", store.TableAppointments, ActionTransition, "A1001", "booking requested"))
	require.NoError(t, j.Record(ctx, "D100", store.TableAppointments, ActionTransition, "A1001", "booking accepted"))

	entries, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "booking accepted", entries[0].Detail, "newest first")
	assert.Equal(t, "booking requested", entries[1].Detail)

	all, err := j.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3, "zero means everything")
}

func TestDetailSanitized(t *testing.T) {
	j, s := testJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, "P200", store.TableFeedback, ActionCreate, "f-1", "said|odd things"))

	recs, err := s.Table(store.TableJournal).ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "said/odd things", recs[0].Field(6), "delimiters in free text are replaced")

	entries, err := j.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "said/odd things", entries[0].Detail)
}

func TestParseRejectsUnknownAction(t *testing.T) {
	j, s := testJournal(t)
	ctx := context.Background()

	rec := store.Record{"id-1", "15-03-2026 12:00:01", "D100", store.TableBills, "EXPLODE", "B1", "detail"}
	require.NoError(t, s.Table(store.TableJournal).Append(ctx, rec))

	_, err := j.Recent(ctx, 0)
	assert.ErrorIs(t, err, store.ErrInvalidFormat)
}
