package breaker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicware/hms/internal/store"
)

func TestBreakerTripsOnConsecutiveFailures(t *testing.T) {
	cb := New(DefaultConfig("appointments"), nil)
	ctx := context.Background()
	boom := errors.New("disk gone")

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(ctx, func() (interface{}, error) { return nil, boom })
		assert.ErrorIs(t, err, boom)
	}

	assert.True(t, cb.IsOpen(), "three consecutive failures open the circuit")

	_, err := cb.Execute(ctx, func() (interface{}, error) { return "ok", nil })
	assert.Error(t, err, "open circuit fails fast")
}

func TestContractErrorsDoNotTrip(t *testing.T) {
	cb := New(DefaultConfig("appointments"), nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := cb.Execute(ctx, func() (interface{}, error) { return nil, store.ErrNotFound })
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = cb.Execute(ctx, func() (interface{}, error) { return nil, store.ErrInvalidFormat })
		assert.ErrorIs(t, err, store.ErrInvalidFormat)
	}

	assert.False(t, cb.IsOpen(), "missing keys and bad records are not backend failures")
}

func TestManagerReusesBreakersPerTable(t *testing.T) {
	m := NewManager(nil)
	a := m.GetOrCreate("appointments")
	b := m.GetOrCreate("appointments")
	c := m.GetOrCreate("bills")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)

	statuses := m.GetHealthStatus()
	assert.Len(t, statuses, 2)
	for _, st := range statuses {
		assert.True(t, st.Healthy)
	}

	boom := errors.New("disk gone")
	for i := 0; i < 3; i++ {
		_, _ = a.Execute(context.Background(), func() (interface{}, error) { return nil, boom })
	}
	for _, st := range m.GetHealthStatus() {
		if st.Name == "appointments" {
			assert.False(t, st.Healthy, "tripped breaker reports unhealthy")
			assert.Equal(t, StateOpen, st.State)
		}
	}
}

func TestWrapStoreKeepsTableContract(t *testing.T) {
	ctx := context.Background()
	s := WrapStore(store.NewMemStore(), NewManager(nil))
	tbl := s.Table("guarded")

	require.NoError(t, tbl.Append(ctx, store.Record{"K", "v"}))

	rec, err := tbl.Find(ctx, "K")
	require.NoError(t, err)
	assert.Equal(t, store.Record{"K", "v"}, rec)

	_, err = tbl.Find(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, tbl.UpdateField(ctx, "K", 1, "w"))
	require.NoError(t, tbl.Delete(ctx, "K"))

	recs, err := tbl.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
