package serial

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicware/hms/internal/store"
)

func TestCoordinatorRunsOpsInOrder(t *testing.T) {
	c := New(DefaultConfig(), nil)
	c.Start()
	defer c.Stop()

	ctx := context.Background()
	var order []int
	for i := 0; i < 10; i++ {
		i := i
		require.NoError(t, c.Do(ctx, "op", func(ctx context.Context) error {
			order = append(order, i)
			return nil
		}))
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestCoordinatorCountsFailures(t *testing.T) {
	c := New(Config{QueueSize: 4}, nil)
	c.Start()
	defer c.Stop()

	ctx := context.Background()
	boom := errors.New("boom")

	require.NoError(t, c.Do(ctx, "ok", func(ctx context.Context) error { return nil }))
	err := c.Do(ctx, "fail", func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom, "the op's error comes back to the caller")

	submitted, completed, failed := c.Stats()
	assert.EqualValues(t, 2, submitted)
	assert.EqualValues(t, 1, completed)
	assert.EqualValues(t, 1, failed)
}

func TestCoordinatorRejectsAfterStop(t *testing.T) {
	c := New(DefaultConfig(), nil)
	c.Start()
	require.NoError(t, c.Stop())

	err := c.Do(context.Background(), "late", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrStopped)
	require.NoError(t, c.Stop(), "second stop is a no-op")
}

func TestStopRacingDoRejectsInsteadOfPanicking(t *testing.T) {
	ctx := context.Background()
	for iter := 0; iter < 50; iter++ {
		c := New(Config{QueueSize: 2}, nil)
		c.Start()

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					err := c.Do(ctx, "op", func(ctx context.Context) error { return nil })
					if err != nil {
						assert.ErrorIs(t, err, ErrStopped)
						return
					}
				}
			}()
		}
		require.NoError(t, c.Stop())
		wg.Wait()
	}
}

func TestWrapStoreSerializesMutations(t *testing.T) {
	c := New(DefaultConfig(), nil)
	c.Start()
	defer c.Stop()

	s := WrapStore(store.NewMemStore(), c)
	tbl := s.Table("serialized")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('A' + i))
			assert.NoError(t, tbl.Append(ctx, store.Record{key, "v"}))
		}(i)
	}
	wg.Wait()

	recs, err := tbl.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 20)

	submitted, completed, _ := c.Stats()
	assert.EqualValues(t, 20, submitted)
	assert.EqualValues(t, 20, completed)
}
