package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicware/hms/internal/store"
)

func TestFeedbackAverage(t *testing.T) {
	ctx := context.Background()
	fb := NewFeedback(store.NewMemStore(), nil, nil).WithClock(fixedClock)

	avg, n, err := fb.AverageRating(ctx, "D100")
	require.NoError(t, err)
	assert.Zero(t, avg)
	assert.Zero(t, n)

	_, err = fb.Submit(ctx, "P200", "D100", 8, "very thorough")
	require.NoError(t, err)
	_, err = fb.Submit(ctx, "P300", "D100", 5, "")
	require.NoError(t, err)
	_, err = fb.Submit(ctx, "P200", "D999", 10, "")
	require.NoError(t, err)

	avg, n, err = fb.AverageRating(ctx, "D100")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.InDelta(t, 6.5, avg, 0.001)

	list, err := fb.ListByDoctor(ctx, "D100")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "very thorough", list[0].Comments)
}

func TestFeedbackRatingValidation(t *testing.T) {
	ctx := context.Background()
	fb := NewFeedback(store.NewMemStore(), nil, nil).WithClock(fixedClock)

	_, err := fb.Submit(ctx, "P200", "D100", 0, "")
	assert.ErrorIs(t, err, store.ErrInvalidFormat)
	_, err = fb.Submit(ctx, "P200", "D100", 11, "")
	assert.ErrorIs(t, err, store.ErrInvalidFormat)
}
