package controller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/clinicware/hms/internal/entity"
)

func mustParseDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(entity.DateLayout, s)
	require.NoError(t, err)
	return d
}

// fixedClock pins controller timestamps for deterministic records.
func fixedClock() time.Time {
	return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
}
