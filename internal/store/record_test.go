package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordValidate(t *testing.T) {
	assert.NoError(t, Record{"K", "a", "b"}.Validate())
	assert.ErrorIs(t, Record{}.Validate(), ErrInvalidFormat)
	assert.ErrorIs(t, Record{"", "a"}.Validate(), ErrInvalidFormat)
	assert.ErrorIs(t, Record{"K", "a|b"}.Validate(), ErrInvalidFormat)
	assert.ErrorIs(t, Record{"K|", "a"}.Validate(), ErrInvalidFormat)
}

func TestRecordJoinParseRoundTrip(t *testing.T) {
	rec := Record{"A1001", "D100", "-", "01-02-2026", "09:30", "AVAILABLE", "-"}
	parsed, err := ParseLine(rec.Join())
	require.NoError(t, err)
	assert.Equal(t, rec, parsed)
}

func TestParseLineBlank(t *testing.T) {
	_, err := ParseLine("")
	assert.ErrorIs(t, err, ErrInvalidFormat)
	_, err = ParseLine("   ")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestRecordFieldOutOfRange(t *testing.T) {
	rec := Record{"K", "v"}
	assert.Equal(t, "v", rec.Field(1))
	assert.Equal(t, "", rec.Field(2))
	assert.Equal(t, "", rec.Field(-1))
}
