package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicware/hms/internal/store"
)

func TestMedicalRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	records := NewMedicalRecords(store.NewMemStore(), nil, nil)

	mr, err := records.Create(ctx, "D100", "P200", "penicillin", "chronic migraine")
	require.NoError(t, err)
	assert.Equal(t, "MR1001", mr.ID)

	second, err := records.Create(ctx, "D100", "P200", "", "follow-up sheet")
	require.NoError(t, err)
	assert.Equal(t, "MR1002", second.ID, "a patient can hold several records")

	mr, err = records.AttachOutcome(ctx, "D100", mr.ID, "A1001")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1001"}, mr.OutcomeIDs)

	mr, err = records.AttachOutcome(ctx, "D100", mr.ID, "A1001")
	require.NoError(t, err)
	assert.Len(t, mr.OutcomeIDs, 1, "attaching twice is a no-op")

	mr, err = records.Update(ctx, "D100", mr.ID, "penicillin, latex", "migraine resolved")
	require.NoError(t, err)
	assert.Equal(t, "migraine resolved", mr.Notes)

	mine, err := records.ListByPatient(ctx, "P200")
	require.NoError(t, err)
	require.Len(t, mine, 2)

	require.NoError(t, records.Delete(ctx, "D100", second.ID))
	mine, err = records.ListByPatient(ctx, "P200")
	require.NoError(t, err)
	require.Len(t, mine, 1)

	err = records.Delete(ctx, "D100", second.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMedicalRecordRequiresPatient(t *testing.T) {
	ctx := context.Background()
	records := NewMedicalRecords(store.NewMemStore(), nil, nil)

	_, err := records.Create(ctx, "D100", "", "", "")
	assert.ErrorIs(t, err, store.ErrInvalidFormat)
}
