package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicware/hms/internal/entity"
	"github.com/clinicware/hms/internal/store"
)

func testPharmacy(t *testing.T) (*Pharmacy, *Inventory, store.Store) {
	t.Helper()
	s := store.NewMemStore()
	inv := NewInventory(s, nil, nil, nil)
	return NewPharmacy(s, inv, nil, nil, nil), inv, s
}

func seedPrescription(t *testing.T, s store.Store, rx entity.Prescription) {
	t.Helper()
	require.NoError(t, s.Table(store.TablePrescriptions).Append(context.Background(), rx.Record()))
}

func TestDispenseDeductsStock(t *testing.T) {
	ph, inv, s := testPharmacy(t)
	ctx := context.Background()

	require.NoError(t, inv.Add(ctx, "PH1", paracetamol(10, 2)))
	seedPrescription(t, s, entity.Prescription{ID: "PR1001", MedicineID: "M1", Quantity: 4, Status: entity.PrescriptionPending})

	rx, err := ph.Dispense(ctx, "PH1", "PR1001")
	require.NoError(t, err)
	assert.Equal(t, entity.PrescriptionDispensed, rx.Status)

	med, err := inv.Get(ctx, "M1")
	require.NoError(t, err)
	assert.Equal(t, 6, med.StockLevel)

	_, err = ph.Dispense(ctx, "PH1", "PR1001")
	assert.ErrorIs(t, err, ErrAlreadyDispensed)
}

func TestDispenseShortfallLeavesPrescriptionPending(t *testing.T) {
	ph, inv, s := testPharmacy(t)
	ctx := context.Background()

	require.NoError(t, inv.Add(ctx, "PH1", paracetamol(2, 1)))
	seedPrescription(t, s, entity.Prescription{ID: "PR1001", MedicineID: "M1", Quantity: 5, Status: entity.PrescriptionPending})

	_, err := ph.Dispense(ctx, "PH1", "PR1001")
	assert.ErrorIs(t, err, ErrInsufficientStock)

	rx, err := ph.Get(ctx, "PR1001")
	require.NoError(t, err)
	assert.Equal(t, entity.PrescriptionPending, rx.Status, "stock shortfall must not flip the prescription")

	med, err := inv.Get(ctx, "M1")
	require.NoError(t, err)
	assert.Equal(t, 2, med.StockLevel)
}

func TestPendingListsOnlyUndispensed(t *testing.T) {
	ph, _, s := testPharmacy(t)
	ctx := context.Background()

	seedPrescription(t, s, entity.Prescription{ID: "PR1001", MedicineID: "M1", Quantity: 1, Status: entity.PrescriptionPending})
	seedPrescription(t, s, entity.Prescription{ID: "PR1002", MedicineID: "M2", Quantity: 1, Status: entity.PrescriptionDispensed})

	pending, err := ph.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "PR1001", pending[0].ID)
}

func TestDispenseOutcomeBatch(t *testing.T) {
	ph, inv, s := testPharmacy(t)
	ctx := context.Background()

	require.NoError(t, inv.Add(ctx, "PH1", paracetamol(10, 2)))
	require.NoError(t, inv.Add(ctx, "PH1", entity.Medicine{ID: "M2", Name: "Ibuprofen", Type: "NSAID", StockLevel: 10, LowStockLevel: 2}))

	seedPrescription(t, s, entity.Prescription{ID: "PR1001", MedicineID: "M1", Quantity: 2, Status: entity.PrescriptionPending})
	seedPrescription(t, s, entity.Prescription{ID: "PR1002", MedicineID: "M2", Quantity: 3, Status: entity.PrescriptionDispensed})
	seedPrescription(t, s, entity.Prescription{ID: "PR1003", MedicineID: "M2", Quantity: 1, Status: entity.PrescriptionPending})

	outcome := entity.Outcome{
		AppointmentID:   "A1001",
		DoctorID:        "D100",
		PatientID:       "P200",
		Date:            mustParseDate(t, "20-03-2026"),
		PrescriptionIDs: []string{"PR1001", "PR1002", "PR1003"},
	}
	require.NoError(t, s.Table(store.TableOutcomes).Append(ctx, outcome.Record()))

	done, err := ph.DispenseOutcome(ctx, "PH1", "A1001")
	require.NoError(t, err)
	require.Len(t, done, 2, "already dispensed lines are skipped")
	assert.Equal(t, "PR1001", done[0].ID)
	assert.Equal(t, "PR1003", done[1].ID)
}
