package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicware/hms/internal/entity"
	"github.com/clinicware/hms/internal/store"
)

func testBilling(t *testing.T) (*Billing, store.Store) {
	t.Helper()
	s := store.NewMemStore()
	return NewBilling(s, nil, nil).WithClock(fixedClock), s
}

func seedBill(t *testing.T, s store.Store, bill entity.Bill) {
	t.Helper()
	require.NoError(t, s.Table(store.TableBills).Append(context.Background(), bill.Record()))
}

func TestBillLifecycle(t *testing.T) {
	b, s := testBilling(t)
	ctx := context.Background()

	seedBill(t, s, entity.Bill{AppointmentID: "A1001", PatientID: "P200", Status: entity.BillProcessing, Datetime: fixedClock()})

	// A processing bill cannot be paid before pricing.
	_, err := b.Pay(ctx, "AD1", "A1001")
	assert.ErrorIs(t, err, ErrBillState)

	bill, err := b.SetCost(ctx, "AD1", "A1001", 149.5)
	require.NoError(t, err)
	assert.Equal(t, entity.BillBilled, bill.Status)
	assert.Equal(t, 149.5, bill.Cost)

	_, err = b.SetCost(ctx, "AD1", "A1001", 99.0)
	assert.ErrorIs(t, err, ErrBillState, "pricing happens once")

	bill, err = b.Pay(ctx, "AD1", "A1001")
	require.NoError(t, err)
	assert.Equal(t, entity.BillPaid, bill.Status)

	_, err = b.Pay(ctx, "AD1", "A1001")
	assert.ErrorIs(t, err, ErrBillState)
}

func TestSetCostValidation(t *testing.T) {
	b, s := testBilling(t)
	ctx := context.Background()

	seedBill(t, s, entity.Bill{AppointmentID: "A1001", PatientID: "P200", Status: entity.BillProcessing, Datetime: fixedClock()})

	_, err := b.SetCost(ctx, "AD1", "A1001", 0)
	assert.ErrorIs(t, err, store.ErrInvalidFormat)
	_, err = b.SetCost(ctx, "AD1", "A1001", -5)
	assert.ErrorIs(t, err, store.ErrInvalidFormat)
	_, err = b.SetCost(ctx, "AD1", "A9999", 10)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Sub-cent costs would not survive the two-decimal record format.
	_, err = b.SetCost(ctx, "AD1", "A1001", 12.345)
	assert.ErrorIs(t, err, store.ErrInvalidFormat)

	bill, err := b.SetCost(ctx, "AD1", "A1001", 12.34)
	require.NoError(t, err)
	assert.Equal(t, 12.34, bill.Cost)
}

func TestBillListings(t *testing.T) {
	b, s := testBilling(t)
	ctx := context.Background()

	seedBill(t, s, entity.Bill{AppointmentID: "A1001", PatientID: "P200", Status: entity.BillProcessing, Datetime: fixedClock()})
	seedBill(t, s, entity.Bill{AppointmentID: "A1002", PatientID: "P300", Status: entity.BillProcessing, Datetime: fixedClock()})

	_, err := b.SetCost(ctx, "AD1", "A1002", 80)
	require.NoError(t, err)

	processing, err := b.ListByStatus(ctx, entity.BillProcessing)
	require.NoError(t, err)
	require.Len(t, processing, 1)
	assert.Equal(t, "A1001", processing[0].AppointmentID)

	billed, err := b.ListByStatus(ctx, entity.BillBilled)
	require.NoError(t, err)
	require.Len(t, billed, 1)

	mine, err := b.ListByPatient(ctx, "P300")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "A1002", mine[0].AppointmentID)
}
