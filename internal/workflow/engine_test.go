package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicware/hms/internal/entity"
	"github.com/clinicware/hms/internal/journal"
	"github.com/clinicware/hms/internal/store"
)

func testEngine(t *testing.T) (*Engine, store.Store) {
	t.Helper()
	s := store.NewMemStore()
	jrnl := journal.New(s.Table(store.TableJournal), nil)
	e := NewEngine(s, jrnl, nil, nil).WithClock(func() time.Time {
		return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	})
	return e, s
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(entity.DateLayout, s)
	require.NoError(t, err)
	return d
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	tod, err := time.Parse(entity.TimeLayout, s)
	require.NoError(t, err)
	return tod
}

func TestCreateAvailability(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	appt, err := e.CreateAvailability(ctx, "D100", mustDate(t, "20-03-2026"), mustTime(t, "09:00"))
	require.NoError(t, err)
	assert.Equal(t, "A1001", appt.ID, "ids are sequential from A1001")
	assert.Equal(t, entity.StatusAvailable, appt.Status)
	assert.Empty(t, appt.PatientID)

	second, err := e.CreateAvailability(ctx, "D100", mustDate(t, "20-03-2026"), mustTime(t, "10:00"))
	require.NoError(t, err)
	assert.Equal(t, "A1002", second.ID)

	_, err = e.CreateAvailability(ctx, "D100", mustDate(t, "20-03-2026"), mustTime(t, "09:00"))
	assert.ErrorIs(t, err, ErrSlotConflict, "a doctor cannot hold two slots at the same time")

	// Another doctor may use the same time.
	_, err = e.CreateAvailability(ctx, "D200", mustDate(t, "20-03-2026"), mustTime(t, "09:00"))
	assert.NoError(t, err)
}

func TestBookingLifecycle(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	appt, err := e.CreateAvailability(ctx, "D100", mustDate(t, "20-03-2026"), mustTime(t, "09:00"))
	require.NoError(t, err)

	appt, err = e.RequestBooking(ctx, appt.ID, "P200", "knee pain")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPending, appt.Status)
	assert.Equal(t, "P200", appt.PatientID)
	assert.Equal(t, "knee pain", appt.RequestMessage)

	// A pending slot cannot be booked again or deleted.
	_, err = e.RequestBooking(ctx, appt.ID, "P300", "")
	assert.ErrorIs(t, err, ErrIllegalState)
	assert.ErrorIs(t, e.DeleteAvailability(ctx, appt.ID), ErrIllegalState)

	appt, err = e.AcceptBooking(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusBooked, appt.Status)
	assert.Empty(t, appt.RequestMessage, "accepting clears the request message")
	assert.Equal(t, "P200", appt.PatientID)

	// A booked slot refuses deletion and stays exactly as it was.
	assert.ErrorIs(t, e.DeleteAvailability(ctx, appt.ID), ErrIllegalState)
	kept, err := e.Get(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appt, kept)
}

func TestDeclineBookingReopensSlot(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	appt, err := e.CreateAvailability(ctx, "D100", mustDate(t, "20-03-2026"), mustTime(t, "09:00"))
	require.NoError(t, err)
	_, err = e.RequestBooking(ctx, appt.ID, "P200", "please")
	require.NoError(t, err)

	appt, err = e.DeclineBooking(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAvailable, appt.Status)
	assert.Empty(t, appt.PatientID, "an available slot never carries a patient")
	assert.Empty(t, appt.RequestMessage)

	// The reopened slot can be booked by someone else.
	_, err = e.RequestBooking(ctx, appt.ID, "P300", "")
	assert.NoError(t, err)
}

func TestCancelBooking(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	appt, err := e.CreateAvailability(ctx, "D100", mustDate(t, "20-03-2026"), mustTime(t, "09:00"))
	require.NoError(t, err)

	_, err = e.CancelBooking(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrIllegalState, "only booked appointments cancel")

	_, err = e.RequestBooking(ctx, appt.ID, "P200", "")
	require.NoError(t, err)
	_, err = e.AcceptBooking(ctx, appt.ID)
	require.NoError(t, err)

	appt, err = e.CancelBooking(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAvailable, appt.Status)
	assert.Empty(t, appt.PatientID)
}

func TestRescheduleAcceptMovesSlot(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	appt, err := e.CreateAvailability(ctx, "D100", mustDate(t, "20-03-2026"), mustTime(t, "09:00"))
	require.NoError(t, err)
	_, err = e.RequestBooking(ctx, appt.ID, "P200", "")
	require.NoError(t, err)
	_, err = e.AcceptBooking(ctx, appt.ID)
	require.NoError(t, err)

	appt, err = e.RequestReschedule(ctx, appt.ID, mustDate(t, "22-03-2026"), mustTime(t, "14:00"))
	require.NoError(t, err)
	assert.Equal(t, entity.StatusReschedule, appt.Status)
	assert.Equal(t, "22-03-2026 14:00", appt.RequestMessage, "the proposal rides in the message")

	appt, err = e.AcceptReschedule(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusBooked, appt.Status)
	assert.Equal(t, "22-03-2026", appt.Date.Format(entity.DateLayout))
	assert.Equal(t, "14:00", appt.Time.Format(entity.TimeLayout))
	assert.Empty(t, appt.RequestMessage)
	assert.Equal(t, "P200", appt.PatientID, "the patient keeps the slot")
}

func TestRescheduleDeclineKeepsSlot(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	appt, err := e.CreateAvailability(ctx, "D100", mustDate(t, "20-03-2026"), mustTime(t, "09:00"))
	require.NoError(t, err)
	_, err = e.RequestBooking(ctx, appt.ID, "P200", "")
	require.NoError(t, err)
	_, err = e.AcceptBooking(ctx, appt.ID)
	require.NoError(t, err)
	_, err = e.RequestReschedule(ctx, appt.ID, mustDate(t, "22-03-2026"), mustTime(t, "14:00"))
	require.NoError(t, err)

	appt, err = e.DeclineReschedule(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusBooked, appt.Status)
	assert.Equal(t, "20-03-2026", appt.Date.Format(entity.DateLayout), "declining keeps the original slot")
	assert.Equal(t, "09:00", appt.Time.Format(entity.TimeLayout))
}

func TestRescheduleAcceptRefusesOccupiedSlot(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	appt, err := e.CreateAvailability(ctx, "D100", mustDate(t, "20-03-2026"), mustTime(t, "09:00"))
	require.NoError(t, err)
	_, err = e.CreateAvailability(ctx, "D100", mustDate(t, "22-03-2026"), mustTime(t, "14:00"))
	require.NoError(t, err)

	_, err = e.RequestBooking(ctx, appt.ID, "P200", "")
	require.NoError(t, err)
	_, err = e.AcceptBooking(ctx, appt.ID)
	require.NoError(t, err)
	_, err = e.RequestReschedule(ctx, appt.ID, mustDate(t, "22-03-2026"), mustTime(t, "14:00"))
	require.NoError(t, err)

	_, err = e.AcceptReschedule(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestCompleteIssuesPrescriptionsAndBill(t *testing.T) {
	e, s := testEngine(t)
	ctx := context.Background()

	appt, err := e.CreateAvailability(ctx, "D100", mustDate(t, "20-03-2026"), mustTime(t, "09:00"))
	require.NoError(t, err)
	_, err = e.RequestBooking(ctx, appt.ID, "P200", "")
	require.NoError(t, err)
	_, err = e.AcceptBooking(ctx, appt.ID)
	require.NoError(t, err)

	outcome, err := e.Complete(ctx, appt.ID, "Consultation", "rest and fluids", []PrescriptionItem{
		{MedicineID: "M1", Quantity: 2},
		{MedicineID: "M2", Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"PR1001", "PR1002"}, outcome.PrescriptionIDs)
	assert.Equal(t, "P200", outcome.PatientID)

	rxRec, err := s.Table(store.TablePrescriptions).Find(ctx, "PR1001")
	require.NoError(t, err)
	rx, err := entity.ParsePrescription(rxRec)
	require.NoError(t, err)
	assert.Equal(t, entity.PrescriptionPending, rx.Status)
	assert.Equal(t, "M1", rx.MedicineID)
	assert.Equal(t, 2, rx.Quantity)

	billRec, err := s.Table(store.TableBills).Find(ctx, appt.ID)
	require.NoError(t, err)
	bill, err := entity.ParseBill(billRec)
	require.NoError(t, err)
	assert.Equal(t, entity.BillProcessing, bill.Status)
	assert.Equal(t, 0.0, bill.Cost)
	assert.Equal(t, "P200", bill.PatientID)

	done, err := e.Completed(ctx, appt.ID)
	require.NoError(t, err)
	assert.True(t, done)

	// Terminal: no transition works anymore.
	_, err = e.Complete(ctx, appt.ID, "Consultation", "", nil)
	assert.ErrorIs(t, err, ErrIllegalState)
	_, err = e.CancelBooking(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrIllegalState)
	_, err = e.RequestReschedule(ctx, appt.ID, mustDate(t, "25-03-2026"), mustTime(t, "10:00"))
	assert.ErrorIs(t, err, ErrIllegalState)
}

func TestCompleteRequiresBookedStatus(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	appt, err := e.CreateAvailability(ctx, "D100", mustDate(t, "20-03-2026"), mustTime(t, "09:00"))
	require.NoError(t, err)

	_, err = e.Complete(ctx, appt.ID, "Consultation", "", nil)
	assert.ErrorIs(t, err, ErrIllegalState)

	_, err = e.Complete(ctx, appt.ID, "Consultation", "", []PrescriptionItem{{MedicineID: "", Quantity: 1}})
	assert.Error(t, err)
}

func TestDeleteAvailability(t *testing.T) {
	e, s := testEngine(t)
	ctx := context.Background()

	appt, err := e.CreateAvailability(ctx, "D100", mustDate(t, "20-03-2026"), mustTime(t, "09:00"))
	require.NoError(t, err)

	require.NoError(t, e.DeleteAvailability(ctx, appt.ID))
	_, err = s.Table(store.TableAppointments).Find(ctx, appt.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = e.DeleteAvailability(ctx, appt.ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "deleting a missing slot reports not found")
}

func TestListByDoctorPartitionsByStatus(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	open, err := e.CreateAvailability(ctx, "D100", mustDate(t, "20-03-2026"), mustTime(t, "09:00"))
	require.NoError(t, err)
	pending, err := e.CreateAvailability(ctx, "D100", mustDate(t, "20-03-2026"), mustTime(t, "10:00"))
	require.NoError(t, err)
	booked, err := e.CreateAvailability(ctx, "D100", mustDate(t, "20-03-2026"), mustTime(t, "11:00"))
	require.NoError(t, err)
	_, err = e.CreateAvailability(ctx, "D999", mustDate(t, "20-03-2026"), mustTime(t, "09:00"))
	require.NoError(t, err)

	_, err = e.RequestBooking(ctx, pending.ID, "P200", "")
	require.NoError(t, err)
	_, err = e.RequestBooking(ctx, booked.ID, "P300", "")
	require.NoError(t, err)
	_, err = e.AcceptBooking(ctx, booked.ID)
	require.NoError(t, err)

	p, err := e.ListByDoctor(ctx, "D100")
	require.NoError(t, err)
	require.Len(t, p.Available, 1)
	require.Len(t, p.Pending, 1)
	require.Len(t, p.Booked, 1)
	assert.Empty(t, p.Reschedule)
	assert.Equal(t, open.ID, p.Available[0].ID)
	assert.Equal(t, pending.ID, p.Pending[0].ID)
	assert.Equal(t, booked.ID, p.Booked[0].ID)

	mine, err := e.ListByPatient(ctx, "P300")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, booked.ID, mine[0].ID)

	all, err := e.ListAvailable(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2, "one open slot per doctor remains")
}
