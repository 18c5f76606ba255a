// Package workflow drives the appointment lifecycle. A slot moves
// AVAILABLE -> PENDING -> BOOKED, may detour through RESCHEDULE, and ends
// when an outcome is recorded. Every transition is validated here; the
// store itself accepts any record it is handed.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/clinicware/hms/internal/entity"
	"github.com/clinicware/hms/internal/journal"
	"github.com/clinicware/hms/internal/observability/metrics"
	"github.com/clinicware/hms/internal/store"
	"github.com/clinicware/hms/pkg/uniq"
)

// ErrIllegalState indicates a transition the current status does not allow.
var ErrIllegalState = errors.New("illegal appointment state transition")

// ErrSlotConflict indicates another appointment already occupies the
// doctor/date/time slot.
var ErrSlotConflict = errors.New("slot conflict: doctor already has an appointment at this time")

// PrescriptionItem is one line of a prescription order attached to an
// appointment outcome.
type PrescriptionItem struct {
	MedicineID string
	Quantity   int
}

// Partition groups a doctor's appointments by status.
type Partition struct {
	Available  []entity.Appointment
	Pending    []entity.Appointment
	Booked     []entity.Appointment
	Reschedule []entity.Appointment
}

// Engine owns the appointment, outcome, prescription and bill tables.
type Engine struct {
	appointments  store.Table
	outcomes      store.Table
	prescriptions store.Table
	bills         store.Table

	apptGuard    *uniq.Guard
	outcomeGuard *uniq.Guard
	apptIDs      *uniq.Allocator
	rxIDs        *uniq.Allocator

	journal *journal.Journal
	metrics *metrics.Metrics
	logger  *zap.Logger
	tracer  trace.Tracer
	clock   func() time.Time
}

// NewEngine creates the workflow engine over the given store. journal and
// m may be nil; auditing and counting are then skipped.
func NewEngine(s store.Store, jrnl *journal.Journal, m *metrics.Metrics, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	appts := s.Table(store.TableAppointments)
	outcomes := s.Table(store.TableOutcomes)
	return &Engine{
		appointments:  appts,
		outcomes:      outcomes,
		prescriptions: s.Table(store.TablePrescriptions),
		bills:         s.Table(store.TableBills),
		apptGuard:     uniq.NewGuard(appts, store.TableAppointments, logger),
		outcomeGuard:  uniq.NewGuard(outcomes, store.TableOutcomes, logger),
		apptIDs:       uniq.NewAllocator(appts, "A", 1000),
		rxIDs:         uniq.NewAllocator(s.Table(store.TablePrescriptions), "PR", 1000),
		journal:       jrnl,
		metrics:       m,
		logger:        logger,
		tracer:        otel.Tracer("workflow"),
		clock:         time.Now,
	}
}

// WithClock overrides the time source. For tests.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// Get returns the appointment with the given ID.
func (e *Engine) Get(ctx context.Context, id string) (entity.Appointment, error) {
	rec, err := e.appointments.Find(ctx, id)
	if err != nil {
		return entity.Appointment{}, fmt.Errorf("appointment %s: %w", id, err)
	}
	return entity.ParseAppointment(rec)
}

// Completed reports whether an outcome exists for the appointment. An
// appointment with an outcome is terminal and refuses every transition.
func (e *Engine) Completed(ctx context.Context, id string) (bool, error) {
	_, err := e.outcomes.Find(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// CreateAvailability opens a new slot for the doctor. The doctor may not
// hold two appointments at the same date and time.
func (e *Engine) CreateAvailability(ctx context.Context, doctorID string, date, timeOfDay time.Time) (entity.Appointment, error) {
	ctx, span := e.tracer.Start(ctx, "create_availability",
		trace.WithAttributes(attribute.String("doctor_id", doctorID)))
	defer span.End()

	appt := entity.Appointment{
		DoctorID: doctorID,
		Date:     date,
		Time:     timeOfDay,
		Status:   entity.StatusAvailable,
	}

	existing, err := e.all(ctx)
	if err != nil {
		return entity.Appointment{}, err
	}
	for _, other := range existing {
		if appt.SameSlot(other) {
			return entity.Appointment{}, fmt.Errorf("doctor %s at %s %s: %w",
				doctorID, date.Format(entity.DateLayout), timeOfDay.Format(entity.TimeLayout), ErrSlotConflict)
		}
	}

	appt.ID, err = e.apptIDs.Next(ctx)
	if err != nil {
		return entity.Appointment{}, err
	}
	if err := e.apptGuard.Reserve(ctx, appt.Record()); err != nil {
		return entity.Appointment{}, err
	}

	e.audit(ctx, doctorID, journal.ActionCreate, appt.ID, "availability created")
	e.bump(func(m *metrics.Metrics) { m.SlotsCreated.Inc() })
	e.logger.Info("availability created",
		zap.String("appointment_id", appt.ID),
		zap.String("doctor_id", doctorID))
	return appt, nil
}

// DeleteAvailability removes an open slot. Anything other than AVAILABLE
// refuses deletion; the store stays byte-for-byte untouched.
func (e *Engine) DeleteAvailability(ctx context.Context, id string) error {
	appt, err := e.Get(ctx, id)
	if err != nil {
		return err
	}
	if appt.Status != entity.StatusAvailable {
		return fmt.Errorf("delete appointment %s in status %s: %w", id, appt.Status, ErrIllegalState)
	}
	if err := e.appointments.Delete(ctx, id); err != nil {
		return err
	}
	e.audit(ctx, appt.DoctorID, journal.ActionDelete, id, "availability removed")
	return nil
}

// RequestBooking places a patient's booking request on an open slot.
func (e *Engine) RequestBooking(ctx context.Context, id, patientID, message string) (entity.Appointment, error) {
	appt, err := e.Get(ctx, id)
	if err != nil {
		return entity.Appointment{}, err
	}
	if appt.Status != entity.StatusAvailable {
		return entity.Appointment{}, fmt.Errorf("book appointment %s in status %s: %w", id, appt.Status, ErrIllegalState)
	}

	appt.PatientID = patientID
	appt.RequestMessage = message
	appt.Status = entity.StatusPending
	if err := e.put(ctx, appt); err != nil {
		return entity.Appointment{}, err
	}

	e.audit(ctx, patientID, journal.ActionTransition, id, "booking requested")
	e.bump(func(m *metrics.Metrics) { m.BookingsRequested.Inc() })
	return appt, nil
}

// AcceptBooking confirms a pending booking request.
func (e *Engine) AcceptBooking(ctx context.Context, id string) (entity.Appointment, error) {
	appt, err := e.pending(ctx, id, "accept")
	if err != nil {
		return entity.Appointment{}, err
	}

	appt.Status = entity.StatusBooked
	appt.RequestMessage = ""
	if err := e.put(ctx, appt); err != nil {
		return entity.Appointment{}, err
	}

	e.audit(ctx, appt.DoctorID, journal.ActionTransition, id, "booking accepted")
	e.bump(func(m *metrics.Metrics) { m.BookingsAccepted.Inc() })
	return appt, nil
}

// DeclineBooking rejects a pending booking request and reopens the slot.
func (e *Engine) DeclineBooking(ctx context.Context, id string) (entity.Appointment, error) {
	appt, err := e.pending(ctx, id, "decline")
	if err != nil {
		return entity.Appointment{}, err
	}

	actor := appt.DoctorID
	appt.PatientID = ""
	appt.RequestMessage = ""
	appt.Status = entity.StatusAvailable
	if err := e.put(ctx, appt); err != nil {
		return entity.Appointment{}, err
	}

	e.audit(ctx, actor, journal.ActionTransition, id, "booking declined")
	e.bump(func(m *metrics.Metrics) { m.BookingsDeclined.Inc() })
	return appt, nil
}

// CancelBooking releases a booked slot back to AVAILABLE. Only a booked,
// not yet completed appointment may be cancelled.
func (e *Engine) CancelBooking(ctx context.Context, id string) (entity.Appointment, error) {
	appt, err := e.Get(ctx, id)
	if err != nil {
		return entity.Appointment{}, err
	}
	if appt.Status != entity.StatusBooked {
		return entity.Appointment{}, fmt.Errorf("cancel appointment %s in status %s: %w", id, appt.Status, ErrIllegalState)
	}
	if err := e.ensureOpen(ctx, id); err != nil {
		return entity.Appointment{}, err
	}

	actor := appt.PatientID
	appt.PatientID = ""
	appt.RequestMessage = ""
	appt.Status = entity.StatusAvailable
	if err := e.put(ctx, appt); err != nil {
		return entity.Appointment{}, err
	}

	e.audit(ctx, actor, journal.ActionTransition, id, "booking cancelled")
	e.bump(func(m *metrics.Metrics) { m.BookingsCancelled.Inc() })
	return appt, nil
}

// RequestReschedule asks to move a booked appointment to a new date and
// time. The proposal rides in the request message until the doctor decides.
func (e *Engine) RequestReschedule(ctx context.Context, id string, newDate, newTime time.Time) (entity.Appointment, error) {
	appt, err := e.Get(ctx, id)
	if err != nil {
		return entity.Appointment{}, err
	}
	if appt.Status != entity.StatusBooked {
		return entity.Appointment{}, fmt.Errorf("reschedule appointment %s in status %s: %w", id, appt.Status, ErrIllegalState)
	}
	if err := e.ensureOpen(ctx, id); err != nil {
		return entity.Appointment{}, err
	}

	appt.Status = entity.StatusReschedule
	appt.RequestMessage = newDate.Format(entity.DateLayout) + " " + newTime.Format(entity.TimeLayout)
	if err := e.put(ctx, appt); err != nil {
		return entity.Appointment{}, err
	}

	e.audit(ctx, appt.PatientID, journal.ActionTransition, id, "reschedule to "+appt.RequestMessage)
	e.bump(func(m *metrics.Metrics) { m.ReschedulesRequested.Inc() })
	return appt, nil
}

// AcceptReschedule moves the appointment to the proposed slot and returns
// it to BOOKED. The proposal must still be a free slot for the doctor.
func (e *Engine) AcceptReschedule(ctx context.Context, id string) (entity.Appointment, error) {
	appt, err := e.Get(ctx, id)
	if err != nil {
		return entity.Appointment{}, err
	}
	if appt.Status != entity.StatusReschedule {
		return entity.Appointment{}, fmt.Errorf("accept reschedule of appointment %s in status %s: %w", id, appt.Status, ErrIllegalState)
	}

	proposed, err := time.Parse(entity.DateTimeLayout, appt.RequestMessage)
	if err != nil {
		return entity.Appointment{}, fmt.Errorf("%w: bad reschedule proposal %q", store.ErrInvalidFormat, appt.RequestMessage)
	}
	moved := appt
	moved.Date = time.Date(proposed.Year(), proposed.Month(), proposed.Day(), 0, 0, 0, 0, time.UTC)
	moved.Time = time.Date(0, time.January, 1, proposed.Hour(), proposed.Minute(), 0, 0, time.UTC)

	existing, err := e.all(ctx)
	if err != nil {
		return entity.Appointment{}, err
	}
	for _, other := range existing {
		if other.ID != appt.ID && moved.SameSlot(other) {
			return entity.Appointment{}, fmt.Errorf("doctor %s at %s: %w",
				appt.DoctorID, appt.RequestMessage, ErrSlotConflict)
		}
	}

	moved.Status = entity.StatusBooked
	moved.RequestMessage = ""
	if err := e.put(ctx, moved); err != nil {
		return entity.Appointment{}, err
	}

	e.audit(ctx, appt.DoctorID, journal.ActionTransition, id, "reschedule accepted")
	return moved, nil
}

// DeclineReschedule keeps the original slot and returns the appointment to
// BOOKED.
func (e *Engine) DeclineReschedule(ctx context.Context, id string) (entity.Appointment, error) {
	appt, err := e.Get(ctx, id)
	if err != nil {
		return entity.Appointment{}, err
	}
	if appt.Status != entity.StatusReschedule {
		return entity.Appointment{}, fmt.Errorf("decline reschedule of appointment %s in status %s: %w", id, appt.Status, ErrIllegalState)
	}

	appt.Status = entity.StatusBooked
	appt.RequestMessage = ""
	if err := e.put(ctx, appt); err != nil {
		return entity.Appointment{}, err
	}

	e.audit(ctx, appt.DoctorID, journal.ActionTransition, id, "reschedule declined")
	return appt, nil
}

// Complete records the outcome of a booked appointment, issues pending
// prescriptions for the ordered items and opens a bill in PROCESSING. Once
// an outcome exists the appointment is terminal.
func (e *Engine) Complete(ctx context.Context, id, serviceType, notes string, items []PrescriptionItem) (entity.Outcome, error) {
	ctx, span := e.tracer.Start(ctx, "complete_appointment",
		trace.WithAttributes(attribute.String("appointment_id", id)))
	defer span.End()

	appt, err := e.Get(ctx, id)
	if err != nil {
		return entity.Outcome{}, err
	}
	if appt.Status != entity.StatusBooked {
		return entity.Outcome{}, fmt.Errorf("complete appointment %s in status %s: %w", id, appt.Status, ErrIllegalState)
	}
	if err := e.ensureOpen(ctx, id); err != nil {
		return entity.Outcome{}, err
	}
	for _, item := range items {
		if strings.TrimSpace(item.MedicineID) == "" || item.Quantity <= 0 {
			return entity.Outcome{}, fmt.Errorf("%w: prescription item needs a medicine and a positive quantity", store.ErrInvalidFormat)
		}
	}

	var rxIDs []string
	for _, item := range items {
		rxID, err := e.rxIDs.Next(ctx)
		if err != nil {
			return entity.Outcome{}, err
		}
		rx := entity.Prescription{
			ID:         rxID,
			MedicineID: item.MedicineID,
			Quantity:   item.Quantity,
			Status:     entity.PrescriptionPending,
		}
		if err := e.prescriptions.Append(ctx, rx.Record()); err != nil {
			return entity.Outcome{}, fmt.Errorf("issue prescription: %w", err)
		}
		rxIDs = append(rxIDs, rxID)
	}

	outcome := entity.Outcome{
		AppointmentID:   id,
		DoctorID:        appt.DoctorID,
		PatientID:       appt.PatientID,
		Date:            appt.Date,
		ServiceType:     serviceType,
		Notes:           notes,
		PrescriptionIDs: rxIDs,
	}
	if err := e.outcomeGuard.Reserve(ctx, outcome.Record()); err != nil {
		return entity.Outcome{}, err
	}

	bill := entity.Bill{
		AppointmentID: id,
		PatientID:     appt.PatientID,
		Status:        entity.BillProcessing,
		Datetime:      e.clock(),
	}
	if err := e.bills.Append(ctx, bill.Record()); err != nil {
		return entity.Outcome{}, fmt.Errorf("open bill: %w", err)
	}

	e.audit(ctx, appt.DoctorID, journal.ActionTransition, id, "appointment completed")
	e.bump(func(m *metrics.Metrics) { m.OutcomesRecorded.Inc() })
	e.logger.Info("appointment completed",
		zap.String("appointment_id", id),
		zap.Int("prescriptions", len(rxIDs)))
	return outcome, nil
}

// OutcomeFor returns the recorded outcome of an appointment.
func (e *Engine) OutcomeFor(ctx context.Context, id string) (entity.Outcome, error) {
	rec, err := e.outcomes.Find(ctx, id)
	if err != nil {
		return entity.Outcome{}, fmt.Errorf("outcome for appointment %s: %w", id, err)
	}
	return entity.ParseOutcome(rec)
}

// ListByDoctor partitions a doctor's appointments strictly by status.
func (e *Engine) ListByDoctor(ctx context.Context, doctorID string) (Partition, error) {
	appts, err := e.all(ctx)
	if err != nil {
		return Partition{}, err
	}
	var p Partition
	for _, a := range appts {
		if a.DoctorID != doctorID {
			continue
		}
		switch a.Status {
		case entity.StatusAvailable:
			p.Available = append(p.Available, a)
		case entity.StatusPending:
			p.Pending = append(p.Pending, a)
		case entity.StatusBooked:
			p.Booked = append(p.Booked, a)
		case entity.StatusReschedule:
			p.Reschedule = append(p.Reschedule, a)
		}
	}
	return p, nil
}

// ListAvailable returns every open slot across all doctors.
func (e *Engine) ListAvailable(ctx context.Context) ([]entity.Appointment, error) {
	appts, err := e.all(ctx)
	if err != nil {
		return nil, err
	}
	var open []entity.Appointment
	for _, a := range appts {
		if a.Status == entity.StatusAvailable {
			open = append(open, a)
		}
	}
	return open, nil
}

// ListByPatient returns every appointment the patient is attached to.
func (e *Engine) ListByPatient(ctx context.Context, patientID string) ([]entity.Appointment, error) {
	appts, err := e.all(ctx)
	if err != nil {
		return nil, err
	}
	var mine []entity.Appointment
	for _, a := range appts {
		if a.PatientID == patientID {
			mine = append(mine, a)
		}
	}
	return mine, nil
}

func (e *Engine) all(ctx context.Context) ([]entity.Appointment, error) {
	recs, err := e.appointments.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	appts := make([]entity.Appointment, 0, len(recs))
	for _, rec := range recs {
		a, err := entity.ParseAppointment(rec)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	return appts, nil
}

// pending loads an appointment and verifies it awaits a booking decision.
func (e *Engine) pending(ctx context.Context, id, verb string) (entity.Appointment, error) {
	appt, err := e.Get(ctx, id)
	if err != nil {
		return entity.Appointment{}, err
	}
	if appt.Status != entity.StatusPending {
		return entity.Appointment{}, fmt.Errorf("%s booking of appointment %s in status %s: %w", verb, id, appt.Status, ErrIllegalState)
	}
	return appt, nil
}

// ensureOpen fails when the appointment already has an outcome.
func (e *Engine) ensureOpen(ctx context.Context, id string) error {
	done, err := e.Completed(ctx, id)
	if err != nil {
		return err
	}
	if done {
		return fmt.Errorf("appointment %s already completed: %w", id, ErrIllegalState)
	}
	return nil
}

func (e *Engine) put(ctx context.Context, appt entity.Appointment) error {
	return e.appointments.Update(ctx, appt.ID, appt.Record())
}

func (e *Engine) audit(ctx context.Context, actor string, action journal.Action, key, detail string) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Record(ctx, actor, store.TableAppointments, action, key, detail); err != nil {
		e.logger.Warn("journal write failed", zap.Error(err))
	}
}

func (e *Engine) bump(fn func(*metrics.Metrics)) {
	if e.metrics != nil {
		fn(e.metrics)
	}
}
