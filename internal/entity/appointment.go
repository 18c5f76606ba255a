package entity

import (
	"fmt"
	"time"

	"github.com/clinicware/hms/internal/store"
)

// AppointmentStatus is the lifecycle state of a doctor's slot.
type AppointmentStatus string

const (
	// StatusAvailable is an open slot with no patient attached.
	StatusAvailable AppointmentStatus = "AVAILABLE"
	// StatusPending is a booking request awaiting doctor confirmation.
	StatusPending AppointmentStatus = "PENDING"
	// StatusBooked is a confirmed appointment.
	StatusBooked AppointmentStatus = "BOOKED"
	// StatusReschedule is a booked appointment with a pending
	// date/time change request.
	StatusReschedule AppointmentStatus = "RESCHEDULE"
)

// AppointmentStatuses lists every valid appointment status.
var AppointmentStatuses = []AppointmentStatus{
	StatusAvailable, StatusPending, StatusBooked, StatusReschedule,
}

// ParseAppointmentStatus validates a status token.
func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	for _, st := range AppointmentStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown appointment status %q", store.ErrInvalidFormat, s)
}

// Appointment is one doctor slot. (DoctorID, Date, Time) uniquely identifies
// a slot; PatientID is empty exactly when the status is AVAILABLE.
type Appointment struct {
	ID             string
	DoctorID       string
	PatientID      string
	Date           time.Time
	Time           time.Time
	Status         AppointmentStatus
	RequestMessage string
}

// Booked reports whether a patient currently holds the slot.
func (a Appointment) Booked() bool {
	return a.Status == StatusBooked || a.Status == StatusReschedule
}

// SameSlot reports whether another appointment occupies the same doctor slot.
func (a Appointment) SameSlot(other Appointment) bool {
	return a.DoctorID == other.DoctorID &&
		a.Date.Equal(other.Date) &&
		a.Time.Equal(other.Time)
}

// Record serializes the appointment.
func (a Appointment) Record() store.Record {
	return store.Record{
		a.ID,
		a.DoctorID,
		toSentinel(a.PatientID),
		a.Date.Format(DateLayout),
		a.Time.Format(TimeLayout),
		string(a.Status),
		toSentinel(a.RequestMessage),
	}
}

// ParseAppointment decodes an appointment record.
func ParseAppointment(rec store.Record) (Appointment, error) {
	if err := fieldCount(rec, 7, "appointment"); err != nil {
		return Appointment{}, err
	}
	date, err := parseDate(rec.Field(3))
	if err != nil {
		return Appointment{}, err
	}
	tod, err := parseTime(rec.Field(4))
	if err != nil {
		return Appointment{}, err
	}
	status, err := ParseAppointmentStatus(rec.Field(5))
	if err != nil {
		return Appointment{}, err
	}
	return Appointment{
		ID:             rec.Field(0),
		DoctorID:       rec.Field(1),
		PatientID:      fromSentinel(rec.Field(2)),
		Date:           date,
		Time:           tod,
		Status:         status,
		RequestMessage: fromSentinel(rec.Field(6)),
	}, nil
}
