package entity

import (
	"time"

	"github.com/clinicware/hms/internal/store"
)

// Outcome is the terminal record of a completed appointment: what was done,
// what was noted, and which prescriptions it produced. Keyed by the
// appointment ID, so at most one outcome exists per appointment.
type Outcome struct {
	AppointmentID   string
	DoctorID        string
	PatientID       string
	Date            time.Time
	ServiceType     string
	Notes           string
	PrescriptionIDs []string
}

// Record serializes the outcome.
func (o Outcome) Record() store.Record {
	return store.Record{
		o.AppointmentID,
		o.DoctorID,
		o.PatientID,
		o.Date.Format(DateLayout),
		toSentinel(o.ServiceType),
		toSentinel(o.Notes),
		joinRefs(o.PrescriptionIDs),
	}
}

// ParseOutcome decodes an outcome record.
func ParseOutcome(rec store.Record) (Outcome, error) {
	if err := fieldCount(rec, 7, "outcome"); err != nil {
		return Outcome{}, err
	}
	date, err := parseDate(rec.Field(3))
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		AppointmentID:   rec.Field(0),
		DoctorID:        rec.Field(1),
		PatientID:       rec.Field(2),
		Date:            date,
		ServiceType:     fromSentinel(rec.Field(4)),
		Notes:           fromSentinel(rec.Field(5)),
		PrescriptionIDs: splitRefs(rec.Field(6)),
	}, nil
}
