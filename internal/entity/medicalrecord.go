package entity

import (
	"github.com/clinicware/hms/internal/store"
)

// MedicalRecord is a doctor-maintained note sheet for one patient, with
// references to the appointment outcomes it draws on. Keyed by its own record
// ID so a patient can accumulate several over time.
type MedicalRecord struct {
	ID         string
	PatientID  string
	Allergy    string
	OutcomeIDs []string
	Notes      string
}

// Record serializes the medical record.
func (m MedicalRecord) Record() store.Record {
	return store.Record{
		m.ID,
		m.PatientID,
		toSentinel(m.Allergy),
		joinRefs(m.OutcomeIDs),
		toSentinel(m.Notes),
	}
}

// ParseMedicalRecord decodes a medical record entry.
func ParseMedicalRecord(rec store.Record) (MedicalRecord, error) {
	if err := fieldCount(rec, 5, "medical record"); err != nil {
		return MedicalRecord{}, err
	}
	return MedicalRecord{
		ID:         rec.Field(0),
		PatientID:  rec.Field(1),
		Allergy:    fromSentinel(rec.Field(2)),
		OutcomeIDs: splitRefs(rec.Field(3)),
		Notes:      fromSentinel(rec.Field(4)),
	}, nil
}
