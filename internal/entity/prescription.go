package entity

import (
	"fmt"
	"strconv"

	"github.com/clinicware/hms/internal/store"
)

// PrescriptionStatus tracks whether the pharmacy has handed out the medicine.
type PrescriptionStatus string

const (
	PrescriptionPending   PrescriptionStatus = "PENDING"
	PrescriptionDispensed PrescriptionStatus = "DISPENSED"
)

// PrescriptionStatuses lists every valid prescription status.
var PrescriptionStatuses = []PrescriptionStatus{PrescriptionPending, PrescriptionDispensed}

// ParsePrescriptionStatus validates a status token.
func ParsePrescriptionStatus(s string) (PrescriptionStatus, error) {
	for _, st := range PrescriptionStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown prescription status %q", store.ErrInvalidFormat, s)
}

// Prescription is one medicine line item produced by an appointment outcome.
// Stored independently and joined to its outcome by ID.
type Prescription struct {
	ID         string
	MedicineID string
	Quantity   int
	Status     PrescriptionStatus
}

// Record serializes the prescription.
func (p Prescription) Record() store.Record {
	return store.Record{
		p.ID,
		p.MedicineID,
		strconv.Itoa(p.Quantity),
		string(p.Status),
	}
}

// ParsePrescription decodes a prescription record.
func ParsePrescription(rec store.Record) (Prescription, error) {
	if err := fieldCount(rec, 4, "prescription"); err != nil {
		return Prescription{}, err
	}
	qty, err := strconv.Atoi(rec.Field(2))
	if err != nil {
		return Prescription{}, fmt.Errorf("%w: bad quantity %q", store.ErrInvalidFormat, rec.Field(2))
	}
	status, err := ParsePrescriptionStatus(rec.Field(3))
	if err != nil {
		return Prescription{}, err
	}
	return Prescription{
		ID:         rec.Field(0),
		MedicineID: rec.Field(1),
		Quantity:   qty,
		Status:     status,
	}, nil
}
