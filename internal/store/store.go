package store

import (
	"context"
	"errors"
)

// ErrNotFound indicates the key is absent from the table.
var ErrNotFound = errors.New("record not found")

// ErrInvalidFormat indicates an unparseable record or field value. A scan that
// hits it fails as a whole; skipping corrupt lines could hide data loss.
var ErrInvalidFormat = errors.New("invalid record format")

// Table is key-addressed access to one entity type's records.
//
// Append does not enforce key uniqueness; that invariant belongs to the
// entity layer and the workflow engine. Two appends under the same key both
// persist and Find returns the first match.
type Table interface {
	// ReadAll returns every record in table order.
	ReadAll(ctx context.Context) ([]Record, error)

	// Find returns the first record whose key matches, or ErrNotFound.
	Find(ctx context.Context, key string) (Record, error)

	// Append adds a new record to the end of the table.
	Append(ctx context.Context, rec Record) error

	// Update replaces the whole record stored under key, preserving table
	// order. Returns ErrNotFound if the key is absent, in which case the
	// table is left untouched.
	Update(ctx context.Context, key string, rec Record) error

	// UpdateField rewrites a single field of the record stored under key.
	UpdateField(ctx context.Context, key string, index int, value string) error

	// Delete removes the first record whose key matches, preserving the
	// order of the remainder. Returns ErrNotFound if the key is absent.
	Delete(ctx context.Context, key string) error
}

// Store hands out tables by name.
type Store interface {
	Table(name string) Table
	Close() error
}

// Table names shared by the controllers and the workflow engine.
const (
	TableAppointments   = "appointments"
	TableOutcomes       = "outcomes"
	TablePrescriptions  = "prescriptions"
	TableBills          = "bills"
	TableMedicines      = "medicines"
	TableAccounts       = "accounts"
	TableMedicalRecords = "medicalrecords"
	TableFeedback       = "feedback"
	TableForgetPassword = "forgetpassword"
	TableJournal        = "journal"
	TablePatients       = "patients"
	TableDoctors        = "doctors"
	TablePharmacists    = "pharmacists"
	TableAdministrators = "administrators"
)
