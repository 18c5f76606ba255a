package controller

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/clinicware/hms/internal/entity"
	"github.com/clinicware/hms/internal/journal"
	"github.com/clinicware/hms/internal/store"
	"github.com/clinicware/hms/pkg/uniq"
)

// MedicalRecords maintains the doctor-written note sheets per patient.
type MedicalRecords struct {
	records store.Table
	guard   *uniq.Guard
	ids     *uniq.Allocator
	journal *journal.Journal
	logger  *zap.Logger
}

// NewMedicalRecords creates the medical records controller.
func NewMedicalRecords(s store.Store, jrnl *journal.Journal, logger *zap.Logger) *MedicalRecords {
	if logger == nil {
		logger = zap.NewNop()
	}
	records := s.Table(store.TableMedicalRecords)
	return &MedicalRecords{
		records: records,
		guard:   uniq.NewGuard(records, store.TableMedicalRecords, logger),
		ids:     uniq.NewAllocator(records, "MR", 1000),
		journal: jrnl,
		logger:  logger,
	}
}

// Create opens a new record for a patient.
func (r *MedicalRecords) Create(ctx context.Context, actor, patientID, allergy, notes string) (entity.MedicalRecord, error) {
	if patientID == "" {
		return entity.MedicalRecord{}, fmt.Errorf("%w: patient id is required", store.ErrInvalidFormat)
	}
	id, err := r.ids.Next(ctx)
	if err != nil {
		return entity.MedicalRecord{}, err
	}
	mr := entity.MedicalRecord{
		ID:        id,
		PatientID: patientID,
		Allergy:   allergy,
		Notes:     notes,
	}
	if err := r.guard.Reserve(ctx, mr.Record()); err != nil {
		return entity.MedicalRecord{}, err
	}
	audit(ctx, r.journal, r.logger, actor, store.TableMedicalRecords, journal.ActionCreate, id, "medical record created")
	return mr, nil
}

// Get returns one record.
func (r *MedicalRecords) Get(ctx context.Context, id string) (entity.MedicalRecord, error) {
	rec, err := r.records.Find(ctx, id)
	if err != nil {
		return entity.MedicalRecord{}, fmt.Errorf("medical record %s: %w", id, err)
	}
	return entity.ParseMedicalRecord(rec)
}

// ListByPatient returns every record of one patient, oldest first.
func (r *MedicalRecords) ListByPatient(ctx context.Context, patientID string) ([]entity.MedicalRecord, error) {
	recs, err := r.records.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	var mine []entity.MedicalRecord
	for _, rec := range recs {
		mr, err := entity.ParseMedicalRecord(rec)
		if err != nil {
			return nil, err
		}
		if mr.PatientID == patientID {
			mine = append(mine, mr)
		}
	}
	return mine, nil
}

// AttachOutcome links an appointment outcome to the record. Attaching the
// same outcome twice is a no-op.
func (r *MedicalRecords) AttachOutcome(ctx context.Context, actor, id, outcomeID string) (entity.MedicalRecord, error) {
	mr, err := r.Get(ctx, id)
	if err != nil {
		return entity.MedicalRecord{}, err
	}
	for _, ref := range mr.OutcomeIDs {
		if ref == outcomeID {
			return mr, nil
		}
	}
	mr.OutcomeIDs = append(mr.OutcomeIDs, outcomeID)
	if err := r.records.Update(ctx, id, mr.Record()); err != nil {
		return entity.MedicalRecord{}, err
	}
	audit(ctx, r.journal, r.logger, actor, store.TableMedicalRecords, journal.ActionUpdate, id, "outcome "+outcomeID+" attached")
	return mr, nil
}

// Update rewrites the allergy line and notes.
func (r *MedicalRecords) Update(ctx context.Context, actor, id, allergy, notes string) (entity.MedicalRecord, error) {
	mr, err := r.Get(ctx, id)
	if err != nil {
		return entity.MedicalRecord{}, err
	}
	mr.Allergy = allergy
	mr.Notes = notes
	if err := r.records.Update(ctx, id, mr.Record()); err != nil {
		return entity.MedicalRecord{}, err
	}
	audit(ctx, r.journal, r.logger, actor, store.TableMedicalRecords, journal.ActionUpdate, id, "medical record updated")
	return mr, nil
}

// Delete removes a record.
func (r *MedicalRecords) Delete(ctx context.Context, actor, id string) error {
	if err := r.records.Delete(ctx, id); err != nil {
		return fmt.Errorf("medical record %s: %w", id, err)
	}
	audit(ctx, r.journal, r.logger, actor, store.TableMedicalRecords, journal.ActionDelete, id, "medical record deleted")
	return nil
}
