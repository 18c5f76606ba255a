package controller

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/clinicware/hms/internal/entity"
	"github.com/clinicware/hms/internal/journal"
	"github.com/clinicware/hms/internal/observability/metrics"
	"github.com/clinicware/hms/internal/store"
)

// Pharmacy dispenses the prescriptions appointment outcomes produce.
// Dispensing deducts stock first and flips the prescription second, so a
// stock shortfall leaves the prescription pending.
type Pharmacy struct {
	prescriptions store.Table
	outcomes      store.Table
	inventory     *Inventory
	journal       *journal.Journal
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

// NewPharmacy creates the pharmacy controller.
func NewPharmacy(s store.Store, inv *Inventory, jrnl *journal.Journal, m *metrics.Metrics, logger *zap.Logger) *Pharmacy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pharmacy{
		prescriptions: s.Table(store.TablePrescriptions),
		outcomes:      s.Table(store.TableOutcomes),
		inventory:     inv,
		journal:       jrnl,
		metrics:       m,
		logger:        logger,
	}
}

// Get returns one prescription.
func (p *Pharmacy) Get(ctx context.Context, id string) (entity.Prescription, error) {
	rec, err := p.prescriptions.Find(ctx, id)
	if err != nil {
		return entity.Prescription{}, fmt.Errorf("prescription %s: %w", id, err)
	}
	return entity.ParsePrescription(rec)
}

// Pending returns every prescription awaiting dispensing, oldest first.
func (p *Pharmacy) Pending(ctx context.Context) ([]entity.Prescription, error) {
	recs, err := p.prescriptions.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	var pending []entity.Prescription
	for _, rec := range recs {
		rx, err := entity.ParsePrescription(rec)
		if err != nil {
			return nil, err
		}
		if rx.Status == entity.PrescriptionPending {
			pending = append(pending, rx)
		}
	}
	return pending, nil
}

// Dispense hands out one prescription, deducting its quantity from stock.
func (p *Pharmacy) Dispense(ctx context.Context, actor, id string) (entity.Prescription, error) {
	rx, err := p.Get(ctx, id)
	if err != nil {
		return entity.Prescription{}, err
	}
	if rx.Status != entity.PrescriptionPending {
		return entity.Prescription{}, fmt.Errorf("prescription %s: %w", id, ErrAlreadyDispensed)
	}

	if _, err := p.inventory.Deduct(ctx, rx.MedicineID, rx.Quantity); err != nil {
		return entity.Prescription{}, err
	}

	rx.Status = entity.PrescriptionDispensed
	if err := p.prescriptions.UpdateField(ctx, id, 3, string(entity.PrescriptionDispensed)); err != nil {
		return entity.Prescription{}, err
	}

	if p.metrics != nil {
		p.metrics.PrescriptionsDispensed.Inc()
	}
	audit(ctx, p.journal, p.logger, actor, store.TablePrescriptions, journal.ActionTransition, id, "prescription dispensed")
	p.logger.Info("prescription dispensed",
		zap.String("prescription_id", id),
		zap.String("medicine_id", rx.MedicineID),
		zap.Int("quantity", rx.Quantity))
	return rx, nil
}

// DispenseOutcome dispenses every pending prescription of one appointment
// outcome. The first failure stops the batch; already dispensed lines are
// skipped, not errors.
func (p *Pharmacy) DispenseOutcome(ctx context.Context, actor, appointmentID string) ([]entity.Prescription, error) {
	rec, err := p.outcomes.Find(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("outcome for appointment %s: %w", appointmentID, err)
	}
	outcome, err := entity.ParseOutcome(rec)
	if err != nil {
		return nil, err
	}

	var done []entity.Prescription
	for _, rxID := range outcome.PrescriptionIDs {
		rx, err := p.Get(ctx, rxID)
		if err != nil {
			return done, err
		}
		if rx.Status != entity.PrescriptionPending {
			continue
		}
		dispensed, err := p.Dispense(ctx, actor, rxID)
		if err != nil {
			return done, err
		}
		done = append(done, dispensed)
	}
	return done, nil
}
