package controller

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/clinicware/hms/internal/entity"
	"github.com/clinicware/hms/internal/journal"
	"github.com/clinicware/hms/internal/observability/metrics"
	"github.com/clinicware/hms/internal/store"
	"github.com/clinicware/hms/pkg/uniq"
)

// Inventory manages the medicine catalogue and its stock levels. Pharmacists
// raise replenishment requests; administrators approve them.
type Inventory struct {
	medicines store.Table
	guard     *uniq.Guard
	journal   *journal.Journal
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewInventory creates the inventory controller.
func NewInventory(s store.Store, jrnl *journal.Journal, m *metrics.Metrics, logger *zap.Logger) *Inventory {
	if logger == nil {
		logger = zap.NewNop()
	}
	medicines := s.Table(store.TableMedicines)
	return &Inventory{
		medicines: medicines,
		guard:     uniq.NewGuard(medicines, store.TableMedicines, logger),
		journal:   jrnl,
		metrics:   m,
		logger:    logger,
	}
}

// Add puts a new medicine into the catalogue.
func (i *Inventory) Add(ctx context.Context, actor string, m entity.Medicine) error {
	if m.ID == "" || m.Name == "" {
		return fmt.Errorf("%w: medicine needs an id and a name", store.ErrInvalidFormat)
	}
	if m.StockLevel < 0 || m.LowStockLevel < 0 {
		return fmt.Errorf("%w: stock levels cannot be negative", store.ErrInvalidFormat)
	}
	if err := i.guard.Reserve(ctx, m.Record()); err != nil {
		return err
	}
	audit(ctx, i.journal, i.logger, actor, store.TableMedicines, journal.ActionCreate, m.ID, "medicine added")
	return nil
}

// Get returns one catalogue entry.
func (i *Inventory) Get(ctx context.Context, id string) (entity.Medicine, error) {
	rec, err := i.medicines.Find(ctx, id)
	if err != nil {
		return entity.Medicine{}, fmt.Errorf("medicine %s: %w", id, err)
	}
	return entity.ParseMedicine(rec)
}

// List returns the whole catalogue in insertion order.
func (i *Inventory) List(ctx context.Context) ([]entity.Medicine, error) {
	recs, err := i.medicines.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	meds := make([]entity.Medicine, 0, len(recs))
	for _, rec := range recs {
		m, err := entity.ParseMedicine(rec)
		if err != nil {
			return nil, err
		}
		meds = append(meds, m)
	}
	return meds, nil
}

// LowStock returns every item at or below its alert threshold.
func (i *Inventory) LowStock(ctx context.Context) ([]entity.Medicine, error) {
	meds, err := i.List(ctx)
	if err != nil {
		return nil, err
	}
	var low []entity.Medicine
	for _, m := range meds {
		if m.LowStockAlert() {
			low = append(low, m)
		}
	}
	return low, nil
}

// UpdateDetails changes descriptive fields and the alert threshold. Stock
// itself moves only through dispensing and replenishment.
func (i *Inventory) UpdateDetails(ctx context.Context, actor, id, name, mtype, description string, lowStockLevel int) (entity.Medicine, error) {
	if lowStockLevel < 0 {
		return entity.Medicine{}, fmt.Errorf("%w: low stock level cannot be negative", store.ErrInvalidFormat)
	}
	m, err := i.Get(ctx, id)
	if err != nil {
		return entity.Medicine{}, err
	}
	m.Name = name
	m.Type = mtype
	m.Description = description
	m.LowStockLevel = lowStockLevel
	if err := i.medicines.Update(ctx, id, m.Record()); err != nil {
		return entity.Medicine{}, err
	}
	audit(ctx, i.journal, i.logger, actor, store.TableMedicines, journal.ActionUpdate, id, "medicine details updated")
	return m, nil
}

// Remove deletes a medicine from the catalogue.
func (i *Inventory) Remove(ctx context.Context, actor, id string) error {
	if err := i.medicines.Delete(ctx, id); err != nil {
		return fmt.Errorf("medicine %s: %w", id, err)
	}
	audit(ctx, i.journal, i.logger, actor, store.TableMedicines, journal.ActionDelete, id, "medicine removed")
	return nil
}

// Deduct takes qty units out of stock. Stock never goes below zero; a
// shortfall fails the whole deduction.
func (i *Inventory) Deduct(ctx context.Context, id string, qty int) (entity.Medicine, error) {
	if qty <= 0 {
		return entity.Medicine{}, fmt.Errorf("%w: deduction quantity must be positive", store.ErrInvalidFormat)
	}
	m, err := i.Get(ctx, id)
	if err != nil {
		return entity.Medicine{}, err
	}
	if m.StockLevel < qty {
		return entity.Medicine{}, fmt.Errorf("medicine %s has %d, need %d: %w", id, m.StockLevel, qty, ErrInsufficientStock)
	}
	m.StockLevel -= qty
	if err := i.medicines.Update(ctx, id, m.Record()); err != nil {
		return entity.Medicine{}, err
	}
	if m.LowStockAlert() {
		i.logger.Warn("medicine stock low",
			zap.String("medicine_id", id),
			zap.Int("stock", m.StockLevel),
			zap.Int("threshold", m.LowStockLevel))
	}
	return m, nil
}

// RequestReplenishment flags a medicine for restocking. At most one open
// request per medicine.
func (i *Inventory) RequestReplenishment(ctx context.Context, actor, id string) (entity.Medicine, error) {
	m, err := i.Get(ctx, id)
	if err != nil {
		return entity.Medicine{}, err
	}
	if m.ReplenishRequested {
		return entity.Medicine{}, fmt.Errorf("medicine %s: %w", id, ErrReplenishOpen)
	}
	m.ReplenishRequested = true
	if err := i.medicines.Update(ctx, id, m.Record()); err != nil {
		return entity.Medicine{}, err
	}
	if i.metrics != nil {
		i.metrics.ReplenishmentRequests.Inc()
	}
	audit(ctx, i.journal, i.logger, actor, store.TableMedicines, journal.ActionUpdate, id, "replenishment requested")
	return m, nil
}

// ApproveReplenishment adds stock and clears the request flag.
func (i *Inventory) ApproveReplenishment(ctx context.Context, actor, id string, addQty int) (entity.Medicine, error) {
	if addQty <= 0 {
		return entity.Medicine{}, fmt.Errorf("%w: replenishment quantity must be positive", store.ErrInvalidFormat)
	}
	m, err := i.Get(ctx, id)
	if err != nil {
		return entity.Medicine{}, err
	}
	if !m.ReplenishRequested {
		return entity.Medicine{}, fmt.Errorf("medicine %s has no open replenishment request", id)
	}
	m.StockLevel += addQty
	m.ReplenishRequested = false
	if err := i.medicines.Update(ctx, id, m.Record()); err != nil {
		return entity.Medicine{}, err
	}
	audit(ctx, i.journal, i.logger, actor, store.TableMedicines, journal.ActionUpdate, id,
		fmt.Sprintf("replenishment approved, +%d", addQty))
	return m, nil
}
