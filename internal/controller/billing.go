package controller

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/clinicware/hms/internal/entity"
	"github.com/clinicware/hms/internal/journal"
	"github.com/clinicware/hms/internal/store"
)

// Billing settles the charges opened by completed appointments. A bill moves
// PROCESSING -> BILLED -> PAID and never backwards.
type Billing struct {
	bills   store.Table
	journal *journal.Journal
	logger  *zap.Logger
	clock   func() time.Time
}

// NewBilling creates the billing controller.
func NewBilling(s store.Store, jrnl *journal.Journal, logger *zap.Logger) *Billing {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Billing{
		bills:   s.Table(store.TableBills),
		journal: jrnl,
		logger:  logger,
		clock:   time.Now,
	}
}

// WithClock overrides the time source. For tests.
func (b *Billing) WithClock(clock func() time.Time) *Billing {
	b.clock = clock
	return b
}

// Get returns the bill for one appointment.
func (b *Billing) Get(ctx context.Context, appointmentID string) (entity.Bill, error) {
	rec, err := b.bills.Find(ctx, appointmentID)
	if err != nil {
		return entity.Bill{}, fmt.Errorf("bill %s: %w", appointmentID, err)
	}
	return entity.ParseBill(rec)
}

// SetCost prices a processing bill and moves it to BILLED. The billing
// timestamp is refreshed to when the price was set. Costs are whole cents;
// the stored record keeps two decimal places, so anything finer is rejected.
func (b *Billing) SetCost(ctx context.Context, actor, appointmentID string, cost float64) (entity.Bill, error) {
	if cost <= 0 {
		return entity.Bill{}, fmt.Errorf("%w: cost must be positive", store.ErrInvalidFormat)
	}
	if cents, _ := strconv.ParseFloat(strconv.FormatFloat(cost, 'f', 2, 64), 64); cents != cost {
		return entity.Bill{}, fmt.Errorf("%w: cost must be whole cents", store.ErrInvalidFormat)
	}
	bill, err := b.Get(ctx, appointmentID)
	if err != nil {
		return entity.Bill{}, err
	}
	if bill.Status != entity.BillProcessing {
		return entity.Bill{}, fmt.Errorf("bill %s is %s: %w", appointmentID, bill.Status, ErrBillState)
	}

	bill.Cost = cost
	bill.Status = entity.BillBilled
	bill.Datetime = b.clock()
	if err := b.bills.Update(ctx, appointmentID, bill.Record()); err != nil {
		return entity.Bill{}, err
	}

	audit(ctx, b.journal, b.logger, actor, store.TableBills, journal.ActionTransition, appointmentID,
		fmt.Sprintf("billed %.2f", cost))
	return bill, nil
}

// Pay settles a billed charge.
func (b *Billing) Pay(ctx context.Context, actor, appointmentID string) (entity.Bill, error) {
	bill, err := b.Get(ctx, appointmentID)
	if err != nil {
		return entity.Bill{}, err
	}
	if bill.Status != entity.BillBilled {
		return entity.Bill{}, fmt.Errorf("bill %s is %s: %w", appointmentID, bill.Status, ErrBillState)
	}

	bill.Status = entity.BillPaid
	bill.Datetime = b.clock()
	if err := b.bills.Update(ctx, appointmentID, bill.Record()); err != nil {
		return entity.Bill{}, err
	}

	audit(ctx, b.journal, b.logger, actor, store.TableBills, journal.ActionTransition, appointmentID, "bill paid")
	return bill, nil
}

// ListByStatus returns every bill in the given status, oldest first.
func (b *Billing) ListByStatus(ctx context.Context, status entity.BillStatus) ([]entity.Bill, error) {
	return b.list(ctx, func(bill entity.Bill) bool { return bill.Status == status })
}

// ListByPatient returns every bill of one patient, oldest first.
func (b *Billing) ListByPatient(ctx context.Context, patientID string) ([]entity.Bill, error) {
	return b.list(ctx, func(bill entity.Bill) bool { return bill.PatientID == patientID })
}

func (b *Billing) list(ctx context.Context, keep func(entity.Bill) bool) ([]entity.Bill, error) {
	recs, err := b.bills.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	var bills []entity.Bill
	for _, rec := range recs {
		bill, err := entity.ParseBill(rec)
		if err != nil {
			return nil, err
		}
		if keep(bill) {
			bills = append(bills, bill)
		}
	}
	return bills, nil
}
