package entity

import (
	"fmt"
	"strconv"

	"github.com/clinicware/hms/internal/store"
)

// Medicine is one inventory item. Stock never goes below zero; the
// replenishment flag marks an open restocking request awaiting admin approval.
type Medicine struct {
	ID                 string
	Name               string
	Type               string
	StockLevel         int
	LowStockLevel      int
	Description        string
	ReplenishRequested bool
}

// LowStockAlert reports whether stock has fallen to or below the threshold.
func (m Medicine) LowStockAlert() bool {
	return m.StockLevel <= m.LowStockLevel
}

// StatusLabel is the inventory listing label for this item.
func (m Medicine) StatusLabel() string {
	switch {
	case m.ReplenishRequested:
		return "Pending Replenishment"
	case m.LowStockAlert():
		return "Low Stock"
	default:
		return "Available"
	}
}

// Record serializes the medicine.
func (m Medicine) Record() store.Record {
	return store.Record{
		m.ID,
		m.Name,
		m.Type,
		strconv.Itoa(m.StockLevel),
		strconv.Itoa(m.LowStockLevel),
		toSentinel(m.Description),
		strconv.FormatBool(m.ReplenishRequested),
	}
}

// ParseMedicine decodes a medicine record.
func ParseMedicine(rec store.Record) (Medicine, error) {
	if err := fieldCount(rec, 7, "medicine"); err != nil {
		return Medicine{}, err
	}
	stock, err := strconv.Atoi(rec.Field(3))
	if err != nil || stock < 0 {
		return Medicine{}, fmt.Errorf("%w: bad stock level %q", store.ErrInvalidFormat, rec.Field(3))
	}
	low, err := strconv.Atoi(rec.Field(4))
	if err != nil || low < 0 {
		return Medicine{}, fmt.Errorf("%w: bad low stock level %q", store.ErrInvalidFormat, rec.Field(4))
	}
	replenish, err := strconv.ParseBool(rec.Field(6))
	if err != nil {
		return Medicine{}, fmt.Errorf("%w: bad replenishment flag %q", store.ErrInvalidFormat, rec.Field(6))
	}
	return Medicine{
		ID:                 rec.Field(0),
		Name:               rec.Field(1),
		Type:               rec.Field(2),
		StockLevel:         stock,
		LowStockLevel:      low,
		Description:        fromSentinel(rec.Field(5)),
		ReplenishRequested: replenish,
	}, nil
}
