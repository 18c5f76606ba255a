package entity

import (
	"fmt"
	"strconv"
	"time"

	"github.com/clinicware/hms/internal/store"
)

// BillStatus tracks a bill from creation to payment.
type BillStatus string

const (
	// BillProcessing is a freshly opened bill with no cost yet.
	BillProcessing BillStatus = "PROCESSING"
	// BillBilled has a cost set and awaits payment.
	BillBilled BillStatus = "BILLED"
	// BillPaid is settled.
	BillPaid BillStatus = "PAID"
)

// BillStatuses lists every valid bill status.
var BillStatuses = []BillStatus{BillProcessing, BillBilled, BillPaid}

// ParseBillStatus validates a status token.
func ParseBillStatus(s string) (BillStatus, error) {
	for _, st := range BillStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown bill status %q", store.ErrInvalidFormat, s)
}

// Bill is the charge attached to a completed appointment, keyed by the
// appointment ID and joined to the patient.
type Bill struct {
	AppointmentID string
	PatientID     string
	Cost          float64
	Status        BillStatus
	Datetime      time.Time
}

// Record serializes the bill. Cost is stored to two decimal places.
func (b Bill) Record() store.Record {
	return store.Record{
		b.AppointmentID,
		b.PatientID,
		strconv.FormatFloat(b.Cost, 'f', 2, 64),
		string(b.Status),
		b.Datetime.Format(DateTimeLayout),
	}
}

// ParseBill decodes a bill record.
func ParseBill(rec store.Record) (Bill, error) {
	if err := fieldCount(rec, 5, "bill"); err != nil {
		return Bill{}, err
	}
	cost, err := strconv.ParseFloat(rec.Field(2), 64)
	if err != nil {
		return Bill{}, fmt.Errorf("%w: bad cost %q", store.ErrInvalidFormat, rec.Field(2))
	}
	status, err := ParseBillStatus(rec.Field(3))
	if err != nil {
		return Bill{}, err
	}
	at, err := parseDateTime(rec.Field(4))
	if err != nil {
		return Bill{}, err
	}
	return Bill{
		AppointmentID: rec.Field(0),
		PatientID:     rec.Field(1),
		Cost:          cost,
		Status:        status,
		Datetime:      at,
	}, nil
}
