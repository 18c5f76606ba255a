package entity

import (
	"time"

	"github.com/clinicware/hms/internal/store"
)

// ForgetPassword is a pending password-reset request awaiting an
// administrator. Keyed by the requesting user's ID.
type ForgetPassword struct {
	UserID      string
	Message     string
	RequestedAt time.Time
}

// Record serializes the request.
func (f ForgetPassword) Record() store.Record {
	return store.Record{
		f.UserID,
		toSentinel(f.Message),
		f.RequestedAt.Format(DateTimeLayout),
	}
}

// ParseForgetPassword decodes a password-reset request record.
func ParseForgetPassword(rec store.Record) (ForgetPassword, error) {
	if err := fieldCount(rec, 3, "forget password"); err != nil {
		return ForgetPassword{}, err
	}
	at, err := parseDateTime(rec.Field(2))
	if err != nil {
		return ForgetPassword{}, err
	}
	return ForgetPassword{
		UserID:      rec.Field(0),
		Message:     fromSentinel(rec.Field(1)),
		RequestedAt: at,
	}, nil
}
