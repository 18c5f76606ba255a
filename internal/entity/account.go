package entity

import (
	"github.com/clinicware/hms/internal/store"
)

// Account is the credential record linked 1-to-1 with a User. Only the hash
// is ever stored; verifying and rotating it is the account controller's job.
type Account struct {
	UserID       string
	PasswordHash string
	Role         Role
}

// Record serializes the account.
func (a Account) Record() store.Record {
	return store.Record{a.UserID, a.PasswordHash, string(a.Role)}
}

// ParseAccount decodes an account record.
func ParseAccount(rec store.Record) (Account, error) {
	if err := fieldCount(rec, 3, "account"); err != nil {
		return Account{}, err
	}
	role, err := ParseRole(rec.Field(2))
	if err != nil {
		return Account{}, err
	}
	return Account{
		UserID:       rec.Field(0),
		PasswordHash: rec.Field(1),
		Role:         role,
	}, nil
}
