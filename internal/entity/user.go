package entity

import (
	"fmt"

	"github.com/clinicware/hms/internal/store"
)

// Role identifies what a user may do. The role hierarchy of the paper system
// is flattened into one User type plus this enum.
type Role string

const (
	RolePatient       Role = "Patient"
	RoleDoctor        Role = "Doctor"
	RolePharmacist    Role = "Pharmacist"
	RoleAdministrator Role = "Administrator"
)

// Roles lists every valid role.
var Roles = []Role{RolePatient, RoleDoctor, RolePharmacist, RoleAdministrator}

// ParseRole validates a role token.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: unknown role %q", store.ErrInvalidFormat, s)
}

// Staff reports whether the role is hospital staff rather than a patient.
func (r Role) Staff() bool { return r != RolePatient }

// UserTable returns the table holding users of this role.
func (r Role) UserTable() string {
	switch r {
	case RolePatient:
		return store.TablePatients
	case RoleDoctor:
		return store.TableDoctors
	case RolePharmacist:
		return store.TablePharmacists
	default:
		return store.TableAdministrators
	}
}

// User is one person known to the system. Identity fields (ID, name, date of
// birth, gender) are immutable once registered; contact details are not.
// BloodType is only carried for patients.
type User struct {
	ID            string
	FirstName     string
	LastName      string
	DateOfBirth   string
	Gender        string
	ContactNumber string
	EmailAddress  string
	Role          Role
	BloodType     string
}

// Name returns the user's display name.
func (u User) Name() string {
	return u.FirstName + " " + u.LastName
}

// Record serializes the user for its role table. Patients carry a trailing
// blood type field; staff records stop at the role tag.
func (u User) Record() store.Record {
	rec := store.Record{
		u.ID,
		u.FirstName,
		u.LastName,
		u.DateOfBirth,
		u.Gender,
		u.ContactNumber,
		u.EmailAddress,
		string(u.Role),
	}
	if u.Role == RolePatient {
		rec = append(rec, toSentinel(u.BloodType))
	}
	return rec
}

// ParseUser decodes a user record from a role table.
func ParseUser(rec store.Record) (User, error) {
	if len(rec) != 8 && len(rec) != 9 {
		return User{}, fmt.Errorf("%w: user record has %d fields", store.ErrInvalidFormat, len(rec))
	}

	role, err := ParseRole(rec.Field(7))
	if err != nil {
		return User{}, err
	}
	if role == RolePatient && len(rec) != 9 {
		return User{}, fmt.Errorf("%w: patient record missing blood type field", store.ErrInvalidFormat)
	}
	if role != RolePatient && len(rec) != 8 {
		return User{}, fmt.Errorf("%w: staff record has trailing fields", store.ErrInvalidFormat)
	}

	u := User{
		ID:            rec.Field(0),
		FirstName:     rec.Field(1),
		LastName:      rec.Field(2),
		DateOfBirth:   rec.Field(3),
		Gender:        rec.Field(4),
		ContactNumber: rec.Field(5),
		EmailAddress:  rec.Field(6),
		Role:          role,
	}
	if role == RolePatient {
		u.BloodType = fromSentinel(rec.Field(8))
	}
	return u, nil
}
