// Package entity maps typed hospital records to and from their flat record
// form. Serialization is exactly reversible: for every entity E,
// Parse(E.Record()) yields a value equal to E. Unknown enum tokens fail with
// store.ErrInvalidFormat instead of defaulting.
package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/clinicware/hms/internal/store"
)

// Textual formats shared by every dated field.
const (
	DateLayout     = "02-01-2006"
	TimeLayout     = "15:04"
	DateTimeLayout = "02-01-2006 15:04"
)

// Empty is the sentinel written for optional fields with no value.
const Empty = "-"

// fromSentinel maps the stored sentinel back to the zero value.
func fromSentinel(s string) string {
	if s == Empty {
		return ""
	}
	return s
}

// toSentinel maps an empty value to the stored sentinel.
func toSentinel(s string) string {
	if s == "" {
		return Empty
	}
	return s
}

// splitRefs parses a sub-delimited ID list field.
func splitRefs(s string) []string {
	if s == Empty || s == "" {
		return nil
	}
	parts := strings.Split(s, store.SubDelimiter)
	refs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			refs = append(refs, p)
		}
	}
	return refs
}

// joinRefs serializes an ID list field.
func joinRefs(refs []string) string {
	if len(refs) == 0 {
		return Empty
	}
	return strings.Join(refs, store.SubDelimiter)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", store.ErrInvalidFormat, s)
	}
	return t, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad time %q", store.ErrInvalidFormat, s)
	}
	return t, nil
}

func parseDateTime(s string) (time.Time, error) {
	t, err := time.Parse(DateTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad datetime %q", store.ErrInvalidFormat, s)
	}
	return t, nil
}

// fieldCount verifies a record carries exactly the expected number of fields.
func fieldCount(rec store.Record, want int, kind string) error {
	if len(rec) != want {
		return fmt.Errorf("%w: %s record has %d fields, want %d", store.ErrInvalidFormat, kind, len(rec), want)
	}
	return nil
}
