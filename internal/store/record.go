// Package store provides key-addressed CRUD over record tables.
// A record is an ordered sequence of string fields; field 0 is the key,
// unique within its table by caller convention. The flat-file backend keeps
// one record per line with fields joined by the table delimiter.
package store

import (
	"fmt"
	"strings"
)

// Delimiter separates fields within a serialized record line.
const Delimiter = "|"

// SubDelimiter separates items inside a single list-valued field.
const SubDelimiter = ","

// Record is one table row. Field 0 is the record key.
type Record []string

// Key returns the record's key (field 0), or "" for an empty record.
func (r Record) Key() string {
	if len(r) == 0 {
		return ""
	}
	return r[0]
}

// Field returns field i, or "" when the record is too short.
func (r Record) Field(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// Join serializes the record into its line form.
func (r Record) Join() string {
	return strings.Join(r, Delimiter)
}

// Validate checks that the record can be serialized losslessly: a non-empty
// key and no field containing the delimiter.
func (r Record) Validate() error {
	if r.Key() == "" {
		return fmt.Errorf("%w: record has empty key", ErrInvalidFormat)
	}
	for i, f := range r {
		if strings.Contains(f, Delimiter) {
			return fmt.Errorf("%w: field %d contains delimiter %q", ErrInvalidFormat, i, Delimiter)
		}
	}
	return nil
}

// ParseLine splits a serialized line back into a Record. A blank line is a
// corruption signal, not a skippable artifact, and fails the scan.
func ParseLine(line string) (Record, error) {
	if strings.TrimSpace(line) == "" {
		return nil, fmt.Errorf("%w: blank line", ErrInvalidFormat)
	}
	return Record(strings.Split(line, Delimiter)), nil
}
