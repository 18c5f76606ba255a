package entity

import (
	"fmt"
	"strconv"
	"time"

	"github.com/clinicware/hms/internal/store"
)

// Feedback is a patient's rating of a doctor on a 1-10 scale.
type Feedback struct {
	ID        string
	PatientID string
	DoctorID  string
	Rating    int
	Comments  string
	Datetime  time.Time
}

// Record serializes the feedback.
func (f Feedback) Record() store.Record {
	return store.Record{
		f.ID,
		f.PatientID,
		f.DoctorID,
		strconv.Itoa(f.Rating),
		toSentinel(f.Comments),
		f.Datetime.Format(DateTimeLayout),
	}
}

// ParseFeedback decodes a feedback record.
func ParseFeedback(rec store.Record) (Feedback, error) {
	if err := fieldCount(rec, 6, "feedback"); err != nil {
		return Feedback{}, err
	}
	rating, err := strconv.Atoi(rec.Field(3))
	if err != nil || rating < 1 || rating > 10 {
		return Feedback{}, fmt.Errorf("%w: bad rating %q", store.ErrInvalidFormat, rec.Field(3))
	}
	at, err := parseDateTime(rec.Field(5))
	if err != nil {
		return Feedback{}, err
	}
	return Feedback{
		ID:        rec.Field(0),
		PatientID: rec.Field(1),
		DoctorID:  rec.Field(2),
		Rating:    rating,
		Comments:  fromSentinel(rec.Field(4)),
		Datetime:  at,
	}, nil
}
