package controller

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clinicware/hms/internal/entity"
	"github.com/clinicware/hms/internal/journal"
	"github.com/clinicware/hms/internal/store"
	"github.com/clinicware/hms/pkg/uniq"
)

// Feedback collects patient ratings of doctors and aggregates them.
type Feedback struct {
	feedback store.Table
	journal  *journal.Journal
	logger   *zap.Logger
	clock    func() time.Time
}

// NewFeedback creates the feedback controller.
func NewFeedback(s store.Store, jrnl *journal.Journal, logger *zap.Logger) *Feedback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feedback{
		feedback: s.Table(store.TableFeedback),
		journal:  jrnl,
		logger:   logger,
		clock:    time.Now,
	}
}

// WithClock overrides the time source. For tests.
func (f *Feedback) WithClock(clock func() time.Time) *Feedback {
	f.clock = clock
	return f
}

// Submit records one rating. Ratings run 1 to 10.
func (f *Feedback) Submit(ctx context.Context, patientID, doctorID string, rating int, comments string) (entity.Feedback, error) {
	if rating < 1 || rating > 10 {
		return entity.Feedback{}, fmt.Errorf("%w: rating %d out of range 1-10", store.ErrInvalidFormat, rating)
	}
	fb := entity.Feedback{
		ID:        uniq.NewID(),
		PatientID: patientID,
		DoctorID:  doctorID,
		Rating:    rating,
		Comments:  comments,
		Datetime:  f.clock(),
	}
	if err := f.feedback.Append(ctx, fb.Record()); err != nil {
		return entity.Feedback{}, err
	}
	audit(ctx, f.journal, f.logger, patientID, store.TableFeedback, journal.ActionCreate, fb.ID,
		fmt.Sprintf("rated doctor %s %d/10", doctorID, rating))
	return fb, nil
}

// ListByDoctor returns every rating one doctor received, oldest first.
func (f *Feedback) ListByDoctor(ctx context.Context, doctorID string) ([]entity.Feedback, error) {
	recs, err := f.feedback.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	var list []entity.Feedback
	for _, rec := range recs {
		fb, err := entity.ParseFeedback(rec)
		if err != nil {
			return nil, err
		}
		if fb.DoctorID == doctorID {
			list = append(list, fb)
		}
	}
	return list, nil
}

// AverageRating returns a doctor's mean rating and the number of ratings it
// is based on. No ratings yields zero, not an error.
func (f *Feedback) AverageRating(ctx context.Context, doctorID string) (float64, int, error) {
	list, err := f.ListByDoctor(ctx, doctorID)
	if err != nil {
		return 0, 0, err
	}
	if len(list) == 0 {
		return 0, 0, nil
	}
	sum := 0
	for _, fb := range list {
		sum += fb.Rating
	}
	return float64(sum) / float64(len(list)), len(list), nil
}
