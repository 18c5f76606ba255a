// Package metrics provides Prometheus metrics for the record manager.
// There is no scrape endpoint; counters are dumped to the console in text
// exposition format on demand.
package metrics

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/clinicware/hms/internal/store"
)

// Metrics holds all application metrics
type Metrics struct {
	registry prometheus.Gatherer

	RecordsAppended *prometheus.CounterVec
	RecordsUpdated  *prometheus.CounterVec
	RecordsDeleted  *prometheus.CounterVec
	TableScans      *prometheus.CounterVec
	StoreFailures   *prometheus.CounterVec

	SlotsCreated           prometheus.Counter
	BookingsRequested      prometheus.Counter
	BookingsAccepted       prometheus.Counter
	BookingsDeclined       prometheus.Counter
	BookingsCancelled      prometheus.Counter
	ReschedulesRequested   prometheus.Counter
	OutcomesRecorded       prometheus.Counter
	PrescriptionsDispensed prometheus.Counter
	ReplenishmentRequests  prometheus.Counter
}

// New creates and registers all metrics. A nil registerer falls back to the
// default registry. Dump gathers from reg when it also implements
// prometheus.Gatherer, as *prometheus.Registry does; a registerer that does
// not gather (such as a WrapRegistererWith wrapper) falls back to the default
// gatherer, so pass the underlying registry here and wrap it at call sites.
func New(reg prometheus.Registerer) *Metrics {
	gatherer := prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{
		registry: gatherer,
		RecordsAppended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "records_appended_total",
			Help: "Total records appended per table",
		}, []string{"table"}),
		RecordsUpdated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "records_updated_total",
			Help: "Total records updated per table",
		}, []string{"table"}),
		RecordsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "records_deleted_total",
			Help: "Total records deleted per table",
		}, []string{"table"}),
		TableScans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "table_scans_total",
			Help: "Total full table scans per table",
		}, []string{"table"}),
		StoreFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "store_failures_total",
			Help: "Total failed store operations per table",
		}, []string{"table"}),
		SlotsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appointment_slots_created_total",
			Help: "Total availability slots created",
		}),
		BookingsRequested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appointment_bookings_requested_total",
			Help: "Total booking requests",
		}),
		BookingsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appointment_bookings_accepted_total",
			Help: "Total booking requests accepted",
		}),
		BookingsDeclined: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appointment_bookings_declined_total",
			Help: "Total booking requests declined",
		}),
		BookingsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appointment_bookings_cancelled_total",
			Help: "Total booked appointments cancelled",
		}),
		ReschedulesRequested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appointment_reschedules_requested_total",
			Help: "Total reschedule requests",
		}),
		OutcomesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appointment_outcomes_recorded_total",
			Help: "Total appointment outcomes recorded",
		}),
		PrescriptionsDispensed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prescriptions_dispensed_total",
			Help: "Total prescriptions dispensed",
		}),
		ReplenishmentRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replenishment_requests_total",
			Help: "Total medicine replenishment requests",
		}),
	}

	reg.MustRegister(
		m.RecordsAppended,
		m.RecordsUpdated,
		m.RecordsDeleted,
		m.TableScans,
		m.StoreFailures,
		m.SlotsCreated,
		m.BookingsRequested,
		m.BookingsAccepted,
		m.BookingsDeclined,
		m.BookingsCancelled,
		m.ReschedulesRequested,
		m.OutcomesRecorded,
		m.PrescriptionsDispensed,
		m.ReplenishmentRequests,
	)

	return m
}

// Dump writes every gathered metric in text exposition format.
func (m *Metrics) Dump(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, f := range families {
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	return nil
}

// InstrumentStore counts store operations per table.
func InstrumentStore(s store.Store, m *Metrics) store.Store {
	return &instrumentedStore{inner: s, metrics: m}
}

type instrumentedStore struct {
	inner   store.Store
	metrics *Metrics
}

func (s *instrumentedStore) Table(name string) store.Table {
	return &instrumentedTable{inner: s.inner.Table(name), name: name, metrics: s.metrics}
}

func (s *instrumentedStore) Close() error { return s.inner.Close() }

type instrumentedTable struct {
	inner   store.Table
	name    string
	metrics *Metrics
}

func (t *instrumentedTable) fail(err error) error {
	if err != nil {
		t.metrics.StoreFailures.WithLabelValues(t.name).Inc()
	}
	return err
}

func (t *instrumentedTable) ReadAll(ctx context.Context) ([]store.Record, error) {
	t.metrics.TableScans.WithLabelValues(t.name).Inc()
	recs, err := t.inner.ReadAll(ctx)
	return recs, t.fail(err)
}

func (t *instrumentedTable) Find(ctx context.Context, key string) (store.Record, error) {
	t.metrics.TableScans.WithLabelValues(t.name).Inc()
	rec, err := t.inner.Find(ctx, key)
	return rec, t.fail(err)
}

func (t *instrumentedTable) Append(ctx context.Context, rec store.Record) error {
	if err := t.inner.Append(ctx, rec); err != nil {
		return t.fail(err)
	}
	t.metrics.RecordsAppended.WithLabelValues(t.name).Inc()
	return nil
}

func (t *instrumentedTable) Update(ctx context.Context, key string, rec store.Record) error {
	if err := t.inner.Update(ctx, key, rec); err != nil {
		return t.fail(err)
	}
	t.metrics.RecordsUpdated.WithLabelValues(t.name).Inc()
	return nil
}

func (t *instrumentedTable) UpdateField(ctx context.Context, key string, index int, value string) error {
	if err := t.inner.UpdateField(ctx, key, index, value); err != nil {
		return t.fail(err)
	}
	t.metrics.RecordsUpdated.WithLabelValues(t.name).Inc()
	return nil
}

func (t *instrumentedTable) Delete(ctx context.Context, key string) error {
	if err := t.inner.Delete(ctx, key); err != nil {
		return t.fail(err)
	}
	t.metrics.RecordsDeleted.WithLabelValues(t.name).Inc()
	return nil
}
