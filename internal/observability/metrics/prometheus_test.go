package metrics

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicware/hms/internal/store"
)

func TestInstrumentedStoreCounts(t *testing.T) {
	ctx := context.Background()
	m := New(prometheus.NewRegistry())
	s := InstrumentStore(store.NewMemStore(), m)
	tbl := s.Table("appointments")

	require.NoError(t, tbl.Append(ctx, store.Record{"A1", "x"}))
	require.NoError(t, tbl.Append(ctx, store.Record{"A2", "x"}))
	require.NoError(t, tbl.UpdateField(ctx, "A1", 1, "y"))
	require.NoError(t, tbl.Delete(ctx, "A2"))
	_, err := tbl.Find(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	var out strings.Builder
	require.NoError(t, m.Dump(&out))
	text := out.String()

	assert.Contains(t, text, `records_appended_total{table="appointments"} 2`)
	assert.Contains(t, text, `records_updated_total{table="appointments"} 1`)
	assert.Contains(t, text, `records_deleted_total{table="appointments"} 1`)
	assert.Contains(t, text, `store_failures_total{table="appointments"} 1`)
}

// gatheringRegisterer is a Registerer that gathers without being a *Registry.
type gatheringRegisterer struct {
	*prometheus.Registry
}

func TestDumpUsesAnyGatheringRegisterer(t *testing.T) {
	m := New(&gatheringRegisterer{prometheus.NewRegistry()})
	m.SlotsCreated.Inc()

	var out strings.Builder
	require.NoError(t, m.Dump(&out))
	assert.Contains(t, out.String(), "appointment_slots_created_total 1")
}

func TestDomainCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.BookingsRequested.Inc()
	m.BookingsAccepted.Inc()
	m.PrescriptionsDispensed.Inc()

	var out strings.Builder
	require.NoError(t, m.Dump(&out))
	text := out.String()

	assert.Contains(t, text, "appointment_bookings_requested_total 1")
	assert.Contains(t, text, "appointment_bookings_accepted_total 1")
	assert.Contains(t, text, "prescriptions_dispensed_total 1")
}
