package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConciergeMetrics(reg)

	m.ObserveInbound("book", "ok")
	m.ObserveInbound("book", "ok")
	m.ObserveBooking("create", "pending")
	m.ObserveReminder("24h", "sent")
	m.ObserveCalendarDegraded()
	m.ObserveSlotGeneration(0.02)

	if got := testutil.ToFloat64(m.inboundTotal.WithLabelValues("book", "ok")); got != 2 {
		t.Errorf("inbound counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.bookingsTotal.WithLabelValues("create", "pending")); got != 1 {
		t.Errorf("bookings counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.calendarDegraded); got != 1 {
		t.Errorf("degraded counter = %v, want 1", got)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *ConciergeMetrics
	m.ObserveInbound("other", "error")
	m.ObserveBooking("cancel", "ok")
	m.ObserveReminder("1h", "failed")
	m.ObserveCalendarDegraded()
	m.ObserveSlotGeneration(1)
}
