package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConciergeMetrics exposes counters/histograms for the booking assistant.
type ConciergeMetrics struct {
	inboundTotal     *prometheus.CounterVec
	bookingsTotal    *prometheus.CounterVec
	remindersTotal   *prometheus.CounterVec
	calendarDegraded prometheus.Counter
	slotGenLatency   prometheus.Histogram
}

func NewConciergeMetrics(reg prometheus.Registerer) *ConciergeMetrics {
	m := &ConciergeMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "conversation",
			Name:      "inbound_messages_total",
			Help:      "Total inbound WhatsApp messages processed",
		}, []string{"intent", "status"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "booking",
			Name:      "appointments_total",
			Help:      "Total appointment lifecycle transitions",
		}, []string{"action", "status"}),
		remindersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "reminders",
			Name:      "deliveries_total",
			Help:      "Total reminder delivery attempts",
		}, []string{"type", "status"}),
		calendarDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "concierge",
			Subsystem: "availability",
			Name:      "calendar_degraded_total",
			Help:      "Slot generations that ran without busy intervals due to calendar failures",
		}),
		slotGenLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "concierge",
			Subsystem: "availability",
			Name:      "slot_generation_seconds",
			Help:      "Latency of slot generation",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.bookingsTotal, m.remindersTotal, m.calendarDegraded, m.slotGenLatency)
	return m
}

func (m *ConciergeMetrics) ObserveInbound(intent, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(intent, status).Inc()
}

func (m *ConciergeMetrics) ObserveBooking(action, status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(action, status).Inc()
}

func (m *ConciergeMetrics) ObserveReminder(reminderType, status string) {
	if m == nil {
		return
	}
	m.remindersTotal.WithLabelValues(reminderType, status).Inc()
}

func (m *ConciergeMetrics) ObserveCalendarDegraded() {
	if m == nil {
		return
	}
	m.calendarDegraded.Inc()
}

func (m *ConciergeMetrics) ObserveSlotGeneration(seconds float64) {
	if m == nil {
		return
	}
	m.slotGenLatency.Observe(seconds)
}
