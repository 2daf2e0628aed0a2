// Package reminders schedules and delivers appointment reminders over
// WhatsApp at fixed offsets before the appointment start.
package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/simplebiz/concierge/internal/booking"
	"github.com/simplebiz/concierge/internal/observability/metrics"
	"github.com/simplebiz/concierge/pkg/logging"
)

// ReminderStore is the persistence surface the scheduler and worker need.
type ReminderStore interface {
	Create(ctx context.Context, r *Reminder) error
	ListDue(ctx context.Context, asOf time.Time) ([]Reminder, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
	Cancel(ctx context.Context, id uuid.UUID) error
	CancelAll(ctx context.Context, appointmentID uuid.UUID) error
}

// Scheduler creates pending reminder rows when an appointment is booked.
type Scheduler struct {
	store   ReminderStore
	logger  *logging.Logger
	metrics *metrics.ConciergeMetrics
	now     func() time.Time
}

// NewScheduler constructs a reminder scheduler.
func NewScheduler(store ReminderStore, logger *logging.Logger, m *metrics.ConciergeMetrics) *Scheduler {
	if store == nil {
		panic("reminders: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{store: store, logger: logger, metrics: m, now: time.Now}
}

// WithClock overrides the scheduler clock, for tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Schedule creates the 24-hour and 1-hour reminders for an appointment.
// Offsets that already lie in the past are skipped, so a booking made 30
// minutes ahead gets no reminders at all.
func (s *Scheduler) Schedule(ctx context.Context, appt *booking.Appointment) error {
	now := s.now()
	for _, t := range []Type{Type24Hour, Type1Hour} {
		fireAt := appt.StartTime.Add(-t.Offset())
		if !fireAt.After(now) {
			s.logger.Debug("reminder offset already past, skipping",
				"appointment_id", appt.ID, "type", string(t))
			continue
		}
		r := &Reminder{
			BusinessID:    appt.BusinessID,
			AppointmentID: appt.ID,
			Type:          t,
			ScheduledAt:   fireAt,
			Message:       renderMessage(t, appt),
			Status:        StatusPending,
		}
		if err := s.store.Create(ctx, r); err != nil {
			return fmt.Errorf("reminders: schedule %s reminder: %w", t, err)
		}
		s.metrics.ObserveReminder(string(t), "scheduled")
		s.logger.Info("reminder scheduled",
			"reminder_id", r.ID,
			"appointment_id", appt.ID,
			"type", string(t),
			"fire_at", fireAt,
		)
	}
	return nil
}

// renderMessage produces the outbound text at schedule time so the worker
// does not need to re-resolve the appointment's details to send it.
func renderMessage(t Type, appt *booking.Appointment) string {
	when := appt.StartTime.Format("Monday, Jan 2 at 3:04 PM")
	switch t {
	case Type24Hour:
		return fmt.Sprintf("Hi %s! Just a reminder that your %s appointment is tomorrow, %s. Reply CANCEL if you need to change it.",
			appt.CustomerName, appt.ServiceName, when)
	case Type1Hour:
		return fmt.Sprintf("Hi %s! Your %s appointment is coming up in 1 hour (%s). See you soon!",
			appt.CustomerName, appt.ServiceName, when)
	default:
		return fmt.Sprintf("Hi %s! Reminder for your %s appointment on %s.",
			appt.CustomerName, appt.ServiceName, when)
	}
}
