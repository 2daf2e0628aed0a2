package reminders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/simplebiz/concierge/internal/apperr"
	"github.com/simplebiz/concierge/internal/booking"
	"github.com/simplebiz/concierge/internal/business"
	"github.com/simplebiz/concierge/internal/observability/metrics"
	"github.com/simplebiz/concierge/pkg/logging"
)

// AppointmentSource resolves the appointment a due reminder belongs to.
type AppointmentSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*booking.Appointment, error)
}

// BusinessSource resolves the gateway a business sends through.
type BusinessSource interface {
	GetBusiness(ctx context.Context, id uuid.UUID) (*business.Business, error)
}

// Messenger delivers a text message to a customer through a WhatsApp
// gateway. An empty gatewayURL falls back to the sender's default.
type Messenger interface {
	Send(ctx context.Context, gatewayURL, to, text string) error
}

// Worker polls for due reminders and delivers them. The appointment's
// status is re-checked at delivery time so a reminder never fires for a
// booking that was cancelled or completed after it was scheduled.
type Worker struct {
	store        ReminderStore
	appts        AppointmentSource
	businesses   BusinessSource
	messenger    Messenger
	logger       *logging.Logger
	metrics      *metrics.ConciergeMetrics
	pollInterval time.Duration
	now          func() time.Time
}

// NewWorker constructs a reminder delivery worker.
func NewWorker(store ReminderStore, appts AppointmentSource, businesses BusinessSource, messenger Messenger, pollInterval time.Duration, logger *logging.Logger, m *metrics.ConciergeMetrics) *Worker {
	if store == nil {
		panic("reminders: store required")
	}
	if appts == nil {
		panic("reminders: appointment source required")
	}
	if messenger == nil {
		panic("reminders: messenger required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	return &Worker{
		store:        store,
		appts:        appts,
		businesses:   businesses,
		messenger:    messenger,
		logger:       logger,
		metrics:      m,
		pollInterval: pollInterval,
		now:          time.Now,
	}
}

// WithClock overrides the worker clock, for tests.
func (w *Worker) WithClock(now func() time.Time) *Worker {
	w.now = now
	return w
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("reminder worker started", "poll_interval", w.pollInterval.String())
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder worker stopping")
			return
		case <-ticker.C:
			if err := w.ProcessDue(ctx); err != nil {
				w.logger.Error("reminder poll failed", "error", err)
			}
		}
	}
}

// ProcessDue delivers every reminder due as of now. Failures are isolated
// per reminder so one bad row cannot stall the queue.
func (w *Worker) ProcessDue(ctx context.Context) error {
	due, err := w.store.ListDue(ctx, w.now().UTC())
	if err != nil {
		return err
	}
	for _, r := range due {
		w.processOne(ctx, r)
	}
	return nil
}

func (w *Worker) processOne(ctx context.Context, r Reminder) {
	appt, err := w.appts.GetByID(ctx, r.AppointmentID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			w.logger.Warn("reminder references missing appointment, cancelling",
				"reminder_id", r.ID, "appointment_id", r.AppointmentID)
			w.cancel(ctx, r)
			return
		}
		w.logger.Error("reminder appointment lookup failed", "reminder_id", r.ID, "error", err)
		return
	}

	// Delivery-time status gate: the appointment may have been cancelled
	// or completed since the reminder was scheduled.
	if appt.Status == booking.StatusCancelled || appt.Status == booking.StatusCompleted {
		w.logger.Info("appointment no longer active, cancelling reminder",
			"reminder_id", r.ID, "appointment_status", string(appt.Status))
		w.cancel(ctx, r)
		return
	}

	gatewayURL := ""
	if w.businesses != nil {
		if biz, err := w.businesses.GetBusiness(ctx, r.BusinessID); err == nil {
			gatewayURL = biz.WhatsAppGatewayURL
		} else {
			w.logger.Warn("reminder business lookup failed, using default gateway",
				"reminder_id", r.ID, "error", err)
		}
	}

	text := r.Message
	if text == "" {
		text = renderMessage(r.Type, appt)
	}

	if err := w.messenger.Send(ctx, gatewayURL, appt.CustomerPhone, text); err != nil {
		w.logger.Error("reminder delivery failed",
			"reminder_id", r.ID, "appointment_id", appt.ID, "error", err)
		if err := w.store.MarkFailed(ctx, r.ID); err != nil {
			w.logger.Error("reminder mark failed errored", "reminder_id", r.ID, "error", err)
		}
		w.metrics.ObserveReminder(string(r.Type), "failed")
		return
	}

	if err := w.store.MarkSent(ctx, r.ID); err != nil {
		w.logger.Error("reminder mark sent errored", "reminder_id", r.ID, "error", err)
		return
	}
	w.metrics.ObserveReminder(string(r.Type), "sent")
	w.logger.Info("reminder sent",
		"reminder_id", r.ID,
		"appointment_id", appt.ID,
		"type", string(r.Type),
	)
}

func (w *Worker) cancel(ctx context.Context, r Reminder) {
	if err := w.store.Cancel(ctx, r.ID); err != nil {
		w.logger.Error("reminder cancel errored", "reminder_id", r.ID, "error", err)
		return
	}
	w.metrics.ObserveReminder(string(r.Type), "cancelled")
}
