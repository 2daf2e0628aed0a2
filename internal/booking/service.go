// Package booking owns the appointment lifecycle: creation from a selected
// slot, ownership-scoped cancellation, and customer queries.
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/simplebiz/concierge/internal/apperr"
	"github.com/simplebiz/concierge/internal/availability"
	"github.com/simplebiz/concierge/internal/business"
	"github.com/simplebiz/concierge/internal/calendar"
	"github.com/simplebiz/concierge/internal/observability/metrics"
	"github.com/simplebiz/concierge/pkg/logging"
)

var bookingTracer = otel.Tracer("concierge.internal.booking")

// CatalogStore resolves businesses, services, and customer upserts.
type CatalogStore interface {
	GetBusiness(ctx context.Context, id uuid.UUID) (*business.Business, error)
	GetService(ctx context.Context, id uuid.UUID) (*business.Service, error)
	RecordCustomerBooking(ctx context.Context, businessID uuid.UUID, phone, name string) (*business.Customer, error)
}

// AppointmentStore persists appointments.
type AppointmentStore interface {
	Insert(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	CancelForBusiness(ctx context.Context, id, businessID uuid.UUID) (*Appointment, error)
	ListUpcomingForCustomer(ctx context.Context, businessID uuid.UUID, phone string, asOf time.Time) ([]Appointment, error)
	ExistsOverlapping(ctx context.Context, businessID uuid.UUID, start, end time.Time) (bool, error)
}

// BusySource re-checks external busy intervals right before an insert.
type BusySource interface {
	BusyIntervals(ctx context.Context, calendarID string, credentialsJSON []byte, start, end time.Time) ([]calendar.BusyInterval, error)
}

// ReminderCanceler cascades appointment cancellation to pending reminders.
type ReminderCanceler interface {
	CancelAll(ctx context.Context, appointmentID uuid.UUID) error
}

// Service is the booking lifecycle manager.
type Service struct {
	catalog   CatalogStore
	appts     AppointmentStore
	busy      BusySource
	reminders ReminderCanceler
	logger    *logging.Logger
	metrics   *metrics.ConciergeMetrics
	now       func() time.Time
}

// NewService constructs a booking service.
func NewService(catalog CatalogStore, appts AppointmentStore, busy BusySource, reminders ReminderCanceler, logger *logging.Logger, m *metrics.ConciergeMetrics) *Service {
	if catalog == nil {
		panic("booking: catalog store required")
	}
	if appts == nil {
		panic("booking: appointment store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		catalog:   catalog,
		appts:     appts,
		busy:      busy,
		reminders: reminders,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// WithClock overrides the service clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateBooking decodes the selected slot, snapshots the service's duration
// and price, upserts the customer, and inserts a pending appointment. The
// slot window is re-checked against fresh busy data and existing appointments;
// a hit returns apperr.ErrSlotTaken.
func (s *Service) CreateBooking(ctx context.Context, input CreateBookingInput) (*Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("concierge.business_id", input.BusinessID.String()),
		attribute.String("concierge.service_id", input.ServiceID.String()),
	)

	if input.BusinessID == uuid.Nil || input.ServiceID == uuid.Nil || input.CustomerPhone == "" || input.SlotID == "" {
		return nil, fmt.Errorf("booking: businessId, serviceId, customerPhone and slotId are required: %w", apperr.ErrInvalidInput)
	}

	biz, err := s.catalog.GetBusiness(ctx, input.BusinessID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	svc, err := s.catalog.GetService(ctx, input.ServiceID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	start, err := availability.DecodeSlotID(input.SlotID, s.location(biz.Timezone))
	if err != nil {
		return nil, err
	}
	end := start.Add(time.Duration(svc.DurationMin) * time.Minute)

	if err := s.checkSlotStillFree(ctx, biz, start, end); err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking("create", "conflict")
		return nil, err
	}

	customer, err := s.catalog.RecordCustomerBooking(ctx, input.BusinessID, input.CustomerPhone, input.CustomerName)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	customerName := input.CustomerName
	if customerName == "" {
		customerName = customer.Name
	}
	if customerName == "" {
		customerName = "Customer"
	}

	appt := &Appointment{
		BusinessID:    input.BusinessID,
		CustomerID:    customer.ID,
		ServiceID:     svc.ID,
		CustomerName:  customerName,
		CustomerPhone: input.CustomerPhone,
		ServiceName:   svc.Name,
		StartTime:     start,
		EndTime:       end,
		PriceCents:    svc.PriceCents,
		Status:        StatusPending,
		Notes:         input.Notes,
	}
	if err := s.appts.Insert(ctx, appt); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.metrics.ObserveBooking("create", string(appt.Status))
	s.logger.Info("booking created",
		"appointment_id", appt.ID,
		"business_id", appt.BusinessID,
		"service", appt.ServiceName,
		"start_time", appt.StartTime,
	)
	return appt, nil
}

// CancelBooking marks an appointment cancelled, scoped to the owning
// business, and cascades to its pending reminders.
func (s *Service) CancelBooking(ctx context.Context, appointmentID, businessID uuid.UUID) (*Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("concierge.appointment_id", appointmentID.String()))

	appt, err := s.appts.CancelForBusiness(ctx, appointmentID, businessID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if s.reminders != nil {
		if err := s.reminders.CancelAll(ctx, appointmentID); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("booking: cascade reminder cancel: %w", err)
		}
	}

	s.metrics.ObserveBooking("cancel", string(appt.Status))
	s.logger.Info("booking cancelled", "appointment_id", appt.ID, "business_id", businessID)
	return appt, nil
}

// GetCustomerAppointments returns future, live appointments for a customer in
// ascending start order.
func (s *Service) GetCustomerAppointments(ctx context.Context, businessID uuid.UUID, phone string) ([]Appointment, error) {
	return s.appts.ListUpcomingForCustomer(ctx, businessID, phone, s.now().UTC())
}

// checkSlotStillFree re-validates the slot window immediately before insert.
// Calendar lookup failures are swallowed here the same way the generator
// swallows them; the appointment-overlap query is authoritative.
func (s *Service) checkSlotStillFree(ctx context.Context, biz *business.Business, start, end time.Time) error {
	if s.busy != nil && biz.GoogleCalendarID != "" {
		intervals, err := s.busy.BusyIntervals(ctx, biz.GoogleCalendarID, biz.GoogleCredentials, start, end)
		if err != nil {
			s.logger.Warn("booking: conflict re-check skipped calendar", "business_id", biz.ID, "error", err)
		} else {
			for _, b := range intervals {
				if availability.OverlapsBusy(start, end, b) {
					return fmt.Errorf("booking: slot overlaps calendar event %s: %w", b.ID, apperr.ErrSlotTaken)
				}
			}
		}
	}

	taken, err := s.appts.ExistsOverlapping(ctx, biz.ID, start, end)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("booking: slot already booked: %w", apperr.ErrSlotTaken)
	}
	return nil
}

func (s *Service) location(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}
