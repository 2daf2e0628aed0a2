package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/simplebiz/concierge/internal/booking"
	"github.com/simplebiz/concierge/pkg/logging"
)

// BookingService is the lifecycle surface the API drives.
type BookingService interface {
	CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*booking.Appointment, error)
	CancelBooking(ctx context.Context, appointmentID, businessID uuid.UUID) (*booking.Appointment, error)
}

// AppointmentLister queries appointments with filters.
type AppointmentLister interface {
	List(ctx context.Context, f booking.ListFilter) ([]booking.Appointment, error)
}

// ReminderScheduler creates reminders for an appointment booked over the API.
type ReminderScheduler interface {
	Schedule(ctx context.Context, appt *booking.Appointment) error
}

// AppointmentsHandler serves the admin appointments API.
type AppointmentsHandler struct {
	bookings  BookingService
	lister    AppointmentLister
	scheduler ReminderScheduler
	logger    *logging.Logger
}

// NewAppointmentsHandler creates an appointments API handler.
func NewAppointmentsHandler(bookings BookingService, lister AppointmentLister, scheduler ReminderScheduler, logger *logging.Logger) *AppointmentsHandler {
	if bookings == nil {
		panic("handlers: booking service required")
	}
	if lister == nil {
		panic("handlers: appointment lister required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{bookings: bookings, lister: lister, scheduler: scheduler, logger: logger}
}

// List is GET /api/appointments.
func (h *AppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	businessID, err := uuid.Parse(q.Get("businessId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "businessId is required")
		return
	}

	filter := booking.ListFilter{
		BusinessID:    businessID,
		CustomerPhone: q.Get("customerPhone"),
		Status:        booking.Status(q.Get("status")),
	}
	if from := q.Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be RFC3339")
			return
		}
		filter.From = t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			writeError(w, http.StatusBadRequest, "to must be RFC3339")
			return
		}
		filter.To = t
	}

	appts, err := h.lister.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("appointment list failed", "business_id", businessID, "error", err)
		writeDomainError(w, err)
		return
	}
	if appts == nil {
		appts = []booking.Appointment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

type createAppointmentRequest struct {
	BusinessID    uuid.UUID `json:"businessId"`
	ServiceID     uuid.UUID `json:"serviceId"`
	CustomerPhone string    `json:"customerPhone"`
	CustomerName  string    `json:"customerName"`
	SlotID        string    `json:"slotId"`
	Notes         string    `json:"notes"`
}

// Create is POST /api/appointments. Reminders are scheduled after a
// successful insert; a scheduling failure does not unwind the booking.
func (h *AppointmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	appt, err := h.bookings.CreateBooking(r.Context(), booking.CreateBookingInput{
		BusinessID:    req.BusinessID,
		ServiceID:     req.ServiceID,
		CustomerPhone: req.CustomerPhone,
		CustomerName:  req.CustomerName,
		SlotID:        req.SlotID,
		Notes:         req.Notes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if h.scheduler != nil {
		if err := h.scheduler.Schedule(r.Context(), appt); err != nil {
			h.logger.Error("reminder scheduling failed", "appointment_id", appt.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, appt)
}

// Cancel is DELETE /api/appointments/{id}.
func (h *AppointmentsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	apptID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}
	businessID, err := uuid.Parse(r.URL.Query().Get("businessId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "businessId is required")
		return
	}

	appt, err := h.bookings.CancelBooking(r.Context(), apptID, businessID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}
