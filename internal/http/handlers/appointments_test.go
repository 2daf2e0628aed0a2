package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/simplebiz/concierge/internal/apperr"
	"github.com/simplebiz/concierge/internal/booking"
)

type stubBookingService struct {
	created   *booking.Appointment
	createErr error
	cancelErr error
}

func (s *stubBookingService) CreateBooking(_ context.Context, input booking.CreateBookingInput) (*booking.Appointment, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = &booking.Appointment{
		ID:            uuid.New(),
		BusinessID:    input.BusinessID,
		ServiceID:     input.ServiceID,
		CustomerPhone: input.CustomerPhone,
		Status:        booking.StatusPending,
	}
	return s.created, nil
}

func (s *stubBookingService) CancelBooking(_ context.Context, appointmentID, businessID uuid.UUID) (*booking.Appointment, error) {
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	return &booking.Appointment{ID: appointmentID, BusinessID: businessID, Status: booking.StatusCancelled}, nil
}

type stubLister struct {
	filter booking.ListFilter
	appts  []booking.Appointment
}

func (s *stubLister) List(_ context.Context, f booking.ListFilter) ([]booking.Appointment, error) {
	s.filter = f
	return s.appts, nil
}

type stubApptScheduler struct {
	scheduled int
}

func (s *stubApptScheduler) Schedule(context.Context, *booking.Appointment) error {
	s.scheduled++
	return nil
}

func TestCreateAppointment(t *testing.T) {
	svc := &stubBookingService{}
	sched := &stubApptScheduler{}
	h := NewAppointmentsHandler(svc, &stubLister{}, sched, nil)

	body := fmt.Sprintf(`{
		"businessId": %q, "serviceId": %q,
		"customerPhone": "+6512345678", "customerName": "Mei",
		"slotId": "2026-03-02-0900"
	}`, uuid.New(), uuid.New())
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/appointments", strings.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if svc.created == nil {
		t.Fatal("booking was not created")
	}
	if sched.scheduled != 1 {
		t.Errorf("reminders scheduled %d times, want 1", sched.scheduled)
	}
}

func TestCreateAppointmentMissingFields(t *testing.T) {
	svc := &stubBookingService{createErr: fmt.Errorf("booking: required: %w", apperr.ErrInvalidInput)}
	h := NewAppointmentsHandler(svc, &stubLister{}, nil, nil)

	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/appointments", strings.NewReader(`{}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateAppointmentSlotConflict(t *testing.T) {
	svc := &stubBookingService{createErr: fmt.Errorf("booking: %w", apperr.ErrSlotTaken)}
	h := NewAppointmentsHandler(svc, &stubLister{}, nil, nil)

	body := fmt.Sprintf(`{"businessId": %q, "serviceId": %q, "customerPhone": "+65", "slotId": "2026-03-02-0900"}`,
		uuid.New(), uuid.New())
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/appointments", strings.NewReader(body)))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestListAppointmentsAppliesFilters(t *testing.T) {
	lister := &stubLister{appts: []booking.Appointment{{ID: uuid.New()}}}
	h := NewAppointmentsHandler(&stubBookingService{}, lister, nil, nil)

	bizID := uuid.New()
	url := fmt.Sprintf("/api/appointments?businessId=%s&customerPhone=%%2B6512345678&status=pending&from=2026-03-01T00:00:00Z", bizID)
	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, url, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if lister.filter.BusinessID != bizID {
		t.Errorf("business filter = %s", lister.filter.BusinessID)
	}
	if lister.filter.CustomerPhone != "+6512345678" {
		t.Errorf("phone filter = %q", lister.filter.CustomerPhone)
	}
	if lister.filter.Status != booking.StatusPending {
		t.Errorf("status filter = %q", lister.filter.Status)
	}
	if lister.filter.From.IsZero() || !lister.filter.From.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from filter = %s", lister.filter.From)
	}

	var resp struct {
		Appointments []booking.Appointment `json:"appointments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Appointments) != 1 {
		t.Errorf("appointments = %d, want 1", len(resp.Appointments))
	}
}

func TestListAppointmentsRequiresBusinessID(t *testing.T) {
	h := NewAppointmentsHandler(&stubBookingService{}, &stubLister{}, nil, nil)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/appointments", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCancelAppointment(t *testing.T) {
	h := NewAppointmentsHandler(&stubBookingService{}, &stubLister{}, nil, nil)

	apptID := uuid.New()
	bizID := uuid.New()
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/appointments/%s?businessId=%s", apptID, bizID), nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", apptID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.Cancel(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestCancelAppointmentNotFound(t *testing.T) {
	svc := &stubBookingService{cancelErr: fmt.Errorf("booking: %w", apperr.ErrNotFound)}
	h := NewAppointmentsHandler(svc, &stubLister{}, nil, nil)

	apptID := uuid.New()
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/appointments/%s?businessId=%s", apptID, uuid.New()), nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", apptID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.Cancel(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
