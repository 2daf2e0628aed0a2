package booking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/simplebiz/concierge/internal/apperr"
	"github.com/simplebiz/concierge/internal/business"
	"github.com/simplebiz/concierge/internal/calendar"
)

type stubCatalog struct {
	biz      *business.Business
	svc      *business.Service
	svcErr   error
	customer *business.Customer
	recorded int
}

func (s *stubCatalog) GetBusiness(context.Context, uuid.UUID) (*business.Business, error) {
	return s.biz, nil
}

func (s *stubCatalog) GetService(context.Context, uuid.UUID) (*business.Service, error) {
	if s.svcErr != nil {
		return nil, s.svcErr
	}
	return s.svc, nil
}

func (s *stubCatalog) RecordCustomerBooking(_ context.Context, _ uuid.UUID, phone, name string) (*business.Customer, error) {
	s.recorded++
	c := *s.customer
	c.Phone = phone
	if name != "" {
		c.Name = name
	}
	c.TotalBookings++
	return &c, nil
}

type stubAppointments struct {
	inserted    *Appointment
	cancelled   *Appointment
	cancelErr   error
	upcoming    []Appointment
	overlapping bool
}

func (s *stubAppointments) Insert(_ context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	s.inserted = a
	return nil
}

func (s *stubAppointments) GetByID(context.Context, uuid.UUID) (*Appointment, error) {
	return s.inserted, nil
}

func (s *stubAppointments) CancelForBusiness(_ context.Context, id, businessID uuid.UUID) (*Appointment, error) {
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	s.cancelled = &Appointment{ID: id, BusinessID: businessID, Status: StatusCancelled}
	return s.cancelled, nil
}

func (s *stubAppointments) ListUpcomingForCustomer(context.Context, uuid.UUID, string, time.Time) ([]Appointment, error) {
	return s.upcoming, nil
}

func (s *stubAppointments) ExistsOverlapping(context.Context, uuid.UUID, time.Time, time.Time) (bool, error) {
	return s.overlapping, nil
}

type stubBusy struct {
	intervals []calendar.BusyInterval
	err       error
}

func (s *stubBusy) BusyIntervals(context.Context, string, []byte, time.Time, time.Time) ([]calendar.BusyInterval, error) {
	return s.intervals, s.err
}

type stubCanceler struct {
	calls []uuid.UUID
	err   error
}

func (s *stubCanceler) CancelAll(_ context.Context, id uuid.UUID) error {
	s.calls = append(s.calls, id)
	return s.err
}

func fixtureCatalog() *stubCatalog {
	bizID := uuid.New()
	return &stubCatalog{
		biz: &business.Business{ID: bizID, Name: "Glow Studio", Timezone: "UTC", GoogleCalendarID: "primary", GoogleCredentials: []byte(`{}`)},
		svc: &business.Service{
			ID:          uuid.New(),
			BusinessID:  bizID,
			Name:        "Haircut",
			DurationMin: 60,
			PriceCents:  4500,
			IsActive:    true,
		},
		customer: &business.Customer{ID: uuid.New(), BusinessID: bizID, Name: ""},
	}
}

func TestCreateBookingHappyPath(t *testing.T) {
	catalog := fixtureCatalog()
	appts := &stubAppointments{}
	svc := NewService(catalog, appts, &stubBusy{}, nil, nil, nil)

	appt, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		BusinessID:    catalog.biz.ID,
		ServiceID:     catalog.svc.ID,
		CustomerPhone: "+6512345678",
		CustomerName:  "Mei",
		SlotID:        "2026-03-02-0900",
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	if appt.Status != StatusPending {
		t.Errorf("status = %s, want pending", appt.Status)
	}
	wantStart := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if !appt.StartTime.Equal(wantStart) {
		t.Errorf("start = %s, want %s", appt.StartTime, wantStart)
	}
	if !appt.EndTime.Equal(wantStart.Add(time.Hour)) {
		t.Errorf("end = %s, want start+60m", appt.EndTime)
	}
	if appt.ServiceName != "Haircut" || appt.PriceCents != 4500 {
		t.Errorf("service snapshot = %s/%d", appt.ServiceName, appt.PriceCents)
	}
	if appt.CustomerName != "Mei" {
		t.Errorf("customer name = %q", appt.CustomerName)
	}
	if catalog.recorded != 1 {
		t.Errorf("customer upsert called %d times", catalog.recorded)
	}
	if appts.inserted == nil {
		t.Fatal("appointment was not inserted")
	}
}

func TestCreateBookingValidatesInput(t *testing.T) {
	catalog := fixtureCatalog()
	svc := NewService(catalog, &stubAppointments{}, nil, nil, nil, nil)

	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		BusinessID: catalog.biz.ID,
		ServiceID:  catalog.svc.ID,
		// missing phone and slot id
	})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateBookingUnknownService(t *testing.T) {
	catalog := fixtureCatalog()
	catalog.svcErr = fmt.Errorf("business: service: %w", apperr.ErrNotFound)
	svc := NewService(catalog, &stubAppointments{}, nil, nil, nil, nil)

	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		BusinessID:    catalog.biz.ID,
		ServiceID:     uuid.New(),
		CustomerPhone: "+6512345678",
		SlotID:        "2026-03-02-0900",
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateBookingRejectsTakenSlot(t *testing.T) {
	catalog := fixtureCatalog()
	svc := NewService(catalog, &stubAppointments{overlapping: true}, &stubBusy{}, nil, nil, nil)

	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		BusinessID:    catalog.biz.ID,
		ServiceID:     catalog.svc.ID,
		CustomerPhone: "+6512345678",
		SlotID:        "2026-03-02-0900",
	})
	if !errors.Is(err, apperr.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}

func TestCreateBookingRejectsFreshBusyOverlap(t *testing.T) {
	catalog := fixtureCatalog()
	busy := &stubBusy{intervals: []calendar.BusyInterval{{
		ID:    "evt-9",
		Start: time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 2, 9, 45, 0, 0, time.UTC),
	}}}
	svc := NewService(catalog, &stubAppointments{}, busy, nil, nil, nil)

	_, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		BusinessID:    catalog.biz.ID,
		ServiceID:     catalog.svc.ID,
		CustomerPhone: "+6512345678",
		SlotID:        "2026-03-02-0900",
	})
	if !errors.Is(err, apperr.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}

func TestCreateBookingProceedsWhenCalendarRecheckFails(t *testing.T) {
	catalog := fixtureCatalog()
	svc := NewService(catalog, &stubAppointments{}, &stubBusy{err: errors.New("calendar down")}, nil, nil, nil)

	appt, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		BusinessID:    catalog.biz.ID,
		ServiceID:     catalog.svc.ID,
		CustomerPhone: "+6512345678",
		SlotID:        "2026-03-02-0900",
	})
	if err != nil {
		t.Fatalf("create should degrade on calendar failure: %v", err)
	}
	if appt == nil || appt.Status != StatusPending {
		t.Fatalf("appointment = %+v", appt)
	}
}

func TestCancelBookingCascadesReminders(t *testing.T) {
	catalog := fixtureCatalog()
	appts := &stubAppointments{}
	canceler := &stubCanceler{}
	svc := NewService(catalog, appts, nil, canceler, nil, nil)

	apptID := uuid.New()
	appt, err := svc.CancelBooking(context.Background(), apptID, catalog.biz.ID)
	if err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	if appt.Status != StatusCancelled {
		t.Errorf("status = %s", appt.Status)
	}
	if len(canceler.calls) != 1 || canceler.calls[0] != apptID {
		t.Errorf("reminder cascade calls = %v", canceler.calls)
	}
}

func TestCancelBookingWrongBusiness(t *testing.T) {
	catalog := fixtureCatalog()
	appts := &stubAppointments{cancelErr: fmt.Errorf("booking: %w", apperr.ErrNotFound)}
	canceler := &stubCanceler{}
	svc := NewService(catalog, appts, nil, canceler, nil, nil)

	_, err := svc.CancelBooking(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(canceler.calls) != 0 {
		t.Error("reminders should not be cancelled when ownership check fails")
	}
}
