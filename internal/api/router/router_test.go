package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/simplebiz/concierge/internal/booking"
	"github.com/simplebiz/concierge/internal/conversation"
	"github.com/simplebiz/concierge/internal/http/handlers"
)

type noopPublisher struct{}

func (noopPublisher) EnqueueInbound(context.Context, conversation.InboundJob) error { return nil }

type noopBookings struct{}

func (noopBookings) CreateBooking(context.Context, booking.CreateBookingInput) (*booking.Appointment, error) {
	return &booking.Appointment{}, nil
}

func (noopBookings) CancelBooking(context.Context, uuid.UUID, uuid.UUID) (*booking.Appointment, error) {
	return &booking.Appointment{}, nil
}

type noopLister struct{}

func (noopLister) List(context.Context, booking.ListFilter) ([]booking.Appointment, error) {
	return nil, nil
}

func testRouter() http.Handler {
	return New(&Config{
		Webhook:         handlers.NewWhatsAppWebhookHandler(noopPublisher{}, nil, nil),
		Appointments:    handlers.NewAppointmentsHandler(noopBookings{}, noopLister{}, nil, nil),
		AdminAuthSecret: "secret",
	})
}

func TestHealthEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/appointments", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestWebhookIsPublic(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", nil))

	// Reaches the handler (400 for the empty body) rather than auth.
	if rec.Code == http.StatusUnauthorized {
		t.Fatal("webhook must not require admin auth")
	}
}
