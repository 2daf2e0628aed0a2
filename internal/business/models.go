package business

import (
	"time"

	"github.com/google/uuid"
)

// Business is a tenant: a small service business reachable over WhatsApp.
type Business struct {
	ID                 uuid.UUID       `json:"id"`
	Name               string          `json:"name"`
	WhatsAppGatewayURL string          `json:"whatsapp_gateway_url"`
	OperatingHours     map[string]any  `json:"operating_hours"`
	GoogleCalendarID   string          `json:"google_calendar_id"`
	GoogleCredentials  []byte          `json:"-"`
	Timezone           string          `json:"timezone"`
	CreatedAt          time.Time       `json:"created_at"`
}

// Service is a bookable offering with a canonical duration and price snapshot.
type Service struct {
	ID          uuid.UUID `json:"id"`
	BusinessID  uuid.UUID `json:"business_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	DurationMin int       `json:"duration_min"`
	PriceCents  int64     `json:"price_cents"`
	IsActive    bool      `json:"is_active"`
}

// Customer is identified per business by phone number.
type Customer struct {
	ID              uuid.UUID  `json:"id"`
	BusinessID      uuid.UUID  `json:"business_id"`
	Phone           string     `json:"phone"`
	Name            string     `json:"name"`
	TotalBookings   int        `json:"total_bookings"`
	LastContactedAt *time.Time `json:"last_contacted_at,omitempty"`
}
