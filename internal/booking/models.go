package booking

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks the appointment lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Appointment is the persistent booking entity. Customer and service names are
// denormalized and the price is a snapshot taken at creation time.
type Appointment struct {
	ID            uuid.UUID `json:"id"`
	BusinessID    uuid.UUID `json:"business_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	ServiceID     uuid.UUID `json:"service_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	ServiceName   string    `json:"service_name"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	PriceCents    int64     `json:"price_cents"`
	Status        Status    `json:"status"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateBookingInput carries everything needed to create an appointment from
// a customer's confirmed slot selection.
type CreateBookingInput struct {
	BusinessID    uuid.UUID
	ServiceID     uuid.UUID
	CustomerPhone string
	CustomerName  string
	SlotID        string
	Notes         string
}
