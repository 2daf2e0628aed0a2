package reminders

import (
	"time"

	"github.com/google/uuid"
)

// Type distinguishes the two reminder offsets relative to appointment start.
type Type string

const (
	Type24Hour Type = "24h"
	Type1Hour  Type = "1h"
)

// Offset returns how long before the appointment start this reminder fires.
func (t Type) Offset() time.Duration {
	switch t {
	case Type24Hour:
		return 24 * time.Hour
	case Type1Hour:
		return time.Hour
	default:
		return 0
	}
}

// Status tracks the reminder lifecycle. Delivery failure is terminal for a
// reminder instance; there is no automatic retry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Reminder is a scheduled, pre-rendered outbound message tied to an
// appointment's approach.
type Reminder struct {
	ID            uuid.UUID  `json:"id"`
	BusinessID    uuid.UUID  `json:"business_id"`
	AppointmentID uuid.UUID  `json:"appointment_id"`
	Type          Type       `json:"type"`
	ScheduledAt   time.Time  `json:"scheduled_at"`
	Message       string     `json:"message"`
	Status        Status     `json:"status"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
