// Package conversation runs the WhatsApp booking dialogue: a persisted
// per-customer state machine layered over an LLM intent classifier.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Step is the position in the multi-turn booking flow.
type Step string

const (
	StepService  Step = "service"
	StepTime     Step = "time"
	StepConfirm  Step = "confirm"
	StepComplete Step = "complete"
)

// BookingState is the in-progress booking carried on a conversation row.
// A zero value (empty Step) means no booking is in flight.
type BookingState struct {
	Step           Step      `json:"step,omitempty"`
	ServiceID      uuid.UUID `json:"service_id,omitempty"`
	ServiceName    string    `json:"service_name,omitempty"`
	SelectedSlotID string    `json:"selected_slot_id,omitempty"`
	SlotDate       string    `json:"slot_date,omitempty"`
	SlotTime       string    `json:"slot_time,omitempty"`
}

// Active reports whether a booking flow is in flight.
func (s BookingState) Active() bool {
	return s.Step == StepService || s.Step == StepTime || s.Step == StepConfirm
}

// Message is one turn of dialogue history.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation is the durable session for one customer at one business.
// SessionID is the customer's WhatsApp number.
type Conversation struct {
	ID         uuid.UUID    `json:"id"`
	BusinessID uuid.UUID    `json:"business_id"`
	CustomerID uuid.UUID    `json:"customer_id"`
	SessionID  string       `json:"session_id"`
	Intent     string       `json:"intent"`
	State      BookingState `json:"state"`
	Messages   []Message    `json:"messages"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}
