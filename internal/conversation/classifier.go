package conversation

import "context"

// Intent is the coarse classification of an inbound message.
type Intent string

const (
	IntentBook       Intent = "book"
	IntentInquire    Intent = "inquire"
	IntentCancel     Intent = "cancel"
	IntentReschedule Intent = "reschedule"
	IntentFAQ        Intent = "faq"
	IntentOther      Intent = "other"
)

// Entities are the structured fragments the classifier pulls out of a
// message. All fields are best-effort.
type Entities struct {
	Service  string `json:"service,omitempty"`
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
	Duration int    `json:"duration,omitempty"`
	Guests   int    `json:"guests,omitempty"`
}

// Classification is the classifier's verdict on one message.
type Classification struct {
	Intent     Intent   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Entities   Entities `json:"entities"`
	RawText    string   `json:"rawText"`
}

// Classifier turns free text into an intent. Implementations must degrade
// rather than fail: an unclassifiable message comes back as IntentOther with
// zero confidence, not an error.
type Classifier interface {
	Classify(ctx context.Context, message string, history []Message) Classification
}
