package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/simplebiz/concierge/internal/conversation"
	"github.com/simplebiz/concierge/pkg/logging"
)

// WhatsAppMessage is one inbound message from the gateway.
type WhatsAppMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"` // text, image, document, location
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Image *struct {
		ID       string `json:"id"`
		MimeType string `json:"mime_type"`
	} `json:"image,omitempty"`
}

// WhatsAppWebhookPayload is the gateway's webhook envelope.
type WhatsAppWebhookPayload struct {
	MessagingProduct string `json:"messaging_product"`
	Contacts         []struct {
		WaID    string `json:"waid"`
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
	} `json:"contacts"`
	Messages []WhatsAppMessage `json:"messages"`
}

// InboundPublisher hands a message off for asynchronous processing.
type InboundPublisher interface {
	EnqueueInbound(ctx context.Context, job conversation.InboundJob) error
}

// ReplySender delivers the canned replies the webhook sends synchronously.
type ReplySender interface {
	Send(ctx context.Context, gatewayURL, to, text string) error
}

// WhatsAppWebhookHandler validates and enqueues inbound WhatsApp messages.
type WhatsAppWebhookHandler struct {
	publisher InboundPublisher
	sender    ReplySender
	logger    *logging.Logger
}

// NewWhatsAppWebhookHandler creates a webhook handler.
func NewWhatsAppWebhookHandler(publisher InboundPublisher, sender ReplySender, logger *logging.Logger) *WhatsAppWebhookHandler {
	if publisher == nil {
		panic("handlers: publisher required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WhatsAppWebhookHandler{publisher: publisher, sender: sender, logger: logger}
}

// Handle is POST /webhooks/whatsapp. Text messages are queued for the
// dialogue engine; image messages get a canned redirect on the spot.
func (h *WhatsAppWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var payload WhatsAppWebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if payload.MessagingProduct != "whatsapp" {
		writeError(w, http.StatusBadRequest, "invalid product")
		return
	}

	businessID, err := uuid.Parse(r.Header.Get("x-business-id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "business ID required")
		return
	}

	for _, msg := range payload.Messages {
		switch {
		case msg.Type == "text" && msg.Text != nil && msg.Text.Body != "":
			job := conversation.InboundJob{
				BusinessID: businessID,
				From:       msg.From,
				Text:       msg.Text.Body,
			}
			if err := h.publisher.EnqueueInbound(r.Context(), job); err != nil {
				h.logger.Error("inbound enqueue failed", "business_id", businessID, "error", err)
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
		case msg.Type == "image":
			if h.sender != nil {
				if err := h.sender.Send(r.Context(), "", msg.From, "Thanks for the image! For bookings, please send a text message."); err != nil {
					h.logger.Warn("image redirect reply failed", "to", msg.From, "error", err)
				}
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Health is GET /health.
func (h *WhatsAppWebhookHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "concierge-whatsapp"})
}
