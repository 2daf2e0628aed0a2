package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/simplebiz/concierge/internal/conversation"
)

type stubPublisher struct {
	jobs []conversation.InboundJob
	err  error
}

func (s *stubPublisher) EnqueueInbound(_ context.Context, job conversation.InboundJob) error {
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

type stubSender struct {
	sent []string
}

func (s *stubSender) Send(_ context.Context, _, to, text string) error {
	s.sent = append(s.sent, to+": "+text)
	return nil
}

func webhookRequest(body, businessID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(body))
	if businessID != "" {
		req.Header.Set("x-business-id", businessID)
	}
	return req
}

func TestWebhookEnqueuesTextMessage(t *testing.T) {
	pub := &stubPublisher{}
	h := NewWhatsAppWebhookHandler(pub, &stubSender{}, nil)
	bizID := uuid.New()

	body := `{
		"messaging_product": "whatsapp",
		"messages": [{"id": "m1", "from": "+6512345678", "type": "text", "text": {"body": "book a haircut"}}]
	}`
	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(body, bizID.String()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(pub.jobs) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(pub.jobs))
	}
	job := pub.jobs[0]
	if job.BusinessID != bizID || job.From != "+6512345678" || job.Text != "book a haircut" {
		t.Errorf("job = %+v", job)
	}
}

func TestWebhookRejectsWrongProduct(t *testing.T) {
	h := NewWhatsAppWebhookHandler(&stubPublisher{}, nil, nil)

	body := `{"messaging_product": "sms", "messages": []}`
	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(body, uuid.NewString()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookRequiresBusinessHeader(t *testing.T) {
	h := NewWhatsAppWebhookHandler(&stubPublisher{}, nil, nil)

	body := `{"messaging_product": "whatsapp", "messages": []}`
	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(body, ""))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookRedirectsImageMessages(t *testing.T) {
	pub := &stubPublisher{}
	sender := &stubSender{}
	h := NewWhatsAppWebhookHandler(pub, sender, nil)

	body := `{
		"messaging_product": "whatsapp",
		"messages": [{"id": "m1", "from": "+6512345678", "type": "image", "image": {"id": "img1", "mime_type": "image/jpeg"}}]
	}`
	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest(body, uuid.NewString()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(pub.jobs) != 0 {
		t.Error("image message should not be enqueued")
	}
	if len(sender.sent) != 1 || !strings.Contains(sender.sent[0], "send a text message") {
		t.Errorf("sent = %v", sender.sent)
	}
}

func TestWebhookRejectsMalformedJSON(t *testing.T) {
	h := NewWhatsAppWebhookHandler(&stubPublisher{}, nil, nil)

	rec := httptest.NewRecorder()
	h.Handle(rec, webhookRequest("{not json", uuid.NewString()))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
