// Package messaging delivers outbound WhatsApp messages through a
// self-hosted gateway that fronts the WhatsApp Business API.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/simplebiz/concierge/pkg/logging"
	"github.com/simplebiz/concierge/pkg/retry"
)

var gatewayTracer = otel.Tracer("concierge.internal.messaging")

// GatewaySender posts text messages to a WhatsApp gateway. Each business
// may carry its own gateway URL; an empty URL falls back to the default.
type GatewaySender struct {
	defaultGatewayURL string
	httpClient        *http.Client
	logger            *logging.Logger
}

// NewGatewaySender builds a sender with the platform-wide default gateway.
func NewGatewaySender(defaultGatewayURL string, logger *logging.Logger) *GatewaySender {
	if logger == nil {
		logger = logging.Default()
	}
	return &GatewaySender{
		defaultGatewayURL: defaultGatewayURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

type textPayload struct {
	Type string      `json:"type"`
	To   string      `json:"to"`
	Text payloadBody `json:"text"`
}

type payloadBody struct {
	Body string `json:"body"`
}

// Send posts a single text message, retrying transient failures. The gateway
// expects recipient numbers without the leading plus sign.
func (s *GatewaySender) Send(ctx context.Context, gatewayURL, to, text string) error {
	if to == "" {
		return errors.New("messaging: to required")
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("messaging: text required")
	}
	url := gatewayURL
	if url == "" {
		url = s.defaultGatewayURL
	}
	if url == "" {
		return errors.New("messaging: no gateway url configured")
	}

	ctx, span := gatewayTracer.Start(ctx, "messaging.gateway.send")
	defer span.End()
	span.SetAttributes(attribute.String("concierge.to", to))

	body, err := json.Marshal(textPayload{
		Type: "text",
		To:   strings.TrimPrefix(to, "+"),
		Text: payloadBody{Body: text},
	})
	if err != nil {
		return fmt.Errorf("messaging: marshal payload: %w", err)
	}

	err = retry.Do(ctx, retry.Config{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond}, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/messages", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		return fmt.Errorf("messaging: gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	})
	if err != nil {
		span.RecordError(err)
		s.logger.Error("whatsapp send failed", "to", to, "error", err)
		return err
	}

	s.logger.Info("whatsapp message sent", "to", to)
	return nil
}
