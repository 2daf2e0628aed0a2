package conversation

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/simplebiz/concierge/internal/business"
	"github.com/simplebiz/concierge/pkg/logging"
)

// Messenger delivers the engine's reply back to the customer.
type Messenger interface {
	Send(ctx context.Context, gatewayURL, to, text string) error
}

// GatewayResolver looks up the business's configured gateway URL.
type GatewayResolver interface {
	GetBusiness(ctx context.Context, id uuid.UUID) (*business.Business, error)
}

// Consumer drains inbound-message jobs and runs them through the engine.
type Consumer struct {
	queue     queueClient
	engine    *Engine
	messenger Messenger
	gateways  GatewayResolver
	logger    *logging.Logger
	workers   int
}

// NewConsumer builds a queue consumer. workers <= 0 defaults to 1.
func NewConsumer(queue queueClient, engine *Engine, messenger Messenger, gateways GatewayResolver, workers int, logger *logging.Logger) *Consumer {
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if engine == nil {
		panic("conversation: engine cannot be nil")
	}
	if messenger == nil {
		panic("conversation: messenger cannot be nil")
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Consumer{
		queue:     queue,
		engine:    engine,
		messenger: messenger,
		gateways:  gateways,
		logger:    logger,
		workers:   workers,
	}
}

// Run receives until ctx is cancelled. Each worker long-polls independently.
func (c *Consumer) Run(ctx context.Context) {
	c.logger.Info("conversation consumer started", "workers", c.workers)
	done := make(chan struct{})
	for i := 0; i < c.workers; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			c.loop(ctx)
		}()
	}
	for i := 0; i < c.workers; i++ {
		<-done
	}
	c.logger.Info("conversation consumer stopped")
}

func (c *Consumer) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		messages, err := c.queue.Receive(ctx, 10, 5)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("queue receive failed", "error", err)
			continue
		}
		for _, msg := range messages {
			c.processMessage(ctx, msg)
		}
	}
}

// processMessage runs one job. The message is deleted even when processing
// fails: the engine already degraded to an apology reply, and redelivering
// the same text would only repeat it.
func (c *Consumer) processMessage(ctx context.Context, msg queueMessage) {
	var payload queuePayload
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		c.logger.Error("undecodable queue message dropped", "message_id", msg.ID, "error", err)
		c.deleteMessage(ctx, msg)
		return
	}
	if payload.Kind != jobTypeInbound {
		c.logger.Warn("unknown job kind dropped", "kind", string(payload.Kind), "job_id", payload.ID)
		c.deleteMessage(ctx, msg)
		return
	}

	job := payload.Inbound
	reply, err := c.engine.HandleInboundMessage(ctx, job.BusinessID, job.From, job.Text)
	if err != nil {
		c.logger.Error("inbound job degraded", "job_id", payload.ID, "error", err)
	}

	if reply != "" {
		gatewayURL := ""
		if c.gateways != nil {
			if biz, err := c.gateways.GetBusiness(ctx, job.BusinessID); err == nil {
				gatewayURL = biz.WhatsAppGatewayURL
			}
		}
		if err := c.messenger.Send(ctx, gatewayURL, job.From, reply); err != nil {
			c.logger.Error("reply delivery failed", "job_id", payload.ID, "to", job.From, "error", err)
		}
	}

	c.deleteMessage(ctx, msg)
}

func (c *Consumer) deleteMessage(ctx context.Context, msg queueMessage) {
	if err := c.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		c.logger.Error("queue delete failed", "message_id", msg.ID, "error", err)
	}
}
