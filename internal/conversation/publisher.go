package conversation

import (
	"context"
	"fmt"

	"github.com/simplebiz/concierge/pkg/logging"
)

// Publisher enqueues inbound messages for asynchronous processing so the
// webhook can acknowledge fast.
type Publisher struct {
	queue  queueClient
	logger *logging.Logger
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue queueClient, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		queue:  queue,
		logger: logger,
	}
}

// EnqueueInbound publishes an inbound-message job.
func (p *Publisher) EnqueueInbound(ctx context.Context, job InboundJob) error {
	if ctx == nil {
		ctx = context.Background()
	}

	payload, body, err := encodePayload(queuePayload{Kind: jobTypeInbound, Inbound: job})
	if err != nil {
		return err
	}

	if err := p.queue.Send(ctx, body); err != nil {
		return fmt.Errorf("conversation: failed to enqueue job: %w", err)
	}

	p.logger.Debug("inbound job enqueued", "job_id", payload.ID, "business_id", job.BusinessID)
	return nil
}
