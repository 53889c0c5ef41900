package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/logx"
)

// Worker drains the outreach queue into a Dispatcher.
type Worker struct {
	dispatcher Dispatcher
}

func NewWorker(d Dispatcher) *Worker {
	return &Worker{dispatcher: d}
}

// Handle decodes and dispatches one queued outreach.
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	var o Outreach
	if err := json.Unmarshal(body, &o); err != nil {
		return fmt.Errorf("failed to decode outreach: %w", err)
	}
	return w.dispatcher.Dispatch(ctx, o)
}

// Run consumes deliveries until ctx is done or the channel closes. Failed
// deliveries are rejected without requeue.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			if err := w.Handle(ctx, d.Body); err != nil {
				logx.Error().Err(err).Uint64("delivery_tag", d.DeliveryTag).Msg("outreach delivery failed")
				if nerr := d.Nack(false, false); nerr != nil {
					logx.Error().Err(nerr).Msg("failed to nack delivery")
				}
				continue
			}
			if err := d.Ack(false); err != nil {
				logx.Error().Err(err).Msg("failed to ack delivery")
			}
		}
	}
}
