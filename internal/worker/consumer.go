package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrDeliveriesClosed is returned by Start when the broker stops delivering
var ErrDeliveriesClosed = errors.New("rabbitmq delivery channel closed")

// setupConsumer applies QoS and starts consuming with manual acknowledgement
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	if err := w.source.Qos(w.prefetchCount); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	w.logger.Info("RabbitMQ QoS configured",
		slog.Int("prefetch_count", w.prefetchCount),
	)

	deliveries, err := w.source.Consume(w.workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", w.workerID),
		slog.String("queue", w.queueName),
	)

	return deliveries, nil
}

// startMessageDispatcher forwards deliveries to the worker pool until ctx is
// canceled or the delivery channel closes
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	defer close(w.jobsChan)

	w.logger.Info("Message dispatcher started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return ErrDeliveriesClosed
			}

			select {
			case w.jobsChan <- delivery:
				w.logger.Debug("Delivery dispatched to worker pool",
					slog.String("message_id", delivery.MessageId),
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
				)
			case <-ctx.Done():
				w.logger.Info("Message dispatcher stopped while dispatching")
				// requeue so another consumer picks it up
				if nackErr := delivery.Nack(false, true); nackErr != nil {
					w.logger.Error("Failed to NACK message on shutdown",
						slog.String("error", nackErr.Error()),
					)
				}
				return nil
			}
		}
	}
}
