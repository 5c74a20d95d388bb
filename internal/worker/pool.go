package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/jobmatch-applications/internal/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}

	w.logger.Info("Worker pool spawned",
		slog.Int("worker_count", w.concurrency),
	)
}

// workerLoop handles deliveries until the dispatcher closes jobsChan or the
// worker is stopped
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	logger := w.logger.With(slog.String("worker_name", workerName))

	for {
		select {
		case <-w.stopChan:
			logger.Debug("Worker goroutine stopping - stopChan closed")
			return

		case delivery, ok := <-w.jobsChan:
			if !ok {
				logger.Debug("Worker goroutine stopping - jobsChan closed")
				return
			}
			w.handleDelivery(ctx, logger, delivery)
		}
	}
}

// handleDelivery processes one delivery and settles it with the broker
func (w *Worker) handleDelivery(ctx context.Context, logger *slog.Logger, delivery amqp.Delivery) {
	kind, err := w.processDelivery(ctx, delivery)
	result := outcome(err)
	metrics.NotificationsHandled.WithLabelValues(kind, result).Inc()

	switch result {
	case resultDelivered, resultDuplicate:
		if ackErr := delivery.Ack(false); ackErr != nil {
			logger.Error("Failed to ACK message",
				slog.String("message_id", delivery.MessageId),
				slog.String("error", ackErr.Error()),
			)
		}

	default:
		requeue := result == resultRetry
		logger.Error("Notification failed",
			slog.String("message_id", delivery.MessageId),
			slog.String("event_type", kind),
			slog.Bool("requeue", requeue),
			slog.String("error", err.Error()),
		)
		if nackErr := delivery.Nack(false, requeue); nackErr != nil {
			logger.Error("Failed to NACK message",
				slog.String("message_id", delivery.MessageId),
				slog.String("error", nackErr.Error()),
			)
		}
	}
}

const (
	resultDelivered = "delivered"
	resultDuplicate = "duplicate"
	resultRetry     = "retry"
	resultMalformed = "malformed"
	resultFailed    = "failed"
)

// outcome classifies a processing result. Only RetryableError is requeued;
// anything else unrecognised is dropped so a poison message cannot loop.
func outcome(err error) string {
	if err == nil {
		return resultDelivered
	}

	if errors.Is(err, ErrDuplicateDelivery) {
		return resultDuplicate
	}

	if errors.Is(err, ErrMalformedEvent) {
		return resultMalformed
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return resultRetry
	}

	return resultFailed
}
