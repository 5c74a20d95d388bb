package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/jobmatch-applications/internal/events"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	unknownKind    = "unknown"
	releaseTimeout = 5 * time.Second
)

// processDelivery decodes the event, claims its dedup key, hands it to the
// notifier and then completes the claim. It returns the event kind for metrics.
func (w *Worker) processDelivery(ctx context.Context, delivery amqp.Delivery) (string, error) {
	event, err := events.Decode(delivery.Body)
	if err != nil {
		return unknownKind, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	kind := string(event.Kind())
	key := events.DedupKey(event)
	if delivery.MessageId != "" && delivery.MessageId != key {
		w.logger.Warn("Message id does not match event dedup key",
			slog.String("message_id", delivery.MessageId),
			slog.String("dedup_key", key),
		)
	}

	// in-flight notifications finish even when the worker is shutting down
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.jobTimeout)
	defer cancel()

	claimed, err := w.dedup.Claim(jobCtx, key)
	if err != nil {
		return kind, NewRetryableError(err)
	}
	if !claimed {
		w.logger.Info("Duplicate notification skipped",
			slog.String("dedup_key", key),
			slog.Bool("redelivered", delivery.Redelivered),
		)
		return kind, ErrDuplicateDelivery
	}

	if err := w.notifier.Notify(jobCtx, event); err != nil {
		releaseCtx, cancelRelease := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		releaseErr := w.dedup.Release(releaseCtx, key)
		cancelRelease()
		if releaseErr != nil {
			w.logger.Error("Failed to release notification claim",
				slog.String("dedup_key", key),
				slog.String("error", releaseErr.Error()),
			)
		}
		return kind, NewRetryableError(fmt.Errorf("failed to notify: %w", err))
	}

	// the notification went out, so a failed completion only shortens the window
	completeCtx, cancelComplete := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	completeErr := w.dedup.Complete(completeCtx, key)
	cancelComplete()
	if completeErr != nil {
		w.logger.Warn("Failed to complete notification claim",
			slog.String("dedup_key", key),
			slog.String("error", completeErr.Error()),
		)
	}

	w.logger.Info("Notification handled",
		slog.String("event_type", kind),
		slog.String("application_id", event.AppID()),
	)
	return kind, nil
}
