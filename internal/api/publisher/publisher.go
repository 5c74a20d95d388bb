package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/jobmatch-applications/internal/events"
	"github.com/cuongbtq/jobmatch-applications/internal/metrics"
	"github.com/cuongbtq/jobmatch-applications/shared/rabbitmq"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second

	contentTypeJSON = "application/json"
	headerEventType = "EventType"
)

// Transport sends one encoded message to the broker
type Transport interface {
	Publish(ctx context.Context, msg rabbitmq.Message) error
}

// Config controls the retry loop
type Config struct {
	// MaxRetries is the number of retries after the first attempt. Zero
	// selects DefaultMaxRetries and a negative value disables retries.
	MaxRetries int
	// RetryDelay is the fixed pause between attempts
	RetryDelay time.Duration
}

// Publisher validates notification events and hands them to the broker
type Publisher struct {
	transport Transport
	config    Config
	logger    *slog.Logger
}

// New creates a Publisher
func New(transport Transport, config Config, logger *slog.Logger) *Publisher {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	} else if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRetryDelay
	}

	return &Publisher{
		transport: transport,
		config:    config,
		logger:    logger,
	}
}

// Publish validates the event and sends it, retrying transport failures with a
// fixed delay. Validation failures return events.ErrInvalidEvent without
// sending anything.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	body, err := events.Encode(event)
	if err != nil {
		return err
	}

	msg := rabbitmq.Message{
		Body:        body,
		ContentType: contentTypeJSON,
		MessageID:   events.DedupKey(event),
		Headers: map[string]interface{}{
			headerEventType: string(event.Kind()),
		},
	}

	attempts := p.config.MaxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		metrics.PublishAttempts.Inc()

		lastErr = p.transport.Publish(ctx, msg)
		if lastErr == nil {
			metrics.EventsPublished.WithLabelValues(string(event.Kind()), "success").Inc()
			p.logger.Info("Event published",
				slog.String("event_type", string(event.Kind())),
				slog.String("application_id", event.AppID()),
				slog.Int("attempt", attempt),
			)
			return nil
		}

		if attempt == attempts {
			break
		}

		p.logger.Warn("Failed to publish event, retrying",
			slog.String("event_type", string(event.Kind())),
			slog.String("application_id", event.AppID()),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Duration("retry_after", p.config.RetryDelay),
			slog.Any("error", lastErr),
		)

		timer := time.NewTimer(p.config.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			metrics.EventsPublished.WithLabelValues(string(event.Kind()), "failure").Inc()
			return fmt.Errorf("publish of %s aborted after %d attempts: %w", event.Kind(), attempt, ctx.Err())
		case <-timer.C:
		}
	}

	metrics.EventsPublished.WithLabelValues(string(event.Kind()), "failure").Inc()
	return fmt.Errorf("failed to publish %s after %d attempts: %w", event.Kind(), attempts, lastErr)
}
