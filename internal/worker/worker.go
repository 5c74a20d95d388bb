package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultConcurrency   = 4
	defaultPrefetchCount = 10
	defaultJobTimeout    = 30 * time.Second
)

// Source delivers queued notification events
type Source interface {
	Qos(prefetchCount int) error
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// DedupStore remembers which events are in flight or already handled
type DedupStore interface {
	Claim(ctx context.Context, dedupKey string) (bool, error)
	Complete(ctx context.Context, dedupKey string) error
	Release(ctx context.Context, dedupKey string) error
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	Source        Source
	Dedup         DedupStore
	Notifier      Notifier
	WorkerID      string
	QueueName     string
	Concurrency   int
	PrefetchCount int
	JobTimeout    time.Duration
}

// Worker consumes notification events and hands each unique one to the notifier
type Worker struct {
	logger        *slog.Logger
	source        Source
	dedup         DedupStore
	notifier      Notifier
	workerID      string
	queueName     string
	concurrency   int
	prefetchCount int
	jobTimeout    time.Duration

	jobsChan chan amqp.Delivery
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	w := &Worker{
		logger:        cfg.Logger,
		source:        cfg.Source,
		dedup:         cfg.Dedup,
		notifier:      cfg.Notifier,
		workerID:      cfg.WorkerID,
		queueName:     cfg.QueueName,
		concurrency:   cfg.Concurrency,
		prefetchCount: cfg.PrefetchCount,
		jobTimeout:    cfg.JobTimeout,
		jobsChan:      make(chan amqp.Delivery),
		stopChan:      make(chan struct{}),
	}

	if w.workerID == "" {
		w.workerID = "notification-worker-" + uuid.NewString()[:8]
	}
	if w.concurrency <= 0 {
		w.concurrency = defaultConcurrency
	}
	if w.prefetchCount <= 0 {
		w.prefetchCount = defaultPrefetchCount
	}
	if w.jobTimeout <= 0 {
		w.jobTimeout = defaultJobTimeout
	}

	return w
}

// ID returns the consumer tag of this worker
func (w *Worker) ID() string {
	return w.workerID
}

// Start consumes deliveries until ctx is canceled. It returns an error when
// the consumer cannot be set up or the broker closes the delivery channel.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	w.spawnWorkerPool(ctx)

	return w.startMessageDispatcher(ctx, deliveries)
}

// Stop waits for in-flight notifications to finish
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
