package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/jobmatch-applications/internal/api/domain"
	"github.com/cuongbtq/jobmatch-applications/internal/events"
)

const (
	DefaultNotificationTimeout   = 30 * time.Second
	DefaultEnrichmentConcurrency = 8
)

// Store is the persistence contract the engine relies on
type Store interface {
	Create(ctx context.Context, app *domain.Application, policy domain.ReapplicationPolicy) error
	GetByID(ctx context.Context, applicationID string) (*domain.Application, error)
	GetByJobSeekerID(ctx context.Context, jobSeekerID string) ([]domain.Application, error)
	GetByJobID(ctx context.Context, jobID string) ([]domain.Application, error)
	ExistsByJobAndJobSeeker(ctx context.Context, jobID, jobSeekerID string, policy domain.ReapplicationPolicy) (bool, error)
	UpdateStatus(ctx context.Context, expected domain.Status, next domain.Application) (*domain.Application, error)
}

// JobDirectory resolves job facts
type JobDirectory interface {
	GetJob(ctx context.Context, jobID string) (*domain.JobFact, error)
}

// UserDirectory resolves user facts
type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (*domain.UserFact, error)
}

// EventPublisher sends notification events
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Options tunes the engine
type Options struct {
	Policy                domain.ReapplicationPolicy
	NotificationTimeout   time.Duration
	EnrichmentConcurrency int
	Now                   func() time.Time
}

// ApplicationService runs the application lifecycle use cases
type ApplicationService struct {
	store     Store
	jobs      JobDirectory
	users     UserDirectory
	publisher EventPublisher
	logger    *slog.Logger
	opts      Options

	inflight sync.WaitGroup
}

// New creates a new ApplicationService
func New(store Store, jobs JobDirectory, users UserDirectory, publisher EventPublisher, logger *slog.Logger, opts Options) *ApplicationService {
	if opts.NotificationTimeout <= 0 {
		opts.NotificationTimeout = DefaultNotificationTimeout
	}
	if opts.EnrichmentConcurrency <= 0 {
		opts.EnrichmentConcurrency = DefaultEnrichmentConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &ApplicationService{
		store:     store,
		jobs:      jobs,
		users:     users,
		publisher: publisher,
		logger:    logger,
		opts:      opts,
	}
}

// Wait blocks until every notification dispatched so far has finished
func (s *ApplicationService) Wait() {
	s.inflight.Wait()
}

// notify resolves and publishes an event in the background. The request
// context only contributes its values; the work is bounded by the
// notification timeout instead. Failures are logged and never reach the
// caller.
func (s *ApplicationService) notify(ctx context.Context, applicationID string, build func(ctx context.Context) (events.Event, error)) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.NotificationTimeout)
		defer cancel()

		event, err := build(ctx)
		if err != nil {
			s.logger.Error("Skipping notification - failed to resolve event data",
				slog.String("application_id", applicationID),
				slog.Any("error", err),
			)
			return
		}

		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error("Failed to publish notification event",
				slog.String("application_id", applicationID),
				slog.String("event_type", string(event.Kind())),
				slog.Any("error", err),
			)
		}
	}()
}

func (s *ApplicationService) now() time.Time {
	return s.opts.Now().UTC()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
