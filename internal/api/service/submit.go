package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cuongbtq/jobmatch-applications/internal/api/domain"
	"github.com/cuongbtq/jobmatch-applications/internal/events"
	"github.com/cuongbtq/jobmatch-applications/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// SubmitInput carries a job seeker's application
type SubmitInput struct {
	JobID       string
	JobSeekerID string
	CoverLetter *string
	CVURL       *string
}

// SubmitApplication records a pending application for an active job. Checks
// run in order and the first failure wins: the job must exist and be active,
// the job seeker must not have applied already, and both the job seeker and
// the employer must resolve in the user directory.
func (s *ApplicationService) SubmitApplication(ctx context.Context, in SubmitInput) (*domain.Application, error) {
	job, err := s.jobs.GetJob(ctx, in.JobID)
	if err != nil {
		if !errors.Is(err, domain.ErrJobNotFound) {
			s.logger.Error("Job lookup failed",
				slog.String("job_id", in.JobID),
				slog.Any("error", err),
			)
		}
		return nil, domain.NewNotFound("job not found")
	}
	if !job.IsActive() {
		return nil, domain.NewInvalidState("job is not active")
	}

	exists, err := s.store.ExistsByJobAndJobSeeker(ctx, in.JobID, in.JobSeekerID, s.opts.Policy)
	if err != nil {
		return nil, domain.NewInternal("failed to check existing applications", err)
	}
	if exists {
		return nil, domain.NewConflict("already applied to this job")
	}

	var (
		seeker, employer       *domain.UserFact
		seekerErr, employerErr error
	)
	// Neither lookup cancels the other so the first failure in order is reported.
	var g errgroup.Group
	g.Go(func() error {
		seeker, seekerErr = s.users.GetUser(ctx, in.JobSeekerID)
		return seekerErr
	})
	g.Go(func() error {
		employer, employerErr = s.users.GetUser(ctx, job.EmployerID)
		return employerErr
	})
	_ = g.Wait()

	if seekerErr != nil {
		return nil, domain.NewInternal("job seeker not found", seekerErr)
	}
	if employerErr != nil {
		return nil, domain.NewInternal("employer not found", employerErr)
	}

	app := domain.NewApplication(in.JobID, in.JobSeekerID, in.CoverLetter, in.CVURL, s.now())
	if err := s.store.Create(ctx, &app, s.opts.Policy); err != nil {
		if errors.Is(err, domain.ErrDuplicateApplication) {
			return nil, domain.NewConflict("already applied to this job")
		}
		return nil, domain.NewInternal("failed to save application", err)
	}

	metrics.ApplicationsSubmitted.Inc()
	s.logger.Info("Application submitted",
		slog.String("application_id", app.ID),
		slog.String("job_id", app.JobID),
		slog.String("job_seeker_id", app.JobSeekerID),
	)

	s.notify(ctx, app.ID, func(context.Context) (events.Event, error) {
		return events.NewApplicationCreated(
			app.ID,
			employer.Email,
			employer.FullName(),
			job.Title,
			seeker.FullName(),
			seeker.Email,
			deref(app.CoverLetter),
		), nil
	})

	return &app, nil
}
