package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/jobmatch-applications/internal/api/domain"
	"github.com/cuongbtq/jobmatch-applications/internal/events"
	"github.com/cuongbtq/jobmatch-applications/internal/metrics"
)

// AcceptApplication moves a pending application to accepted on behalf of the
// employer owning its job
func (s *ApplicationService) AcceptApplication(ctx context.Context, applicationID, employerID string) (*domain.Application, error) {
	return s.decide(ctx, applicationID, employerID, domain.StatusAccepted)
}

// RejectApplication moves a pending application to rejected on behalf of the
// employer owning its job
func (s *ApplicationService) RejectApplication(ctx context.Context, applicationID, employerID string) (*domain.Application, error) {
	return s.decide(ctx, applicationID, employerID, domain.StatusRejected)
}

func (s *ApplicationService) decide(ctx context.Context, applicationID, employerID string, target domain.Status) (*domain.Application, error) {
	app, err := s.store.GetByID(ctx, applicationID)
	if err != nil {
		return nil, domain.NewInternal("failed to load application", err)
	}
	if app == nil {
		return nil, domain.NewNotFound("application not found")
	}

	job, err := s.ownedJob(ctx, app.JobID, employerID)
	if err != nil {
		return nil, err
	}

	if app.Status != domain.StatusPending {
		return nil, domain.NewInvalidState("application has already been responded to")
	}

	var next domain.Application
	switch target {
	case domain.StatusAccepted:
		next = app.Accept(s.now())
	case domain.StatusRejected:
		next = app.Reject(s.now())
	default:
		return nil, domain.NewInternal("unsupported decision", fmt.Errorf("status %q", target))
	}

	updated, err := s.store.UpdateStatus(ctx, domain.StatusPending, next)
	switch {
	case errors.Is(err, domain.ErrStatusConflict):
		return nil, domain.NewInvalidState("application has already been responded to")
	case errors.Is(err, domain.ErrApplicationNotFound):
		return nil, domain.NewNotFound("application not found")
	case err != nil:
		return nil, domain.NewInternal("failed to update application", err)
	}

	metrics.ApplicationsDecided.WithLabelValues(string(updated.Status)).Inc()
	s.logger.Info("Application decided",
		slog.String("application_id", updated.ID),
		slog.String("status", string(updated.Status)),
		slog.String("employer_id", employerID),
	)

	// The write is committed; from here on failures only cost the notification.
	decided := *updated
	s.notify(ctx, decided.ID, func(ctx context.Context) (events.Event, error) {
		seeker, err := s.users.GetUser(ctx, decided.JobSeekerID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve job seeker %s: %w", decided.JobSeekerID, err)
		}

		if decided.Status == domain.StatusAccepted {
			event := events.NewApplicationAccepted(decided.ID, seeker.Email, seeker.FullName(), job.Title, job.CompanyName)
			event.CompanyLogoURL = deref(job.CompanyLogoURL)
			return event, nil
		}
		return events.NewApplicationRejected(decided.ID, seeker.Email, seeker.FullName(), job.Title, job.CompanyName), nil
	})

	return updated, nil
}

// ownedJob returns the job when employerID owns it. A missing job, a failed
// lookup and a foreign owner are all reported as Forbidden.
func (s *ApplicationService) ownedJob(ctx context.Context, jobID, employerID string) (*domain.JobFact, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		if !errors.Is(err, domain.ErrJobNotFound) {
			s.logger.Error("Job lookup failed",
				slog.String("job_id", jobID),
				slog.Any("error", err),
			)
		}
		return nil, domain.NewForbidden("you do not own this job")
	}
	if job.EmployerID != employerID {
		s.logger.Warn("Employer does not own job",
			slog.String("job_id", jobID),
			slog.String("employer_id", employerID),
		)
		return nil, domain.NewForbidden("you do not own this job")
	}
	return job, nil
}
