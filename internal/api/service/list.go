package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/cuongbtq/jobmatch-applications/internal/api/domain"
	"github.com/cuongbtq/jobmatch-applications/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// JobSummary is the job enrichment attached to a job seeker's application
type JobSummary struct {
	JobID  string
	Title  string
	Status string
}

// ApplicantSummary is the applicant enrichment attached to an employer's view
type ApplicantSummary struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string
}

// MyApplication is an application with its job, nil when the lookup failed
type MyApplication struct {
	domain.Application
	Job *JobSummary
}

// JobApplication is an application with its applicant, nil when the lookup failed
type JobApplication struct {
	domain.Application
	Applicant *ApplicantSummary
}

// ListMyApplications returns the job seeker's applications, newest first
func (s *ApplicationService) ListMyApplications(ctx context.Context, jobSeekerID string) ([]MyApplication, error) {
	apps, err := s.store.GetByJobSeekerID(ctx, jobSeekerID)
	if err != nil {
		return nil, domain.NewInternal("failed to fetch your applications", err)
	}
	sortNewestFirst(apps)

	result := make([]MyApplication, len(apps))
	s.enrich(ctx, len(apps), func(ctx context.Context, i int) {
		result[i] = MyApplication{Application: apps[i]}

		job, err := s.jobs.GetJob(ctx, apps[i].JobID)
		if err != nil {
			s.enrichmentFailed("job", apps[i].ID, err)
			return
		}
		result[i].Job = &JobSummary{JobID: job.JobID, Title: job.Title, Status: job.Status}
	})

	return result, nil
}

// ListApplicationsForJob returns the applications to a job owned by the
// employer, newest first
func (s *ApplicationService) ListApplicationsForJob(ctx context.Context, jobID, employerID string) ([]JobApplication, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		if !errors.Is(err, domain.ErrJobNotFound) {
			s.logger.Error("Job lookup failed",
				slog.String("job_id", jobID),
				slog.Any("error", err),
			)
		}
		return nil, domain.NewNotFound("job not found")
	}
	if job.EmployerID != employerID {
		return nil, domain.NewForbidden("you do not own this job")
	}

	apps, err := s.store.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, domain.NewInternal("failed to fetch job applications", err)
	}
	sortNewestFirst(apps)

	result := make([]JobApplication, len(apps))
	s.enrich(ctx, len(apps), func(ctx context.Context, i int) {
		result[i] = JobApplication{Application: apps[i]}

		user, err := s.users.GetUser(ctx, apps[i].JobSeekerID)
		if err != nil {
			s.enrichmentFailed("user", apps[i].ID, err)
			return
		}
		result[i].Applicant = &ApplicantSummary{
			UserID:    user.UserID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		}
	})

	return result, nil
}

// enrich runs fn for every index with bounded concurrency. fn never fails;
// it leaves its enrichment nil instead.
func (s *ApplicationService) enrich(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	var g errgroup.Group
	g.SetLimit(s.opts.EnrichmentConcurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *ApplicationService) enrichmentFailed(directory, applicationID string, err error) {
	metrics.EnrichmentFailures.WithLabelValues(directory).Inc()
	s.logger.Warn("Enrichment lookup failed",
		slog.String("directory", directory),
		slog.String("application_id", applicationID),
		slog.Any("error", err),
	)
}

// sortNewestFirst orders by creation time descending, ties by id descending
func sortNewestFirst(apps []domain.Application) {
	sort.Slice(apps, func(i, j int) bool {
		if !apps[i].CreatedAt.Equal(apps[j].CreatedAt) {
			return apps[i].CreatedAt.After(apps[j].CreatedAt)
		}
		return apps[i].ID > apps[j].ID
	})
}
