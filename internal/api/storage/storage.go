package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/jobmatch-applications/internal/api/domain"
	"github.com/cuongbtq/jobmatch-applications/internal/api/model"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const applicationColumns = `
	application_id, job_id, job_seeker_id, status,
	cover_letter, cv_url, created_at, updated_at, responded_at
`

// Storage persists applications in PostgreSQL
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// Create inserts the application unless a blocking application already exists
// for the same job and job seeker. The check and the insert run in one
// transaction holding an advisory lock on the pair, so concurrent submissions
// for the same pair produce exactly one row and ErrDuplicateApplication for
// the others.
func (s *Storage) Create(ctx context.Context, app *domain.Application, policy domain.ReapplicationPolicy) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, pairLockKey(app.JobID, app.JobSeekerID)); err != nil {
		return fmt.Errorf("failed to lock application pair: %w", err)
	}

	var count int
	if err := tx.GetContext(ctx, &count, existsQuery, app.JobID, app.JobSeekerID, statusArray(policy)); err != nil {
		return fmt.Errorf("failed to check existing application: %w", err)
	}
	if count > 0 {
		s.logger.Warn("Application insert skipped - blocking application exists",
			slog.String("job_id", app.JobID),
			slog.String("job_seeker_id", app.JobSeekerID),
		)
		return domain.ErrDuplicateApplication
	}

	row := model.FromDomain(*app)
	query := `
		INSERT INTO applications (` + applicationColumns + `) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9
		)
	`
	_, err = tx.ExecContext(
		ctx,
		query,
		row.ApplicationID,
		row.JobID,
		row.JobSeekerID,
		row.Status,
		row.CoverLetter,
		row.CVURL,
		row.CreatedAt,
		row.UpdatedAt,
		row.RespondedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrDuplicateApplication
		}
		return fmt.Errorf("failed to create application: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit application: %w", err)
	}

	s.logger.Info("Application created",
		slog.String("application_id", app.ID),
		slog.String("job_id", app.JobID),
	)

	return nil
}

// GetByID returns the application or nil when it does not exist
func (s *Storage) GetByID(ctx context.Context, applicationID string) (*domain.Application, error) {
	var row model.Application
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE application_id = $1`

	err := s.db.GetContext(ctx, &row, query, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}

	app := row.ToDomain()
	return &app, nil
}

// GetByJobSeekerID returns every application submitted by the job seeker
func (s *Storage) GetByJobSeekerID(ctx context.Context, jobSeekerID string) ([]domain.Application, error) {
	return s.list(ctx, "job_seeker_id", jobSeekerID)
}

// GetByJobID returns every application submitted to the job
func (s *Storage) GetByJobID(ctx context.Context, jobID string) ([]domain.Application, error) {
	return s.list(ctx, "job_id", jobID)
}

func (s *Storage) list(ctx context.Context, column, value string) ([]domain.Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE ` + column + ` = $1
		ORDER BY created_at DESC, application_id DESC
	`

	var rows []model.Application
	if err := s.db.SelectContext(ctx, &rows, query, value); err != nil {
		return nil, fmt.Errorf("failed to list applications by %s: %w", column, err)
	}

	apps := make([]domain.Application, len(rows))
	for i, row := range rows {
		apps[i] = row.ToDomain()
	}
	return apps, nil
}

const existsQuery = `
	SELECT COUNT(*)
	FROM applications
	WHERE job_seeker_id = $2
	  AND job_id = $1
	  AND status = ANY($3)
`

// ExistsByJobAndJobSeeker reports whether a blocking application exists for the
// pair. It is a guard only: Create repeats the check under a lock.
func (s *Storage) ExistsByJobAndJobSeeker(ctx context.Context, jobID, jobSeekerID string, policy domain.ReapplicationPolicy) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, existsQuery, jobID, jobSeekerID, statusArray(policy)); err != nil {
		return false, fmt.Errorf("failed to check existing application: %w", err)
	}
	return count > 0, nil
}

// UpdateStatus records a decision. Only status, responded_at and updated_at
// change, and only while the stored status still equals expected.
func (s *Storage) UpdateStatus(ctx context.Context, expected domain.Status, next domain.Application) (*domain.Application, error) {
	query := `
		UPDATE applications
		SET status = $1,
		    responded_at = $2,
		    updated_at = $3
		WHERE application_id = $4
		  AND status = $5
		RETURNING ` + applicationColumns

	var row model.Application
	err := s.db.GetContext(ctx, &row, query,
		string(next.Status),
		next.RespondedAt,
		next.UpdatedAt,
		next.ID,
		string(expected),
	)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to update application status: %w", err)
		}

		current, getErr := s.GetByID(ctx, next.ID)
		if getErr != nil {
			return nil, getErr
		}
		if current == nil {
			return nil, domain.ErrApplicationNotFound
		}

		s.logger.Warn("Application status update lost - status changed concurrently",
			slog.String("application_id", next.ID),
			slog.String("expected", string(expected)),
			slog.String("current", string(current.Status)),
		)
		return nil, domain.ErrStatusConflict
	}

	s.logger.Info("Application status updated",
		slog.String("application_id", next.ID),
		slog.String("status", row.Status),
	)

	app := row.ToDomain()
	return &app, nil
}

func pairLockKey(jobID, jobSeekerID string) string {
	return "application:" + jobID + ":" + jobSeekerID
}

func statusArray(policy domain.ReapplicationPolicy) interface{} {
	blocking := policy.BlockingStatuses()
	statuses := make([]string, len(blocking))
	for i, st := range blocking {
		statuses[i] = string(st)
	}
	return pq.Array(statuses)
}
