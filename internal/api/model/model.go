package model

import (
	"time"

	"github.com/cuongbtq/jobmatch-applications/internal/api/domain"
)

// Application is the persisted row shape of an application
type Application struct {
	ApplicationID string     `db:"application_id"`
	JobID         string     `db:"job_id"`
	JobSeekerID   string     `db:"job_seeker_id"`
	Status        string     `db:"status"`
	CoverLetter   *string    `db:"cover_letter"`
	CVURL         *string    `db:"cv_url"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	RespondedAt   *time.Time `db:"responded_at"`
}

// FromDomain converts an application entity into its row shape
func FromDomain(app domain.Application) Application {
	return Application{
		ApplicationID: app.ID,
		JobID:         app.JobID,
		JobSeekerID:   app.JobSeekerID,
		Status:        string(app.Status),
		CoverLetter:   app.CoverLetter,
		CVURL:         app.CVURL,
		CreatedAt:     app.CreatedAt,
		UpdatedAt:     app.UpdatedAt,
		RespondedAt:   app.RespondedAt,
	}
}

// ToDomain converts a row back into an application entity
func (a Application) ToDomain() domain.Application {
	app := domain.Application{
		ID:          a.ApplicationID,
		JobID:       a.JobID,
		JobSeekerID: a.JobSeekerID,
		Status:      domain.Status(a.Status),
		CoverLetter: a.CoverLetter,
		CVURL:       a.CVURL,
		CreatedAt:   a.CreatedAt.UTC(),
		UpdatedAt:   a.UpdatedAt.UTC(),
	}
	if a.RespondedAt != nil {
		respondedAt := a.RespondedAt.UTC()
		app.RespondedAt = &respondedAt
	}
	return app
}
