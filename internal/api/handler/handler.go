package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/jobmatch-applications/internal/api/domain"
	"github.com/cuongbtq/jobmatch-applications/internal/api/service"
)

// ApplicationService is the lifecycle engine as seen by the HTTP layer
type ApplicationService interface {
	SubmitApplication(ctx context.Context, in service.SubmitInput) (*domain.Application, error)
	AcceptApplication(ctx context.Context, applicationID, employerID string) (*domain.Application, error)
	RejectApplication(ctx context.Context, applicationID, employerID string) (*domain.Application, error)
	ListMyApplications(ctx context.Context, jobSeekerID string) ([]service.MyApplication, error)
	ListApplicationsForJob(ctx context.Context, jobID, employerID string) ([]service.JobApplication, error)
}

// HealthCheck reports whether a dependency is usable
type HealthCheck func(ctx context.Context) error

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	ServiceName  string
	Applications ApplicationService
	HealthChecks map[string]HealthCheck
}

// ApplicationHandler handles application-related HTTP requests
type ApplicationHandler struct {
	logger       *slog.Logger
	applications ApplicationService
}

// NewApplicationHandler creates a new ApplicationHandler instance
func NewApplicationHandler(deps *Dependencies) *ApplicationHandler {
	return &ApplicationHandler{
		logger:       deps.Logger,
		applications: deps.Applications,
	}
}
