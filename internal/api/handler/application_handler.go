package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/jobmatch-applications/internal/api/auth"
	"github.com/cuongbtq/jobmatch-applications/internal/api/domain"
	"github.com/cuongbtq/jobmatch-applications/internal/api/dto"
	"github.com/cuongbtq/jobmatch-applications/internal/api/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// timestampLayout is RFC 3339 in UTC with millisecond precision
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// SubmitApplication handles POST /api/v1/applications
// The authenticated job seeker applies to a job
func (h *ApplicationHandler) SubmitApplication(c *gin.Context) {
	claims, ok := h.caller(c)
	if !ok {
		return
	}

	h.logger.Info("SubmitApplication called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("user_id", claims.UserID),
	)

	var req dto.SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		badRequest(c, "Invalid request body")
		return
	}

	app, err := h.applications.SubmitApplication(c.Request.Context(), service.SubmitInput{
		JobID:       req.JobID,
		JobSeekerID: claims.UserID,
		CoverLetter: req.CoverLetter,
		CVURL:       req.CVURL,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toApplicationDTO(*app))
}

// AcceptApplication handles POST /api/v1/applications/:application_id/accept
func (h *ApplicationHandler) AcceptApplication(c *gin.Context) {
	h.decide(c, "AcceptApplication", h.applications.AcceptApplication)
}

// RejectApplication handles POST /api/v1/applications/:application_id/reject
func (h *ApplicationHandler) RejectApplication(c *gin.Context) {
	h.decide(c, "RejectApplication", h.applications.RejectApplication)
}

func (h *ApplicationHandler) decide(c *gin.Context, name string, decide func(ctx context.Context, applicationID, employerID string) (*domain.Application, error)) {
	claims, ok := h.caller(c)
	if !ok {
		return
	}

	applicationID := c.Param("application_id")
	h.logger.Info(name+" called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("application_id", applicationID),
		slog.String("user_id", claims.UserID),
	)

	if _, err := uuid.Parse(applicationID); err != nil {
		h.logger.Error("Invalid application_id format", slog.String("application_id", applicationID), slog.String("error", err.Error()))
		badRequest(c, "application_id must be a valid UUID")
		return
	}

	app, err := decide(c.Request.Context(), applicationID, claims.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := dto.DecisionResponse{
		ApplicationID: app.ID,
		Status:        string(app.Status),
	}
	if app.RespondedAt != nil {
		resp.RespondedAt = formatTimestamp(*app.RespondedAt)
	}
	c.JSON(http.StatusOK, resp)
}

// ListMyApplications handles GET /api/v1/applications/mine
// Lists the job seeker's applications, newest first, with job details
func (h *ApplicationHandler) ListMyApplications(c *gin.Context) {
	claims, ok := h.caller(c)
	if !ok {
		return
	}

	h.logger.Info("ListMyApplications called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
	)

	pageSize, cursor, ok := h.pageParams(c)
	if !ok {
		return
	}

	apps, err := h.applications.ListMyApplications(c.Request.Context(), claims.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	page, nextCursor := paginate(apps, cursor, pageSize, func(a service.MyApplication) (time.Time, string) {
		return a.CreatedAt, a.ID
	})

	resp := dto.ListMyApplicationsResponse{
		Applications: make([]dto.MyApplicationDTO, len(page)),
		NextCursor:   nextCursor,
	}
	for i, a := range page {
		resp.Applications[i] = dto.MyApplicationDTO{ApplicationDTO: toApplicationDTO(a.Application)}
		if a.Job != nil {
			resp.Applications[i].Job = &dto.JobSummaryDTO{
				JobID:  a.Job.JobID,
				Title:  a.Job.Title,
				Status: a.Job.Status,
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}

// ListApplicationsForJob handles GET /api/v1/jobs/:job_id/applications
// Lists applications to a job owned by the employer, with applicant details
func (h *ApplicationHandler) ListApplicationsForJob(c *gin.Context) {
	claims, ok := h.caller(c)
	if !ok {
		return
	}

	jobID := c.Param("job_id")
	h.logger.Info("ListApplicationsForJob called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("job_id", jobID),
	)

	if _, err := uuid.Parse(jobID); err != nil {
		h.logger.Error("Invalid job_id format", slog.String("job_id", jobID), slog.String("error", err.Error()))
		badRequest(c, "job_id must be a valid UUID")
		return
	}

	pageSize, cursor, ok := h.pageParams(c)
	if !ok {
		return
	}

	apps, err := h.applications.ListApplicationsForJob(c.Request.Context(), jobID, claims.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	page, nextCursor := paginate(apps, cursor, pageSize, func(a service.JobApplication) (time.Time, string) {
		return a.CreatedAt, a.ID
	})

	resp := dto.ListJobApplicationsResponse{
		Applications: make([]dto.JobApplicationDTO, len(page)),
		NextCursor:   nextCursor,
	}
	for i, a := range page {
		resp.Applications[i] = dto.JobApplicationDTO{ApplicationDTO: toApplicationDTO(a.Application)}
		if a.Applicant != nil {
			resp.Applications[i].Applicant = &dto.ApplicantSummaryDTO{
				UserID:    a.Applicant.UserID,
				Email:     a.Applicant.Email,
				FirstName: a.Applicant.FirstName,
				LastName:  a.Applicant.LastName,
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ApplicationHandler) caller(c *gin.Context) (*auth.Claims, bool) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "UNAUTHORIZED", Message: "authentication required"})
		return nil, false
	}
	return claims, true
}

func (h *ApplicationHandler) pageParams(c *gin.Context) (int, *ApplicationCursor, bool) {
	var req dto.ListApplicationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		badRequest(c, "Invalid query parameters")
		return 0, nil, false
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	cursor, err := DecodeApplicationCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		badRequest(c, "Invalid cursor")
		return 0, nil, false
	}

	return req.PageSize, cursor, true
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func toApplicationDTO(app domain.Application) dto.ApplicationDTO {
	out := dto.ApplicationDTO{
		ApplicationID: app.ID,
		JobID:         app.JobID,
		JobSeekerID:   app.JobSeekerID,
		Status:        string(app.Status),
		CoverLetter:   app.CoverLetter,
		CVURL:         app.CVURL,
		CreatedAt:     formatTimestamp(app.CreatedAt),
		UpdatedAt:     formatTimestamp(app.UpdatedAt),
	}
	if app.RespondedAt != nil {
		respondedAt := formatTimestamp(*app.RespondedAt)
		out.RespondedAt = &respondedAt
	}
	return out
}
