package dto

type SubmitApplicationRequest struct {
	JobID       string  `json:"job_id" binding:"required,uuid"`
	CoverLetter *string `json:"cover_letter" binding:"omitempty,max=1000"`
	CVURL       *string `json:"cv_url" binding:"omitempty,url"`
}

type ListApplicationsRequest struct {
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ApplicationDTO struct {
	ApplicationID string  `json:"application_id"`
	JobID         string  `json:"job_id"`
	JobSeekerID   string  `json:"job_seeker_id"`
	Status        string  `json:"status"`
	CoverLetter   *string `json:"cover_letter"`
	CVURL         *string `json:"cv_url"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
	RespondedAt   *string `json:"responded_at"`
}

type JobSummaryDTO struct {
	JobID  string `json:"job_id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type ApplicantSummaryDTO struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type MyApplicationDTO struct {
	ApplicationDTO
	Job *JobSummaryDTO `json:"job"`
}

type JobApplicationDTO struct {
	ApplicationDTO
	Applicant *ApplicantSummaryDTO `json:"applicant"`
}

type ListMyApplicationsResponse struct {
	Applications []MyApplicationDTO `json:"applications"`
	NextCursor   string             `json:"next_cursor,omitempty"`
}

type ListJobApplicationsResponse struct {
	Applications []JobApplicationDTO `json:"applications"`
	NextCursor   string              `json:"next_cursor,omitempty"`
}

type DecisionResponse struct {
	ApplicationID string `json:"application_id"`
	Status        string `json:"status"`
	RespondedAt   string `json:"responded_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
