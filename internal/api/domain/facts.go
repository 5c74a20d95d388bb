package domain

import "strings"

// Job status values owned by the job service
const (
	JobStatusActive = "active"
	JobStatusClosed = "closed"
)

// JobFact is the read-only projection of a job owned by the job service
type JobFact struct {
	JobID          string  `json:"jobId"`
	Title          string  `json:"title"`
	Status         string  `json:"status"`
	EmployerID     string  `json:"employerId"`
	CompanyName    string  `json:"companyName"`
	CompanyLogoURL *string `json:"companyLogoUrl,omitempty"`
}

// IsActive reports whether the job accepts applications
func (j JobFact) IsActive() bool {
	return j.Status == JobStatusActive
}

// UserFact is the read-only projection of a user owned by the user service
type UserFact struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// FullName joins first and last name, skipping empty parts
func (u UserFact) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}
