package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an application
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// IsTerminal reports whether no further transition is allowed from s
func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// ParseStatus converts a raw string to a Status
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusAccepted, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// Application is a job seeker's application to a job.
//
// Values are never mutated in place: Accept and Reject return a copy with the
// decision recorded. Whether a transition is permitted is decided by the
// caller, not here.
type Application struct {
	ID          string
	JobID       string
	JobSeekerID string
	Status      Status
	CoverLetter *string
	CVURL       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	RespondedAt *time.Time
}

// NewApplication creates a pending application with a fresh identifier
func NewApplication(jobID, jobSeekerID string, coverLetter, cvURL *string, now time.Time) Application {
	now = now.UTC()
	return Application{
		ID:          uuid.New().String(),
		JobID:       jobID,
		JobSeekerID: jobSeekerID,
		Status:      StatusPending,
		CoverLetter: coverLetter,
		CVURL:       cvURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Accept returns a copy of a with status accepted and the response stamped at now
func (a Application) Accept(now time.Time) Application {
	return a.decide(StatusAccepted, now)
}

// Reject returns a copy of a with status rejected and the response stamped at now
func (a Application) Reject(now time.Time) Application {
	return a.decide(StatusRejected, now)
}

func (a Application) decide(status Status, now time.Time) Application {
	now = now.UTC()
	a.Status = status
	a.UpdatedAt = now
	a.RespondedAt = &now
	return a
}

// ReapplicationPolicy controls whether a job seeker may apply again to a job
// they already applied to. AllowAfter lists the statuses of a prior
// application that do not block a new one; an empty policy blocks on any
// prior application.
type ReapplicationPolicy struct {
	AllowAfter []Status
}

// BlockingStatuses returns the statuses of prior applications that count as
// "already applied" under the policy
func (p ReapplicationPolicy) BlockingStatuses() []Status {
	all := []Status{StatusPending, StatusAccepted, StatusRejected}
	blocking := make([]Status, 0, len(all))
	for _, s := range all {
		if !p.allows(s) {
			blocking = append(blocking, s)
		}
	}
	return blocking
}

// Blocks reports whether a prior application in status s prevents reapplying
func (p ReapplicationPolicy) Blocks(s Status) bool {
	return !p.allows(s)
}

func (p ReapplicationPolicy) allows(s Status) bool {
	// A pending application always blocks; reapplying while undecided is a duplicate.
	if s == StatusPending {
		return false
	}
	for _, allowed := range p.AllowAfter {
		if allowed == s {
			return true
		}
	}
	return false
}
