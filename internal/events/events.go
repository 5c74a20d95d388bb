// Package events defines the notification events published when an
// application changes state, and the schema each event kind must satisfy.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Kind is the discriminator carried in the "type" field of every event
type Kind string

const (
	KindApplicationCreated  Kind = "APPLICATION_CREATED"
	KindApplicationAccepted Kind = "APPLICATION_ACCEPTED"
	KindApplicationRejected Kind = "APPLICATION_REJECTED"
)

var (
	// ErrInvalidEvent is returned when an event does not satisfy its kind's schema
	ErrInvalidEvent = errors.New("invalid event")

	// ErrUnknownKind is returned when decoding a payload with an unrecognised type
	ErrUnknownKind = errors.New("unknown event kind")
)

// Event is the closed set of notification events. Only the types in this
// package implement it.
type Event interface {
	Kind() Kind
	AppID() string
	sealed()
}

// ApplicationCreated is sent to the employer when a job seeker applies
type ApplicationCreated struct {
	Type           Kind   `json:"type" validate:"eq=APPLICATION_CREATED"`
	ApplicationID  string `json:"applicationId" validate:"required,uuid"`
	EmployerEmail  string `json:"employerEmail" validate:"required,email"`
	EmployerName   string `json:"employerName" validate:"required,min=1,max=200"`
	JobTitle       string `json:"jobTitle" validate:"required,min=1,max=200"`
	ApplicantName  string `json:"applicantName" validate:"required,min=1,max=200"`
	ApplicantEmail string `json:"applicantEmail" validate:"required,email"`
	CoverLetter    string `json:"coverLetter,omitempty" validate:"max=1000"`
}

// ApplicationAccepted is sent to the job seeker when the employer accepts
type ApplicationAccepted struct {
	Type           Kind   `json:"type" validate:"eq=APPLICATION_ACCEPTED"`
	ApplicationID  string `json:"applicationId" validate:"required,uuid"`
	JobSeekerEmail string `json:"jobSeekerEmail" validate:"required,email"`
	JobSeekerName  string `json:"jobSeekerName" validate:"required,min=1,max=200"`
	JobTitle       string `json:"jobTitle" validate:"required,min=1,max=200"`
	CompanyName    string `json:"companyName" validate:"required,min=1,max=200"`
	CompanyLogoURL string `json:"companyLogoUrl,omitempty" validate:"omitempty,url"`
	EmployerEmail  string `json:"employerEmail,omitempty" validate:"omitempty,email"`
}

// ApplicationRejected is sent to the job seeker when the employer rejects
type ApplicationRejected struct {
	Type           Kind   `json:"type" validate:"eq=APPLICATION_REJECTED"`
	ApplicationID  string `json:"applicationId" validate:"required,uuid"`
	JobSeekerEmail string `json:"jobSeekerEmail" validate:"required,email"`
	JobSeekerName  string `json:"jobSeekerName" validate:"required,min=1,max=200"`
	JobTitle       string `json:"jobTitle" validate:"required,min=1,max=200"`
	CompanyName    string `json:"companyName" validate:"required,min=1,max=200"`
}

func (e ApplicationCreated) Kind() Kind { return KindApplicationCreated }
func (e ApplicationCreated) AppID() string { return e.ApplicationID }
func (ApplicationCreated) sealed() {}
func (e ApplicationAccepted) Kind() Kind { return KindApplicationAccepted }
func (e ApplicationAccepted) AppID() string { return e.ApplicationID }
func (ApplicationAccepted) sealed() {}
func (e ApplicationRejected) Kind() Kind { return KindApplicationRejected }
func (e ApplicationRejected) AppID() string { return e.ApplicationID }
func (ApplicationRejected) sealed() {}

// NewApplicationCreated builds an APPLICATION_CREATED event
func NewApplicationCreated(applicationID, employerEmail, employerName, jobTitle, applicantName, applicantEmail, coverLetter string) ApplicationCreated {
	return ApplicationCreated{
		Type:           KindApplicationCreated,
		ApplicationID:  applicationID,
		EmployerEmail:  employerEmail,
		EmployerName:   employerName,
		JobTitle:       jobTitle,
		ApplicantName:  applicantName,
		ApplicantEmail: applicantEmail,
		CoverLetter:    coverLetter,
	}
}

// NewApplicationAccepted builds an APPLICATION_ACCEPTED event
func NewApplicationAccepted(applicationID, jobSeekerEmail, jobSeekerName, jobTitle, companyName string) ApplicationAccepted {
	return ApplicationAccepted{
		Type:           KindApplicationAccepted,
		ApplicationID:  applicationID,
		JobSeekerEmail: jobSeekerEmail,
		JobSeekerName:  jobSeekerName,
		JobTitle:       jobTitle,
		CompanyName:    companyName,
	}
}

// NewApplicationRejected builds an APPLICATION_REJECTED event
func NewApplicationRejected(applicationID, jobSeekerEmail, jobSeekerName, jobTitle, companyName string) ApplicationRejected {
	return ApplicationRejected{
		Type:           KindApplicationRejected,
		ApplicationID:  applicationID,
		JobSeekerEmail: jobSeekerEmail,
		JobSeekerName:  jobSeekerName,
		JobTitle:       jobTitle,
		CompanyName:    companyName,
	}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func schema() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the event against its kind's schema
func Validate(e Event) error {
	if e == nil {
		return fmt.Errorf("%w: nil event", ErrInvalidEvent)
	}
	if err := schema().Struct(e); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidEvent, e.Kind(), err)
	}
	return nil
}

// Encode validates the event and serialises it to its wire shape
func Encode(e Event) ([]byte, error) {
	if err := Validate(e); err != nil {
		return nil, err
	}

	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return body, nil
}

// Decode parses a wire payload into its concrete event type and validates it
func Decode(body []byte) (Event, error) {
	var envelope struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	var (
		e   Event
		err error
	)
	switch envelope.Type {
	case KindApplicationCreated:
		var v ApplicationCreated
		err = json.Unmarshal(body, &v)
		e = v
	case KindApplicationAccepted:
		var v ApplicationAccepted
		err = json.Unmarshal(body, &v)
		e = v
	case KindApplicationRejected:
		var v ApplicationRejected
		err = json.Unmarshal(body, &v)
		e = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, envelope.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	if err := Validate(e); err != nil {
		return nil, err
	}

	return e, nil
}

// DedupKey identifies an event for consumers deduplicating at-least-once deliveries
func DedupKey(e Event) string {
	return e.AppID() + ":" + string(e.Kind())
}
