package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/jobmatch-applications/internal/events"
)

// Notifier delivers one notification event to its recipient
type Notifier interface {
	Notify(ctx context.Context, event events.Event) error
}

// LogNotifier writes each notification as a structured log record
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the recipient and subject of the event
func (n *LogNotifier) Notify(ctx context.Context, event events.Event) error {
	var recipient, subject string
	switch e := event.(type) {
	case events.ApplicationCreated:
		recipient = e.EmployerEmail
		subject = fmt.Sprintf("%s applied to %s", e.ApplicantName, e.JobTitle)
	case events.ApplicationAccepted:
		recipient = e.JobSeekerEmail
		subject = fmt.Sprintf("%s accepted your application for %s", e.CompanyName, e.JobTitle)
	case events.ApplicationRejected:
		recipient = e.JobSeekerEmail
		subject = fmt.Sprintf("Update on your application for %s at %s", e.JobTitle, e.CompanyName)
	default:
		return fmt.Errorf("%w: %T", events.ErrUnknownKind, event)
	}

	n.logger.InfoContext(ctx, "Notification sent",
		slog.String("event_type", string(event.Kind())),
		slog.String("application_id", event.AppID()),
		slog.String("recipient", recipient),
		slog.String("subject", subject),
	)
	return nil
}
