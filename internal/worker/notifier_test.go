package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/cuongbtq/jobmatch-applications/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogNotifier_Notify(t *testing.T) {
	tests := []struct {
		name      string
		event     events.Event
		recipient string
		subject   string
	}{
		{
			name:      "created goes to the employer",
			event:     events.NewApplicationCreated(testAppID, "boss@acme.io", "Bo Ss", "Backend Engineer", "Ann Lee", "ann@example.com", ""),
			recipient: "boss@acme.io",
			subject:   "Ann Lee applied to Backend Engineer",
		},
		{
			name:      "accepted goes to the job seeker",
			event:     events.NewApplicationAccepted(testAppID, "ann@example.com", "Ann Lee", "Backend Engineer", "Acme"),
			recipient: "ann@example.com",
			subject:   "Acme accepted your application for Backend Engineer",
		},
		{
			name:      "rejected goes to the job seeker",
			event:     events.NewApplicationRejected(testAppID, "ann@example.com", "Ann Lee", "Backend Engineer", "Acme"),
			recipient: "ann@example.com",
			subject:   "Update on your application for Backend Engineer at Acme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			n := NewLogNotifier(slog.New(slog.NewJSONHandler(&out, nil)))

			require.NoError(t, n.Notify(context.Background(), tt.event))

			var record map[string]interface{}
			require.NoError(t, json.Unmarshal(out.Bytes(), &record))
			assert.Equal(t, tt.recipient, record["recipient"])
			assert.Equal(t, tt.subject, record["subject"])
			assert.Equal(t, testAppID, record["application_id"])
		})
	}
}
