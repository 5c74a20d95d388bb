package events

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testApplicationID = "5f0c6d1e-7d3a-4a7e-9b55-2f9d0e2c1a11"

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{
			name:  "valid created event",
			event: NewApplicationCreated(testApplicationID, "boss@acme.io", "Ada Boss", "Backend Engineer", "Sam Seeker", "sam@mail.io", "I am interested"),
		},
		{
			name:  "created event without cover letter",
			event: NewApplicationCreated(testApplicationID, "boss@acme.io", "Ada Boss", "Backend Engineer", "Sam Seeker", "sam@mail.io", ""),
		},
		{
			name:    "created event with invalid employer email",
			event:   NewApplicationCreated(testApplicationID, "not-an-email", "Ada Boss", "Backend Engineer", "Sam Seeker", "sam@mail.io", ""),
			wantErr: true,
		},
		{
			name:    "created event with oversized cover letter",
			event:   NewApplicationCreated(testApplicationID, "boss@acme.io", "Ada Boss", "Backend Engineer", "Sam Seeker", "sam@mail.io", strings.Repeat("x", 1001)),
			wantErr: true,
		},
		{
			name:  "valid accepted event",
			event: NewApplicationAccepted(testApplicationID, "sam@mail.io", "Sam Seeker", "Backend Engineer", "Acme"),
		},
		{
			name:    "accepted event with non-uuid application id",
			event:   NewApplicationAccepted("app-1", "sam@mail.io", "Sam Seeker", "Backend Engineer", "Acme"),
			wantErr: true,
		},
		{
			name:    "accepted event with bad logo url",
			event:   ApplicationAccepted{Type: KindApplicationAccepted, ApplicationID: testApplicationID, JobSeekerEmail: "sam@mail.io", JobSeekerName: "Sam", JobTitle: "Dev", CompanyName: "Acme", CompanyLogoURL: "::"},
			wantErr: true,
		},
		{
			name:  "valid rejected event",
			event: NewApplicationRejected(testApplicationID, "sam@mail.io", "Sam Seeker", "Backend Engineer", "Acme"),
		},
		{
			name:    "rejected event missing company name",
			event:   NewApplicationRejected(testApplicationID, "sam@mail.io", "Sam Seeker", "Backend Engineer", ""),
			wantErr: true,
		},
		{
			name:    "rejected event with mismatched discriminator",
			event:   ApplicationRejected{Type: KindApplicationAccepted, ApplicationID: testApplicationID, JobSeekerEmail: "sam@mail.io", JobSeekerName: "Sam", JobTitle: "Dev", CompanyName: "Acme"},
			wantErr: true,
		},
		{
			name:    "nil event",
			event:   nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.event)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidEvent)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestEncode_WireShape(t *testing.T) {
	body, err := Encode(NewApplicationRejected(testApplicationID, "sam@mail.io", "Sam Seeker", "Backend Engineer", "Acme"))
	require.NoError(t, err)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &wire))

	assert.Equal(t, "APPLICATION_REJECTED", wire["type"])
	assert.Equal(t, testApplicationID, wire["applicationId"])
	assert.Equal(t, "sam@mail.io", wire["jobSeekerEmail"])
	assert.Equal(t, "Acme", wire["companyName"])
}

func TestEncode_RejectsInvalidEvent(t *testing.T) {
	body, err := Encode(NewApplicationAccepted(testApplicationID, "", "Sam", "Dev", "Acme"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidEvent)
	assert.Nil(t, body)
}

func TestDecode(t *testing.T) {
	created := NewApplicationCreated(testApplicationID, "boss@acme.io", "Ada Boss", "Backend Engineer", "Sam Seeker", "sam@mail.io", "hello")
	body, err := Encode(created)
	require.NoError(t, err)

	decoded, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, created, decoded)
	assert.Equal(t, KindApplicationCreated, decoded.Kind())

	t.Run("unknown kind", func(t *testing.T) {
		_, err := Decode([]byte(`{"type":"APPLICATION_WITHDRAWN","applicationId":"` + testApplicationID + `"}`))
		assert.ErrorIs(t, err, ErrUnknownKind)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := Decode([]byte(`{"type":`))
		assert.ErrorIs(t, err, ErrInvalidEvent)
	})

	t.Run("schema violation", func(t *testing.T) {
		_, err := Decode([]byte(`{"type":"APPLICATION_ACCEPTED","applicationId":"` + testApplicationID + `"}`))
		assert.ErrorIs(t, err, ErrInvalidEvent)
	})
}

func TestDedupKey(t *testing.T) {
	accepted := NewApplicationAccepted(testApplicationID, "sam@mail.io", "Sam", "Dev", "Acme")
	rejected := NewApplicationRejected(testApplicationID, "sam@mail.io", "Sam", "Dev", "Acme")

	assert.Equal(t, testApplicationID+":APPLICATION_ACCEPTED", DedupKey(accepted))
	assert.NotEqual(t, DedupKey(accepted), DedupKey(rejected))
}
