package notify

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/lastword/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimeSince(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"zero", 0, "0 days 0 hours"},
		{"hours only", 5 * time.Hour, "0 days 5 hours"},
		{"exact days", 48 * time.Hour, "2 days 0 hours"},
		{"days and hours", 49*time.Hour + 30*time.Minute, "2 days 1 hours"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimeSince(tt.d))
		})
	}
}

func TestCheckinReminder(t *testing.T) {
	trigger := &models.Trigger{ID: "t1", Label: "vault"}

	msg := CheckinReminder("owner@example.com", trigger, 36*time.Hour, "https://example.com/api/triggers/checkin/tok1")

	assert.Equal(t, "owner@example.com", msg.To)
	assert.Equal(t, "Check-in required: vault", msg.Subject)
	assert.Contains(t, msg.Body, "1 days 12 hours")
	assert.Contains(t, msg.Body, "https://example.com/api/triggers/checkin/tok1")
	assert.Nil(t, msg.Attachment)
}

func TestTriggerRelease_DefaultSubjectAndAttachment(t *testing.T) {
	trigger := &models.Trigger{ID: "t1", Label: "vault", Note: "hint"}
	payload := &models.ClaimPayload{Note: "hint"}

	msg := TriggerRelease("friend@example.com", trigger, "https://example.com/triggers/claim/t1", payload)

	assert.Equal(t, "friend@example.com", msg.To)
	assert.Equal(t, "A message has been released to you: vault", msg.Subject)
	assert.Contains(t, msg.Body, "https://example.com/triggers/claim/t1")
	require.NotNil(t, msg.Attachment)
	assert.Equal(t, "claim_t1.json", msg.Attachment.Filename)
	assert.Equal(t, payload, msg.Attachment.Data)
}

func TestTriggerRelease_CustomSubjectWins(t *testing.T) {
	trigger := &models.Trigger{ID: "t1", Label: "vault", Subject: "open me"}

	msg := TriggerRelease("friend@example.com", trigger, "https://example.com/triggers/claim/t1", &models.ClaimPayload{})

	assert.Equal(t, "open me", msg.Subject)
}
