package notify

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/lastword/internal/server/models"
)

// FormatTimeSince renders an elapsed duration as whole days and hours, the
// way it appears in reminder mails.
func FormatTimeSince(d time.Duration) string {
	hours := int64(d.Hours())
	return fmt.Sprintf("%d days %d hours", hours/24, hours%24)
}

// CheckinReminder builds the reminder mail for a trigger owner. checkinURL
// is the single-use redemption link for the freshly issued token.
func CheckinReminder(ownerEmail string, trigger *models.Trigger, sinceLast time.Duration, checkinURL string) *Message {
	body := fmt.Sprintf(
		"Your trigger %q is waiting for a check-in.\n\n"+
			"Time since the last reminder: %s.\n\n"+
			"Confirm you are fine by opening this link:\n%s\n\n"+
			"If you do not check in, your message will eventually be released to its recipients.\n",
		trigger.Label, FormatTimeSince(sinceLast), checkinURL)

	return &Message{
		To:      ownerEmail,
		Subject: fmt.Sprintf("Check-in required: %s", trigger.Label),
		Body:    body,
	}
}

// TriggerRelease builds the release mail for one recipient. The claim payload
// is attached as JSON so the recipient can decrypt it offline even if the
// server is gone.
func TriggerRelease(recipient string, trigger *models.Trigger, claimURL string, payload *models.ClaimPayload) *Message {
	subject := trigger.Subject
	if subject == "" {
		subject = fmt.Sprintf("A message has been released to you: %s", trigger.Label)
	}

	body := fmt.Sprintf(
		"Someone set up a message for you and has stopped checking in.\n\n"+
			"You can claim and decrypt it here:\n%s\n\n"+
			"A copy of the encrypted payload is attached. It can be decrypted offline\n"+
			"with the password that was shared with you out of band.\n",
		claimURL)

	return &Message{
		To:      recipient,
		Subject: subject,
		Body:    body,
		Attachment: &Attachment{
			Filename: fmt.Sprintf("claim_%s.json", trigger.ID),
			Data:     payload,
		},
	}
}
