package notify

import (
	"context"
	"encoding/base64"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPMailer_PlainText(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotBody []byte
	var gotAuth smtp.Auth

	orig := sendMailFunc
	t.Cleanup(func() { sendMailFunc = orig })
	sendMailFunc = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotBody = addr, a, from, to, msg
		return nil
	}

	mailer := NewSMTPMailer(SMTPConfig{
		Host: "mail.example", Port: 587,
		User: "relay", Password: "secret",
		From: "noreply@example.com",
	})

	err := mailer.SendMail(context.Background(), &Message{
		To:      "owner@example.com",
		Subject: "Check-in required",
		Body:    "please check in",
	})
	require.NoError(t, err)

	assert.Equal(t, "mail.example:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "noreply@example.com", gotFrom)
	assert.Equal(t, []string{"owner@example.com"}, gotTo)

	body := string(gotBody)
	assert.Contains(t, body, "To: owner@example.com\r\n")
	assert.Contains(t, body, "Subject: Check-in required\r\n")
	assert.Contains(t, body, "Content-Type: text/plain")
	assert.Contains(t, body, "please check in")
	assert.NotContains(t, body, "multipart/mixed")
}

func TestSMTPMailer_WithAttachment(t *testing.T) {
	var gotBody []byte

	orig := sendMailFunc
	t.Cleanup(func() { sendMailFunc = orig })
	sendMailFunc = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotBody = msg
		return nil
	}

	mailer := NewSMTPMailer(SMTPConfig{Host: "mail.example", Port: 25, From: "noreply@example.com"})

	err := mailer.SendMail(context.Background(), &Message{
		To:      "friend@example.com",
		Subject: "release",
		Body:    "claim link inside",
		Attachment: &Attachment{
			Filename: "claim_t1.json",
			Data:     map[string]string{"note": "hint"},
		},
	})
	require.NoError(t, err)

	body := string(gotBody)
	assert.Contains(t, body, "multipart/mixed")
	assert.Contains(t, body, `filename="claim_t1.json"`)

	// The attachment decodes back to the marshalled payload.
	idx := strings.Index(body, "Content-Disposition: attachment")
	require.Greater(t, idx, 0)
	section := body[idx:]
	lines := strings.Split(section, "\r\n")
	var encoded string
	for _, line := range lines {
		if strings.HasPrefix(line, "eyJ") || strings.HasPrefix(line, "ew") {
			encoded = line
			break
		}
	}
	require.NotEmpty(t, encoded)
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Contains(t, string(decoded), `"note": "hint"`)
}

func TestSMTPMailer_NoAuthWithoutUser(t *testing.T) {
	var gotAuth smtp.Auth

	orig := sendMailFunc
	t.Cleanup(func() { sendMailFunc = orig })
	sendMailFunc = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAuth = a
		return nil
	}

	mailer := NewSMTPMailer(SMTPConfig{Host: "mail.example", Port: 25, From: "noreply@example.com"})
	require.NoError(t, mailer.SendMail(context.Background(), &Message{To: "a@example.com"}))
	assert.Nil(t, gotAuth)
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	called := false

	orig := sendMailFunc
	t.Cleanup(func() { sendMailFunc = orig })
	sendMailFunc = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		called = true
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mailer := NewSMTPMailer(SMTPConfig{Host: "mail.example", Port: 25})
	err := mailer.SendMail(ctx, &Message{To: "a@example.com"})
	assert.Error(t, err)
	assert.False(t, called)
}
