// Package notify handles outbound notification delivery: check-in reminders
// to trigger owners and release notifications to recipients.
package notify

import "context"

// Attachment is an optional JSON document attached to a message. Data is
// marshalled with two-space indentation so recipients can read the file and
// decrypt it offline.
type Attachment struct {
	Filename string
	Data     any
}

// Message is one outbound mail.
type Message struct {
	To         string
	Subject    string
	Body       string
	Attachment *Attachment
}

// Mailer delivers messages. Implementations must be safe for concurrent use.
type Mailer interface {
	SendMail(ctx context.Context, msg *Message) error
}
