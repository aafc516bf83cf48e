package models

import "strings"

// Trigger is one dead-man's-switch configuration. All timestamps are unix
// milliseconds; LastTriggerTimestamp stays nil until the first release
// notification has been sent.
type Trigger struct {
	ID                           string
	UserID                       string
	Recipients                   string
	Note                         string
	Label                        string
	Subject                      string
	Encrypted                    string
	CheckinIntervalMs            int64
	TriggerMsSinceLastCheckin    int64
	LastIntervalTimestamp        int64
	LastCheckinTimestamp         int64
	LastTriggerTimestamp         *int64
	TriggerSentNotificationCount int
}

// RecipientList splits the stored comma-delimited recipients field into
// trimmed, non-empty addresses.
func (t *Trigger) RecipientList() []string {
	parts := strings.Split(t.Recipients, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TriggerInput carries the user-editable trigger fields for create/update.
// Encrypted may be empty on update, which preserves the stored ciphertext.
type TriggerInput struct {
	Recipients                string
	Note                      string
	Label                     string
	Subject                   string
	Encrypted                 string
	CheckinIntervalMs         int64
	TriggerMsSinceLastCheckin int64
}
