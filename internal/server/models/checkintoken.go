package models

// CheckinToken is a single-use, time-boxed credential permitting an anonymous
// check-in. Tokens are issued by the monitor alongside each reminder and stop
// working once ExpiresAt (unix ms) has passed; redemption does not retire
// earlier tokens.
type CheckinToken struct {
	ID        string
	TriggerID string
	ExpiresAt int64
}
