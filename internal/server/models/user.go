package models

// User is a registered owner of triggers. Authentication itself lives outside
// this service; only the identity and contact address are stored here.
type User struct {
	ID    string
	Email string
}
