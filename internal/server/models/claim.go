package models

import "github.com/dmitrijs2005/lastword/internal/cryptox"

// ClaimPayload is the user-facing claim artifact: the plaintext hint plus the
// payload envelope. The JSON shape is shared verbatim between the claim API
// response and the mail attachment so recipients can decrypt either offline.
type ClaimPayload struct {
	Note      string                  `json:"note"`
	Encrypted *cryptox.EncryptedBlock `json:"encrypted"`
}
