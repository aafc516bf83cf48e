// Package common contains shared helpers and sentinel errors used across
// lastword components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation and ownership errors. Also returned when an update or delete
	// affects zero rows, which means either a missing trigger or a cross-user
	// access attempt; the two are not distinguished.
	ErrorInvalidRequest = errors.New("invalid request")

	// Envelope errors. ErrCannotDecrypt covers both a wrong password and a
	// corrupt ciphertext so callers cannot tell them apart.
	ErrCannotDecrypt = errors.New("cannot decrypt")
	ErrInvalidBlock  = errors.New("invalid encrypted block")
)
