// Package objectstore abstracts the shared key-value blob store used for
// cross-node check-in reconciliation and database snapshot backups.
package objectstore

import (
	"context"
	"errors"
)

// ErrNotExist is returned by Get when no object is stored under the key.
var ErrNotExist = errors.New("object does not exist")

// Store is a minimal blob-store contract. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the object body stored under key, or ErrNotExist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores body under key, replacing any previous object.
	Put(ctx context.Context, key string, body []byte, contentType string) error

	// List returns the keys of all objects whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
