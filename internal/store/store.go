package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no record exists under a key.
var ErrNotFound = errors.New("identity not found")

// IdentityStore persists serialized session identities under string keys.
// Records are opaque to the store.
type IdentityStore interface {
	// GetIdentity returns the record stored under key or ErrNotFound.
	GetIdentity(ctx context.Context, key string) ([]byte, error)

	// PutIdentity creates or replaces the record stored under key.
	PutIdentity(ctx context.Context, key string, record []byte) error

	// DeleteIdentity removes the record under key. Missing keys are not an error.
	DeleteIdentity(ctx context.Context, key string) error

	// Close releases the underlying connection.
	Close() error
}
