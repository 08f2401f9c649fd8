// Package metadata stores small key/value agent state (tokens, usernames)
// in the local catalog database.
package metadata

import "context"

type Repository interface {
	// Get returns the stored value or nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
