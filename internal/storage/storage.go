// Package storage defines the key-value persistence used for tokens,
// installation records, and short-lived OAuth state. Three backends are
// provided: in-memory for tests and development, SQLite for single-node
// deployments, and Redis for anything horizontally scaled.
package storage

import (
	"context"
	"time"
)

// Store is a byte-oriented key-value store with optional per-key TTL.
//
// Get returns (nil, false, nil) for a missing or expired key; the error is
// reserved for backend failures. Put with a zero ttl stores the value
// without expiry. Delete of an absent key is a no-op.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
