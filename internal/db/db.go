// Package db defines the narrow key-value storage contract shared by the
// query cache and its backends.
package db

import (
	"context"
	"time"
)

// Store is the full store facade. Consumers depend on narrow slices of it
// (the cache only needs Get/SetWithTTL); the facade exists for wiring.
type Store interface {
	KVStore
	Pinger
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}

// KVStore provides plain key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
