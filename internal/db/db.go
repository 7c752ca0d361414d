package db

import (
	"context"
	"time"
)

// Store is the result cache backend: a Valkey or Redis server reached through rueidis.
type Store interface {
	Pinger
	ExpiringKV
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ExpiringKV stores byte values that expire after a TTL.
// Get returns ErrKeyNotFound for a missing or expired key.
type ExpiringKV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
