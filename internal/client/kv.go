package client

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get when the key has no value.
var ErrKeyNotFound = errors.New("key not found")

// KV is the durable string store that stands in for one browser's local
// storage. Values are opaque strings (JSON in practice).
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, keys ...string) error
}

// HealthChecker is implemented by backends that can report connectivity.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
