package client

import (
	"context"
	"strings"
)

type prefixedKV struct {
	inner  KV
	prefix string
}

// WithPrefix scopes every key of inner under prefix.
func WithPrefix(inner KV, prefix string) KV {
	return &prefixedKV{inner: inner, prefix: prefix}
}

// DevicePrefix is the namespace of one browser profile in a shared backend.
func DevicePrefix(deviceID string) string {
	return "device:" + strings.TrimSpace(deviceID) + ":"
}

func (p *prefixedKV) Get(ctx context.Context, key string) (string, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p *prefixedKV) Set(ctx context.Context, key, value string) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *prefixedKV) Del(ctx context.Context, keys ...string) error {
	scoped := make([]string, len(keys))
	for i, k := range keys {
		scoped[i] = p.prefix + k
	}
	return p.inner.Del(ctx, scoped...)
}
