package client

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryClient is an in-memory KV used for local development and for unit
// testing the stores without a running Redis or Scylla.
type MemoryClient struct {
	mu     sync.Mutex
	data   map[string]string
	writes []WriteCall
	err    error
}

// WriteCall captures one mutating call against the store. Value is empty for
// deletes.
type WriteCall struct {
	Op    string
	Key   string
	Value string
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{data: make(map[string]string)}
}

// WithError configures the client to return err for subsequent calls.
func (m *MemoryClient) WithError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MemoryClient) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return "", m.err
	}
	v, ok := m.data[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return v, nil
}

func (m *MemoryClient) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	m.writes = append(m.writes, WriteCall{Op: "set", Key: key, Value: value})
	return nil
}

func (m *MemoryClient) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	for _, k := range keys {
		delete(m.data, k)
		m.writes = append(m.writes, WriteCall{Op: "del", Key: k})
	}
	return nil
}

func (m *MemoryClient) HealthCheck(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Keys returns the stored keys in sorted order.
func (m *MemoryClient) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Writes returns a copy of the recorded mutating calls.
func (m *MemoryClient) Writes() []WriteCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]WriteCall, len(m.writes))
	copy(out, m.writes)
	return out
}
