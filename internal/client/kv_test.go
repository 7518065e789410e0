package client

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryClientGetSetDel(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryClient()

	if _, err := mem.Get(ctx, "missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if err := mem.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	got, err := mem.Get(ctx, "k")
	if err != nil || got != "v" {
		t.Fatalf("expected v, got %q (%v)", got, err)
	}
	if err := mem.Del(ctx, "k"); err != nil {
		t.Fatalf("unexpected del error: %v", err)
	}
	if len(mem.Keys()) != 0 {
		t.Fatalf("expected empty store, got %v", mem.Keys())
	}

	writes := mem.Writes()
	if len(writes) != 2 || writes[0].Op != "set" || writes[1].Op != "del" {
		t.Fatalf("unexpected write log %+v", writes)
	}
}

func TestMemoryClientWithError(t *testing.T) {
	boom := errors.New("boom")
	mem := NewMemoryClient().WithError(boom)

	if err := mem.Set(context.Background(), "k", "v"); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := mem.HealthCheck(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom from health check, got %v", err)
	}
}

func TestWithPrefixIsolatesDevices(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryClient()
	a := WithPrefix(mem, DevicePrefix("a"))
	b := WithPrefix(mem, DevicePrefix("b"))

	if err := a.Set(ctx, "tempo_user", "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := b.Get(ctx, "tempo_user"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected device b to see nothing, got %v", err)
	}

	keys := mem.Keys()
	if len(keys) != 1 || keys[0] != "device:a:tempo_user" {
		t.Fatalf("unexpected backing keys %v", keys)
	}

	if err := a.Del(ctx, "tempo_user"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mem.Keys()) != 0 {
		t.Fatalf("expected prefixed delete, got %v", mem.Keys())
	}
}
