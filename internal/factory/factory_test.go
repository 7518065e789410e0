package factory

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"vcard-service/internal/config"
	"vcard-service/internal/model"
	"vcard-service/internal/util"
)

func init() {
	util.SetLogger(zap.NewNop())
}

func TestMemoryFactoryWiresServices(t *testing.T) {
	cfg := &config.Config{
		Environment: "development",
		Server:      config.ServerConfig{Port: 8080},
		Store:       config.StoreConfig{Backend: config.StoreMemory},
	}

	f, err := NewFactory(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.Close()

	ctx := context.Background()
	svc := f.ServiceFactory().SessionService("dev-1")
	if _, err := svc.Login(ctx, model.UserProfile{Name: "A", Email: "a@x.com", Phone: "1"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	health := f.HealthCheck(ctx)
	if err, ok := health["store"]; !ok || err != nil {
		t.Fatalf("expected healthy store, got %v", health)
	}
	if _, ok := health["kafka"]; ok {
		t.Fatal("expected no kafka check when disabled")
	}
	if !f.IsHealthy(ctx) {
		t.Fatal("expected factory to be healthy")
	}
}
