package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Store.Backend != StoreMemory {
		t.Fatalf("expected memory store, got %s", cfg.Store.Backend)
	}
	if cfg.Server.Port <= 0 {
		t.Fatalf("expected a default port, got %d", cfg.Server.Port)
	}
	if cfg.Kafka.Topic == "" {
		t.Fatal("expected a default kafka topic")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "REDIS")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("SERVER_READ_TIMEOUT", "3s")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Store.Backend != StoreRedis {
		t.Errorf("expected redis store, got %s", cfg.Store.Backend)
	}
	if cfg.Redis.URL != "redis://cache:6379/2" {
		t.Errorf("unexpected redis url %s", cfg.Redis.URL)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("expected port 9191, got %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 3*time.Second {
		t.Errorf("expected 3s read timeout, got %s", cfg.Server.ReadTimeout)
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Errorf("expected 2 origins, got %v", cfg.Server.AllowedOrigins)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("expected kafka enabled with 2 brokers, got %+v", cfg.Kafka)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		Store:  StoreConfig{Backend: "localstorage"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 70000},
		Store:  StoreConfig{Backend: StoreMemory},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an out of range port")
	}
}
