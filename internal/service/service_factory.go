package service

import (
	"sync"

	"go.uber.org/zap"

	"vcard-service/internal/client"
	"vcard-service/internal/repository/storage"
)

// ServiceFactory hands out one SessionService per browser profile. Each
// service sees only its own device namespace of the shared store.
type ServiceFactory struct {
	kv     client.KV
	deps   Deps
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*SessionService
}

func NewServiceFactory(kv client.KV, deps Deps, logger *zap.Logger) *ServiceFactory {
	if deps.Logger == nil {
		deps.Logger = logger
	}
	return &ServiceFactory{
		kv:       kv,
		deps:     deps,
		logger:   logger,
		sessions: make(map[string]*SessionService),
	}
}

// SessionService returns the service of deviceID, creating it on first use.
func (f *ServiceFactory) SessionService(deviceID string) *SessionService {
	f.mu.Lock()
	defer f.mu.Unlock()

	if svc, ok := f.sessions[deviceID]; ok {
		return svc
	}
	scoped := client.WithPrefix(f.kv, client.DevicePrefix(deviceID))
	svc := NewSessionService(
		deviceID,
		storage.NewIdentityStore(scoped),
		storage.NewSessionStore(scoped),
		f.deps,
	)
	f.sessions[deviceID] = svc
	f.logger.Debug("Session service created", zap.String("device_id", deviceID))
	return svc
}

// Cleanup cancels the timers of every session service.
func (f *ServiceFactory) Cleanup() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, svc := range f.sessions {
		svc.Close()
		delete(f.sessions, id)
	}
	f.logger.Info("Session services cleaned up")
}
