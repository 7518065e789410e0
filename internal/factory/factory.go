package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"vcard-service/internal/client"
	"vcard-service/internal/config"
	"vcard-service/internal/events"
	"vcard-service/internal/issuer"
	"vcard-service/internal/service"
	"vcard-service/internal/util"
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config *config.Config
	clock  clockwork.Clock

	// Clients
	store            client.KV
	redisClient      *client.RedisClient
	scyllaClient     *client.ScyllaClient
	kafkaProducer    *client.KafkaProducer
	clickhouseClient *client.ClickHouseClient

	dispatcher     *events.Dispatcher
	serviceFactory *service.ServiceFactory

	closeOnce sync.Once
}

// NewFactory initializes the store backend and the optional event sinks.
// The logger must be initialized before calling it.
func NewFactory(cfg *config.Config) (*Factory, error) {
	f := &Factory{
		config: cfg,
		clock:  clockwork.NewRealClock(),
	}

	if err := f.initializeStore(); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	if err := f.initializeEvents(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to initialize event sinks: %w", err)
	}

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.String("store", cfg.Store.Backend),
		util.Bool("kafka_enabled", f.kafkaProducer != nil),
		util.Bool("clickhouse_enabled", f.clickhouseClient != nil),
	)
	return f, nil
}

func (f *Factory) initializeStore() error {
	switch f.config.Store.Backend {
	case config.StoreRedis:
		rc, err := client.NewRedisClient(f.config)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		f.redisClient = rc
		f.store = rc
	case config.StoreScylla:
		sc, err := client.NewScyllaClient(f.config)
		if err != nil {
			return fmt.Errorf("scylla: %w", err)
		}
		f.scyllaClient = sc
		f.store = sc
	default:
		if f.config.IsProduction() {
			util.Warn("Using the in-memory store in production; data is lost on restart")
		}
		f.store = client.NewMemoryClient()
	}
	return nil
}

// initializeEvents wires the enabled sinks. A sink that fails to start is
// fatal in production and skipped elsewhere.
func (f *Factory) initializeEvents() error {
	var (
		sinks      []events.Sink
		initErrors []error
	)

	if f.config.Kafka.Enabled {
		if producer, err := client.NewKafkaProducer(f.config); err != nil {
			initErrors = append(initErrors, fmt.Errorf("kafka: %w", err))
		} else {
			f.kafkaProducer = producer
			sinks = append(sinks, events.NewKafkaSink(producer))
		}
	}

	if f.config.Clickhouse.Enabled {
		if err := f.initializeClickHouse(&sinks); err != nil {
			initErrors = append(initErrors, fmt.Errorf("clickhouse: %w", err))
		}
	}

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			util.Warn("Event sink disabled", util.ErrorField(err))
		}
	}

	f.dispatcher = events.NewDispatcher(0, sinks...)
	return nil
}

func (f *Factory) initializeClickHouse(sinks *[]events.Sink) error {
	ch, err := client.NewClickHouseClient(f.config)
	if err != nil {
		return err
	}
	sink, err := events.NewClickHouseSink(ch, f.config.Clickhouse.Table)
	if err != nil {
		ch.Close()
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sink.EnsureTable(ctx); err != nil {
		ch.Close()
		return fmt.Errorf("failed to create ledger table: %w", err)
	}

	f.clickhouseClient = ch
	*sinks = append(*sinks, sink)
	return nil
}

// ==============================
// Service Factory
// ==============================

func (f *Factory) ServiceFactory() *service.ServiceFactory {
	if f.serviceFactory == nil {
		f.serviceFactory = service.NewServiceFactory(f.store, service.Deps{
			Factory: issuer.NewFactory(issuer.WithClock(f.clock)),
			Clock:   f.clock,
			Emitter: f.dispatcher,
		}, util.Get())
	}
	return f.serviceFactory
}

// ==============================
// Health Checks
// ==============================

// HealthCheck probes every initialized backend in parallel.
func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	checks := map[string]client.HealthChecker{}
	if hc, ok := f.store.(client.HealthChecker); ok {
		checks["store"] = hc
	}
	if f.kafkaProducer != nil {
		checks["kafka"] = f.kafkaProducer
	}
	if f.clickhouseClient != nil {
		checks["clickhouse"] = f.clickhouseClient
	}

	var mu sync.Mutex
	results := make(map[string]error, len(checks))

	g, ctx := errgroup.WithContext(ctx)
	for name, hc := range checks {
		g.Go(func() error {
			err := hc.HealthCheck(ctx)
			mu.Lock()
			results[name] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (f *Factory) IsHealthy(ctx context.Context) bool {
	for _, err := range f.HealthCheck(ctx) {
		if err != nil {
			return false
		}
	}
	return true
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		util.Info("Shutting down factory...")

		if f.serviceFactory != nil {
			f.serviceFactory.Cleanup()
		}

		if f.dispatcher != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := f.dispatcher.Close(ctx); err != nil {
				util.Error("Event dispatcher did not drain", util.ErrorField(err))
			}
			cancel()
		}

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			}
		}

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", util.ErrorField(err))
			}
		}

		if f.scyllaClient != nil {
			f.scyllaClient.Close()
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			}
		}

		util.Info("Factory shutdown completed")
		util.Sync()
	})
	return nil
}

func (f *Factory) Config() *config.Config {
	return f.config
}
