package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"vcard-service/internal/config"
	"vcard-service/internal/factory"
	"vcard-service/internal/handler"
	"vcard-service/internal/util"
)

func main() {
	app := &cli.App{
		Name:  "vcard-server",
		Usage: "Virtual card issuance prototype API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "Listen host"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port"},
			&cli.StringFlag{Name: "environment", Aliases: []string{"e"}, Usage: "development or production"},
			&cli.StringFlag{Name: "store", Aliases: []string{"s"}, Usage: "Store backend: memory, redis or scylla"},
			&cli.StringFlag{Name: "redis-url", Usage: "Redis URL"},
			&cli.StringSliceFlag{Name: "scylla-nodes", Usage: "Scylla contact points"},
			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Usage: "Log level"},
			&cli.StringFlag{Name: "log-format", Usage: "console or json"},
			&cli.BoolFlag{Name: "kafka", Usage: "Publish card events to Kafka"},
			&cli.BoolFlag{Name: "clickhouse", Usage: "Record card events in ClickHouse"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)
	defer util.Sync()

	f, err := factory.NewFactory(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize factory: %w", err)
	}
	defer f.Close()

	cardHandler := handler.NewCardHandler(f.ServiceFactory(), util.Get())
	router := handler.NewRouter(cardHandler, f.HealthCheck, cfg.Server.AllowedOrigins, util.Get())

	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	util.Info("Server started",
		util.String("environment", cfg.Environment),
		util.String("address", server.Addr),
		util.String("store", cfg.Store.Backend),
	)

	return waitForShutdown(f, server, errCh)
}

// applyFlags overrides environment configuration with explicitly set flags.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("host") {
		cfg.Server.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}
	if c.IsSet("environment") {
		cfg.Environment = c.String("environment")
	}
	if c.IsSet("store") {
		cfg.Store.Backend = c.String("store")
	}
	if c.IsSet("redis-url") {
		cfg.Redis.URL = c.String("redis-url")
	}
	if c.IsSet("scylla-nodes") {
		cfg.Scylla.Nodes = c.StringSlice("scylla-nodes")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Logging.Format = c.String("log-format")
	}
	if c.IsSet("kafka") {
		cfg.Kafka.Enabled = c.Bool("kafka")
	}
	if c.IsSet("clickhouse") {
		cfg.Clickhouse.Enabled = c.Bool("clickhouse")
	}
}

func waitForShutdown(f *factory.Factory, server *http.Server, errCh <-chan error) error {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case sig := <-signalChan:
		util.Info("Received shutdown signal", util.String("signal", sig.String()))
	case err := <-errCh:
		util.Error("Server failed", util.ErrorField(err))
		f.Close()
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.Config().Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		util.Error("Failed to shutdown server gracefully", util.ErrorField(err))
	} else {
		util.Info("Server shutdown completed")
	}
	return f.Close()
}
