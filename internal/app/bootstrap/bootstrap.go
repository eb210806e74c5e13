package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	listingengine "bazaar/contexts/marketplace/listing-engine"
	postgresadapter "bazaar/contexts/marketplace/listing-engine/adapters/postgres"
	workerapp "bazaar/contexts/marketplace/listing-engine/application/workers"
	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	"bazaar/contexts/marketplace/listing-engine/ports"
	"bazaar/internal/platform/config"
	"bazaar/internal/platform/db"
	"bazaar/internal/platform/httpserver"
	"bazaar/internal/platform/logging"
	"bazaar/internal/platform/messaging"
	"bazaar/internal/platform/metrics"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const shutdownTimeout = 10 * time.Second

type eventBus interface {
	ports.EventPublisher
	ports.EventSubscriber
}

type APIApp struct {
	server       *httpserver.Server
	postgres     *db.Postgres
	relay        *workerapp.OutboxRelay
	activity     *workerapp.ListingEventLogger
	closeBus     func() error
	pollInterval time.Duration
	logger       *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	outboxRelay  workerapp.OutboxRelay
	activity     workerapp.ListingEventLogger
	closeBus     func() error
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.Install(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName).With("process", "api")
	ops := metrics.NewOperations()
	admin := entities.AccountID(cfg.AdminAccount)

	app := &APIApp{
		pollInterval: cfg.OutboxPollInterval,
		logger:       logger,
	}

	var module listingengine.Module
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		pg, err := connectPostgres(cfg)
		if err != nil {
			return nil, err
		}
		var repo *postgresadapter.Repository
		module, repo = listingengine.NewPostgresModule(pg.DB, admin, ops, logger)
		if err := migrate(repo); err != nil {
			_ = pg.Close()
			return nil, err
		}
		app.postgres = pg
	default:
		module = listingengine.NewInMemoryModule(admin, ops, logger)
		if cfg.SeedFile != "" {
			seed, err := LoadSeed(cfg.SeedFile)
			if err != nil {
				return nil, err
			}
			if err := ApplySeed(context.Background(), module.Provisioning, seed, logger); err != nil {
				return nil, err
			}
		}
		// Without a shared database there is no separate worker process, so
		// the API relays its own outbox.
		bus, closeBus, err := openEventBus(cfg, logger)
		if err != nil {
			return nil, err
		}
		app.closeBus = closeBus
		app.relay = &workerapp.OutboxRelay{
			Outbox:    module.Store,
			Publisher: bus,
			Clock:     module.Store,
			Topic:     cfg.OutboxTopic,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		}
		app.activity = &workerapp.ListingEventLogger{
			Subscriber: bus,
			Topic:      cfg.OutboxTopic,
			Logger:     logger,
		}
	}

	app.server = httpserver.New(module, ops.Handler(), logger, normalizeAddr(cfg.HTTPPort))
	if app.postgres != nil {
		app.server.SetReadinessCheck(app.postgres.Ping)
	}
	if cfg.DevProvisioningRoutes {
		if err := app.server.EnableDevProvisioning(); err != nil {
			_ = app.Close()
			return nil, err
		}
	}
	return app, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.Install(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName).With("process", "worker")
	if cfg.StoreBackend != config.StoreBackendPostgres {
		return nil, errors.New("worker requires STORE_BACKEND=postgres")
	}

	pg, err := connectPostgres(cfg)
	if err != nil {
		return nil, err
	}
	repo := postgresadapter.NewRepository(pg.DB, postgresadapter.SystemClock{}, logger)
	if err := migrate(repo); err != nil {
		_ = pg.Close()
		return nil, err
	}

	bus, closeBus, err := openEventBus(cfg, logger)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	return &WorkerApp{
		postgres: pg,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: bus,
			Clock:     postgresadapter.SystemClock{},
			Topic:     cfg.OutboxTopic,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		activity: workerapp.ListingEventLogger{
			Subscriber: bus,
			Topic:      cfg.OutboxTopic,
			Logger:     logger,
		},
		closeBus:     closeBus,
		pollInterval: cfg.OutboxPollInterval,
		logger:       logger,
	}, nil
}

// openEventBus returns the configured bus and a closer for it.
func openEventBus(cfg config.Config, logger *slog.Logger) (eventBus, func() error, error) {
	if cfg.EventBus == config.EventBusAMQP {
		bus, err := messaging.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			return nil, nil, err
		}
		return bus, bus.Close, nil
	}
	return messaging.NewInProcessBus(logger), func() error { return nil }, nil
}

func connectPostgres(cfg config.Config) (*db.Postgres, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	return db.Connect(cfg.PostgresDSN, poolFromConfig(cfg))
}

func migrate(repo *postgresadapter.Repository) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := repo.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate listing engine schema: %w", err)
	}
	return nil
}

func poolFromConfig(cfg config.Config) db.Pool {
	return db.Pool{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"in_process_relay", a.relay != nil,
	)

	g, gctx := errgroup.WithContext(ctx)
	if a.activity != nil {
		if err := a.activity.Start(gctx); err != nil {
			return err
		}
	}
	g.Go(a.server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	if a.relay != nil {
		g.Go(func() error {
			return a.relay.Run(gctx, a.pollInterval)
		})
	}
	return g.Wait()
}

func (a *APIApp) Close() error {
	var errs []error
	if a.closeBus != nil {
		errs = append(errs, a.closeBus())
	}
	if a.postgres != nil {
		errs = append(errs, a.postgres.Close())
	}
	return errors.Join(errs...)
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.activity.Start(ctx); err != nil {
		return err
	}

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.outboxRelay.Run(gctx, w.pollInterval)
	})
	return g.Wait()
}

func (w *WorkerApp) Close() error {
	var errs []error
	if w.closeBus != nil {
		errs = append(errs, w.closeBus())
	}
	if w.postgres != nil {
		errs = append(errs, w.postgres.Close())
	}
	return errors.Join(errs...)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
