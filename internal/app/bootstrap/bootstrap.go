package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	pollengine "rankit/contexts/ranking/poll-engine"
	postgresadapter "rankit/contexts/ranking/poll-engine/adapters/postgres"
	workerapp "rankit/contexts/ranking/poll-engine/application/workers"
	"rankit/contexts/ranking/poll-engine/domain/rating"
	"rankit/contexts/ranking/poll-engine/ports"
	"rankit/internal/platform/config"
	"rankit/internal/platform/db"
	"rankit/internal/platform/httpserver"
	"rankit/internal/platform/messaging"
	"rankit/internal/platform/observability"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	publisher    *messaging.NATSPublisher
	outboxRelay  workerapp.OutboxRelay
	expirer      workerapp.PairingExpirer
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat).
		With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("RANKIT_POSTGRES_DSN is required")
	}

	pg, err := db.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	module := pollengine.NewModule(pollengine.Dependencies{
		UnitOfWork: repo,
		Ranks:      repo,
		Pairings:   repo,
		Catalog:    repo,
		Outbox:     repo,
		Clock:      postgresadapter.SystemClock{},
		IDGen:      postgresadapter.UUIDGenerator{},
		Rating:     rating.Model{K: cfg.EloK, Scale: cfg.EloScale},
		Logger:     logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat).
		With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("RANKIT_POSTGRES_DSN is required")
	}

	pg, err := db.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	var (
		publisher ports.EventPublisher
		natsPub   *messaging.NATSPublisher
	)
	if cfg.NATSURL != "" {
		conn, err := messaging.ConnectNATS(cfg.NATSURL, cfg.ServiceName+"-worker")
		if err != nil {
			_ = pg.Close()
			return nil, err
		}
		natsPub = messaging.NewNATSPublisher(conn, cfg.EventSubjectPrefix, logger)
		publisher = natsPub
	} else {
		bus := messaging.NewBus(logger)
		messaging.NewEventLog(logger).Register(bus)
		logger.Warn("no nats url configured, poll events go to the in-process event log",
			"event", "bootstrap_worker_in_process_bus",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"topics", bus.Topics(),
		)
		publisher = bus
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres:  pg,
		publisher: natsPub,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: publisher,
			Clock:     postgresadapter.SystemClock{},
			Observer:  observability.RelayMetrics{},
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		expirer: workerapp.PairingExpirer{
			Pairings: repo,
			Clock:    postgresadapter.SystemClock{},
			TTL:      cfg.PairingTTL,
			Logger:   logger,
		},
		pollInterval: cfg.WorkerPollInterval,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Run(ctx)
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

// Run ticks the expirer and the outbox relay until ctx is cancelled. A failed
// cycle is logged and retried on the next tick.
func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.expirer.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logCycleFailure("pairing_expirer", err)
		}
		if err := w.outboxRelay.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logCycleFailure("outbox_relay", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) logCycleFailure(job string, err error) {
	w.logger.Warn("worker cycle failed",
		"event", "bootstrap_worker_cycle_failed",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"job", job,
		"error", err.Error(),
	)
}

func (w *WorkerApp) Close() error {
	var errs []error
	if w.publisher != nil {
		errs = append(errs, w.publisher.Close())
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
