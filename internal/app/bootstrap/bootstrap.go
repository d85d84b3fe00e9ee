package bootstrap

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	vestingengine "tokenvest/contexts/token-economics/vesting-engine"
	"tokenvest/contexts/token-economics/vesting-engine/adapters/memory"
	postgresadapter "tokenvest/contexts/token-economics/vesting-engine/adapters/postgres"
	redisadapter "tokenvest/contexts/token-economics/vesting-engine/adapters/redis"
	"tokenvest/contexts/token-economics/vesting-engine/application/workers"
	"tokenvest/contexts/token-economics/vesting-engine/ports"
	"tokenvest/internal/platform/cache"
	"tokenvest/internal/platform/config"
	"tokenvest/internal/platform/db"
	"tokenvest/internal/platform/httpserver"
	"tokenvest/internal/platform/messaging"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	infra    infrastructure
	inline   *WorkerApp
	logger   *slog.Logger
	shutdown time.Duration
}

type WorkerApp struct {
	infra         infrastructure
	outboxRelay   workers.OutboxRelay
	auditor       workers.CustodyAuditor
	claimAudit    workers.ClaimAuditConsumer
	pollInterval  time.Duration
	auditInterval time.Duration
	logger        *slog.Logger
}

// infrastructure is the storage wiring shared by both processes.
type infrastructure struct {
	module   vestingengine.Module
	outbox   ports.OutboxRepository
	clock    ports.Clock
	postgres *db.Postgres
	redis    *redis.Client
}

func BuildAPI(ctx context.Context, configPath string) (*APIApp, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	infra, err := buildInfrastructure(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	app := &APIApp{
		server: httpserver.New(infra.module, logger, normalizeAddr(cfg.HTTPPort), httpserver.Options{
			ClaimsPerMinute: cfg.ClaimsPerMinute,
		}),
		infra:    infra,
		logger:   logger,
		shutdown: 10 * time.Second,
	}
	// Without Postgres there is no separate worker process that could see the
	// in-memory outbox, so the relay and auditor run inside the API.
	if infra.postgres == nil {
		inline, err := newWorkerApp(cfg, infra, logger)
		if err != nil {
			_ = infra.close()
			return nil, err
		}
		app.inline = inline
	}
	return app, nil
}

func BuildWorker(ctx context.Context, configPath string) (*WorkerApp, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("VESTING_POSTGRES_DSN is required for the worker")
	}

	infra, err := buildInfrastructure(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app, err := newWorkerApp(cfg, infra, logger)
	if err != nil {
		_ = infra.close()
		return nil, err
	}
	return app, nil
}

func buildInfrastructure(ctx context.Context, cfg config.Config, logger *slog.Logger) (infrastructure, error) {
	var infra infrastructure
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr, logger)
		if err != nil {
			return infra, err
		}
		infra.redis = client
	}

	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		store := memory.NewStore(logger)
		if err := seedWallets(store, cfg.DevWallets); err != nil {
			_ = infra.close()
			return infra, err
		}
		var idempotency ports.IdempotencyStore = store
		if infra.redis != nil {
			idempotency = redisadapter.NewIdempotencyStore(infra.redis, store, "", logger)
		}
		infra.module = vestingengine.NewModule(vestingengine.Dependencies{
			Accounts:       store,
			Ledger:         store,
			Idempotency:    idempotency,
			Clock:          store,
			IDGenerator:    store,
			IdempotencyTTL: cfg.IdempotencyTTL,
			Logger:         logger,
		})
		infra.module.Store = store
		infra.outbox = store
		infra.clock = store
		logger.Warn("running with in-memory vesting store",
			"event", "bootstrap_memory_store",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"seeded_wallets", len(cfg.DevWallets),
		)
		return infra, nil
	}

	pg, err := db.Connect(ctx, cfg.PostgresDSN, db.DefaultPoolOptions(), logger)
	if err != nil {
		_ = infra.close()
		return infra, err
	}
	infra.postgres = pg

	repo := postgresadapter.NewRepository(pg.DB, logger)
	if cfg.AutoMigrate {
		if err := repo.Migrate(ctx); err != nil {
			_ = infra.close()
			return infra, errors.Wrap(err, "migrate vesting schema")
		}
	}
	clock := postgresadapter.SystemClock{}
	var idempotency ports.IdempotencyStore = repo
	if infra.redis != nil {
		idempotency = redisadapter.NewIdempotencyStore(infra.redis, clock, "", logger)
	}
	infra.module = vestingengine.NewModule(vestingengine.Dependencies{
		Accounts:       repo,
		Ledger:         repo,
		Idempotency:    idempotency,
		Clock:          clock,
		IDGenerator:    postgresadapter.UUIDGenerator{},
		IdempotencyTTL: cfg.IdempotencyTTL,
		Logger:         logger,
	})
	infra.outbox = repo
	infra.clock = clock
	return infra, nil
}

func newWorkerApp(cfg config.Config, infra infrastructure, logger *slog.Logger) (*WorkerApp, error) {
	bus, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		infra: infra,
		outboxRelay: workers.OutboxRelay{
			Outbox:    infra.outbox,
			Publisher: bus,
			Clock:     infra.clock,
			Topic:     cfg.OutboxTopic,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		auditor: infra.module.Auditor,
		claimAudit: workers.ClaimAuditConsumer{
			Subscriber: bus,
			Auditor:    infra.module.Auditor,
			Topic:      cfg.OutboxTopic,
			Logger:     logger,
		},
		pollInterval:  cfg.PollInterval,
		auditInterval: cfg.AuditInterval,
		logger:        logger,
	}, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"inline_workers", a.inline != nil,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdown)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	if a.inline != nil {
		g.Go(func() error { return a.inline.Run(gctx) })
	}
	return g.Wait()
}

func (a *APIApp) Close() error {
	return a.infra.close()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.claimAudit.Start(ctx); err != nil {
		return err
	}

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"audit_interval", w.auditInterval.String(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.every(gctx, "outbox_relay", w.pollInterval, func(ctx context.Context) error {
			_, err := w.outboxRelay.RunOnce(ctx)
			return err
		})
	})
	g.Go(func() error {
		return w.every(gctx, "custody_audit", w.auditInterval, func(ctx context.Context) error {
			_, err := w.auditor.RunOnce(ctx)
			return err
		})
	})
	return g.Wait()
}

// every runs task on each tick until ctx is done. Task failures are logged and
// retried on the next tick.
func (w *WorkerApp) every(ctx context.Context, name string, interval time.Duration, task func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := task(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("worker task failed",
				"event", "bootstrap_worker_task_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"task", name,
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	return w.infra.close()
}

func (i infrastructure) close() error {
	var result error
	if i.redis != nil {
		result = errors.CombineErrors(result, i.redis.Close())
	}
	if i.postgres != nil {
		result = errors.CombineErrors(result, i.postgres.Close())
	}
	return result
}

func seedWallets(store *memory.Store, entries []string) error {
	for _, entry := range entries {
		wallet, rawAmount, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(wallet) == "" {
			return errors.Newf("dev wallet %q must be wallet=amount", entry)
		}
		amount, err := strconv.ParseUint(strings.TrimSpace(rawAmount), 10, 64)
		if err != nil {
			return errors.Wrapf(err, "dev wallet %q amount", entry)
		}
		if err := store.Credit(strings.TrimSpace(wallet), amount); err != nil {
			return err
		}
	}
	return nil
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
