package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/loopbill/loopbill/internal/api"
	cronapi "github.com/loopbill/loopbill/internal/api/cron"
	v1 "github.com/loopbill/loopbill/internal/api/v1"
	"github.com/loopbill/loopbill/internal/cache"
	"github.com/loopbill/loopbill/internal/config"
	"github.com/loopbill/loopbill/internal/lock"
	"github.com/loopbill/loopbill/internal/logger"
	"github.com/loopbill/loopbill/internal/metrics"
	"github.com/loopbill/loopbill/internal/notification"
	"github.com/loopbill/loopbill/internal/postgres"
	"github.com/loopbill/loopbill/internal/redis"
	pgrepo "github.com/loopbill/loopbill/internal/repository/postgres"
	"github.com/loopbill/loopbill/internal/scheduler"
	"github.com/loopbill/loopbill/internal/service"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		logger.GetLogger().Fatalw("failed to load configuration", "error", err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		logger.GetLogger().Fatalw("failed to initialize logger", "error", err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatalw("server exited with error", "error", err)
	}
}

func run(cfg *config.Configuration, log *logger.Logger) error {
	db, err := postgres.NewClient(cfg.Postgres, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	// Redis backs the distributed lock and the shared cache when enabled;
	// otherwise both fall back to process-local variants that are only safe
	// for single-instance deployments.
	var jobLock lock.Lock = lock.NewMemoryLock()
	var sharedCache cache.Cache = cache.NewInMemoryCache()
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis, log)
		if err != nil {
			return err
		}
		defer func() { _ = redisClient.Close() }()

		jobLock = lock.NewRedisLock(redisClient, log)
		if cfg.Cache.Type == "redis" {
			sharedCache = cache.NewRedisCache(redisClient, log)
		}
	} else {
		log.Warn("redis disabled: using in-process lock and cache, do not run multiple instances")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	tenantRepo := pgrepo.NewTenantRepository(db, log)
	var notifier notification.Notifier = notification.NopNotifier{}
	if cfg.Notification.Enabled {
		notifier = notification.NewResendNotifier(cfg.Notification, func(ctx context.Context, tenantID string) string {
			t, err := tenantRepo.Get(ctx, tenantID)
			if err != nil {
				return ""
			}
			return t.ContactEmail
		}, log)
	}

	billingSvc := service.NewBillingService(service.ServiceParams{
		Logger:           log,
		Config:           cfg,
		DB:               db,
		Cache:            sharedCache,
		Lock:             jobLock,
		Metrics:          m,
		ConfigRepo:       pgrepo.NewBillingConfigRepository(db, log),
		SubscriptionRepo: pgrepo.NewSubscriptionRepository(db, log),
		InvoiceRepo:      pgrepo.NewInvoiceRepository(db, log),
		TenantRepo:       tenantRepo,
		PaymentRepo:      pgrepo.NewPaymentRepository(db, log),
		Notifier:         notifier,
	})

	sched := scheduler.New(billingSvc, jobLock, m, log)
	if cfg.Billing.SchedulerEnabled {
		if err := sched.Start(); err != nil {
			return err
		}
	} else {
		log.Infow("scheduler disabled, billing jobs run only via manual triggers")
	}

	router := api.NewRouter(api.RouterParams{
		Handlers: api.Handlers{
			Billing:     v1.NewBillingHandler(billingSvc, log),
			Admin:       v1.NewAdminHandler(billingSvc, log),
			BillingCron: cronapi.NewBillingHandler(sched, log),
		},
		Billing:     billingSvc,
		SharedCache: sharedCache,
		Registry:    registry,
		Config:      cfg,
		Logger:      log,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server starting", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Infow("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.Billing.SchedulerEnabled {
		sched.Stop(shutdownCtx)
	}
	return srv.Shutdown(shutdownCtx)
}
