package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/eprhub/prn-integration/internal/api"
	"github.com/eprhub/prn-integration/internal/backend"
	"github.com/eprhub/prn-integration/internal/config"
	"github.com/eprhub/prn-integration/internal/cursor"
	"github.com/eprhub/prn-integration/internal/db"
	"github.com/eprhub/prn-integration/internal/metrics"
	"github.com/eprhub/prn-integration/internal/notify"
	"github.com/eprhub/prn-integration/internal/npwd"
	"github.com/eprhub/prn-integration/internal/queue"
	"github.com/eprhub/prn-integration/internal/ratelimiter"
	"github.com/eprhub/prn-integration/internal/retry"
	"github.com/eprhub/prn-integration/internal/service"
	"github.com/eprhub/prn-integration/internal/validator"
	"github.com/eprhub/prn-integration/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL, "migrations"); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	transport := queue.NewPgTransport(pool, cfg.VisibilityTimeout, cfg.RequeueDelay, cfg.MaxDeliveries)
	cursors := cursor.NewPgStore(pool)

	limiter := ratelimiter.New(cfg.NpwdRateLimit)
	npwdClient := npwd.NewClient(cfg.NpwdBaseURL, cfg.NpwdBearerToken, cfg.NpwdTimeout, limiter)
	policy := retry.NewPolicy(cfg.RetryMaxAttempts, cfg.RetryDelay, cfg.RetryExponential)

	prnService := backend.NewHTTPPrnService(cfg.PrnBaseURL, cfg.BackendTimeout)
	orgService := backend.NewHTTPOrganisationService(cfg.AccountBaseURL, cfg.BackendTimeout)

	dispatcher := notify.NewEmailDispatcher(
		cfg.EmailBaseURL, cfg.EmailAPIKey,
		cfg.PrnTemplateID, cfg.PernTemplateID,
		cfg.OperatorAddress, cfg.BackendTimeout,
	)

	// ---- pipeline workers ----
	onSaved, onDeadLettered, onRequeued := m.DrainHooks()
	drainW := worker.NewDrainWorker(
		transport, validator.NewRuleValidator(), prnService, orgService, dispatcher,
		cfg.ReceiveBatchSize, cfg.DrainInterval, logger, worker.DrainHooks{
			OnSaved:        onSaved,
			OnDeadLettered: onDeadLettered,
			OnRequeued:     onRequeued,
		})

	fetchW := worker.NewFetchWorker(
		npwdClient, transport, cursors, policy, drainW,
		cfg.FetchPrnsEnabled, cfg.FetchInterval, logger,
		func(count int) { m.PrnsFetched.Add(float64(count)) },
	)

	pushW := worker.NewPushWorker(
		prnService, npwdClient, cursors, dispatcher, policy,
		cfg.ProducersContext, cfg.PushProducersEnabled, cfg.PushInterval, logger,
		worker.PushHooks{
			OnCycle:    func(outcome string) { m.PushCycles.WithLabelValues(outcome).Inc() },
			OnProducer: m.ProducersPushed.Inc,
		})

	// Context for all background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	var wg sync.WaitGroup
	for _, run := range []func(context.Context){fetchW.Run, drainW.Run, pushW.Run} {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(workerCtx)
		}(run)
	}

	// Periodically refresh the queue depth gauges for scraping.
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				work, retrying, errored, err := transport.Depths(workerCtx)
				if err != nil {
					logger.Warn("failed to read queue depths", zap.Error(err))
					continue
				}
				m.QueueDepthWork.Set(float64(work))
				m.QueueDepthRetry.Set(float64(retrying))
				m.QueueDepthError.Set(float64(errored))
			}
		}
	}()

	// ---- HTTP server ----
	svc := service.NewSyncService(fetchW, pushW, transport, cursors, logger)
	router := api.NewRouter(svc, reg, pool.Ping, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Signal the pipeline workers to stop between passes.
	cancelWorkers()

	// 3. Wait for any in-flight pass to finish. A message cut off
	// mid-flight is redelivered after its visibility timeout.
	wg.Wait()

	logger.Info("server stopped cleanly")
}
