// Command server runs the payment dispatch intermediary: it accepts
// POST /payments, durably enqueues via the shared store, dispatches
// asynchronously through the worker pool, and serves GET /payments-summary.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/paymentdispatch/intermediary/internal/clock"
	"github.com/paymentdispatch/intermediary/internal/config"
	"github.com/paymentdispatch/intermediary/internal/health"
	"github.com/paymentdispatch/intermediary/internal/httpapi"
	"github.com/paymentdispatch/intermediary/internal/ingestion"
	"github.com/paymentdispatch/intermediary/internal/logging"
	"github.com/paymentdispatch/intermediary/internal/model"
	"github.com/paymentdispatch/intermediary/internal/processorclient"
	"github.com/paymentdispatch/intermediary/internal/store"
	"github.com/paymentdispatch/intermediary/internal/summary"
	"github.com/paymentdispatch/intermediary/internal/worker"
)

func main() {
	logger, err := logging.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := store.NewRedisStore(cfg.StoreURL)
	if err != nil {
		return fmt.Errorf("build store client: %w", err)
	}
	defer st.Close()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelStartup()
	if err := st.Ping(startupCtx); err != nil {
		return fmt.Errorf("store unreachable at startup: %w", err)
	}

	var audit *store.AuditLog
	if cfg.AuditLogPath != "" {
		audit, err = store.OpenAuditLog(cfg.AuditLogPath)
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		defer audit.Close()
	}

	numWorkers := cfg.WorkerCount(runtime.NumCPU())

	defaultClient := processorclient.New(cfg.DefaultProcessorURL, numWorkers)
	fallbackClient := processorclient.New(cfg.FallbackProcessorURL, numWorkers)

	healthClients := map[model.ProcessorID]*processorclient.Client{
		model.ProcessorDefault:  defaultClient,
		model.ProcessorFallback: fallbackClient,
	}
	instanceID := ulid.Make().String()
	oracle := health.New(st, healthClients, instanceID, logger)

	submitters := map[model.ProcessorID]worker.Submitter{
		model.ProcessorDefault:  defaultClient,
		model.ProcessorFallback: fallbackClient,
	}
	pool := worker.New(st, oracle, submitters, audit, numWorkers, logger)

	realClock := clock.Real{}
	ingest := ingestion.New(st, realClock)
	summarySvc := summary.New(st, realClock)
	sweeper := store.NewSweeper(st.Client(), 500*time.Millisecond, logger)

	router := httpapi.NewRouter(ingest, summarySvc, logger)
	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  cfg.KeepAlive(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go oracle.Run(ctx)
	go sweeper.Run(ctx)

	poolDone := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(poolDone)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr), zap.Int("workers", numWorkers), zap.String("instanceId", instanceID))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return err
	case <-sig:
		logger.Info("shutdown signal received, draining")
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), config.DrainDeadline)
	defer cancelDrain()

	// Stop accepting new HTTP connections first; the ingestion handler is a
	// single enqueue round trip, so this drains almost instantly.
	if err := server.Shutdown(drainCtx); err != nil {
		logger.Warn("graceful shutdown did not complete cleanly", zap.Error(err))
	}

	// Now stop oracle/sweeper/worker-pool loops from picking up new work.
	// Dispatches already in flight run on their own context (see
	// internal/worker/pool.go) and are not cancelled by this.
	cancel()

	select {
	case <-poolDone:
	case <-drainCtx.Done():
		logger.Warn("drain deadline exceeded before worker pool finished")
	}

	return nil
}
