package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"subtrack/internal/amqp"
	"subtrack/internal/backend"
	"subtrack/internal/cache"
	"subtrack/internal/cli"
	"subtrack/internal/log"
	"subtrack/internal/metrics"
	"subtrack/internal/middleware/trace"
	"subtrack/internal/records"
	"subtrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting subtrack-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	local := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer local.Close()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend)).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize synchronized store", log.FieldError, err)
		os.Exit(1)
	}
	defer res.Close()

	cacheManager := cache.NewManager()
	cacheManager.Register(res.Cache.Cache())
	cacheManager.StartCleanup(cfg.CacheTTL + time.Second)
	defer cacheManager.Stop()

	// The worker only consumes notifications, it never mutates the collection.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	tracker := records.NewTracker(ctx, local, res.Store, records.WithLogger(logger.WithComponent(log.ComponentRecords)))
	syncWorker := worker.NewSyncWorker(tracker, res.Cache, logger.WithComponent(log.ComponentWorker))
	if amqpClient != nil {
		syncWorker.WithOrigin(amqpClient.Origin())
	}

	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.MetricsPort),
		Handler:           trace.NewMiddleware(logger.WithComponent(log.ComponentMetrics)).Middleware(metricsMux()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return syncWorker.Run(gctx, cfg.SyncInterval)
	})
	if amqpClient != nil {
		g.Go(func() error {
			return amqpClient.Consume(gctx, syncWorker.HandleCollectionChanged)
		})
	}
	g.Go(func() error {
		logger.Info("Serving metrics", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", log.FieldError, err)
	}
	if ctx.Err() != nil {
		cli.WaitForShutdown(ctx, done)
	}
	logger.Info("Worker shutdown complete")
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
