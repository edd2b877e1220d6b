package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dunamismax/autoflow/internal/config"
	"github.com/dunamismax/autoflow/internal/engine"
	"github.com/dunamismax/autoflow/internal/nodes"
	"github.com/dunamismax/autoflow/internal/storage"
	"github.com/dunamismax/autoflow/internal/store"
	"github.com/dunamismax/autoflow/internal/telemetry"
	"github.com/dunamismax/autoflow/internal/webhook"
	"github.com/dunamismax/autoflow/internal/worker"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[worker] ", log.LstdFlags|log.Lmsgprefix)

	ctx := context.Background()

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		ServiceName:  "autoflow-worker",
		Exporter:     cfg.Trace.Exporter,
		OTLPEndpoint: cfg.Trace.OTLPEndpoint,
		OTLPInsecure: cfg.Trace.OTLPInsecure,
		SampleRatio:  cfg.Trace.SampleRatio,
	}, logger)
	if err != nil {
		logger.Fatalf("tracing setup failed: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Printf("tracing shutdown error: %v", err)
		}
	}()

	registry := nodes.Builtin(logger)

	var nodeCache engine.Cache
	switch strings.ToLower(strings.TrimSpace(cfg.NodeCache.Backend)) {
	case "redis":
		redisClient := redis.NewClient(cfg.Queue.RedisOptions())
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Printf("redis close error: %v", err)
			}
		}()
		cache, err := engine.NewRedisCache(redisClient, cfg.NodeCache.TTL, cfg.NodeCache.KeyPrefix, logger)
		if err != nil {
			logger.Fatalf("node cache setup failed: %v", err)
		}
		nodeCache = cache
	case "none":
	default:
		nodeCache = engine.NewMemoryCache(cfg.NodeCache.Entries)
	}

	eng := engine.New(registry, nodeCache, logger)

	var evaluations store.EvaluationStore = store.NewMemoryEvaluationStore()
	if cfg.Database.DSN != "" {
		storeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pg, err := store.NewPostgresEvaluationStore(storeCtx, cfg.Database.DSN)
		cancel()
		if err != nil {
			logger.Fatalf("postgres store setup failed: %v", err)
		}
		defer func() {
			if err := pg.Close(); err != nil {
				logger.Printf("postgres close error: %v", err)
			}
		}()
		evaluations = pg
		logger.Println("using postgres evaluation store")
	}

	var storageClient *storage.Client
	if cfg.Storage.Endpoint != "" {
		client, err := storage.NewClient(storage.Config{
			Endpoint: cfg.Storage.Endpoint,
			Access:   cfg.Storage.AccessKey,
			Secret:   cfg.Storage.SecretKey,
			Bucket:   cfg.Storage.Bucket,
			UseSSL:   cfg.Storage.UseSSL,
		})
		if err != nil {
			logger.Fatalf("storage setup failed: %v", err)
		}
		bucketCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = client.EnsureBucket(bucketCtx)
		cancel()
		if err != nil {
			logger.Fatalf("ensure bucket failed: %v", err)
		}
		storageClient = client
		logger.Printf("results archived to bucket %s", client.Bucket())
	}

	webhookClient := webhook.NewClient(webhook.Config{
		SigningSecret:  cfg.Webhook.SigningSecret,
		Timeout:        cfg.Webhook.Timeout,
		MaxAttempts:    cfg.Webhook.MaxAttempts,
		InitialBackoff: cfg.Webhook.InitialBackoff,
		MaxBackoff:     cfg.Webhook.MaxBackoff,
	})

	srv, err := worker.NewServer(logger, cfg.Queue, cfg.Worker, eng, webhookClient, evaluations, nil, storageClient)
	if err != nil {
		logger.Fatalf("worker setup failed: %v", err)
	}

	if cfg.Worker.MetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:        cfg.Worker.MetricsAddr,
			Handler:     srv.MetricsHandler(),
			ReadTimeout: 15 * time.Second,
		}
		go func() {
			logger.Printf("worker metrics listening on %s", cfg.Worker.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("metrics server failed: %v", err)
			}
		}()
	}

	logger.Printf(
		"starting worker concurrency=%d max_active_evaluations=%d queue=%s redis=%s cache=%s nodes=%d",
		cfg.Worker.Concurrency,
		cfg.Worker.MaxActiveEvaluations,
		cfg.Queue.Name,
		cfg.Queue.RedisAddr,
		cfg.NodeCache.Backend,
		registry.Len(),
	)

	if err := srv.Run(); err != nil {
		logger.Fatalf("worker failed: %v", err)
	}
}
