// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"drugwatch/internal/bulkcache"
	bulkhandler "drugwatch/internal/bulkcache/handler"
	"drugwatch/internal/events"
	"drugwatch/internal/fetch"
	"drugwatch/internal/platform/config"
	"drugwatch/internal/platform/httpserver"
	"drugwatch/internal/platform/logger"
	platformredis "drugwatch/internal/platform/redis"
	"drugwatch/internal/query"
	queryhandler "drugwatch/internal/query/handler"
	querymetrics "drugwatch/internal/query/metrics"
	"drugwatch/internal/rescache"
	"drugwatch/internal/sources/approvals"
	"drugwatch/internal/sources/products"
	"drugwatch/internal/sources/review"
	httptransport "drugwatch/internal/transport/http"
	"drugwatch/internal/watch"
	watchhandler "drugwatch/internal/watch/handler"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	level := slog.LevelInfo
	if os.Getenv("DRUGWATCH_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	log := logger.New(level)

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	// Two cache tiers: short TTL for per-key lookups, coarse TTL for bulk
	// datasets and proxy-extracted feeds.
	var perKeyStore, bulkStore rescache.Store
	if redisClient != nil {
		perKeyStore = rescache.NewRedisStore(redisClient.Client, rescache.Config{
			TTL: cfg.Cache.PerKeyTTL, MaxEntries: cfg.Cache.MaxEntries, Prefix: "drugwatch:rc:light:",
		})
		bulkStore = rescache.NewRedisStore(redisClient.Client, rescache.Config{
			TTL: cfg.Cache.BulkTTL, MaxEntries: cfg.Cache.MaxEntries, Prefix: "drugwatch:rc:bulk:",
		})
	} else {
		perKeyStore = rescache.NewMemoryStore(rescache.Config{
			TTL: cfg.Cache.PerKeyTTL, MaxEntries: cfg.Cache.MaxEntries,
		})
		bulkStore = rescache.NewMemoryStore(rescache.Config{
			TTL: cfg.Cache.BulkTTL, MaxEntries: cfg.Cache.MaxEntries,
		})
	}

	lightOpts := fetch.Options{
		Timeout:    cfg.Fetch.Timeout,
		MaxRetries: cfg.Fetch.MaxRetries,
		BaseDelay:  cfg.Fetch.BaseDelay,
		MaxDelay:   cfg.Fetch.MaxDelay,
	}
	heavyOpts := lightOpts
	heavyOpts.Timeout = cfg.Fetch.HeavyTimeout

	fetchClient := fetch.NewClient(lightOpts, cfg.Fetch.RatePerHost, log)
	perKeyFetcher := rescache.NewCachingFetcher(fetchClient, perKeyStore, log)
	bulkFetcher := rescache.NewCachingFetcher(fetchClient, bulkStore, log)

	productsClient := products.New(cfg.Registries.ProductsBaseURL, perKeyFetcher, lightOpts, cfg.Fetch.Concurrency, log)
	manager := bulkcache.NewManager(cfg.Registries.ApprovalsBaseURL, bulkFetcher, heavyOpts, cfg.Cache.BulkTTL, log)
	approvalsClient := approvals.New(manager, log)
	reviewNew := review.New(cfg.Registries.ProxyBaseURL, review.FeedNew, bulkFetcher, heavyOpts, log)
	reviewGeneric := review.New(cfg.Registries.ProxyBaseURL, review.FeedGeneric, bulkFetcher, heavyOpts, log)

	queryService := query.NewService(productsClient, approvalsClient, reviewNew, reviewGeneric, log, querymetrics.New())

	var sink events.Sink = events.NopSink{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		sink = kafkaSink
	}
	publisher := events.NewPublisher(sink, log)
	defer publisher.Close()

	var watchStore watch.Store
	if redisClient != nil {
		watchStore = watch.NewRedisStore(redisClient.Client)
	} else {
		watchStore = watch.NewInMemoryStore()
	}
	watchService := watch.NewService(watchStore, queryService, publisher, log)

	deps := httptransport.Deps{
		Query:  queryhandler.New(queryService, log),
		Bulk:   bulkhandler.New(manager, log),
		Watch:  watchhandler.New(watchService, log),
		Logger: log,
	}
	if redisClient != nil {
		deps.Redis = redisClient
	}

	if cfg.WarmOnBoot {
		manager.StartBackground()
	}

	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(deps))
	log.Info("starting drugwatch", "addr", cfg.Addr, "warm_on_boot", cfg.WarmOnBoot)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
