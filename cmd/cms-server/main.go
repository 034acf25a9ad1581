// cmd/cms-server/main.go
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"site-cms/internal/api"
	"site-cms/internal/authoring"
	"site-cms/internal/cache"
	appaws "site-cms/internal/common/aws"
	"site-cms/internal/common/camunda"
	"site-cms/internal/common/config"
	"site-cms/internal/common/database"
	"site-cms/internal/common/logger"
	"site-cms/internal/common/observability"
	"site-cms/internal/events"
	"site-cms/internal/generation"
	"site-cms/internal/llm"
	"site-cms/internal/prompt"
	"site-cms/internal/regen"
	"site-cms/internal/render"
	"site-cms/internal/resolver"
	"site-cms/internal/search"
	"site-cms/internal/store"

	ra "site-cms/internal/workers/content/regen-apply"
	rp "site-cms/internal/workers/content/regen-preview"
	sr "site-cms/internal/workers/content/search-reindex"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting cms server...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.App.Name, zapLog)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	pages := store.NewPostgresStore(pg)
	if cfg.Database.Postgres.Migrate {
		if err := pages.Migrate(ctx); err != nil {
			zapLog.Fatal("schema migration failed", zap.Error(err))
		}
		zapLog.Info("schema migrated")
	}

	var hooks []store.ChangeHook

	// --- Redis page cache ---
	var pageCache *cache.PageCache
	if cfg.Cache.Enabled {
		var rdb *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rdb.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rdb.Close()
		pageCache = cache.NewPageCache(rdb.Client, config.GetDuration(cfg.Cache.PageTTL), cfg.Cache.KeyPrefix, log)
		hooks = append(hooks, pageCache)
		zapLog.Info("Redis connected successfully")
	}

	// --- Elasticsearch index ---
	var indexer *search.Indexer
	if cfg.Search.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		indexer = search.NewIndexer(esClient.Client, cfg.Search.Index, pages, log)
		if err := indexer.EnsureIndex(ctx); err != nil {
			zapLog.Fatal("search index setup failed", zap.Error(err))
		}
		hooks = append(hooks, indexer)
		zapLog.Info("Elasticsearch connected successfully", zap.String("index", indexer.Index()))
	}

	// --- SNS change events ---
	if cfg.Events.Enabled {
		snsClient, err := appaws.NewSNSClient(ctx, cfg.Events.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		hooks = append(hooks, events.NewPublisher(snsClient, cfg.Events.TopicARN, log))
		zapLog.Info("SNS publisher ready", zap.String("topic", cfg.Events.TopicARN))
	}

	observed := store.NewObserved(pages, log, hooks...)

	// --- Generation pipeline ---
	client, err := llm.New(ctx, cfg.LLM, log, obs)
	if err != nil {
		zapLog.Fatal("llm client failed", zap.Error(err))
	}
	defer client.Close()
	authoringSvc := authoring.NewService(
		prompt.NewBuilder(cfg.LLM.MaxTokensFor),
		client,
		generation.NewParser(cfg.LLM.StrictParse),
		log,
		authoring.WithStore(observed),
	)
	orchestrator := regen.NewOrchestrator(authoringSvc, observed, obs, log)
	zapLog.Info("generation provider ready", zap.String("provider", cfg.LLM.Provider), zap.String("model", cfg.LLM.Model))

	// --- Camunda content workers ---
	var workers []*camunda.CamundaWorker
	if cfg.Camunda.Enabled {
		var zeebe *camunda.Client
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(cfg.Camunda.BrokerAddress)
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zeebe.Close()
		zapLog.Info("Zeebe client connected successfully")

		if config.IsWorkerEnabled(cfg, rp.TaskType) {
			handler := rp.NewHandler(
				&rp.Config{Timeout: config.GetDuration(config.GetWorkerConfig(cfg, rp.TaskType).Timeout)},
				orchestrator, obs, log,
			)
			workers = append(workers, startWorker(zeebe, rp.TaskType, config.GetWorkerConfig(cfg, rp.TaskType), handler, log))
		}

		if config.IsWorkerEnabled(cfg, ra.TaskType) {
			handler := ra.NewHandler(
				&ra.Config{Timeout: config.GetDuration(config.GetWorkerConfig(cfg, ra.TaskType).Timeout)},
				orchestrator, obs, log,
			)
			workers = append(workers, startWorker(zeebe, ra.TaskType, config.GetWorkerConfig(cfg, ra.TaskType), handler, log))
		}

		if indexer != nil && config.IsWorkerEnabled(cfg, sr.TaskType) {
			handler := sr.NewHandler(
				&sr.Config{Timeout: config.GetDuration(config.GetWorkerConfig(cfg, sr.TaskType).Timeout)},
				indexer, obs, log,
			)
			workers = append(workers, startWorker(zeebe, sr.TaskType, config.GetWorkerConfig(cfg, sr.TaskType), handler, log))
		}
		zapLog.Info("content workers registered", zap.Int("count", len(workers)))
	}

	// --- HTTP ---
	gin.SetMode(cfg.Server.GinMode)
	router := api.NewRouter(&api.Handler{
		Store:     observed,
		Resolver:  resolver.New(observed, cachePort(pageCache), log),
		Authoring: authoringSvc,
		Regen:     orchestrator,
		Render:    render.NewDispatcher(log),
		Search:    indexer,
		Ready:     observed.Ping,
		Log:       log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	for _, w := range workers {
		w.Stop()
	}

	zapLog.Info("cms server stopped gracefully")
}

// cachePort keeps a nil *PageCache from becoming a non-nil interface.
func cachePort(c *cache.PageCache) resolver.PageCache {
	if c == nil {
		return nil
	}
	return c
}

func startWorker(client *camunda.Client, taskType string, wcfg config.WorkerConfig, handler camunda.JobHandler, log logger.Logger) *camunda.CamundaWorker {
	maxJobs := wcfg.MaxJobsActive
	if maxJobs <= 0 {
		maxJobs = 5
	}
	return camunda.NewWorker(client.GetClient(), taskType, maxJobs, handler, log)
}
