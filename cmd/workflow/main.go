// Command workflow runs the civil-registration workflow service: record
// download/assignment transitions plus the all-users notification fan-out.
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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"civreg/internal/auth"
	httpapi "civreg/internal/http"
	"civreg/internal/notification"
	"civreg/internal/platform/config"
	"civreg/internal/platform/httpserver"
	"civreg/internal/platform/logger"
	"civreg/internal/records/gateway"
	"civreg/internal/records/handler"
	recordmetrics "civreg/internal/records/metrics"
	"civreg/internal/search"
	"civreg/internal/users"
	userscache "civreg/internal/users/cache"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(logger.ParseLevel(os.Getenv("LOG_LEVEL")))
	slog.SetDefault(log)

	upstream := &http.Client{Timeout: cfg.UpstreamTimeout}

	var cache users.DetailsCache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("invalid redis URL", "error", err)
			os.Exit(1)
		}
		cache = userscache.NewRedisCache(redis.NewClient(opts), cfg.ActorCacheTTL)
		log.Info("actor details cache enabled", "ttl", cfg.ActorCacheTTL)
	}

	verifier := auth.NewVerifier(cfg.JWTVerifyKey)
	records := gateway.New(cfg.RecordStoreURL, upstream)
	indexer := search.New(cfg.SearchURL, upstream)
	actors := users.NewClient(cfg.UserManagementURL, upstream, cache, log)

	recordsHandler := handler.New(verifier, records, actors, indexer, log, recordmetrics.New())
	notifier := notification.NewService(actors, notification.NewHTTPDispatcher(cfg.NotificationURL, upstream), log)
	notificationHandler := notification.NewHandler(verifier, notifier, log)

	router := httpapi.NewRouter(log, recordsHandler, notificationHandler)

	appServer := httpserver.New(cfg.Addr, router)
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := httpserver.New(cfg.MetricsAddr, metricsMux)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("workflow service listening", "addr", cfg.Addr)
		if err := appServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("metrics listening", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := appServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		// Detached persist/index work outlives in-flight requests; let it
		// finish before taking down the metrics server.
		recordsHandler.Drain()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("workflow service failed", "error", err)
		os.Exit(1)
	}
}
