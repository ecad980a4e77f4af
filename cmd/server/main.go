// main wires high-level dependencies and keeps the process lifecycle small:
// config, storage, registry resolver, evaluation consumer, HTTP router.
// Business logic lives in the internal feature packages.
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

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"nvi/internal/candidate/evaluator"
	candidatehandler "nvi/internal/candidate/handler"
	"nvi/internal/candidate/metrics"
	"nvi/internal/candidate/service"
	"nvi/internal/candidate/store"
	"nvi/internal/events/consumer"
	"nvi/internal/organization"
	"nvi/internal/period"
	periodhandler "nvi/internal/period/handler"
	"nvi/internal/platform/config"
	"nvi/internal/platform/httpserver"
	"nvi/internal/platform/logger"
	"nvi/internal/platform/middleware"
	"nvi/internal/platform/postgres"
	"nvi/internal/platform/redis"
	httptransport "nvi/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("service exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := store.Migrate(ctx, db); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	registry := organization.NewClient(&http.Client{Timeout: cfg.Registry.Timeout}, cfg.Registry.BaseURL)
	var resolver organization.Resolver = registry
	if redisClient != nil {
		resolver = organization.NewCachedResolver(registry, redisClient.Client, cfg.Registry.CacheTTL)
	}

	m := metrics.New()

	periods := period.NewService(period.NewPostgres(db))
	candidateStore := store.NewPostgres(db)
	coordinator := service.New(candidateStore, periods, m, log)
	eval := evaluator.New(resolver, log)

	evalConsumer, err := consumer.New(ctx, cfg.Kafka, eval, coordinator, m, log)
	if err != nil {
		return err
	}
	defer evalConsumer.Close()

	health := map[string]httptransport.HealthCheck{
		"postgres": db.PingContext,
	}
	if redisClient != nil {
		health["redis"] = redisClient.Health
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:       log,
		JWTValidator: middleware.NewJWTValidator(cfg.Server.JWTSigningKey),
		Registrars: []func(chi.Router){
			candidatehandler.New(coordinator, log).Register,
			periodhandler.New(periods, log).Register,
		},
		Health: health,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		log.Info("starting evaluation consumer",
			"topic", cfg.Kafka.EvaluationTopic, "group", cfg.Kafka.ConsumerGroup)
		if err := evalConsumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
