package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"workclock/internal/clock"
	"workclock/internal/clock/handler"
	"workclock/internal/geofence"
	"workclock/internal/jwt"
	"workclock/internal/location"
	"workclock/internal/platform/config"
	"workclock/internal/platform/httpserver"
	"workclock/internal/platform/logger"
	"workclock/internal/platform/metrics"
	"workclock/internal/platform/postgres"
	"workclock/internal/platform/redis"
	"workclock/internal/ratelimit"
	"workclock/internal/reporting"
	"workclock/internal/token"
)

// main wires dependencies and owns the server lifecycle. Business logic lives
// in the internal services packages. Redis, Postgres, and Kafka are optional;
// unconfigured backends fall back to in-memory implementations so the service
// runs standalone in development.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	rdb, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err.Error())
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	pool, err := postgres.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err.Error())
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	var tokenStore token.Store = token.NewInMemoryStore()
	var limiter ratelimit.Limiter = ratelimit.NewInMemoryLimiter()
	if rdb != nil {
		tokenStore = token.NewRedisStore(rdb.Client)
		limiter = ratelimit.NewRedisLimiter(rdb.Client)
	}

	var directory location.Directory = location.NewInMemoryDirectory()
	var clockStore clock.Store = clock.NewInMemoryStore()
	if pool != nil {
		directory = location.NewPostgresDirectory(pool)
		clockStore = clock.NewPostgresStore(pool)
	}

	var publisher clock.EventPublisher
	if cfg.KafkaBrokers != "" {
		kafkaPublisher, err := reporting.New(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic, log)
		if err != nil {
			log.Error("kafka connection failed", "error", err.Error())
			os.Exit(1)
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	m := metrics.New()
	jwtService := jwt.NewService(cfg.JWTSigningKey, cfg.JWTIssuer)
	tokenService := token.NewService(tokenStore, directory, cfg.TokenTTL, cfg.QRBaseURL)
	evaluator := geofence.NewEvaluator(geofence.Policy{
		DefaultAccuracyMaxMeters: cfg.DefaultAccuracyMaxMeters,
		AllowUnknownAccuracy:     cfg.AllowUnknownAccuracy,
	})
	clockService := clock.NewService(
		tokenService,
		directory,
		evaluator,
		limiter,
		clockStore,
		publisher,
		m,
		log,
		clock.Limits{Attempts: cfg.RateLimitAttempts, Window: cfg.RateLimitWindow},
	)

	router := chi.NewRouter()
	router.Get("/healthz", healthHandler(rdb, pool))
	router.Handle("/metrics", promhttp.Handler())
	handler.New(clockService, log, jwtService).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting workclock server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		os.Exit(1)
	}
}

func healthHandler(rdb *redis.Client, pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if rdb != nil {
			if err := rdb.Health(ctx); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
