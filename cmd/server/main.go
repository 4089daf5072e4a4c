package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ianMuchesia/MockPay-sub000/internal/pending/handler"
	"github.com/ianMuchesia/MockPay-sub000/internal/pending/metrics"
	"github.com/ianMuchesia/MockPay-sub000/internal/pending/replay"
	"github.com/ianMuchesia/MockPay-sub000/internal/pending/service"
	"github.com/ianMuchesia/MockPay-sub000/internal/pending/store"
	"github.com/ianMuchesia/MockPay-sub000/internal/platform/config"
	"github.com/ianMuchesia/MockPay-sub000/internal/platform/httpserver"
	"github.com/ianMuchesia/MockPay-sub000/internal/platform/logger"
	"github.com/ianMuchesia/MockPay-sub000/internal/platform/middleware"
	platformredis "github.com/ianMuchesia/MockPay-sub000/internal/platform/redis"
	"github.com/ianMuchesia/MockPay-sub000/internal/reviews"
	"github.com/ianMuchesia/MockPay-sub000/internal/token"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal/pending packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	backend, cleanup, err := buildBackend(cfg, log)
	if err != nil {
		log.Error("failed to initialize storage backend", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	var dispatcher replay.Dispatcher
	if cfg.Reviews.BaseURL != "" {
		dispatcher = reviews.NewClient(cfg.Reviews.BaseURL, nil)
		log.Info("using reviews API dispatcher", "base_url", cfg.Reviews.BaseURL)
	} else {
		dispatcher = reviews.MockDispatcher{Latency: 50 * time.Millisecond}
		log.Warn("REVIEWS_API_URL not set, using mock dispatcher")
	}

	m := metrics.New()
	engine := replay.New(dispatcher, replay.LogNotifier{Logger: log},
		replay.WithLogger(log),
		replay.WithMetrics(m),
		replay.WithConcurrency(cfg.Pending.DispatchConcurrency),
	)
	svc := service.New(backend, engine,
		service.WithPrefix(cfg.Pending.KeyPrefix),
		service.WithTTL(cfg.Pending.TTL),
		service.WithLogger(log),
		service.WithMetrics(m),
	)

	tokens := token.NewService(cfg.Server.JWTSigningKey, "mockpay", "mockpay-dashboard")
	pendingHandler := handler.New(svc, log)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Handle("/metrics", promhttp.Handler())
	pendingHandler.Register(router)
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(tokens, log))
		pendingHandler.RegisterProtected(r)
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting pending-action service", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// buildBackend picks the storage backend: Redis when configured, Postgres as
// the second choice, an in-process map otherwise.
func buildBackend(cfg config.Config, log *slog.Logger) (store.Backend, func(), error) {
	if cfg.Redis.URL != "" {
		client, err := platformredis.New(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using redis backend")
		return store.NewRedis(client.Client), func() { _ = client.Close() }, nil
	}
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		if err := store.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("using postgres backend")
		return store.NewPostgres(db), func() { _ = db.Close() }, nil
	}
	log.Warn("no REDIS_URL or POSTGRES_DSN set, pending actions will not survive a restart")
	return store.NewMemory(), func() {}, nil
}
