package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/campusdesk/officehours/internal/booking"
	"github.com/campusdesk/officehours/internal/handlers"
	"github.com/campusdesk/officehours/internal/outbox"
	"github.com/campusdesk/officehours/internal/storage"
	"github.com/campusdesk/officehours/internal/timefmt"
	"github.com/campusdesk/officehours/libs/config"
	"github.com/campusdesk/officehours/libs/db"
	"github.com/campusdesk/officehours/libs/httpx"
	"github.com/campusdesk/officehours/libs/kafkax"
	otelx "github.com/campusdesk/officehours/libs/otel"
	"github.com/campusdesk/officehours/libs/runtime"
)

const serviceName = "officehours-service"

func main() {
	logger := runtime.NewLogger(serviceName)
	config.LoadEnvFile(logger)

	if err := run(logger); err != nil {
		logger.Error("service exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := runtime.SignalContext()
	defer stop()

	shutdownTracing, err := otelx.Setup(ctx, otelx.ConfigFromEnv(serviceName))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	databaseURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return err
	}
	pool, err := db.Open(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := storage.Migrate(ctx, pool); err != nil {
		return err
	}
	logger.Info("database ready")

	professors := storage.NewProfessorRepository(pool)
	bookings := storage.NewBookingRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	ledger := booking.NewLedger(bookings, professors, outboxRepo, logger)

	brokers := config.String("KAFKA_BROKERS", "localhost:9092")
	publisher := outbox.NewPublisher(outboxRepo, brokers, logger)
	go publisher.Run(ctx)

	limiter := newRateLimiter(logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "postgres", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	api := handlers.NewAPI(professors, ledger, logger)
	api.GridMinutes = gridMinutes(logger)
	api.Register(mux)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(config.List("CORS_ALLOWED_ORIGINS", "*")),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(15*time.Second),
		limiter.Middleware(logger),
	)

	port, err := config.Port("HTTP_PORT", "8080")
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           otelhttp.NewHandler(handler, serviceName),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// gridMinutes parses GRID_LABELS (comma-separated clock labels) into grid
// instants. Empty or invalid config keeps the built-in hourly grid.
func gridMinutes(logger *slog.Logger) []int {
	labels := config.List("GRID_LABELS", "")
	if len(labels) == 0 {
		return nil
	}
	out := make([]int, 0, len(labels))
	for _, label := range labels {
		m, err := timefmt.ParseClockLabel(label)
		if err != nil {
			logger.Warn("ignoring GRID_LABELS, bad label", "label", label, "error", err)
			return nil
		}
		out = append(out, m)
	}
	return out
}

// newRateLimiter prefers Redis so limits hold across replicas, falling back
// to per-process counters when REDIS_ADDR is unset.
func newRateLimiter(logger *slog.Logger) *httpx.RateLimiter {
	limit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		logger.Info("rate limiting via redis", "addr", addr)
		return httpx.NewRedisRateLimiter(rdb, limit, time.Minute, serviceName)
	}
	return httpx.NewRateLimiter(limit, time.Minute)
}
