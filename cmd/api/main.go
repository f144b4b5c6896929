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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/example/property-ledger/internal/accounts"
	"github.com/example/property-ledger/internal/api"
	"github.com/example/property-ledger/internal/config"
	"github.com/example/property-ledger/internal/convert"
	"github.com/example/property-ledger/internal/expenses"
	"github.com/example/property-ledger/internal/ledger"
	"github.com/example/property-ledger/internal/requests"
	"github.com/example/property-ledger/internal/security"
	"github.com/example/property-ledger/pkg/audit"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	sink, err := audit.OpenSQLiteSink(cfg.AuditDBPath)
	if err != nil {
		logger.Error("failed to open audit sink", "error", err)
		os.Exit(1)
	}
	defer sink.Close()
	auditor := audit.NewChainLogger(audit.WithSink(sink), audit.WithLogger(logger))

	accountStore := accounts.NewPostgresStore(pool)
	txStore := ledger.NewPostgresStore(pool)
	expenseStore := expenses.NewPostgresStore(pool)
	requestStore := requests.NewPostgresStore(pool)

	registry := accounts.NewRegistry(accountStore, logger)
	engine := ledger.NewEngine(registry, txStore, logger)
	materializer := expenses.NewMaterializer(expenseStore, logger)
	expenseService := expenses.NewService(expenseStore, engine, logger)
	requestService := requests.NewService(requestStore, requests.SystemClock{}, logger)
	orchestrator := convert.New(requestService, engine, materializer, logger,
		convert.WithTimeout(cfg.ConvertTimeout),
		convert.WithAuditor(auditor),
	)

	var rateLimiter *security.RedisTokenBucket
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		rateLimiter = &security.RedisTokenBucket{
			Redis:      redisClient,
			Prefix:     "property_ledger",
			Capacity:   cfg.RatePerMinute,
			RefillRate: float64(cfg.RatePerMinute) / 60,
		}
	}

	router, err := api.NewRouter(api.Dependencies{
		Logger:       logger,
		Requests:     requestService,
		Convert:      orchestrator,
		Accounts:     accountStore,
		Transactions: txStore,
		Expenses:     expenseStore,
		Payments:     expenseService,
		Auditor:      auditor,
		RateLimiter:  rateLimiter,
		MaxBodyBytes: 1 << 20,
	})
	if err != nil {
		logger.Error("failed to build router", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	logger.Info("property ledger api listening", "addr", cfg.HTTPAddr, "env", cfg.Environment)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
