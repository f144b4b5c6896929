// Command checkd is the offline consistency checker: it sweeps the ledger
// for unbalanced or mutated transactions and re-verifies the audit chain.
// Exit code 1 means at least one check failed.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/property-ledger/internal/config"
	"github.com/example/property-ledger/internal/ledger"
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	failed := false

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	validator := ledger.NewValidator(ledger.NewPostgresStore(pool))
	violations, err := validator.Sweep(ctx)
	if err != nil {
		logger.Error("ledger sweep failed", "error", err)
		os.Exit(1)
	}
	for _, v := range violations {
		logger.Error("ledger violation", "transaction_id", v.TransactionID, "message", v.Message)
		failed = true
	}
	logger.Info("ledger sweep done", "violations", len(violations))

	sink, err := audit.OpenSQLiteSink(cfg.AuditDBPath)
	if err != nil {
		logger.Error("failed to open audit sink", "error", err)
		os.Exit(1)
	}
	defer sink.Close()

	entries, err := sink.Entries(ctx)
	if err != nil {
		logger.Error("failed to read audit entries", "error", err)
		os.Exit(1)
	}
	if !audit.VerifyChain(entries) {
		logger.Error("audit chain verification failed", "entries", len(entries))
		failed = true
	} else {
		logger.Info("audit chain verified", "entries", len(entries))
	}

	if failed {
		os.Exit(1)
	}
}
