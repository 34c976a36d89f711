package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-ledger/meridian/internal/app"
	"github.com/meridian-ledger/meridian/internal/balance"
	"github.com/meridian-ledger/meridian/internal/coa"
	"github.com/meridian-ledger/meridian/internal/fx"
	"github.com/meridian-ledger/meridian/internal/shared"
	"github.com/meridian-ledger/meridian/internal/statement"
	"github.com/meridian-ledger/meridian/internal/voucher"
	"github.com/meridian-ledger/meridian/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	auditLogger := shared.NewAuditLogger(pool)

	coaService := coa.NewService(coa.NewRepository(pool))
	voucherRepo := voucher.NewRepository(pool)
	voucherService := voucher.NewService(voucherRepo, coaService, auditLogger)

	balanceReader := balance.NewPoolReader(pool)
	fxAccounts := fx.Accounts{Gain: cfg.FXGainAccount, Loss: cfg.FXLossAccount}
	fxService := fx.NewService(fx.NewRepository(pool), voucherService, balanceReader, coaService, fxAccounts)

	statementBuilder := statement.NewBuilder(balanceReader, coaService, statement.DefaultMapping())
	statementCache := statement.NewCache(statementBuilder, redisClient, cfg.StatementCacheTTL)

	integrity := jobs.NewGLIntegrityHandler(pool, voucherRepo, coaService, logger)
	revaluation := jobs.NewFXRevaluationHandler(fxService, logger)
	warmup := jobs.NewStatementWarmupHandler(statementCache, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskGLIntegrity, Handler: integrity.Handle},
			{Type: jobs.TaskFXRevaluation, Handler: revaluation.Handle},
			{Type: jobs.TaskStatementWarmup, Handler: warmup.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: jobs.NewGLIntegrityTask()},
		},
	})
	if err != nil {
		logger.Error("configure worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting")
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
