package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-ledger/meridian/internal/app"
	"github.com/meridian-ledger/meridian/internal/balance"
	"github.com/meridian-ledger/meridian/internal/coa"
	"github.com/meridian-ledger/meridian/internal/fx"
	"github.com/meridian-ledger/meridian/internal/model"
	"github.com/meridian-ledger/meridian/internal/period"
	"github.com/meridian-ledger/meridian/internal/shared"
	"github.com/meridian-ledger/meridian/internal/statement"
	"github.com/meridian-ledger/meridian/internal/subledger/ap"
	"github.com/meridian-ledger/meridian/internal/subledger/ar"
	"github.com/meridian-ledger/meridian/internal/subledger/fixedasset"
	"github.com/meridian-ledger/meridian/internal/subledger/inventory"
	"github.com/meridian-ledger/meridian/internal/voucher"
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
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)

	coaRepo := coa.NewRepository(pool)
	coaService := coa.NewService(coaRepo)
	if seeded, err := coaService.Seed(ctx); err != nil {
		logger.Error("seed chart of accounts", slog.Any("error", err))
		os.Exit(1)
	} else {
		logger.Info("chart of accounts ready", slog.Int("accounts", seeded))
	}

	voucherRepo := voucher.NewRepository(pool)
	voucherService := voucher.NewService(voucherRepo, coaService, auditLogger)
	templateRunner := voucher.NewTemplateRunner(voucher.NewTemplateStore(pool), voucherService)

	periodRepo := period.NewRepository(pool)
	periodService := period.NewService(periodRepo, voucherService, coaService, auditLogger)

	arService := ar.NewService(ar.NewRepository(pool), voucherService, ar.DefaultAccounts())
	apService := ap.NewService(ap.NewRepository(pool), voucherService, ap.DefaultAccounts())

	negativePolicy := inventory.NegativeReject
	if cfg.AllowNegativeStock {
		negativePolicy = inventory.NegativeAllow
	}
	inventoryService := inventory.NewService(inventory.NewRepository(pool), voucherService, inventory.DefaultAccounts(), negativePolicy)

	assetService := fixedasset.NewService(fixedasset.NewRepository(pool), voucherService, fixedasset.DefaultAccounts())

	fxAccounts := fx.Accounts{Gain: cfg.FXGainAccount, Loss: cfg.FXLossAccount}
	balanceReader := balance.NewPoolReader(pool)
	fxService := fx.NewService(fx.NewRepository(pool), voucherService, balanceReader, coaService, fxAccounts)

	statementBuilder := statement.NewBuilder(balanceReader, coaService, statement.DefaultMapping())
	statementCache := statement.NewCache(statementBuilder, redisClient, cfg.StatementCacheTTL)
	invalidate := func(p string) { statementCache.Invalidate(context.Background(), p) }

	router := app.NewRouter(app.RouterParams{
		Logger:    logger,
		Config:    cfg,
		COA:       coa.NewHandler(logger, coaService),
		Vouchers:  voucher.NewHandler(logger, voucherService, templateRunner, invalidate),
		Periods:   period.NewHandler(logger, periodService, invalidate),
		Statement: statement.NewHandler(logger, statementCache),
		Model:     model.NewHandler(logger),
		FX:        fx.NewHandler(logger, fxService, invalidate),
		AR:        ar.NewHandler(logger, arService),
		AP:        ap.NewHandler(logger, apService),
		Inventory: inventory.NewHandler(logger, inventoryService),
		Assets:    fixedasset.NewHandler(logger, assetService),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
