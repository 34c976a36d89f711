// Command seed loads a small demonstration ledger: dimensions, one month
// of trading vouchers, sub-ledger activity, and a P&L closing template.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ledger/meridian/internal/app"
	"github.com/meridian-ledger/meridian/internal/coa"
	"github.com/meridian-ledger/meridian/internal/period"
	"github.com/meridian-ledger/meridian/internal/subledger/ar"
	"github.com/meridian-ledger/meridian/internal/subledger/inventory"
	"github.com/meridian-ledger/meridian/internal/voucher"
)

func main() {
	ctx := context.Background()

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

	coaService := coa.NewService(coa.NewRepository(pool))
	if _, err := coaService.Seed(ctx); err != nil {
		fatal(logger, "seed chart", err)
	}

	for _, dim := range []struct {
		typ  coa.DimensionType
		code string
		name string
	}{
		{coa.DimensionDepartment, "D01", "Sales"},
		{coa.DimensionDepartment, "D02", "Operations"},
		{coa.DimensionCustomer, "C001", "Acme Trading"},
		{coa.DimensionSupplier, "S001", "Northern Supply"},
	} {
		if _, err := coaService.AddDimension(ctx, dim.typ, dim.code, dim.name); err != nil {
			logger.Warn("dimension exists", slog.String("code", dim.code))
		}
	}

	voucherService := voucher.NewService(voucher.NewRepository(pool), coaService, nil)
	periodService := period.NewService(period.NewRepository(pool), voucherService, coaService, nil)

	jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	// opening capital
	if _, err := voucherService.Submit(ctx, voucher.SubmitInput{
		Date:          jan.AddDate(0, 0, -9),
		Description:   "opening capital",
		SourceEventID: "seed:capital",
		AutoConfirm:   true,
		Entries: []voucher.EntryInput{
			{Account: "1002", Debit: 100000},
			{Account: "4001", Credit: 100000},
		},
	}); err != nil {
		fatal(logger, "seed capital", err)
	}

	arService := ar.NewService(ar.NewRepository(pool), voucherService, ar.DefaultAccounts())
	if _, err := arService.AddItem(ctx, ar.AddItemInput{Customer: "C001", Amount: 25000, Date: jan, Description: "January invoice"}); err != nil {
		logger.Warn("seed ar item", slog.Any("error", err))
	}

	invService := inventory.NewService(inventory.NewRepository(pool), voucherService, inventory.DefaultAccounts(), inventory.NegativeReject)
	if _, err := invService.RegisterItem(ctx, "WIDGET-1", "widget", "pcs", inventory.CostingFIFO, 0); err != nil {
		fatal(logger, "seed sku", err)
	}
	if _, err := invService.Receive(ctx, "WIDGET-1", 100, 85, jan.AddDate(0, 0, 2), "initial stock"); err != nil {
		logger.Warn("seed receipt", slog.Any("error", err))
	}
	if _, err := invService.Issue(ctx, "WIDGET-1", 40, jan.AddDate(0, 0, 8), "January shipments"); err != nil {
		logger.Warn("seed issue", slog.Any("error", err))
	}

	if err := periodService.SaveTemplate(ctx, period.ClosingTemplate{
		Code:   "PNL",
		Name:   "P&L to retained earnings",
		Active: true,
		Rule: period.ClosingRule{
			Description: "close revenue and expense to retained earnings",
			Sources: []period.SourceSelector{
				{Types: []coa.AccountType{coa.AccountTypeRevenue, coa.AccountTypeExpense}},
			},
			Target: "4104",
		},
	}); err != nil {
		fatal(logger, "seed closing template", err)
	}

	logger.Info("seed complete")
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, slog.Any("error", err))
	os.Exit(1)
}
