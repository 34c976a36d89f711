package model

import (
	"strings"

	"github.com/meridian-ledger/meridian/internal/balance"
	"github.com/meridian-ledger/meridian/internal/coa"
	"github.com/meridian-ledger/meridian/internal/money"
)

// BridgeConfig maps chart prefixes onto driver fields.
type BridgeConfig struct {
	CashCodes         []string
	ReceivablePrefix  string
	PayablePrefix     string
	InventoryPrefix   string
	FixedAssetPrefix  string
}

// DefaultBridgeConfig matches the seeded chart.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		CashCodes:        []string{"1001", "1002"},
		ReceivablePrefix: "1122",
		PayablePrefix:    "2202",
		InventoryPrefix:  "1403",
		FixedAssetPrefix: "1601",
	}
}

// DriverFromBalances derives a model-mode driver from one period's
// balance rows, so the five-step model can be run against a recorded
// ledger instead of hand-entered assumptions.
func DriverFromBalances(rows []balance.Balance, types map[string]coa.AccountType, cfg BridgeConfig) Driver {
	var d Driver

	cash := make(map[string]bool, len(cfg.CashCodes))
	for _, code := range cfg.CashCodes {
		cash[code] = true
	}

	var closingReceivable, closingPayable, closingInventory, closingFixedAsset float64
	var openingReceivable, openingPayable float64

	for _, row := range rows {
		accountType := types[row.AccountCode]
		switch accountType {
		case coa.AccountTypeRevenue:
			d.Revenue += row.Credit - row.Debit
		case coa.AccountTypeExpense:
			d.Cost += row.Debit - row.Credit
		case coa.AccountTypeLiability:
			// trade payables are carried separately; debt means borrowings
			if !strings.HasPrefix(row.AccountCode, cfg.PayablePrefix) {
				d.OpeningDebt += row.Opening
			}
		case coa.AccountTypeEquity:
			d.OpeningEquity += row.Opening
		}
		if cash[row.AccountCode] {
			d.OpeningCash += row.Opening
		}
		if strings.HasPrefix(row.AccountCode, cfg.ReceivablePrefix) {
			closingReceivable += row.Closing
			openingReceivable += row.Opening
		}
		if strings.HasPrefix(row.AccountCode, cfg.PayablePrefix) {
			closingPayable += row.Closing
			openingPayable += row.Opening
		}
		if strings.HasPrefix(row.AccountCode, cfg.InventoryPrefix) {
			closingInventory += row.Closing
		}
		if strings.HasPrefix(row.AccountCode, cfg.FixedAssetPrefix) {
			closingFixedAsset += row.Closing
		}
	}

	d.Revenue = money.Round2(d.Revenue)
	d.Cost = money.Round2(d.Cost)
	d.OpeningCash = money.Round2(d.OpeningCash)
	d.OpeningDebt = money.Round2(d.OpeningDebt)
	d.OpeningEquity = money.Round2(d.OpeningEquity)
	d.OpeningReceivable = money.Round2(openingReceivable)
	d.OpeningPayable = money.Round2(openingPayable)

	cr := money.Round2(closingReceivable)
	cp := money.Round2(closingPayable)
	ci := money.Round2(closingInventory)
	d.ClosingReceivable = &cr
	d.ClosingPayable = &cp
	d.ClosingInventory = &ci
	d.DeltaReceivable = money.Round2(closingReceivable - openingReceivable)
	d.DeltaPayable = money.Round2(closingPayable - openingPayable)
	d.FixedAssetCost = money.Round2(closingFixedAsset)

	return d
}
