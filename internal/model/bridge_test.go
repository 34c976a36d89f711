package model

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-ledger/meridian/internal/balance"
	"github.com/meridian-ledger/meridian/internal/coa"
)

func TestDriverFromBalances(t *testing.T) {
	types := map[string]coa.AccountType{
		"1001": coa.AccountTypeAsset,
		"1122": coa.AccountTypeAsset,
		"1403": coa.AccountTypeAsset,
		"2001": coa.AccountTypeLiability,
		"2202": coa.AccountTypeLiability,
		"4001": coa.AccountTypeEquity,
		"6001": coa.AccountTypeRevenue,
		"6401": coa.AccountTypeExpense,
	}
	rows := []balance.Balance{
		{Key: balance.Key{AccountCode: "1001", Period: "2025-02"}, Opening: 5000, Debit: 2000, Credit: 500, Closing: 6500},
		{Key: balance.Key{AccountCode: "1122", Period: "2025-02"}, Opening: 1000, Debit: 3000, Credit: 2000, Closing: 2000},
		{Key: balance.Key{AccountCode: "1403", Period: "2025-02"}, Opening: 800, Debit: 0, Credit: 300, Closing: 500},
		{Key: balance.Key{AccountCode: "2001", Period: "2025-02"}, Opening: 4000, Closing: 4000},
		{Key: balance.Key{AccountCode: "2202", Period: "2025-02"}, Opening: 700, Credit: 300, Closing: 1000},
		{Key: balance.Key{AccountCode: "4001", Period: "2025-02"}, Opening: 2100, Closing: 2100},
		{Key: balance.Key{AccountCode: "6001", Period: "2025-02"}, Credit: 3000, Closing: 3000},
		{Key: balance.Key{AccountCode: "6401", Period: "2025-02"}, Debit: 1800, Closing: 1800},
	}

	d := DriverFromBalances(rows, types, DefaultBridgeConfig())

	require.Equal(t, 3000.0, d.Revenue)
	require.Equal(t, 1800.0, d.Cost)
	require.Equal(t, 5000.0, d.OpeningCash)
	require.Equal(t, 4000.0, d.OpeningDebt) // borrowings only; payables carried separately
	require.Equal(t, 2100.0, d.OpeningEquity)
	require.Equal(t, 1000.0, d.OpeningReceivable)
	require.NotNil(t, d.ClosingReceivable)
	require.Equal(t, 2000.0, *d.ClosingReceivable)
	require.Equal(t, 1000.0, d.DeltaReceivable)
	require.Equal(t, 300.0, d.DeltaPayable)
	require.NotNil(t, d.ClosingInventory)
	require.Equal(t, 500.0, *d.ClosingInventory)
}
