package statement

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-ledger/meridian/internal/balance"
	"github.com/meridian-ledger/meridian/internal/coa"
)

var testChart = []coa.Account{
	{Code: "1001", Name: "cash", Type: coa.AccountTypeAsset, Direction: coa.DirectionDebit, Enabled: true},
	{Code: "1002", Name: "bank", Type: coa.AccountTypeAsset, Direction: coa.DirectionDebit, Enabled: true},
	{Code: "1122", Name: "receivable", Type: coa.AccountTypeAsset, Direction: coa.DirectionDebit, Enabled: true},
	{Code: "1403", Name: "inventory", Type: coa.AccountTypeAsset, Direction: coa.DirectionDebit, Enabled: true},
	{Code: "1601", Name: "fixed assets", Type: coa.AccountTypeAsset, Direction: coa.DirectionDebit, Enabled: true},
	{Code: "1602", Name: "accum depreciation", Type: coa.AccountTypeAsset, Direction: coa.DirectionCredit, Enabled: true},
	{Code: "2202", Name: "payable", Type: coa.AccountTypeLiability, Direction: coa.DirectionCredit, Enabled: true},
	{Code: "2001", Name: "short borrowings", Type: coa.AccountTypeLiability, Direction: coa.DirectionCredit, Enabled: true},
	{Code: "4001", Name: "paid-in capital", Type: coa.AccountTypeEquity, Direction: coa.DirectionCredit, Enabled: true},
	{Code: "4104", Name: "retained earnings", Type: coa.AccountTypeEquity, Direction: coa.DirectionCredit, Enabled: true},
	{Code: "6001", Name: "revenue", Type: coa.AccountTypeRevenue, Direction: coa.DirectionCredit, Enabled: true},
	{Code: "6401", Name: "cost", Type: coa.AccountTypeExpense, Direction: coa.DirectionDebit, Enabled: true},
	{Code: "6602", Name: "admin expense", Type: coa.AccountTypeExpense, Direction: coa.DirectionDebit, Enabled: true},
}

type fixedChart struct{ accounts []coa.Account }

func (f fixedChart) ListAccounts(context.Context, bool) ([]coa.Account, error) {
	return f.accounts, nil
}

// tradingLedger posts one quarter of activity into a memory store:
// opening capital, credit sales, cost of sales, a depreciation charge,
// and a purchase on account.
func tradingLedger(t *testing.T) *balance.MemoryStore {
	t.Helper()
	directions := make(map[string]coa.Direction)
	for _, a := range testChart {
		directions[a.Code] = a.Direction
	}
	store := balance.NewMemoryStore(directions)
	engine := balance.NewEngine(store)
	ctx := context.Background()

	effects := []balance.Effect{
		// owner funds the company with 50,000
		{AccountCode: "1002", Debit: 50000},
		{AccountCode: "4001", Credit: 50000},
		// buy a 12,000 machine for cash
		{AccountCode: "1601", Debit: 12000},
		{AccountCode: "1002", Credit: 12000},
		// buy 9,000 inventory on account
		{AccountCode: "1403", Debit: 9000},
		{AccountCode: "2202", Credit: 9000},
		// sell on credit for 20,000, relieve 6,000 of inventory
		{AccountCode: "1122", Debit: 20000},
		{AccountCode: "6001", Credit: 20000},
		{AccountCode: "6401", Debit: 6000},
		{AccountCode: "1403", Credit: 6000},
		// collect 15,000 of the receivable
		{AccountCode: "1002", Debit: 15000},
		{AccountCode: "1122", Credit: 15000},
		// depreciation charge 200
		{AccountCode: "6602", Debit: 200},
		{AccountCode: "1602", Credit: 200},
	}
	require.NoError(t, engine.Apply(ctx, "2025-01", effects))
	return store
}

type storeReader struct{ store *balance.MemoryStore }

func (s storeReader) PeriodBalances(ctx context.Context, period string) ([]balance.Balance, error) {
	return s.store.ListPeriod(ctx, period)
}

func TestBuildThreeStatements(t *testing.T) {
	ctx := context.Background()
	store := tradingLedger(t)
	builder := NewBuilder(storeReader{store}, fixedChart{testChart}, DefaultMapping())

	report, err := builder.Build(ctx, "2025-01")
	require.NoError(t, err)

	bs := report.BalanceSheet
	require.Equal(t, 53000.0, bs["cash_and_equivalents"]) // 50000-12000+15000
	require.Equal(t, 5000.0, bs["receivables"])
	require.Equal(t, 3000.0, bs["inventory"])
	require.Equal(t, 12000.0, bs["fixed_assets_gross"])
	require.Equal(t, 200.0, bs["accumulated_depreciation"])
	require.Equal(t, 72800.0, bs["total_assets"])
	require.Equal(t, 9000.0, bs["total_liabilities"])
	require.Equal(t, 63800.0, bs["total_equity"]) // 50000 capital + 13800 profit

	is := report.IncomeStatement
	require.Equal(t, 20000.0, is["revenue"])
	require.Equal(t, 6000.0, is["cost_of_sales"])
	require.Equal(t, 200.0, is["operating_expenses"])
	require.Equal(t, 13800.0, is["net_income"])

	cf := report.CashFlowStatement
	require.Equal(t, 13800.0, cf["net_income"])
	require.Equal(t, 200.0, cf["depreciation"])
	require.Equal(t, 5000.0, cf["increase_in_receivables"])
	require.Equal(t, 15000.0, cf["operating_cashflow"]) // 13800+200-5000-3000+9000
	require.Equal(t, -12000.0, cf["investing_cashflow"])
	require.Equal(t, 50000.0, cf["financing_cashflow"])
	require.Equal(t, 53000.0, cf["net_change_in_cash"])

	require.True(t, report.Validation.IsBalanced)
	require.True(t, report.Validation.CashReconciled)
	require.Equal(t, 0.0, report.Validation.BalanceDiff)
	require.Equal(t, 0.0, report.Validation.CashDiff)
}

func TestIdentityViolationSurfacesAsError(t *testing.T) {
	ctx := context.Background()
	store := tradingLedger(t)

	// tamper with one row so assets no longer equal liabilities + equity
	row, _, err := store.Get(ctx, balance.Key{AccountCode: "1403", Period: "2025-01"})
	require.NoError(t, err)
	row.Closing += 500
	require.NoError(t, store.Put(ctx, row))

	builder := NewBuilder(storeReader{store}, fixedChart{testChart}, DefaultMapping())
	report, err := builder.Build(ctx, "2025-01")
	require.Error(t, err)
	require.False(t, report.Validation.IsBalanced)
	require.Equal(t, 500.0, report.Validation.BalanceDiff)
}

func TestCacheReusesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	store := tradingLedger(t)
	builder := NewBuilder(storeReader{store}, fixedChart{testChart}, DefaultMapping())

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(builder, client, time.Minute)

	first, err := cache.Report(ctx, "2025-01", false)
	require.NoError(t, err)
	require.True(t, mr.Exists("statement:2025-01"))

	// mutate the underlying store; the cached report is still served
	row, _, err := store.Get(ctx, balance.Key{AccountCode: "1002", Period: "2025-01"})
	require.NoError(t, err)
	row.Debit += 100
	row.Closing += 100
	require.NoError(t, store.Put(ctx, row))

	cached, err := cache.Report(ctx, "2025-01", false)
	require.NoError(t, err)
	require.Equal(t, first.BalanceSheet["cash_and_equivalents"], cached.BalanceSheet["cash_and_equivalents"])

	// invalidation forces a rebuild that sees the new posting
	cache.Invalidate(ctx, "2025-01")
	_, err = cache.Report(ctx, "2025-01", false)
	require.Error(t, err) // the lone tweak breaks the identity, and the error says so
}
