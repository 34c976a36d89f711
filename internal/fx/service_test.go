package fx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-ledger/meridian/internal/balance"
	"github.com/meridian-ledger/meridian/internal/coa"
	"github.com/meridian-ledger/meridian/internal/shared"
	"github.com/meridian-ledger/meridian/internal/voucher"
)

type memoryFXRepo struct {
	currencies map[string]Currency
	rates      []Rate
}

func newMemoryFXRepo() *memoryFXRepo {
	return &memoryFXRepo{currencies: make(map[string]Currency)}
}

func (r *memoryFXRepo) UpsertCurrency(_ context.Context, c Currency) error {
	r.currencies[c.Code] = c
	return nil
}

func (r *memoryFXRepo) ListCurrencies(context.Context) ([]Currency, error) {
	var out []Currency
	for _, c := range r.currencies {
		out = append(out, c)
	}
	return out, nil
}

func (r *memoryFXRepo) InsertRate(_ context.Context, rate Rate) error {
	r.rates = append(r.rates, rate)
	return nil
}

func (r *memoryFXRepo) NearestRate(_ context.Context, currency string, date time.Time, typ RateType) (Rate, error) {
	var best *Rate
	for i := range r.rates {
		rate := r.rates[i]
		if rate.Currency != currency || rate.Type != typ || rate.Date.After(date) {
			continue
		}
		if best == nil || rate.Date.After(best.Date) {
			best = &r.rates[i]
		}
	}
	if best == nil {
		return Rate{}, shared.NewErrorf(shared.CodeRateNotFound, "no %s rate for %s", typ, currency)
	}
	return *best, nil
}

func (r *memoryFXRepo) ListRates(_ context.Context, currency string, typ RateType) ([]Rate, error) {
	var out []Rate
	for _, rate := range r.rates {
		if (currency == "" || rate.Currency == currency) && (typ == "" || rate.Type == typ) {
			out = append(out, rate)
		}
	}
	return out, nil
}

type fixedBalances struct{ rows []balance.Balance }

func (f fixedBalances) PeriodBalances(context.Context, string) ([]balance.Balance, error) {
	return f.rows, nil
}

type fixedChart struct{ accounts []coa.Account }

func (f fixedChart) ListAccounts(context.Context, bool) ([]coa.Account, error) {
	return f.accounts, nil
}

type capturePoster struct {
	submitted []voucher.SubmitInput
	nextID    int64
}

func (p *capturePoster) Submit(_ context.Context, in voucher.SubmitInput) (voucher.Voucher, error) {
	if err := in.Validate(); err != nil {
		return voucher.Voucher{}, err
	}
	p.submitted = append(p.submitted, in)
	p.nextID++
	return voucher.Voucher{ID: p.nextID, VoucherNo: "V20250131001", Status: voucher.StatusConfirmed}, nil
}

func TestNearestPriorRateLookup(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryFXRepo()
	svc := NewService(repo, &capturePoster{}, fixedBalances{}, fixedChart{}, DefaultAccounts())

	require.NoError(t, svc.AddRate(ctx, "USD", time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), 7.05, RateTypeSpot, "test"))
	require.NoError(t, svc.AddRate(ctx, "USD", time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), 7.12, RateTypeSpot, "test"))

	rate, err := svc.Lookup(ctx, "USD", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), RateTypeSpot)
	require.NoError(t, err)
	require.Equal(t, 7.05, rate.Rate)

	rate, err = svc.Lookup(ctx, "USD", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), RateTypeSpot)
	require.NoError(t, err)
	require.Equal(t, 7.12, rate.Rate)

	_, err = svc.Lookup(ctx, "USD", time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), RateTypeSpot)
	require.True(t, shared.IsCode(err, shared.CodeRateNotFound))

	// closing-type lookups never fall back to spot observations
	_, err = svc.Lookup(ctx, "USD", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), RateTypeClosing)
	require.True(t, shared.IsCode(err, shared.CodeRateNotFound))
}

func TestRevaluationGain(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryFXRepo()
	poster := &capturePoster{}
	chart := fixedChart{accounts: []coa.Account{
		{Code: "1122", Name: "receivable USD", Type: coa.AccountTypeAsset, Direction: coa.DirectionDebit, Currency: "USD", Revaluable: true, Enabled: true},
		{Code: "1001", Name: "cash", Type: coa.AccountTypeAsset, Direction: coa.DirectionDebit, Enabled: true},
	}}
	balances := fixedBalances{rows: []balance.Balance{
		{Key: balance.Key{AccountCode: "1122", Period: "2025-01"}, Closing: 700, ForeignClosing: 100, CurrencyCode: "USD"},
		{Key: balance.Key{AccountCode: "1001", Period: "2025-01"}, Closing: 5000},
	}}
	svc := NewService(repo, poster, balances, chart, DefaultAccounts())

	require.NoError(t, svc.AddRate(ctx, "USD", time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), 7.2, RateTypeClosing, "test"))

	result, err := svc.Revalue(ctx, "2025-01", RateTypeClosing)
	require.NoError(t, err)
	require.Len(t, result.Lines, 1)
	require.Equal(t, 20.0, result.Lines[0].Delta) // 100 x 7.2 - 700
	require.Equal(t, 20.0, result.TotalGain)

	require.Len(t, poster.submitted, 1)
	entries := poster.submitted[0].Entries
	require.Equal(t, "1122", entries[0].Account)
	require.Equal(t, 20.0, entries[0].Debit)
	require.Equal(t, "6061", entries[1].Account)
	require.Equal(t, 20.0, entries[1].Credit)
}

func TestRevaluationLoss(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryFXRepo()
	poster := &capturePoster{}
	chart := fixedChart{accounts: []coa.Account{
		{Code: "1122", Name: "receivable USD", Type: coa.AccountTypeAsset, Direction: coa.DirectionDebit, Currency: "USD", Revaluable: true, Enabled: true},
	}}
	balances := fixedBalances{rows: []balance.Balance{
		{Key: balance.Key{AccountCode: "1122", Period: "2025-01"}, Closing: 700, ForeignClosing: 100, CurrencyCode: "USD"},
	}}
	svc := NewService(repo, poster, balances, chart, DefaultAccounts())

	require.NoError(t, svc.AddRate(ctx, "USD", time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), 6.9, RateTypeClosing, "test"))

	result, err := svc.Revalue(ctx, "2025-01", RateTypeClosing)
	require.NoError(t, err)
	require.Equal(t, -10.0, result.Lines[0].Delta)
	require.Equal(t, 10.0, result.TotalLoss)

	entries := poster.submitted[0].Entries
	require.Equal(t, "6711", entries[0].Account)
	require.Equal(t, 10.0, entries[0].Debit)
	require.Equal(t, "1122", entries[1].Account)
	require.Equal(t, 10.0, entries[1].Credit)
}

func TestRevaluationMissingRate(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryFXRepo()
	chart := fixedChart{accounts: []coa.Account{
		{Code: "1122", Currency: "USD", Revaluable: true, Enabled: true, Direction: coa.DirectionDebit, Type: coa.AccountTypeAsset},
	}}
	balances := fixedBalances{rows: []balance.Balance{
		{Key: balance.Key{AccountCode: "1122", Period: "2025-01"}, Closing: 700, ForeignClosing: 100, CurrencyCode: "USD"},
	}}
	svc := NewService(repo, &capturePoster{}, balances, chart, DefaultAccounts())

	_, err := svc.Revalue(ctx, "2025-01", RateTypeClosing)
	require.True(t, shared.IsCode(err, shared.CodeRateNotFound))
}
