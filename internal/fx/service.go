package fx

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/meridian-ledger/meridian/internal/balance"
	"github.com/meridian-ledger/meridian/internal/coa"
	"github.com/meridian-ledger/meridian/internal/money"
	"github.com/meridian-ledger/meridian/internal/voucher"
)

// Poster submits balanced vouchers to the ledger.
type Poster interface {
	Submit(ctx context.Context, in voucher.SubmitInput) (voucher.Voucher, error)
}

// BalanceReader reads the balance index for one period.
type BalanceReader interface {
	PeriodBalances(ctx context.Context, period string) ([]balance.Balance, error)
}

// AccountDirectory lists accounts so revaluable ones can be found.
type AccountDirectory interface {
	ListAccounts(ctx context.Context, onlyEnabled bool) ([]coa.Account, error)
}

// Accounts names the gain and loss accounts revaluation posts to.
type Accounts struct {
	Gain string
	Loss string
}

// DefaultAccounts uses the seeded chart codes.
func DefaultAccounts() Accounts {
	return Accounts{Gain: "6061", Loss: "6711"}
}

// Service manages currencies, rates, and period-end revaluation.
type Service struct {
	repo     RepositoryPort
	poster   Poster
	balances BalanceReader
	chart    AccountDirectory
	accounts Accounts
}

// NewService builds Service.
func NewService(repo RepositoryPort, poster Poster, balances BalanceReader, chart AccountDirectory, accounts Accounts) *Service {
	return &Service{repo: repo, poster: poster, balances: balances, chart: chart, accounts: accounts}
}

// AddCurrency registers a currency.
func (s *Service) AddCurrency(ctx context.Context, code, name, symbol string, precision int) error {
	if code == "" || name == "" {
		return errors.New("fx: currency code and name required")
	}
	if precision <= 0 {
		precision = 2
	}
	return s.repo.UpsertCurrency(ctx, Currency{Code: code, Name: name, Symbol: symbol, Precision: precision, Active: true})
}

// ListCurrencies returns the registered currencies.
func (s *Service) ListCurrencies(ctx context.Context) ([]Currency, error) {
	return s.repo.ListCurrencies(ctx)
}

// AddRate records an exchange rate at six decimals.
func (s *Service) AddRate(ctx context.Context, currency string, date time.Time, rate float64, typ RateType, source string) error {
	if currency == "" {
		return errors.New("fx: currency required")
	}
	if rate <= 0 {
		return errors.New("fx: rate must be positive")
	}
	if typ == "" {
		typ = RateTypeSpot
	}
	return s.repo.InsertRate(ctx, Rate{Currency: currency, Date: date, Rate: money.Round6(rate), Type: typ, Source: source})
}

// Lookup resolves a rate, falling back to the nearest prior date within
// the same rate type.
func (s *Service) Lookup(ctx context.Context, currency string, date time.Time, typ RateType) (Rate, error) {
	if typ == "" {
		typ = RateTypeSpot
	}
	return s.repo.NearestRate(ctx, currency, date, typ)
}

// ListRates lists recorded rates.
func (s *Service) ListRates(ctx context.Context, currency string, typ RateType) ([]Rate, error) {
	return s.repo.ListRates(ctx, currency, typ)
}

// Revalue runs the period-end revaluation: for every revaluable account,
// compare the foreign closing at the period-end rate with the functional
// closing, and post the gain or loss. One voucher per account, idempotent
// per period through the source event id.
func (s *Service) Revalue(ctx context.Context, period string, typ RateType) (RevaluationResult, error) {
	if typ == "" {
		typ = RateTypeClosing
	}
	result := RevaluationResult{Period: period, RateType: typ}

	accounts, err := s.chart.ListAccounts(ctx, true)
	if err != nil {
		return result, err
	}
	revaluable := make(map[string]coa.Account)
	for _, a := range accounts {
		if a.Revaluable && a.Currency != "" {
			revaluable[a.Code] = a
		}
	}
	if len(revaluable) == 0 {
		return result, nil
	}

	rows, err := s.balances.PeriodBalances(ctx, period)
	if err != nil {
		return result, err
	}
	type agg struct {
		foreign    float64
		functional float64
	}
	sums := make(map[string]agg)
	for _, row := range rows {
		if _, ok := revaluable[row.AccountCode]; !ok {
			continue
		}
		a := sums[row.AccountCode]
		a.foreign += row.ForeignClosing
		a.functional += row.Closing
		sums[row.AccountCode] = a
	}

	codes := make([]string, 0, len(sums))
	for code := range sums {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	asOf := lastDayOf(period)
	for _, code := range codes {
		account := revaluable[code]
		sum := sums[code]
		rate, err := s.repo.NearestRate(ctx, account.Currency, asOf, typ)
		if err != nil {
			return result, err
		}
		delta := money.Round2(sum.foreign*rate.Rate - sum.functional)
		line := RevaluationLine{
			AccountCode:       code,
			Currency:          account.Currency,
			ForeignClosing:    money.Round2(sum.foreign),
			FunctionalClosing: money.Round2(sum.functional),
			Rate:              rate.Rate,
			Delta:             delta,
		}
		if money.IsZero(delta) {
			result.Lines = append(result.Lines, line)
			continue
		}
		var entries []voucher.EntryInput
		if delta > 0 {
			entries = []voucher.EntryInput{
				{Account: code, Debit: delta, Description: "FX revaluation " + period},
				{Account: s.accounts.Gain, Credit: delta, Description: "FX revaluation " + period},
			}
			result.TotalGain = money.Round2(result.TotalGain + delta)
		} else {
			entries = []voucher.EntryInput{
				{Account: s.accounts.Loss, Debit: -delta, Description: "FX revaluation " + period},
				{Account: code, Credit: -delta, Description: "FX revaluation " + period},
			}
			result.TotalLoss = money.Round2(result.TotalLoss - delta)
		}
		v, err := s.poster.Submit(ctx, voucher.SubmitInput{
			Date:          asOf,
			Description:   "FX revaluation " + period,
			SourceEventID: "fx-revalue:" + period + ":" + string(typ) + ":" + code,
			AutoConfirm:   true,
			Entries:       entries,
		})
		if err != nil {
			return result, err
		}
		line.VoucherNo = v.VoucherNo
		result.Lines = append(result.Lines, line)
	}
	return result, nil
}

func lastDayOf(period string) time.Time {
	t, err := time.Parse("2006-01-02", period+"-01")
	if err != nil {
		return time.Time{}
	}
	return t.AddDate(0, 1, -1)
}
