package balance

import (
	"context"
	"fmt"

	"github.com/meridian-ledger/meridian/internal/coa"
	"github.com/meridian-ledger/meridian/internal/money"
	"github.com/meridian-ledger/meridian/internal/shared"
)

// Store abstracts the balance index for the engine. Implementations exist
// over a pgx transaction and in memory (tests, rebuild).
type Store interface {
	Get(ctx context.Context, key Key) (Balance, bool, error)
	Put(ctx context.Context, b Balance) error
	ListPeriod(ctx context.Context, period string) ([]Balance, error)
	// PriorClosing returns the closing of the same key in the previous
	// period, zero when no row exists.
	PriorClosing(ctx context.Context, key Key) (closing, foreignClosing float64, currency string, err error)
	// Direction resolves the normal side of an account.
	Direction(ctx context.Context, accountCode string) (coa.Direction, error)
}

// Engine applies entry effects to a Store. The engine is sign-symmetric:
// a red-letter reversal re-enters through Apply with debit and credit
// swapped, so voiding needs no special path.
type Engine struct {
	store Store
}

// NewEngine builds an Engine over the store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Apply folds the effects into the index for the given period.
func (e *Engine) Apply(ctx context.Context, period string, effects []Effect) error {
	for _, effect := range effects {
		key := effect.KeyFor(period)
		row, found, err := e.store.Get(ctx, key)
		if err != nil {
			return err
		}
		if !found {
			opening, foreignOpening, currency, err := e.store.PriorClosing(ctx, key)
			if err != nil {
				return err
			}
			if effect.CurrencyCode != "" {
				currency = effect.CurrencyCode
			}
			row = Balance{
				Key:            key,
				Opening:        opening,
				Closing:        opening,
				CurrencyCode:   currency,
				ForeignOpening: foreignOpening,
				ForeignClosing: foreignOpening,
			}
		}
		direction, err := e.store.Direction(ctx, effect.AccountCode)
		if err != nil {
			return err
		}
		row.Debit = money.Round2(row.Debit + effect.Debit)
		row.Credit = money.Round2(row.Credit + effect.Credit)
		row.ForeignDebit = money.Round2(row.ForeignDebit + effect.ForeignDebit)
		row.ForeignCredit = money.Round2(row.ForeignCredit + effect.ForeignCredit)
		row.Closing = closingFor(direction, row.Opening, row.Debit, row.Credit)
		row.ForeignClosing = closingFor(direction, row.ForeignOpening, row.ForeignDebit, row.ForeignCredit)
		if err := e.store.Put(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// Rollover materialises opening rows in the next period for every key of
// the source period. Existing rows are untouched, so the operation is
// idempotent.
func (e *Engine) Rollover(ctx context.Context, period string) (int, error) {
	next := shared.NextPeriod(period)
	if next == "" {
		return 0, fmt.Errorf("balance: malformed period %q", period)
	}
	rows, err := e.store.ListPeriod(ctx, period)
	if err != nil {
		return 0, err
	}
	rolled := 0
	for _, row := range rows {
		nextKey := row.Key
		nextKey.Period = next
		if _, found, err := e.store.Get(ctx, nextKey); err != nil {
			return rolled, err
		} else if found {
			continue
		}
		carried := Balance{
			Key:            nextKey,
			Opening:        row.Closing,
			Closing:        row.Closing,
			CurrencyCode:   row.CurrencyCode,
			ForeignOpening: row.ForeignClosing,
			ForeignClosing: row.ForeignClosing,
		}
		if err := e.store.Put(ctx, carried); err != nil {
			return rolled, err
		}
		rolled++
	}
	return rolled, nil
}

// Unroll removes carried-forward rows of the next period that have seen no
// activity. Rows with postings stay and the caller compensates by voucher.
func (e *Engine) Unroll(ctx context.Context, period string, remove func(ctx context.Context, key Key) error) (kept int, removed int, err error) {
	next := shared.NextPeriod(period)
	rows, err := e.store.ListPeriod(ctx, next)
	if err != nil {
		return 0, 0, err
	}
	for _, row := range rows {
		if row.Debit == 0 && row.Credit == 0 {
			if err := remove(ctx, row.Key); err != nil {
				return kept, removed, err
			}
			removed++
			continue
		}
		kept++
	}
	return kept, removed, nil
}

func closingFor(direction coa.Direction, opening, debit, credit float64) float64 {
	if direction == coa.DirectionDebit {
		return money.Round2(opening + debit - credit)
	}
	return money.Round2(opening - debit + credit)
}
