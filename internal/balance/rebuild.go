package balance

import (
	"context"
	"fmt"
	"sort"

	"github.com/meridian-ledger/meridian/internal/coa"
	"github.com/meridian-ledger/meridian/internal/money"
	"github.com/meridian-ledger/meridian/internal/shared"
)

// ReplayVoucher is one confirmed voucher's contribution to a rebuild,
// ordered by voucher number within its period.
type ReplayVoucher struct {
	Number  string
	Period  string
	Effects []Effect
}

// Mismatch reports one divergence between the persisted index and the
// replayed ground truth.
type Mismatch struct {
	Key      Key
	Field    string
	Stored   float64
	Replayed float64
}

// VerifyReport is the outcome of a rebuild comparison.
type VerifyReport struct {
	VouchersReplayed int
	RowsCompared     int
	Mismatches       []Mismatch
}

// Clean reports whether the persisted index matched the replay.
func (r VerifyReport) Clean() bool { return len(r.Mismatches) == 0 }

// Replay folds all confirmed vouchers into a fresh in-memory index,
// grouped by period in voucher-number order. This is the ground truth the
// persisted index is checked against.
func Replay(ctx context.Context, directions map[string]coa.Direction, vouchers []ReplayVoucher) (*MemoryStore, error) {
	ordered := make([]ReplayVoucher, len(vouchers))
	copy(ordered, vouchers)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Period != ordered[j].Period {
			return ordered[i].Period < ordered[j].Period
		}
		return ordered[i].Number < ordered[j].Number
	})

	store := NewMemoryStore(directions)
	engine := NewEngine(store)
	lastPeriod := ""
	for _, v := range ordered {
		if lastPeriod != "" && v.Period != lastPeriod {
			// carry closings forward across every period gap
			p := lastPeriod
			for p != "" && p < v.Period {
				if _, err := engine.Rollover(ctx, p); err != nil {
					return nil, err
				}
				p = shared.NextPeriod(p)
			}
		}
		if err := engine.Apply(ctx, v.Period, v.Effects); err != nil {
			return nil, fmt.Errorf("balance: replay voucher %s: %w", v.Number, err)
		}
		lastPeriod = v.Period
	}
	return store, nil
}

// Verify replays the vouchers and compares the result against the
// persisted index. Persisted rows absent from the replay are legal only
// when they are pure rollover rows (no activity, opening equals closing).
func Verify(ctx context.Context, persisted Store, periods []string, directions map[string]coa.Direction, vouchers []ReplayVoucher) (VerifyReport, error) {
	replayed, err := Replay(ctx, directions, vouchers)
	if err != nil {
		return VerifyReport{}, err
	}
	report := VerifyReport{VouchersReplayed: len(vouchers)}

	for _, period := range periods {
		stored, err := persisted.ListPeriod(ctx, period)
		if err != nil {
			return report, err
		}
		for _, row := range stored {
			report.RowsCompared++
			truth, found, err := replayed.Get(ctx, row.Key)
			if err != nil {
				return report, err
			}
			if !found {
				if row.Debit == 0 && row.Credit == 0 && money.Equal(row.Opening, row.Closing) {
					continue
				}
				report.Mismatches = append(report.Mismatches, Mismatch{Key: row.Key, Field: "row", Stored: row.Closing})
				continue
			}
			compare(&report, row.Key, "opening", row.Opening, truth.Opening)
			compare(&report, row.Key, "debit", row.Debit, truth.Debit)
			compare(&report, row.Key, "credit", row.Credit, truth.Credit)
			compare(&report, row.Key, "closing", row.Closing, truth.Closing)
		}
	}
	return report, nil
}

// MismatchError converts a dirty report into a consistency error.
func (r VerifyReport) MismatchError() error {
	if r.Clean() {
		return nil
	}
	first := r.Mismatches[0]
	return shared.NewErrorf(shared.CodeRebuildMismatch,
		"balance index diverges from voucher replay at %s %s (%s: stored %.2f, replayed %.2f)",
		first.Key.AccountCode, first.Key.Period, first.Field, first.Stored, first.Replayed).
		WithDetails(map[string]any{"mismatches": len(r.Mismatches)})
}

func compare(report *VerifyReport, key Key, field string, stored, replayed float64) {
	if !money.Equal(stored, replayed) {
		report.Mismatches = append(report.Mismatches, Mismatch{Key: key, Field: field, Stored: stored, Replayed: replayed})
	}
}
