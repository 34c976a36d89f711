package voucher

import (
	"errors"
	"fmt"
	"time"

	"github.com/meridian-ledger/meridian/internal/money"
	"github.com/meridian-ledger/meridian/internal/shared"
)

// EntryInput describes one line of a submission. Account accepts a code
// or a display name; dimensions are referenced by code.
type EntryInput struct {
	Account     string  `json:"account" validate:"required"`
	Description string  `json:"description"`
	Debit       float64 `json:"debit" validate:"gte=0"`
	Credit      float64 `json:"credit" validate:"gte=0"`

	Currency      string  `json:"currency,omitempty"`
	Rate          float64 `json:"rate,omitempty"`
	ForeignDebit  float64 `json:"foreign_debit,omitempty"`
	ForeignCredit float64 `json:"foreign_credit,omitempty"`

	Department string `json:"department,omitempty"`
	Project    string `json:"project,omitempty"`
	Customer   string `json:"customer,omitempty"`
	Supplier   string `json:"supplier,omitempty"`
	Employee   string `json:"employee,omitempty"`
}

// SubmitInput groups the fields required to record a voucher.
type SubmitInput struct {
	Date           time.Time
	Description    string
	EntryType      EntryType
	SourceTemplate string
	SourceEventID  string
	AutoConfirm    bool
	Entries        []EntryInput

	// voidOf back-references the original when the submission is a
	// red-letter reversal synthesized by Void.
	voidOf int64
}

// Validate checks shape and the balance invariant before any state is
// touched. An empty voucher is legal: both sums are zero.
func (in SubmitInput) Validate() error {
	if in.Date.IsZero() {
		return errors.New("voucher: date required")
	}
	if in.EntryType != "" && in.EntryType != EntryTypeNormal && in.EntryType != EntryTypeAdjustment {
		return fmt.Errorf("voucher: unknown entry type %q", in.EntryType)
	}
	var debitTotal, creditTotal float64
	for idx, entry := range in.Entries {
		if entry.Account == "" {
			return fmt.Errorf("voucher: line %d missing account", idx+1)
		}
		if entry.Debit < 0 || entry.Credit < 0 {
			return fmt.Errorf("voucher: line %d negative amount", idx+1)
		}
		if entry.Debit > 0 && entry.Credit > 0 {
			return fmt.Errorf("voucher: line %d cannot carry both debit and credit", idx+1)
		}
		debitTotal += entry.Debit
		creditTotal += entry.Credit
	}
	debitTotal = money.Round2(debitTotal)
	creditTotal = money.Round2(creditTotal)
	if diff := money.Round2(debitTotal - creditTotal); money.Abs(diff) > money.Tolerance {
		return shared.NewErrorf(shared.CodeNotBalanced, "debit %.2f and credit %.2f differ by %.2f", debitTotal, creditTotal, diff).
			WithDetails(map[string]any{
				"debit_total":  debitTotal,
				"credit_total": creditTotal,
				"difference":   diff,
			})
	}
	return nil
}

// VoidInput wraps the parameters of a red-letter reversal.
type VoidInput struct {
	VoucherID int64
	Reason    string
	// Adjustment admits the reversal into a period sitting in adjustment
	// status; without it a non-open period rejects the void.
	Adjustment bool
}
