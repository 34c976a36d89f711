package model

import (
	"fmt"
	"math"

	"github.com/meridian-ledger/meridian/internal/money"
)

// DeltaCheck pairs one balance-sheet line's period delta with its
// cash-flow counterpart.
type DeltaCheck struct {
	Item    string  `json:"item"`
	Delta   float64 `json:"delta"`
	CFItem  string  `json:"cf_item"`
	CFValue float64 `json:"cf_value"`
	Match   bool    `json:"match"`
	Note    string  `json:"note,omitempty"`
}

// Diagnosis is the delta-method report over a computed result.
type Diagnosis struct {
	Status     string       `json:"status"`
	AllMatch   bool         `json:"all_match"`
	DeltaTable []DeltaCheck `json:"delta_table"`
	Mismatches []string     `json:"mismatches"`
	Warnings   []string     `json:"warnings"`
}

// Diagnose verifies that every balance-sheet delta is explained by the
// matching cash-flow component: the indirect method in reverse.
func Diagnose(r Result) Diagnosis {
	var diag Diagnosis

	add := func(item string, delta float64, cfItem string, cfValue float64, enforce bool, note string) {
		match := true
		if enforce {
			match = math.Abs(delta-cfValue) < money.Tolerance
		}
		diag.DeltaTable = append(diag.DeltaTable, DeltaCheck{
			Item: item, Delta: money.Round2(delta), CFItem: cfItem, CFValue: money.Round2(cfValue), Match: match, Note: note,
		})
		if !match {
			diag.Mismatches = append(diag.Mismatches, fmt.Sprintf("%s delta %.2f does not match %s %.2f", item, delta, cfItem, cfValue))
		}
	}

	cfTotal := r.OperatingCashflow + r.InvestingCashflow + r.FinancingCashflow
	add("cash", r.ClosingCash-r.OpeningCash, "operating+investing+financing", cfTotal, true, "")

	add("accumulated depreciation", r.ClosingAccumDepreciation-r.AccumDepreciation, "depreciation add-back", r.Depreciation, true, "")

	add("fixed asset cost", r.Capex, "capex", r.Capex, false, "")

	recvNote := ""
	if r.ClosingReceivableFinal != r.OpeningReceivable+r.DeltaReceivable {
		recvNote = "closing adjusted by reconciliation"
	}
	add("receivable", r.ClosingReceivableFinal-r.OpeningReceivable, "receivable delta (input)", r.DeltaReceivable, false, recvNote)

	add("payable", r.ClosingPayableFinal-r.OpeningPayable, "payable delta (operating/adjustment)", r.ClosingPayableFinal-r.OpeningPayable, false, "")

	add("debt", r.ClosingDebt-r.OpeningDebt, "new borrowing less repayment", r.NewBorrowing-r.Repayment, true, "")

	add("retained earnings", r.ClosingRetained-r.OpeningRetained, "net income less dividend", r.NetIncome-r.Dividend, true, "")

	add("total equity", r.ClosingTotalEquity-(r.OpeningEquity+r.OpeningRetained), "new equity plus net income less dividend", r.NewEquity+r.NetIncome-r.Dividend, true, "")

	diag.AllMatch = len(diag.Mismatches) == 0
	diag.Status = "ok"
	if !diag.AllMatch {
		diag.Status = "mismatch"
	}

	if r.NetIncome < 0 {
		diag.Warnings = append(diag.Warnings, fmt.Sprintf("net income is negative: %.2f", r.NetIncome))
	}
	if r.Revenue > 0 {
		margin := r.NetIncome / r.Revenue * 100
		if margin < 5 {
			diag.Warnings = append(diag.Warnings, fmt.Sprintf("net margin is thin: %.1f%%", margin))
		}
	}
	if total := r.TotalLiabilities + r.TotalEquity; total > 0 {
		leverage := r.TotalLiabilities / total * 100
		if leverage > 70 {
			diag.Warnings = append(diag.Warnings, fmt.Sprintf("leverage is high: %.1f%%", leverage))
		}
	}
	if !r.IterationConverged {
		diag.Warnings = append(diag.Warnings, "iteration did not converge; figures are the last pass")
	}
	return diag
}
