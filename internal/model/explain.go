package model

import "fmt"

// Explanation traces one field: its formula, the substituted numbers, and
// recursive explanations of the inputs that have formulas of their own.
type Explanation struct {
	Field      string                 `json:"field"`
	Formula    string                 `json:"formula"`
	Calc       string                 `json:"calc"`
	Components map[string]float64     `json:"components"`
	Inputs     map[string]Explanation `json:"inputs,omitempty"`
}

// Explain builds the computation tree of one result field. Fields whose
// components have their own formulas are explained recursively.
func Explain(r Result, field string) (Explanation, error) {
	return explain(r, field, map[string]bool{})
}

// ExplainableFields lists the supported field names.
func ExplainableFields() []string {
	return []string{"net_income", "closing_cash", "interest", "depreciation", "tax", "closing_total_equity"}
}

func explain(r Result, field string, seen map[string]bool) (Explanation, error) {
	if seen[field] {
		return Explanation{}, fmt.Errorf("model: circular explanation of %q", field)
	}
	seen[field] = true
	defer delete(seen, field)

	var e Explanation
	switch field {
	case "net_income":
		e = Explanation{
			Field:   field,
			Formula: "net_income = revenue - cost - depreciation - other_expense - interest - tax",
			Calc: fmt.Sprintf("net_income = %.2f - %.2f - %.2f - %.2f - %.2f - %.2f = %.2f",
				r.Revenue, r.Cost, r.Depreciation, r.OtherExpense, r.Interest, r.Tax, r.NetIncome),
			Components: map[string]float64{
				"revenue":       r.Revenue,
				"cost":          r.Cost,
				"depreciation":  r.Depreciation,
				"other_expense": r.OtherExpense,
				"interest":      r.Interest,
				"tax":           r.Tax,
			},
		}
		e.Inputs = subExplain(r, seen, "depreciation", "interest", "tax")
	case "closing_cash":
		e = Explanation{
			Field:   field,
			Formula: "closing_cash = opening_cash + operating_cashflow + investing_cashflow + financing_cashflow",
			Calc: fmt.Sprintf("closing_cash = %.2f + %.2f + %.2f + %.2f = %.2f",
				r.OpeningCash, r.OperatingCashflow, r.InvestingCashflow, r.FinancingCashflow, r.ClosingCash),
			Components: map[string]float64{
				"opening_cash":       r.OpeningCash,
				"operating_cashflow": r.OperatingCashflow,
				"investing_cashflow": r.InvestingCashflow,
				"financing_cashflow": r.FinancingCashflow,
			},
		}
	case "interest":
		e = Explanation{
			Field:   field,
			Formula: "interest = interest_base x interest_rate (opening debt first pass, average debt thereafter)",
			Calc:    fmt.Sprintf("interest = base x %.4f = %.2f", r.InterestRate, r.Interest),
			Components: map[string]float64{
				"opening_debt":  r.OpeningDebt,
				"closing_debt":  r.ClosingDebt,
				"interest_rate": r.InterestRate,
			},
		}
	case "depreciation":
		e = Explanation{
			Field:   field,
			Formula: "depreciation = (fixed_asset_cost - fixed_asset_salvage) / fixed_asset_life",
			Calc: fmt.Sprintf("depreciation = (%.2f - %.2f) / %.0f = %.2f",
				r.FixedAssetCost, r.FixedAssetSalvage, r.FixedAssetLife, r.Depreciation),
			Components: map[string]float64{
				"fixed_asset_cost":    r.FixedAssetCost,
				"fixed_asset_salvage": r.FixedAssetSalvage,
				"fixed_asset_life":    r.FixedAssetLife,
			},
		}
	case "tax":
		e = Explanation{
			Field:   field,
			Formula: "tax = max(ebt, 0) x tax_rate",
			Calc:    fmt.Sprintf("tax = max(%.2f, 0) x %.4f = %.2f", r.EBT, r.TaxRate, r.Tax),
			Components: map[string]float64{
				"ebt":      r.EBT,
				"tax_rate": r.TaxRate,
			},
		}
	case "closing_total_equity":
		e = Explanation{
			Field:   field,
			Formula: "closing_total_equity = opening_equity + new_equity + opening_retained + net_income - dividend",
			Calc: fmt.Sprintf("closing_total_equity = %.2f + %.2f + %.2f + %.2f - %.2f = %.2f",
				r.OpeningEquity, r.NewEquity, r.OpeningRetained, r.NetIncome, r.Dividend, r.ClosingTotalEquity),
			Components: map[string]float64{
				"opening_equity":   r.OpeningEquity,
				"new_equity":       r.NewEquity,
				"opening_retained": r.OpeningRetained,
				"net_income":       r.NetIncome,
				"dividend":         r.Dividend,
			},
		}
		e.Inputs = subExplain(r, seen, "net_income")
	default:
		return Explanation{}, fmt.Errorf("model: unsupported field %q, supported: %v", field, ExplainableFields())
	}
	return e, nil
}

func subExplain(r Result, seen map[string]bool, fields ...string) map[string]Explanation {
	out := make(map[string]Explanation, len(fields))
	for _, f := range fields {
		sub, err := explain(r, f, seen)
		if err != nil {
			continue
		}
		out[f] = sub
	}
	return out
}
