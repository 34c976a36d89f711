package model

import (
	"encoding/json"
	"math"

	"github.com/meridian-ledger/meridian/internal/money"
)

// Result echoes the driver and carries every computed statement field.
type Result struct {
	Driver

	Interest          float64 `json:"interest"`
	NewBorrowing      float64 `json:"new_borrowing"`
	ClosingDebt       float64 `json:"closing_debt"`
	ClosingCash       float64 `json:"closing_cash"`
	OperatingCashflow float64 `json:"operating_cashflow"`
	InvestingCashflow float64 `json:"investing_cashflow"`
	FinancingCashflow float64 `json:"financing_cashflow"`

	Depreciation             float64 `json:"depreciation"`
	ClosingAccumDepreciation float64 `json:"closing_accum_depreciation"`
	ClosingFixedAssetNet     float64 `json:"closing_fixed_asset_net"`

	GrossProfit float64 `json:"gross_profit"`
	EBIT        float64 `json:"ebit"`
	EBT         float64 `json:"ebt"`
	Tax         float64 `json:"tax"`
	NetIncome   float64 `json:"net_income"`

	RetainedEarningsChange float64 `json:"retained_earnings_change"`
	ClosingRetained        float64 `json:"closing_retained"`
	ClosingEquityCapital   float64 `json:"closing_equity_capital"`
	ClosingTotalEquity     float64 `json:"closing_total_equity"`

	// These shadow the driver's optional closing overrides in the JSON
	// output: the reconciled figures are the contract.
	ClosingReceivableFinal float64 `json:"closing_receivable"`
	ClosingPayableFinal    float64 `json:"closing_payable"`
	ClosingInventoryFinal  float64 `json:"closing_inventory"`
	TotalAssets      float64 `json:"total_assets"`
	TotalLiabilities float64 `json:"total_liabilities"`
	TotalEquity      float64 `json:"total_equity"`
	BalanceDiff      float64 `json:"balance_diff"`
	IsBalanced       bool    `json:"is_balanced"`
	AutoAdjustment   float64 `json:"auto_adjustment"`

	CashFlowCheck float64 `json:"cash_flow_check"`
	CashBalanced  bool    `json:"cash_balanced"`

	Iterations         int  `json:"iterations,omitempty"`
	IterationConverged bool `json:"iteration_converged"`
	Diverging          bool `json:"diverging,omitempty"`
}

// MarshalJSON merges the named fields with the driver's extra fields so
// unknown input keys round-trip.
func (r Result) MarshalJSON() ([]byte, error) {
	type alias Result
	base, err := json.Marshal(alias(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return base, nil
	}
	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for key, value := range r.Extra {
		if _, taken := merged[key]; !taken {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// Options tune the convergence loop.
type Options struct {
	Iterations int
	Tolerance  float64
}

// Calc runs the five balancing steps once or, with Options.Iterations > 1,
// iterates the debt-interest-cash cycle until interest and new borrowing
// both settle within the tolerance.
func Calc(d Driver, opts Options) Result {
	iterations := opts.Iterations
	if iterations < 1 {
		iterations = 1
	}
	tolerance := opts.Tolerance
	if tolerance <= 0 {
		tolerance = money.Tolerance
	}

	var result Result
	interestBase := d.OpeningDebt
	prevInterest := math.NaN()
	prevBorrowing := math.NaN()
	converged := false

	for i := 0; i < iterations; i++ {
		result = runSteps(d, interestBase)
		result.Iterations = i + 1

		if !math.IsNaN(prevBorrowing) &&
			math.Abs(result.Interest-prevInterest) < tolerance &&
			math.Abs(result.NewBorrowing-prevBorrowing) < tolerance {
			converged = true
			break
		}
		prevInterest = result.Interest
		prevBorrowing = result.NewBorrowing
		// interest accrues on average debt once the financing gap is known
		interestBase = (d.OpeningDebt + result.ClosingDebt) / 2
	}

	result.IterationConverged = converged || iterations == 1
	if iterations > 1 && !converged {
		result.IterationConverged = false
		result.Diverging = divergenceLikely(d)
	}
	return result
}

// runSteps executes Financing, Depreciation, Profit, Equity, Reconcile in
// order against one interest base.
func runSteps(d Driver, interestBase float64) Result {
	result := Result{Driver: d}
	stepFinancing(&result, interestBase)
	stepDepreciation(&result)
	stepProfit(&result)
	stepEquity(&result)
	stepReconcile(&result)
	return result
}

// stepFinancing projects the cash position, borrows up to the minimum
// cash floor, and prices the interest charge.
func stepFinancing(r *Result, interestBase float64) {
	d := &r.Driver
	interest := interestBase * d.InterestRate

	// the cash projection needs a tax estimate before the P&L runs
	estimatedEBT := d.Revenue - d.Cost - d.OtherExpense - interest - d.EstimatedDepreciation
	estimatedTax := math.Max(estimatedEBT, 0) * d.TaxRate

	operatingCF := d.Revenue - d.Cost - d.OtherExpense - estimatedTax - d.DeltaReceivable + d.DeltaPayable
	investingCF := -d.Capex
	cashBeforeFinancing := d.OpeningCash + operatingCF + investingCF - interest - d.Repayment

	gap := d.MinCash - cashBeforeFinancing
	newBorrowing := math.Max(gap, 0)

	r.Interest = money.Round2(interest)
	r.NewBorrowing = money.Round2(newBorrowing)
	r.ClosingDebt = money.Round2(d.OpeningDebt + newBorrowing - d.Repayment)
	r.ClosingCash = money.Round2(cashBeforeFinancing + newBorrowing)
	r.OperatingCashflow = money.Round2(operatingCF)
	r.InvestingCashflow = money.Round2(investingCF)
	r.FinancingCashflow = money.Round2(newBorrowing - d.Repayment - interest)
}

// stepDepreciation books the straight-line annual charge.
func stepDepreciation(r *Result) {
	d := &r.Driver
	var annual float64
	if d.FixedAssetLife > 0 {
		annual = (d.FixedAssetCost - d.FixedAssetSalvage) / d.FixedAssetLife
	}
	r.Depreciation = money.Round2(annual)
	r.ClosingAccumDepreciation = money.Round2(d.AccumDepreciation + annual)
	r.ClosingFixedAssetNet = money.Round2(d.FixedAssetCost + d.Capex - r.ClosingAccumDepreciation)
}

// stepProfit derives the income statement.
func stepProfit(r *Result) {
	d := &r.Driver
	gross := d.Revenue - d.Cost
	ebit := gross - r.Depreciation - d.OtherExpense
	ebt := ebit - r.Interest
	tax := math.Max(ebt, 0) * d.TaxRate
	r.GrossProfit = money.Round2(gross)
	r.EBIT = money.Round2(ebit)
	r.EBT = money.Round2(ebt)
	r.Tax = money.Round2(tax)
	r.NetIncome = money.Round2(ebt - tax)
}

// stepEquity rolls retained earnings and total equity.
func stepEquity(r *Result) {
	d := &r.Driver
	change := r.NetIncome - d.Dividend
	r.RetainedEarningsChange = money.Round2(change)
	r.ClosingRetained = money.Round2(d.OpeningRetained + change)
	r.ClosingEquityCapital = money.Round2(d.OpeningEquity + d.NewEquity)
	r.ClosingTotalEquity = money.Round2(r.ClosingEquityCapital + r.ClosingRetained)
}

// stepReconcile totals both sides and applies the single balancing
// adjustment: payable when assets run long, receivable when short.
func stepReconcile(r *Result) {
	d := &r.Driver
	receivable := d.OpeningReceivable
	if d.ClosingReceivable != nil {
		receivable = *d.ClosingReceivable
	}
	payable := d.OpeningPayable
	if d.ClosingPayable != nil {
		payable = *d.ClosingPayable
	}
	inventory := d.OpeningInventory
	if d.ClosingInventory != nil {
		inventory = *d.ClosingInventory
	}

	totalAssets := r.ClosingCash + receivable + inventory + r.ClosingFixedAssetNet
	totalLiabilities := r.ClosingDebt + payable
	totalEquity := r.ClosingTotalEquity
	diff := totalAssets - totalLiabilities - totalEquity

	r.AutoAdjustment = 0
	if math.Abs(diff) > money.Tolerance {
		adjustment := money.Round2(math.Abs(diff))
		if diff > 0 {
			payable += adjustment
		} else {
			receivable += adjustment
		}
		r.AutoAdjustment = adjustment
		totalAssets = r.ClosingCash + receivable + inventory + r.ClosingFixedAssetNet
		totalLiabilities = r.ClosingDebt + payable
		diff = totalAssets - totalLiabilities - totalEquity
	}

	r.ClosingReceivableFinal = money.Round2(receivable)
	r.ClosingPayableFinal = money.Round2(payable)
	r.ClosingInventoryFinal = money.Round2(inventory)
	r.TotalAssets = money.Round2(totalAssets)
	r.TotalLiabilities = money.Round2(totalLiabilities)
	r.TotalEquity = money.Round2(totalEquity)
	r.BalanceDiff = money.Round2(diff)
	r.IsBalanced = math.Abs(r.BalanceDiff) < money.Tolerance

	check := d.OpeningCash + r.OperatingCashflow + r.InvestingCashflow + r.FinancingCashflow
	r.CashFlowCheck = money.Round2(check)
	r.CashBalanced = math.Abs(check-r.ClosingCash) < money.Tolerance
}

// divergenceLikely flags parameter sets where the fixed point cannot be
// approached: interest consumes the borrowing that funds it.
func divergenceLikely(d Driver) bool {
	return d.InterestRate >= 1
}
