package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func scenarioFourDriver() Driver {
	return Driver{
		Revenue:         20000,
		Cost:            12000,
		OtherExpense:    2000,
		OpeningCash:     5000,
		OpeningDebt:     4000,
		OpeningEquity:   6000,
		OpeningRetained: 1000,
		FixedAssetCost:  10000,
		FixedAssetLife:  5,
		InterestRate:    0.05,
		TaxRate:         0.25,
	}
}

func TestOneShotCalc(t *testing.T) {
	result := Calc(scenarioFourDriver(), Options{})

	require.Equal(t, 2000.0, result.Depreciation)
	require.Equal(t, 200.0, result.Interest)
	require.Equal(t, 8000.0, result.GrossProfit)
	require.Equal(t, 4000.0, result.EBIT)
	require.Equal(t, 3800.0, result.EBT)
	require.Equal(t, 950.0, result.Tax)
	require.Equal(t, 2850.0, result.NetIncome)
	require.Equal(t, 8000.0, result.ClosingFixedAssetNet)
	require.Equal(t, 3850.0, result.ClosingRetained)
	require.Equal(t, 9850.0, result.ClosingTotalEquity)
	require.True(t, result.IsBalanced)
	require.NotZero(t, result.AutoAdjustment)
	require.True(t, result.CashBalanced)
	require.True(t, result.IterationConverged)
}

func TestReconcileAdjustsPayableWhenAssetsRunLong(t *testing.T) {
	result := Calc(scenarioFourDriver(), Options{})

	// assets exceed liabilities+equity, so payable absorbs the difference
	require.Greater(t, result.ClosingPayableFinal, 0.0)
	require.Equal(t, result.AutoAdjustment, result.ClosingPayableFinal)
	require.InDelta(t, 0.0, result.BalanceDiff, 0.01)
}

func TestReconcileAdjustsReceivableWhenAssetsRunShort(t *testing.T) {
	d := Driver{
		Revenue:       1000,
		Cost:          500,
		OpeningCash:   1000,
		OpeningEquity: 5000,
	}
	result := Calc(d, Options{})
	require.True(t, result.IsBalanced)
	require.Greater(t, result.ClosingReceivableFinal, 0.0)
	require.Equal(t, result.AutoAdjustment, result.ClosingReceivableFinal)
}

func TestConvergentIteration(t *testing.T) {
	d := scenarioFourDriver()
	d.MinCash = 12000

	result := Calc(d, Options{Iterations: 5})
	require.Greater(t, result.NewBorrowing, 0.0)
	require.True(t, result.IterationConverged)
	// interest moved off the opening-debt figure once the average-debt
	// base includes the borrowing
	require.Greater(t, result.Interest, 200.0)
	require.True(t, result.IsBalanced)
}

func TestNonConvergentIteration(t *testing.T) {
	d := Driver{
		OpeningCash:  0,
		OpeningDebt:  100,
		InterestRate: 1.0,
		MinCash:      1000,
	}
	result := Calc(d, Options{Iterations: 3})
	require.False(t, result.IterationConverged)
	require.True(t, result.Diverging)
	require.Equal(t, 3, result.Iterations)

	diag := Diagnose(result)
	require.Contains(t, diag.Warnings, "iteration did not converge; figures are the last pass")
}

func TestZeroLifeDisablesDepreciation(t *testing.T) {
	d := scenarioFourDriver()
	d.FixedAssetLife = 0
	result := Calc(d, Options{})
	require.Equal(t, 0.0, result.Depreciation)
	require.Equal(t, 10000.0, result.ClosingFixedAssetNet)
}

func TestNegativeEBTPaysNoTax(t *testing.T) {
	d := Driver{
		Revenue:     100,
		Cost:        500,
		OpeningCash: 1000,
		TaxRate:     0.25,
	}
	result := Calc(d, Options{})
	require.Equal(t, 0.0, result.Tax)
	require.Equal(t, result.EBT, result.NetIncome)
}

func TestDriverRoundTripExtraFields(t *testing.T) {
	input := []byte(`{"revenue": 1000, "cost": 600, "opening_cash": 50, "analyst_note": "Q3 draft", "region": "east"}`)
	var d Driver
	require.NoError(t, json.Unmarshal(input, &d))
	require.NoError(t, d.Validate())
	require.Equal(t, "Q3 draft", d.Extra["analyst_note"])

	result := Calc(d, Options{})
	out, err := json.Marshal(result)
	require.NoError(t, err)

	var echoed map[string]any
	require.NoError(t, json.Unmarshal(out, &echoed))
	require.Equal(t, "Q3 draft", echoed["analyst_note"])
	require.Equal(t, "east", echoed["region"])
	require.Equal(t, 1000.0, echoed["revenue"])
}

func TestDriverValidationRequiresCoreFields(t *testing.T) {
	var d Driver
	require.NoError(t, json.Unmarshal([]byte(`{"revenue": 1}`), &d))
	err := d.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "cost")
}

func TestScenarioSweep(t *testing.T) {
	table, err := Scenario(scenarioFourDriver(), "interest_rate", []float64{0.05, 0.08, 0.10}, Options{})
	require.NoError(t, err)
	require.Equal(t, "interest_rate", table.VaryField)
	require.Len(t, table.Scenarios, 3)
	// higher rates eat into net income monotonically
	require.Greater(t, table.Scenarios[0].NetIncome, table.Scenarios[1].NetIncome)
	require.Greater(t, table.Scenarios[1].NetIncome, table.Scenarios[2].NetIncome)

	_, err = Scenario(scenarioFourDriver(), "unknown_field", []float64{1}, Options{})
	require.Error(t, err)
}

func TestDiagnoseCleanRun(t *testing.T) {
	result := Calc(scenarioFourDriver(), Options{})
	diag := Diagnose(result)
	require.Equal(t, "ok", diag.Status)
	require.True(t, diag.AllMatch)
	require.NotEmpty(t, diag.DeltaTable)
	require.Empty(t, diag.Mismatches)
}

func TestExplainNetIncomeTree(t *testing.T) {
	result := Calc(scenarioFourDriver(), Options{})
	explanation, err := Explain(result, "net_income")
	require.NoError(t, err)
	require.Contains(t, explanation.Formula, "net_income")
	require.Equal(t, 20000.0, explanation.Components["revenue"])
	require.Contains(t, explanation.Inputs, "depreciation")
	require.Contains(t, explanation.Inputs, "tax")
	require.Equal(t, 3800.0, explanation.Inputs["tax"].Components["ebt"])

	_, err = Explain(result, "nonsense")
	require.Error(t, err)
}

func TestCheckGradesInput(t *testing.T) {
	var d Driver
	require.NoError(t, json.Unmarshal([]byte(`{"revenue": 100, "cost": 400, "opening_cash": 10, "interest_rate": 0.5}`), &d))
	report := Check(d)
	require.Equal(t, "warning", report.Status)
	require.NotEmpty(t, report.Warnings)

	var bad Driver
	require.NoError(t, json.Unmarshal([]byte(`{"revenue": 100, "cost": 50, "opening_cash": 10, "tax_rate": -0.1}`), &bad))
	report = Check(bad)
	require.Equal(t, "error", report.Status)
}
