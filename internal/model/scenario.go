package model

import "fmt"

// ScenarioRow is one swept value's headline figures.
type ScenarioRow struct {
	Value       float64 `json:"value"`
	NetIncome   float64 `json:"net_income"`
	ClosingCash float64 `json:"closing_cash"`
	ClosingDebt float64 `json:"closing_debt"`
	IsBalanced  bool    `json:"is_balanced"`
}

// ScenarioTable is the sweep result keyed by the varied field.
type ScenarioTable struct {
	VaryField string        `json:"vary_field"`
	Scenarios []ScenarioRow `json:"scenarios"`
}

// Scenario re-runs the calculation for each value of one driver field.
func Scenario(d Driver, field string, values []float64, opts Options) (ScenarioTable, error) {
	set, ok := driverSetters[field]
	if !ok {
		return ScenarioTable{}, fmt.Errorf("model: cannot vary field %q", field)
	}
	table := ScenarioTable{VaryField: field}
	for _, value := range values {
		variant := d
		set(&variant, value)
		result := Calc(variant, opts)
		table.Scenarios = append(table.Scenarios, ScenarioRow{
			Value:       value,
			NetIncome:   result.NetIncome,
			ClosingCash: result.ClosingCash,
			ClosingDebt: result.ClosingDebt,
			IsBalanced:  result.IsBalanced,
		})
	}
	return table, nil
}

// driverSetters maps sweepable field names onto the driver record.
var driverSetters = map[string]func(*Driver, float64){
	"revenue":            func(d *Driver, v float64) { d.Revenue = v },
	"cost":               func(d *Driver, v float64) { d.Cost = v },
	"other_expense":      func(d *Driver, v float64) { d.OtherExpense = v },
	"opening_cash":       func(d *Driver, v float64) { d.OpeningCash = v },
	"opening_debt":       func(d *Driver, v float64) { d.OpeningDebt = v },
	"interest_rate":      func(d *Driver, v float64) { d.InterestRate = v },
	"tax_rate":           func(d *Driver, v float64) { d.TaxRate = v },
	"dividend":           func(d *Driver, v float64) { d.Dividend = v },
	"capex":              func(d *Driver, v float64) { d.Capex = v },
	"min_cash":           func(d *Driver, v float64) { d.MinCash = v },
	"new_equity":         func(d *Driver, v float64) { d.NewEquity = v },
	"repayment":          func(d *Driver, v float64) { d.Repayment = v },
	"fixed_asset_cost":   func(d *Driver, v float64) { d.FixedAssetCost = v },
	"fixed_asset_life":   func(d *Driver, v float64) { d.FixedAssetLife = v },
	"fixed_asset_salvage": func(d *Driver, v float64) { d.FixedAssetSalvage = v },
}
