package model

import (
	"encoding/json"
	"fmt"
)

// Driver is the model-mode input record. Unknown fields are retained in
// Extra and echoed back unchanged so callers can round-trip their own
// annotations.
type Driver struct {
	Revenue      float64 `json:"revenue"`
	Cost         float64 `json:"cost"`
	OtherExpense float64 `json:"other_expense"`

	OpeningCash       float64 `json:"opening_cash"`
	OpeningDebt       float64 `json:"opening_debt"`
	OpeningEquity     float64 `json:"opening_equity"`
	OpeningRetained   float64 `json:"opening_retained"`
	OpeningReceivable float64 `json:"opening_receivable"`
	OpeningPayable    float64 `json:"opening_payable"`
	OpeningInventory  float64 `json:"opening_inventory"`

	FixedAssetCost    float64 `json:"fixed_asset_cost"`
	AccumDepreciation float64 `json:"accum_depreciation"`
	FixedAssetLife    float64 `json:"fixed_asset_life"`
	FixedAssetSalvage float64 `json:"fixed_asset_salvage"`

	InterestRate float64 `json:"interest_rate"`
	TaxRate      float64 `json:"tax_rate"`
	Dividend     float64 `json:"dividend"`
	Capex        float64 `json:"capex"`
	MinCash      float64 `json:"min_cash"`
	NewEquity    float64 `json:"new_equity"`
	Repayment    float64 `json:"repayment"`

	DeltaReceivable       float64 `json:"delta_receivable"`
	DeltaPayable          float64 `json:"delta_payable"`
	EstimatedDepreciation float64 `json:"estimated_depreciation"`

	// Closing overrides: nil means "derive from the opening balance".
	ClosingReceivable *float64 `json:"closing_receivable,omitempty"`
	ClosingPayable    *float64 `json:"closing_payable,omitempty"`
	ClosingInventory  *float64 `json:"closing_inventory,omitempty"`

	// Extra carries unrecognized fields through to the output.
	Extra map[string]any `json:"-"`

	present map[string]bool
}

// driverAlias avoids recursive UnmarshalJSON.
type driverAlias Driver

var knownDriverFields = map[string]bool{
	"revenue": true, "cost": true, "other_expense": true,
	"opening_cash": true, "opening_debt": true, "opening_equity": true,
	"opening_retained": true, "opening_receivable": true, "opening_payable": true,
	"opening_inventory": true, "fixed_asset_cost": true, "accum_depreciation": true,
	"fixed_asset_life": true, "fixed_asset_salvage": true, "interest_rate": true,
	"tax_rate": true, "dividend": true, "capex": true, "min_cash": true,
	"new_equity": true, "repayment": true, "delta_receivable": true,
	"delta_payable": true, "estimated_depreciation": true,
	"closing_receivable": true, "closing_payable": true, "closing_inventory": true,
}

// UnmarshalJSON decodes the known fields and stashes the rest in Extra.
func (d *Driver) UnmarshalJSON(data []byte) error {
	var alias driverAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = Driver(alias)
	d.present = make(map[string]bool, len(raw))
	for key := range raw {
		d.present[key] = true
	}
	for key, value := range raw {
		if knownDriverFields[key] {
			continue
		}
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			return err
		}
		if d.Extra == nil {
			d.Extra = make(map[string]any)
		}
		d.Extra[key] = v
	}
	return nil
}

// Has reports whether the field was present in the input document.
func (d *Driver) Has(field string) bool {
	return d.present[field]
}

// Validate enforces the required fields and basic sanity.
func (d *Driver) Validate() error {
	if d.present != nil {
		for _, field := range []string{"revenue", "cost", "opening_cash"} {
			if !d.present[field] {
				return fmt.Errorf("model: missing required field %q", field)
			}
		}
	}
	if d.InterestRate < 0 {
		return fmt.Errorf("model: interest_rate cannot be negative")
	}
	if d.TaxRate < 0 {
		return fmt.Errorf("model: tax_rate cannot be negative")
	}
	if d.FixedAssetLife < 0 {
		return fmt.Errorf("model: fixed_asset_life cannot be negative")
	}
	return nil
}
