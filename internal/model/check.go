package model

import "fmt"

// CheckReport grades a driver record before it runs.
type CheckReport struct {
	Status        string   `json:"status"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	CheckedFields int      `json:"checked_fields"`
}

// Check validates driver plausibility: hard errors stop a run, warnings
// flag inputs an analyst should look at twice.
func Check(d Driver) CheckReport {
	var report CheckReport

	for _, field := range []string{"revenue", "cost", "opening_cash"} {
		if d.present != nil && !d.present[field] {
			report.Errors = append(report.Errors, fmt.Sprintf("missing required field: %s", field))
		}
	}

	if d.Cost > d.Revenue*1.5 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("cost (%.2f) far exceeds revenue (%.2f)", d.Cost, d.Revenue))
	}
	if d.InterestRate > 0.3 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("interest rate (%.1f%%) is unusually high; 3%%-15%% is typical", d.InterestRate*100))
	}
	if d.InterestRate < 0 {
		report.Errors = append(report.Errors, fmt.Sprintf("interest rate (%.4f) cannot be negative", d.InterestRate))
	}
	if d.TaxRate > 0.5 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("tax rate (%.1f%%) is unusually high", d.TaxRate*100))
	}
	if d.TaxRate < 0 {
		report.Errors = append(report.Errors, fmt.Sprintf("tax rate (%.4f) cannot be negative", d.TaxRate))
	}
	if d.FixedAssetLife < 0 {
		report.Errors = append(report.Errors, fmt.Sprintf("fixed asset life (%.0f) cannot be negative", d.FixedAssetLife))
	}
	if d.OpeningCash < 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("opening cash (%.2f) is negative", d.OpeningCash))
	}

	if totalEquity := d.OpeningEquity + d.OpeningRetained; totalEquity > 0 {
		ratio := d.OpeningDebt / (d.OpeningDebt + totalEquity)
		if ratio > 0.8 {
			report.Warnings = append(report.Warnings, fmt.Sprintf("opening leverage (%.1f%%) exceeds 80%%", ratio*100))
		}
	}

	report.CheckedFields = len(d.present)
	switch {
	case len(report.Errors) > 0:
		report.Status = "error"
	case len(report.Warnings) > 0:
		report.Status = "warning"
	default:
		report.Status = "ok"
	}
	return report
}
