package statement

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// RenderText formats a report as an aligned plain-text document, with
// locale-aware thousands separators.
func RenderText(report Report) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	fmt.Fprintf(&b, "Period %s\n\n", report.Period)
	section := func(title string, lines map[string]float64, totals ...string) {
		b.WriteString(title + "\n")
		totalSet := make(map[string]bool, len(totals))
		for _, t := range totals {
			totalSet[t] = true
		}
		names := make([]string, 0, len(lines))
		for name := range lines {
			if !totalSet[name] {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		for _, name := range names {
			p.Fprintf(&b, "  %-32s %16.2f\n", name, lines[name])
		}
		for _, name := range totals {
			if value, ok := lines[name]; ok {
				p.Fprintf(&b, "  %-32s %16.2f\n", strings.ToUpper(name), value)
			}
		}
		b.WriteString("\n")
	}

	section("Balance Sheet", report.BalanceSheet, "total_assets", "total_liabilities", "total_equity")
	section("Income Statement", report.IncomeStatement, "net_income")
	section("Cash Flow Statement", report.CashFlowStatement, "operating_cashflow", "investing_cashflow", "financing_cashflow", "net_change_in_cash")

	fmt.Fprintf(&b, "balanced=%t (diff %.2f)  cash_reconciled=%t (diff %.2f)\n",
		report.Validation.IsBalanced, report.Validation.BalanceDiff,
		report.Validation.CashReconciled, report.Validation.CashDiff)
	return b.String()
}
