package statement

import (
	"context"
	"strings"

	"github.com/meridian-ledger/meridian/internal/balance"
	"github.com/meridian-ledger/meridian/internal/coa"
	"github.com/meridian-ledger/meridian/internal/money"
	"github.com/meridian-ledger/meridian/internal/shared"
)

// BalanceReader reads the balance index for one period.
type BalanceReader interface {
	PeriodBalances(ctx context.Context, period string) ([]balance.Balance, error)
}

// AccountDirectory supplies account types for selector matching.
type AccountDirectory interface {
	ListAccounts(ctx context.Context, onlyEnabled bool) ([]coa.Account, error)
}

// Validation carries the two identity checks of a report.
type Validation struct {
	IsBalanced     bool    `json:"is_balanced"`
	BalanceDiff    float64 `json:"balance_diff"`
	CashReconciled bool    `json:"cash_reconciled"`
	CashDiff       float64 `json:"cash_diff"`
}

// Report is the three-statement output of one period.
type Report struct {
	Period             string             `json:"period"`
	BalanceSheet       map[string]float64 `json:"balance_sheet"`
	IncomeStatement    map[string]float64 `json:"income_statement"`
	CashFlowStatement  map[string]float64 `json:"cash_flow_statement"`
	Validation         Validation         `json:"validation"`
}

// Builder derives the three statements from the balance index through a
// declarative mapping.
type Builder struct {
	balances BalanceReader
	chart    AccountDirectory
	mapping  Mapping
}

// NewBuilder builds a Builder over the given mapping.
func NewBuilder(balances BalanceReader, chart AccountDirectory, mapping Mapping) *Builder {
	return &Builder{balances: balances, chart: chart, mapping: mapping}
}

// Build renders one period's statements and asserts the accounting
// identities. A report whose identities break is returned together with
// an IDENTITY_VIOLATION error so the caller sees both the numbers and
// the failure.
func (b *Builder) Build(ctx context.Context, period string) (Report, error) {
	rows, err := b.balances.PeriodBalances(ctx, period)
	if err != nil {
		return Report{}, err
	}
	accounts, err := b.chart.ListAccounts(ctx, false)
	if err != nil {
		return Report{}, err
	}
	types := make(map[string]coa.AccountType, len(accounts))
	for _, a := range accounts {
		types[a.Code] = a.Type
	}

	report := Report{
		Period:            period,
		BalanceSheet:      make(map[string]float64),
		IncomeStatement:   make(map[string]float64),
		CashFlowStatement: make(map[string]float64),
	}

	// income statement first: the net-income line feeds equity and the
	// operating section
	var netIncome float64
	for _, line := range b.mapping.IncomeStatement {
		value := b.lineValue(line, rows, types)
		report.IncomeStatement[line.Name] = value
		if line.Sign == SignCredit {
			netIncome += value
		} else {
			netIncome -= value
		}
	}
	netIncome = money.Round2(netIncome)
	report.IncomeStatement["net_income"] = netIncome

	sum := func(lines []Line) float64 {
		var total float64
		for _, line := range lines {
			var value float64
			if line.Kind == KindNetIncome {
				value = netIncome
			} else {
				value = b.lineValue(line, rows, types)
			}
			if line.Negate {
				total -= value
			} else {
				total += value
			}
		}
		return money.Round2(total)
	}

	fill := func(section map[string]float64, lines []Line) float64 {
		for _, line := range lines {
			if line.Kind == KindNetIncome {
				section[line.Name] = netIncome
				continue
			}
			section[line.Name] = b.lineValue(line, rows, types)
		}
		return sum(lines)
	}

	totalAssets := fill(report.BalanceSheet, b.mapping.Assets)
	totalLiabilities := fill(report.BalanceSheet, b.mapping.Liabilities)
	totalEquity := fill(report.BalanceSheet, b.mapping.Equity)
	report.BalanceSheet["total_assets"] = totalAssets
	report.BalanceSheet["total_liabilities"] = totalLiabilities
	report.BalanceSheet["total_equity"] = totalEquity

	operating := fill(report.CashFlowStatement, b.mapping.Operating)
	investing := fill(report.CashFlowStatement, b.mapping.Investing)
	financing := fill(report.CashFlowStatement, b.mapping.Financing)
	report.CashFlowStatement["operating_cashflow"] = operating
	report.CashFlowStatement["investing_cashflow"] = investing
	report.CashFlowStatement["financing_cashflow"] = financing
	report.CashFlowStatement["net_change_in_cash"] = money.Round2(operating + investing + financing)

	openingCash, closingCash := b.cashPosition(rows)
	report.CashFlowStatement["opening_cash"] = openingCash
	report.CashFlowStatement["closing_cash"] = closingCash

	report.Validation.BalanceDiff = money.Round2(totalAssets - totalLiabilities - totalEquity)
	report.Validation.IsBalanced = money.IsZero(report.Validation.BalanceDiff)
	report.Validation.CashDiff = money.Round2((operating + investing + financing) - (closingCash - openingCash))
	report.Validation.CashReconciled = money.IsZero(report.Validation.CashDiff)

	if !report.Validation.IsBalanced {
		return report, shared.NewErrorf(shared.CodeIdentityViolation,
			"assets %.2f do not equal liabilities %.2f plus equity %.2f", totalAssets, totalLiabilities, totalEquity).
			WithDetails(map[string]any{"balance_diff": report.Validation.BalanceDiff, "period": period})
	}
	if !report.Validation.CashReconciled {
		return report, shared.NewErrorf(shared.CodeIdentityViolation,
			"cash flow %.2f does not explain the cash delta %.2f", operating+investing+financing, closingCash-openingCash).
			WithDetails(map[string]any{"cash_diff": report.Validation.CashDiff, "period": period})
	}
	return report, nil
}

// lineValue aggregates the rows a line selects.
func (b *Builder) lineValue(line Line, rows []balance.Balance, types map[string]coa.AccountType) float64 {
	var total float64
	for _, row := range rows {
		if !matches(line, row, types) {
			continue
		}
		switch line.Source {
		case SourceOpening:
			total += row.Opening
		case SourceDebit:
			total += row.Debit
		case SourceCredit:
			total += row.Credit
		case SourceNetChange:
			change := row.Debit - row.Credit
			if line.Sign == SignCredit {
				change = -change
			}
			total += change
		default: // closing_balance
			total += row.Closing
		}
	}
	return money.Round2(total)
}

func matches(line Line, row balance.Balance, types map[string]coa.AccountType) bool {
	if len(line.Prefixes) == 0 && len(line.Types) == 0 {
		return false
	}
	if len(line.Prefixes) > 0 {
		found := false
		for _, p := range line.Prefixes {
			if strings.HasPrefix(row.AccountCode, p) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(line.Types) > 0 {
		accountType := types[row.AccountCode]
		found := false
		for _, t := range line.Types {
			if t == accountType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if line.Dims != nil {
		d := line.Dims
		if d.DeptID != 0 && row.DeptID != d.DeptID {
			return false
		}
		if d.ProjectID != 0 && row.ProjectID != d.ProjectID {
			return false
		}
		if d.CustomerID != 0 && row.CustomerID != d.CustomerID {
			return false
		}
		if d.SupplierID != 0 && row.SupplierID != d.SupplierID {
			return false
		}
		if d.EmployeeID != 0 && row.EmployeeID != d.EmployeeID {
			return false
		}
	}
	return true
}

func (b *Builder) cashPosition(rows []balance.Balance) (opening, closing float64) {
	for _, row := range rows {
		for _, code := range b.mapping.CashCodes {
			if row.AccountCode == code {
				opening += row.Opening
				closing += row.Closing
				break
			}
		}
	}
	return money.Round2(opening), money.Round2(closing)
}
