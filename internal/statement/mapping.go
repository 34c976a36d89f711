package statement

import "github.com/meridian-ledger/meridian/internal/coa"

// SourceField names the balance-row field a line aggregates.
type SourceField string

const (
	SourceOpening   SourceField = "opening_balance"
	SourceClosing   SourceField = "closing_balance"
	SourceDebit     SourceField = "debit_total"
	SourceCredit    SourceField = "credit_total"
	SourceNetChange SourceField = "net_change"
)

// Sign orients a line: net changes read debit-minus-credit or the
// reverse; stored balances are already on the account's natural side.
type Sign string

const (
	SignDebit  Sign = "debit"
	SignCredit Sign = "credit"
)

// LineKind separates mapped aggregates from the computed net-income line.
type LineKind string

const (
	KindMapped    LineKind = "mapped"
	KindNetIncome LineKind = "net_income"
)

// DimFilter optionally narrows a line to one dimension tuple slice.
type DimFilter struct {
	DeptID     int64 `json:"dept_id,omitempty"`
	ProjectID  int64 `json:"project_id,omitempty"`
	CustomerID int64 `json:"customer_id,omitempty"`
	SupplierID int64 `json:"supplier_id,omitempty"`
	EmployeeID int64 `json:"employee_id,omitempty"`
}

// Line is one declarative statement line.
type Line struct {
	Name     string            `json:"name"`
	Kind     LineKind          `json:"kind,omitempty"`
	Prefixes []string          `json:"prefixes,omitempty"`
	Types    []coa.AccountType `json:"account_types,omitempty"`
	Source   SourceField       `json:"source,omitempty"`
	Sign     Sign              `json:"sign,omitempty"`
	// Negate subtracts the line from its section total (contra accounts,
	// working-capital increases, capex).
	Negate bool       `json:"negate,omitempty"`
	Dims   *DimFilter `json:"dims,omitempty"`
}

// Mapping is the full declarative statement document.
type Mapping struct {
	Assets      []Line `json:"assets"`
	Liabilities []Line `json:"liabilities"`
	Equity      []Line `json:"equity"`

	IncomeStatement []Line `json:"income_statement"`

	Operating []Line `json:"operating"`
	Investing []Line `json:"investing"`
	Financing []Line `json:"financing"`

	// CashCodes identify the accounts whose delta the cash-flow total
	// must reproduce.
	CashCodes []string `json:"cash_codes"`
}

// DefaultMapping renders the three statements from the seeded chart via
// the indirect method. Every seeded account is covered by exactly one
// balance-sheet group so the two identities hold by construction.
func DefaultMapping() Mapping {
	return Mapping{
		Assets: []Line{
			{Name: "cash_and_equivalents", Prefixes: []string{"1001", "1002", "1012"}, Source: SourceClosing},
			{Name: "receivables", Prefixes: []string{"1122", "1123"}, Source: SourceClosing},
			{Name: "bad_debt_provision", Prefixes: []string{"1231"}, Source: SourceClosing, Negate: true},
			{Name: "inventory", Prefixes: []string{"1403", "1405", "1411"}, Source: SourceClosing},
			{Name: "fixed_assets_gross", Prefixes: []string{"1601", "1604"}, Source: SourceClosing},
			{Name: "accumulated_depreciation", Prefixes: []string{"1602"}, Source: SourceClosing, Negate: true},
			{Name: "impairment_provision", Prefixes: []string{"1603"}, Source: SourceClosing, Negate: true},
		},
		Liabilities: []Line{
			{Name: "payables", Prefixes: []string{"2202", "2203", "2211", "2221"}, Source: SourceClosing},
			{Name: "borrowings", Prefixes: []string{"2001", "2501"}, Source: SourceClosing},
		},
		Equity: []Line{
			{Name: "paid_in_capital", Prefixes: []string{"4001", "4002"}, Source: SourceClosing},
			{Name: "reserves_and_retained", Prefixes: []string{"4101", "4103", "4104"}, Source: SourceClosing},
			{Name: "current_period_profit", Kind: KindNetIncome},
		},
		IncomeStatement: []Line{
			{Name: "revenue", Prefixes: []string{"6001", "6051"}, Source: SourceNetChange, Sign: SignCredit},
			{Name: "fx_gain", Prefixes: []string{"6061"}, Source: SourceNetChange, Sign: SignCredit},
			{Name: "investment_income", Prefixes: []string{"6111"}, Source: SourceNetChange, Sign: SignCredit},
			{Name: "non_operating_income", Prefixes: []string{"6301"}, Source: SourceNetChange, Sign: SignCredit},
			{Name: "cost_of_sales", Prefixes: []string{"6401", "6402"}, Source: SourceNetChange, Sign: SignDebit},
			{Name: "operating_expenses", Prefixes: []string{"6601", "6602", "6603"}, Source: SourceNetChange, Sign: SignDebit},
			{Name: "impairment_loss", Prefixes: []string{"6701"}, Source: SourceNetChange, Sign: SignDebit},
			{Name: "non_operating_expense", Prefixes: []string{"6711"}, Source: SourceNetChange, Sign: SignDebit},
			{Name: "income_tax", Prefixes: []string{"6801"}, Source: SourceNetChange, Sign: SignDebit},
		},
		Operating: []Line{
			{Name: "net_income", Kind: KindNetIncome},
			{Name: "depreciation", Prefixes: []string{"1602"}, Source: SourceNetChange, Sign: SignCredit},
			{Name: "impairment", Prefixes: []string{"1603", "1231"}, Source: SourceNetChange, Sign: SignCredit},
			{Name: "increase_in_receivables", Prefixes: []string{"1122", "1123"}, Source: SourceNetChange, Sign: SignDebit, Negate: true},
			{Name: "increase_in_inventory", Prefixes: []string{"1403", "1405", "1411"}, Source: SourceNetChange, Sign: SignDebit, Negate: true},
			{Name: "increase_in_payables", Prefixes: []string{"2202", "2203", "2211", "2221"}, Source: SourceNetChange, Sign: SignCredit},
		},
		Investing: []Line{
			{Name: "capital_expenditure", Prefixes: []string{"1601", "1604"}, Source: SourceNetChange, Sign: SignDebit, Negate: true},
		},
		Financing: []Line{
			{Name: "change_in_borrowings", Prefixes: []string{"2001", "2501"}, Source: SourceNetChange, Sign: SignCredit},
			{Name: "new_equity", Prefixes: []string{"4001", "4002"}, Source: SourceNetChange, Sign: SignCredit},
			{Name: "retained_and_reserves_movement", Prefixes: []string{"4101", "4103", "4104"}, Source: SourceNetChange, Sign: SignCredit},
		},
		CashCodes: []string{"1001", "1002", "1012"},
	}
}
