package balance

// Key identifies one balance row: account x period x dimension tuple.
// Absent dimensions are the zero sentinel, never null, so the index is
// keyed uniformly.
type Key struct {
	AccountCode string
	Period      string
	DeptID      int64
	ProjectID   int64
	CustomerID  int64
	SupplierID  int64
	EmployeeID  int64
}

// Balance is one row of the balance index. Monetary fields are in the
// functional currency; the foreign fields mirror them for multi-currency
// accounts.
type Balance struct {
	Key
	Opening float64
	Debit   float64
	Credit  float64
	Closing float64

	CurrencyCode   string
	ForeignOpening float64
	ForeignDebit   float64
	ForeignCredit  float64
	ForeignClosing float64
}

// Effect is the contribution of a single voucher entry to the index.
type Effect struct {
	AccountCode   string
	Debit         float64
	Credit        float64
	CurrencyCode  string
	ForeignDebit  float64
	ForeignCredit float64
	DeptID        int64
	ProjectID     int64
	CustomerID    int64
	SupplierID    int64
	EmployeeID    int64
}

// KeyFor builds the balance key an effect lands on in the given period.
func (e Effect) KeyFor(period string) Key {
	return Key{
		AccountCode: e.AccountCode,
		Period:      period,
		DeptID:      e.DeptID,
		ProjectID:   e.ProjectID,
		CustomerID:  e.CustomerID,
		SupplierID:  e.SupplierID,
		EmployeeID:  e.EmployeeID,
	}
}
