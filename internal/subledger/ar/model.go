package ar

import "time"

// ItemStatus tracks settlement progress of a receivable.
type ItemStatus string

const (
	ItemStatusOpen    ItemStatus = "open"
	ItemStatusSettled ItemStatus = "settled"
)

// Item is one receivable: the sub-ledger is the authority for the
// outstanding amount, the ledger for the monetary posting.
type Item struct {
	ID            int64
	CustomerCode  string
	CustomerDimID int64
	Amount        float64
	Outstanding   float64
	InvoiceDate   time.Time
	Description   string
	Status        ItemStatus
	VoucherID     int64
	CreatedAt     time.Time
}

// Settlement consumes part or all of an item.
type Settlement struct {
	ID        int64
	ItemID    int64
	Amount    float64
	Date      time.Time
	VoucherID int64
}

// AgingBucket groups outstanding balances by days past invoice date.
type AgingBucket struct {
	Days0to30  float64 `json:"days_0_30"`
	Days31to60 float64 `json:"days_31_60"`
	Days61to90 float64 `json:"days_61_90"`
	Over90     float64 `json:"over_90"`
}

// Total sums all buckets.
func (b AgingBucket) Total() float64 {
	return b.Days0to30 + b.Days31to60 + b.Days61to90 + b.Over90
}

// ProvisionRates carries the per-bucket bad-debt percentages.
type ProvisionRates struct {
	Rate0to30  float64 `json:"rate_0_30"`
	Rate31to60 float64 `json:"rate_31_60"`
	Rate61to90 float64 `json:"rate_61_90"`
	RateOver90 float64 `json:"rate_over_90"`
}
