package fx

import "time"

// Currency is one bookable currency.
type Currency struct {
	Code      string
	Name      string
	Symbol    string
	Precision int
	Active    bool
	CreatedAt time.Time
}

// RateType distinguishes spot, period-closing, and average rates.
type RateType string

const (
	RateTypeSpot    RateType = "spot"
	RateTypeClosing RateType = "closing"
	RateTypeAverage RateType = "average"
)

// Rate is one exchange-rate observation, six decimal places.
type Rate struct {
	Currency string
	Date     time.Time
	Rate     float64
	Type     RateType
	Source   string
}

// RevaluationLine reports one account's revaluation outcome.
type RevaluationLine struct {
	AccountCode       string
	Currency          string
	ForeignClosing    float64
	FunctionalClosing float64
	Rate              float64
	Delta             float64
	VoucherNo         string
}

// RevaluationResult is the period-end revaluation batch.
type RevaluationResult struct {
	Period    string
	RateType  RateType
	Lines     []RevaluationLine
	TotalGain float64
	TotalLoss float64
}
