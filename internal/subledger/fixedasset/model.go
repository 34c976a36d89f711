package fixedasset

import "time"

// Method enumerates depreciation methods.
type Method string

const (
	MethodStraightLine    Method = "straight-line"
	MethodDoubleDeclining Method = "double-declining"
	MethodSumOfYears      Method = "sum-of-years"
)

// Status of an asset card.
type Status string

const (
	StatusActive   Status = "active"
	StatusDisposed Status = "disposed"
)

// Asset is one fixed-asset card. MonthsDepreciated drives the
// year-indexed methods.
type Asset struct {
	ID                int64
	Name              string
	Cost              float64
	Salvage           float64
	LifeYears         int
	Method            Method
	AccumDepreciation float64
	Impairment        float64
	MonthsDepreciated int
	AcquiredAt        time.Time
	Status            Status
	DeptID            int64
	ProjectID         int64
	VoucherID         int64
	CreatedAt         time.Time
}

// NetBookValue is cost less accumulated depreciation and impairment.
func (a Asset) NetBookValue() float64 {
	return a.Cost - a.AccumDepreciation - a.Impairment
}

// DepreciableBase is what straight-line spreads over the life.
func (a Asset) DepreciableBase() float64 {
	return a.Cost - a.Salvage - a.Impairment
}

// CIPStatus of a construction-in-progress project.
type CIPStatus string

const (
	CIPStatusActive      CIPStatus = "active"
	CIPStatusTransferred CIPStatus = "transferred"
)

// CIPProject accumulates construction costs before transfer to an asset.
type CIPProject struct {
	ID          int64
	Name        string
	Cost        float64
	Transferred float64
	Status      CIPStatus
	CreatedAt   time.Time
}

// Remaining is the untransferred cost.
func (p CIPProject) Remaining() float64 {
	return p.Cost - p.Transferred
}

// CIPTransfer records one transfer from a project to an asset card.
type CIPTransfer struct {
	ID        int64
	ProjectID int64
	AssetID   int64
	Amount    float64
	Date      time.Time
	VoucherID int64
}
