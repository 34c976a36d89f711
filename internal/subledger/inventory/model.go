package inventory

import "time"

// CostingMethod selects how issues are priced.
type CostingMethod string

const (
	CostingMovingAverage CostingMethod = "moving_average"
	CostingFIFO          CostingMethod = "fifo"
	CostingStandard      CostingMethod = "standard"
)

// Item is one SKU's card. OnHandQty and OnHandValue are the aggregate the
// moving-average method prices from; PendingQty carries a negative-stock
// deficit awaiting its cost correction.
type Item struct {
	SKU          string
	Name         string
	Unit         string
	Warehouse    string
	Method       CostingMethod
	StandardCost float64
	OnHandQty    float64
	OnHandValue  float64
	LastCost     float64
	PendingQty   float64
	PendingCost  float64
	CreatedAt    time.Time
}

// Batch is one receipt lot, consumed oldest-first under FIFO.
type Batch struct {
	ID       int64
	SKU      string
	Qty      float64
	UnitCost float64
	Date     time.Time
}

// MoveDirection distinguishes receipts from issues.
type MoveDirection string

const (
	MoveIn  MoveDirection = "in"
	MoveOut MoveDirection = "out"
)

// Move is one inventory movement with its cost lineage.
type Move struct {
	ID        int64
	SKU       string
	Direction MoveDirection
	Qty       float64
	UnitCost  float64
	Amount    float64
	Date      time.Time
	VoucherID int64
	// Pending marks an issue priced at last known cost because stock went
	// negative; the next receipt posts the correction.
	Pending bool
}
