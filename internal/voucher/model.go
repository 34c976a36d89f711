package voucher

import "time"

// Status enumerates the voucher lifecycle.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusReviewed  Status = "reviewed"
	StatusConfirmed Status = "confirmed"
	StatusVoided    Status = "voided"
)

// EntryType distinguishes normal postings from period-adjustment postings.
type EntryType string

const (
	EntryTypeNormal     EntryType = "normal"
	EntryTypeAdjustment EntryType = "adjustment"
)

// Voucher is the atomic unit of posting. VoucherNo is assigned at first
// confirmation and never reused, even after void.
type Voucher struct {
	ID             int64
	VoucherNo      string
	Date           time.Time
	Period         string
	Description    string
	Status         Status
	EntryType      EntryType
	SourceTemplate string
	SourceEventID  string
	VoidReason     string
	VoidOf         int64
	CreatedAt      time.Time
	ConfirmedAt    *time.Time
	VoidedAt       *time.Time
	Entries        []Entry
}

// Entry is one debit or credit line, ordered by LineNo within its voucher.
type Entry struct {
	ID          int64
	VoucherID   int64
	LineNo      int
	AccountCode string
	AccountName string
	Description string
	Debit       float64
	Credit      float64

	CurrencyCode  string
	FXRate        float64
	ForeignDebit  float64
	ForeignCredit float64

	DeptID     int64
	ProjectID  int64
	CustomerID int64
	SupplierID int64
	EmployeeID int64
}

// VoidLink pairs an original voucher with its red-letter reversal.
type VoidLink struct {
	ID                int64
	OriginalVoucherID int64
	VoidVoucherID     int64
	Reason            string
	CreatedAt         time.Time
}

// Filter narrows voucher lookups.
type Filter struct {
	VoucherNo         string
	Period            string
	Status            Status
	AccountCode       string
	SourceEventPrefix string
	Limit             int
}
