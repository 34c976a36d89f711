package ap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-ledger/meridian/internal/money"
	"github.com/meridian-ledger/meridian/internal/shared"
	"github.com/meridian-ledger/meridian/internal/voucher"
)

// Poster submits balanced vouchers to the ledger.
type Poster interface {
	Submit(ctx context.Context, in voucher.SubmitInput) (voucher.Voucher, error)
}

// Accounts names the ledger accounts the AP sub-ledger posts against.
type Accounts struct {
	Control  string
	Cash     string
	Purchase string
}

// DefaultAccounts uses the seeded chart codes.
func DefaultAccounts() Accounts {
	return Accounts{Control: "2202", Cash: "1002", Purchase: "1403"}
}

// Service manages payables, the mirror of the AR sub-ledger.
type Service struct {
	repo     RepositoryPort
	poster   Poster
	accounts Accounts
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, poster Poster, accounts Accounts) *Service {
	return &Service{repo: repo, poster: poster, accounts: accounts, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// AddItemInput describes a new payable.
type AddItemInput struct {
	Supplier    string
	Amount      float64
	Date        time.Time
	Description string
}

// AddItem records the payable: debit purchases, credit control.
func (s *Service) AddItem(ctx context.Context, in AddItemInput) (Item, error) {
	if in.Supplier == "" {
		return Item{}, errors.New("ap: supplier required")
	}
	if in.Amount <= 0 {
		return Item{}, errors.New("ap: amount must be positive")
	}
	amount := money.Round2(in.Amount)
	v, err := s.poster.Submit(ctx, voucher.SubmitInput{
		Date:          in.Date,
		Description:   in.Description,
		SourceEventID: "ap-item:" + uuid.NewString(),
		AutoConfirm:   true,
		Entries: []voucher.EntryInput{
			{Account: s.accounts.Purchase, Debit: amount, Supplier: in.Supplier, Description: in.Description},
			{Account: s.accounts.Control, Credit: amount, Supplier: in.Supplier, Description: in.Description},
		},
	})
	if err != nil {
		return Item{}, err
	}
	supplierDim := int64(0)
	if len(v.Entries) > 0 {
		supplierDim = v.Entries[0].SupplierID
	}
	return s.repo.InsertItem(ctx, Item{
		SupplierCode:  in.Supplier,
		SupplierDimID: supplierDim,
		Amount:        amount,
		Outstanding:   amount,
		InvoiceDate:   in.Date,
		Description:   in.Description,
		Status:        ItemStatusOpen,
		VoucherID:     v.ID,
	})
}

// Settle pays down an item: debit control, credit cash.
func (s *Service) Settle(ctx context.Context, itemID int64, amount float64, date time.Time, description string) (Settlement, error) {
	if amount <= 0 {
		return Settlement{}, errors.New("ap: settlement amount must be positive")
	}
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return Settlement{}, err
	}
	if item.Status != ItemStatusOpen {
		return Settlement{}, shared.NewErrorf(shared.CodeInvalidStatus, "ap item %d is %s", itemID, item.Status)
	}
	amount = money.Round2(amount)
	if amount > item.Outstanding+money.Tolerance {
		return Settlement{}, fmt.Errorf("ap: settlement %.2f exceeds outstanding %.2f", amount, item.Outstanding)
	}
	v, err := s.poster.Submit(ctx, voucher.SubmitInput{
		Date:          date,
		Description:   description,
		SourceEventID: "ap-settle:" + uuid.NewString(),
		AutoConfirm:   true,
		Entries: []voucher.EntryInput{
			{Account: s.accounts.Control, Debit: amount, Supplier: item.SupplierCode, Description: description},
			{Account: s.accounts.Cash, Credit: amount, Description: description},
		},
	})
	if err != nil {
		return Settlement{}, err
	}
	remaining := money.Round2(item.Outstanding - amount)
	status := ItemStatusOpen
	if money.IsZero(remaining) {
		remaining = 0
		status = ItemStatusSettled
	}
	if err := s.repo.UpdateItem(ctx, itemID, remaining, status); err != nil {
		return Settlement{}, err
	}
	return s.repo.InsertSettlement(ctx, Settlement{ItemID: itemID, Amount: amount, Date: date, VoucherID: v.ID})
}

// ListItems returns items filtered by status and supplier.
func (s *Service) ListItems(ctx context.Context, status ItemStatus, supplier string) ([]Item, error) {
	return s.repo.ListItems(ctx, status, supplier)
}

// Aging buckets outstanding balances by days past invoice date.
func (s *Service) Aging(ctx context.Context, asOf time.Time, supplier string) (AgingBucket, error) {
	items, err := s.repo.ListItems(ctx, ItemStatusOpen, supplier)
	if err != nil {
		return AgingBucket{}, err
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	var bucket AgingBucket
	for _, item := range items {
		days := int(asOf.Sub(item.InvoiceDate).Hours() / 24)
		switch {
		case days <= 30:
			bucket.Days0to30 += item.Outstanding
		case days <= 60:
			bucket.Days31to60 += item.Outstanding
		case days <= 90:
			bucket.Days61to90 += item.Outstanding
		default:
			bucket.Over90 += item.Outstanding
		}
	}
	bucket.Days0to30 = money.Round2(bucket.Days0to30)
	bucket.Days31to60 = money.Round2(bucket.Days31to60)
	bucket.Days61to90 = money.Round2(bucket.Days61to90)
	bucket.Over90 = money.Round2(bucket.Over90)
	return bucket, nil
}
