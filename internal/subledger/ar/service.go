package ar

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

// Accounts names the ledger accounts the AR sub-ledger posts against.
type Accounts struct {
	Control        string
	Cash           string
	Revenue        string
	BadDebtExpense string
	Provision      string
}

// DefaultAccounts uses the seeded chart codes.
func DefaultAccounts() Accounts {
	return Accounts{
		Control:        "1122",
		Cash:           "1002",
		Revenue:        "6001",
		BadDebtExpense: "6701",
		Provision:      "1231",
	}
}

// Service manages receivables; every business operation re-enters the
// ledger through a balanced voucher.
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

// AddItemInput describes a new receivable.
type AddItemInput struct {
	Customer    string
	Amount      float64
	Date        time.Time
	Description string
}

// AddItem records the receivable and posts debit control / credit revenue.
func (s *Service) AddItem(ctx context.Context, in AddItemInput) (Item, error) {
	if in.Customer == "" {
		return Item{}, errors.New("ar: customer required")
	}
	if in.Amount <= 0 {
		return Item{}, errors.New("ar: amount must be positive")
	}
	amount := money.Round2(in.Amount)
	v, err := s.poster.Submit(ctx, voucher.SubmitInput{
		Date:          in.Date,
		Description:   in.Description,
		SourceEventID: "ar-item:" + uuid.NewString(),
		AutoConfirm:   true,
		Entries: []voucher.EntryInput{
			{Account: s.accounts.Control, Debit: amount, Customer: in.Customer, Description: in.Description},
			{Account: s.accounts.Revenue, Credit: amount, Customer: in.Customer, Description: in.Description},
		},
	})
	if err != nil {
		return Item{}, err
	}
	customerDim := int64(0)
	if len(v.Entries) > 0 {
		customerDim = v.Entries[0].CustomerID
	}
	return s.repo.InsertItem(ctx, Item{
		CustomerCode:  in.Customer,
		CustomerDimID: customerDim,
		Amount:        amount,
		Outstanding:   amount,
		InvoiceDate:   in.Date,
		Description:   in.Description,
		Status:        ItemStatusOpen,
		VoucherID:     v.ID,
	})
}

// Settle consumes an item partially or fully: debit cash, credit control.
func (s *Service) Settle(ctx context.Context, itemID int64, amount float64, date time.Time, description string) (Settlement, error) {
	if amount <= 0 {
		return Settlement{}, errors.New("ar: settlement amount must be positive")
	}
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return Settlement{}, err
	}
	if item.Status != ItemStatusOpen {
		return Settlement{}, shared.NewErrorf(shared.CodeInvalidStatus, "ar item %d is %s", itemID, item.Status)
	}
	amount = money.Round2(amount)
	if amount > item.Outstanding+money.Tolerance {
		return Settlement{}, fmt.Errorf("ar: settlement %.2f exceeds outstanding %.2f", amount, item.Outstanding)
	}
	v, err := s.poster.Submit(ctx, voucher.SubmitInput{
		Date:          date,
		Description:   description,
		SourceEventID: "ar-settle:" + uuid.NewString(),
		AutoConfirm:   true,
		Entries: []voucher.EntryInput{
			{Account: s.accounts.Cash, Debit: amount, Description: description},
			{Account: s.accounts.Control, Credit: amount, Customer: item.CustomerCode, Description: description},
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

// ListItems returns items filtered by status and customer.
func (s *Service) ListItems(ctx context.Context, status ItemStatus, customer string) ([]Item, error) {
	return s.repo.ListItems(ctx, status, customer)
}

// Aging buckets outstanding balances by days past invoice date:
// 0-30, 31-60, 61-90, >90.
func (s *Service) Aging(ctx context.Context, asOf time.Time, customer string) (AgingBucket, error) {
	items, err := s.repo.ListItems(ctx, ItemStatusOpen, customer)
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

// Provision applies per-bucket rates to outstanding balances and posts a
// bad-debt provision voucher. Returns the provisioned amount.
func (s *Service) Provision(ctx context.Context, asOf time.Time, rates ProvisionRates) (float64, error) {
	bucket, err := s.Aging(ctx, asOf, "")
	if err != nil {
		return 0, err
	}
	amount := money.Round2(bucket.Days0to30*rates.Rate0to30 +
		bucket.Days31to60*rates.Rate31to60 +
		bucket.Days61to90*rates.Rate61to90 +
		bucket.Over90*rates.RateOver90)
	if money.IsZero(amount) {
		return 0, nil
	}
	_, err = s.poster.Submit(ctx, voucher.SubmitInput{
		Date:          asOf,
		Description:   "bad debt provision",
		SourceEventID: "ar-provision:" + asOf.Format("2006-01-02"),
		AutoConfirm:   true,
		Entries: []voucher.EntryInput{
			{Account: s.accounts.BadDebtExpense, Debit: amount},
			{Account: s.accounts.Provision, Credit: amount},
		},
	})
	if err != nil {
		return 0, err
	}
	return amount, nil
}

// ReverseProvision symmetrically unwinds a prior provision.
func (s *Service) ReverseProvision(ctx context.Context, date time.Time, amount float64) error {
	if amount <= 0 {
		return errors.New("ar: reversal amount must be positive")
	}
	amount = money.Round2(amount)
	_, err := s.poster.Submit(ctx, voucher.SubmitInput{
		Date:          date,
		Description:   "bad debt provision reversal",
		SourceEventID: "ar-provision-reverse:" + uuid.NewString(),
		AutoConfirm:   true,
		Entries: []voucher.EntryInput{
			{Account: s.accounts.Provision, Debit: amount},
			{Account: s.accounts.BadDebtExpense, Credit: amount},
		},
	})
	return err
}
