package ar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-ledger/meridian/internal/shared"
	"github.com/meridian-ledger/meridian/internal/voucher"
)

type memoryARRepo struct {
	items       map[int64]*Item
	settlements []Settlement
	nextItem    int64
	nextSettle  int64
}

func newMemoryARRepo() *memoryARRepo {
	return &memoryARRepo{items: make(map[int64]*Item)}
}

func (r *memoryARRepo) InsertItem(_ context.Context, item Item) (Item, error) {
	r.nextItem++
	item.ID = r.nextItem
	item.CreatedAt = time.Now()
	stored := item
	r.items[item.ID] = &stored
	return item, nil
}

func (r *memoryARRepo) GetItem(_ context.Context, id int64) (Item, error) {
	it, ok := r.items[id]
	if !ok {
		return Item{}, shared.ErrNotFound
	}
	return *it, nil
}

func (r *memoryARRepo) UpdateItem(_ context.Context, id int64, outstanding float64, status ItemStatus) error {
	it, ok := r.items[id]
	if !ok {
		return shared.ErrNotFound
	}
	it.Outstanding = outstanding
	it.Status = status
	return nil
}

func (r *memoryARRepo) ListItems(_ context.Context, status ItemStatus, customer string) ([]Item, error) {
	var out []Item
	for _, it := range r.items {
		if status != "" && it.Status != status {
			continue
		}
		if customer != "" && it.CustomerCode != customer {
			continue
		}
		out = append(out, *it)
	}
	return out, nil
}

func (r *memoryARRepo) InsertSettlement(_ context.Context, s Settlement) (Settlement, error) {
	r.nextSettle++
	s.ID = r.nextSettle
	r.settlements = append(r.settlements, s)
	return s, nil
}

func (r *memoryARRepo) ListSettlements(_ context.Context, itemID int64) ([]Settlement, error) {
	var out []Settlement
	for _, s := range r.settlements {
		if s.ItemID == itemID {
			out = append(out, s)
		}
	}
	return out, nil
}

// capturePoster records submissions and tracks the control account's
// running balance the way the ledger would.
type capturePoster struct {
	submitted      []voucher.SubmitInput
	nextID         int64
	controlBalance map[string]float64
}

func newCapturePoster() *capturePoster {
	return &capturePoster{controlBalance: make(map[string]float64)}
}

func (p *capturePoster) Submit(_ context.Context, in voucher.SubmitInput) (voucher.Voucher, error) {
	if err := in.Validate(); err != nil {
		return voucher.Voucher{}, err
	}
	p.submitted = append(p.submitted, in)
	p.nextID++
	v := voucher.Voucher{ID: p.nextID, Status: voucher.StatusConfirmed, Date: in.Date}
	for idx, e := range in.Entries {
		p.controlBalance[e.Account] += e.Debit - e.Credit
		entry := voucher.Entry{VoucherID: v.ID, LineNo: idx + 1, AccountCode: e.Account, Debit: e.Debit, Credit: e.Credit}
		if e.Customer != "" {
			entry.CustomerID = 7
		}
		v.Entries = append(v.Entries, entry)
	}
	return v, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddItemPostsVoucher(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryARRepo()
	poster := newCapturePoster()
	svc := NewService(repo, poster, DefaultAccounts())

	item, err := svc.AddItem(ctx, AddItemInput{Customer: "C001", Amount: 1200, Date: day(2025, 1, 10), Description: "invoice 1"})
	require.NoError(t, err)
	require.Equal(t, 1200.0, item.Outstanding)
	require.Equal(t, ItemStatusOpen, item.Status)
	require.Equal(t, int64(7), item.CustomerDimID)

	require.Len(t, poster.submitted, 1)
	entries := poster.submitted[0].Entries
	require.Equal(t, "1122", entries[0].Account)
	require.Equal(t, 1200.0, entries[0].Debit)
	require.Equal(t, "6001", entries[1].Account)
	require.Equal(t, 1200.0, entries[1].Credit)
}

func TestSettlePartialThenFull(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryARRepo()
	poster := newCapturePoster()
	svc := NewService(repo, poster, DefaultAccounts())

	item, err := svc.AddItem(ctx, AddItemInput{Customer: "C001", Amount: 1000, Date: day(2025, 1, 10)})
	require.NoError(t, err)

	_, err = svc.Settle(ctx, item.ID, 400, day(2025, 1, 20), "first payment")
	require.NoError(t, err)
	after, err := svc.repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, 600.0, after.Outstanding)
	require.Equal(t, ItemStatusOpen, after.Status)

	_, err = svc.Settle(ctx, item.ID, 600, day(2025, 2, 1), "final payment")
	require.NoError(t, err)
	after, err = svc.repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, 0.0, after.Outstanding)
	require.Equal(t, ItemStatusSettled, after.Status)

	// settlement vouchers: debit cash, credit control
	settleEntries := poster.submitted[1].Entries
	require.Equal(t, "1002", settleEntries[0].Account)
	require.Equal(t, 400.0, settleEntries[0].Debit)
	require.Equal(t, "1122", settleEntries[1].Account)
	require.Equal(t, 400.0, settleEntries[1].Credit)
}

func TestSettleOverpaymentRejected(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryARRepo(), newCapturePoster(), DefaultAccounts())

	item, err := svc.AddItem(ctx, AddItemInput{Customer: "C001", Amount: 100, Date: day(2025, 1, 10)})
	require.NoError(t, err)

	_, err = svc.Settle(ctx, item.ID, 150, day(2025, 1, 20), "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "exceeds outstanding")
}

func TestAgingBucketsAndControlReconcile(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryARRepo()
	poster := newCapturePoster()
	svc := NewService(repo, poster, DefaultAccounts())

	asOf := day(2025, 4, 30)
	_, err := svc.AddItem(ctx, AddItemInput{Customer: "C001", Amount: 100, Date: asOf.AddDate(0, 0, -10)})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, AddItemInput{Customer: "C001", Amount: 200, Date: asOf.AddDate(0, 0, -45)})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, AddItemInput{Customer: "C002", Amount: 300, Date: asOf.AddDate(0, 0, -75)})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, AddItemInput{Customer: "C002", Amount: 400, Date: asOf.AddDate(0, 0, -120)})
	require.NoError(t, err)

	bucket, err := svc.Aging(ctx, asOf, "")
	require.NoError(t, err)
	require.Equal(t, 100.0, bucket.Days0to30)
	require.Equal(t, 200.0, bucket.Days31to60)
	require.Equal(t, 300.0, bucket.Days61to90)
	require.Equal(t, 400.0, bucket.Over90)

	// the bucket total equals the control account balance the postings built
	require.Equal(t, poster.controlBalance["1122"], bucket.Total())
}

func TestProvisionByBucketRates(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryARRepo()
	poster := newCapturePoster()
	svc := NewService(repo, poster, DefaultAccounts())

	asOf := day(2025, 4, 30)
	_, err := svc.AddItem(ctx, AddItemInput{Customer: "C001", Amount: 1000, Date: asOf.AddDate(0, 0, -10)})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, AddItemInput{Customer: "C002", Amount: 2000, Date: asOf.AddDate(0, 0, -120)})
	require.NoError(t, err)

	amount, err := svc.Provision(ctx, asOf, ProvisionRates{Rate0to30: 0.01, RateOver90: 0.5})
	require.NoError(t, err)
	require.Equal(t, 1010.0, amount) // 1000*0.01 + 2000*0.50

	last := poster.submitted[len(poster.submitted)-1]
	require.Equal(t, "6701", last.Entries[0].Account)
	require.Equal(t, 1010.0, last.Entries[0].Debit)
	require.Equal(t, "1231", last.Entries[1].Account)
	require.Equal(t, 1010.0, last.Entries[1].Credit)

	// reversal is symmetric
	require.NoError(t, svc.ReverseProvision(ctx, asOf, 1010))
	reversal := poster.submitted[len(poster.submitted)-1]
	require.Equal(t, "1231", reversal.Entries[0].Account)
	require.Equal(t, 1010.0, reversal.Entries[0].Debit)
}
