package ap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-ledger/meridian/internal/shared"
	"github.com/meridian-ledger/meridian/internal/voucher"
)

type memoryAPRepo struct {
	items       map[int64]*Item
	settlements []Settlement
	nextItem    int64
}

func newMemoryAPRepo() *memoryAPRepo {
	return &memoryAPRepo{items: make(map[int64]*Item)}
}

func (r *memoryAPRepo) InsertItem(_ context.Context, item Item) (Item, error) {
	r.nextItem++
	item.ID = r.nextItem
	stored := item
	r.items[item.ID] = &stored
	return item, nil
}

func (r *memoryAPRepo) GetItem(_ context.Context, id int64) (Item, error) {
	it, ok := r.items[id]
	if !ok {
		return Item{}, shared.ErrNotFound
	}
	return *it, nil
}

func (r *memoryAPRepo) UpdateItem(_ context.Context, id int64, outstanding float64, status ItemStatus) error {
	it, ok := r.items[id]
	if !ok {
		return shared.ErrNotFound
	}
	it.Outstanding = outstanding
	it.Status = status
	return nil
}

func (r *memoryAPRepo) ListItems(_ context.Context, status ItemStatus, supplier string) ([]Item, error) {
	var out []Item
	for _, it := range r.items {
		if status != "" && it.Status != status {
			continue
		}
		if supplier != "" && it.SupplierCode != supplier {
			continue
		}
		out = append(out, *it)
	}
	return out, nil
}

func (r *memoryAPRepo) InsertSettlement(_ context.Context, s Settlement) (Settlement, error) {
	s.ID = int64(len(r.settlements) + 1)
	r.settlements = append(r.settlements, s)
	return s, nil
}

type capturePoster struct {
	submitted []voucher.SubmitInput
	nextID    int64
}

func (p *capturePoster) Submit(_ context.Context, in voucher.SubmitInput) (voucher.Voucher, error) {
	if err := in.Validate(); err != nil {
		return voucher.Voucher{}, err
	}
	p.submitted = append(p.submitted, in)
	p.nextID++
	v := voucher.Voucher{ID: p.nextID, Status: voucher.StatusConfirmed}
	for idx, e := range in.Entries {
		entry := voucher.Entry{VoucherID: v.ID, LineNo: idx + 1, AccountCode: e.Account, Debit: e.Debit, Credit: e.Credit}
		if e.Supplier != "" {
			entry.SupplierID = 9
		}
		v.Entries = append(v.Entries, entry)
	}
	return v, nil
}

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestAddItemPostsPurchaseVoucher(t *testing.T) {
	ctx := context.Background()
	poster := &capturePoster{}
	svc := NewService(newMemoryAPRepo(), poster, DefaultAccounts())

	item, err := svc.AddItem(ctx, AddItemInput{Supplier: "S001", Amount: 900, Date: day(5), Description: "materials"})
	require.NoError(t, err)
	require.Equal(t, 900.0, item.Outstanding)
	require.Equal(t, int64(9), item.SupplierDimID)

	entries := poster.submitted[0].Entries
	require.Equal(t, "1403", entries[0].Account)
	require.Equal(t, 900.0, entries[0].Debit)
	require.Equal(t, "2202", entries[1].Account)
	require.Equal(t, 900.0, entries[1].Credit)
}

func TestSettlePaysDownControlAccount(t *testing.T) {
	ctx := context.Background()
	poster := &capturePoster{}
	repo := newMemoryAPRepo()
	svc := NewService(repo, poster, DefaultAccounts())

	item, err := svc.AddItem(ctx, AddItemInput{Supplier: "S001", Amount: 500, Date: day(5)})
	require.NoError(t, err)

	_, err = svc.Settle(ctx, item.ID, 500, day(20), "full payment")
	require.NoError(t, err)

	after, err := svc.repo.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, ItemStatusSettled, after.Status)
	require.Equal(t, 0.0, after.Outstanding)

	entries := poster.submitted[1].Entries
	require.Equal(t, "2202", entries[0].Account)
	require.Equal(t, 500.0, entries[0].Debit)
	require.Equal(t, "1002", entries[1].Account)
	require.Equal(t, 500.0, entries[1].Credit)

	_, err = svc.Settle(ctx, item.ID, 1, day(21), "")
	require.True(t, shared.IsCode(err, shared.CodeInvalidStatus))
}
