package voucher

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-ledger/meridian/internal/balance"
	"github.com/meridian-ledger/meridian/internal/coa"
	"github.com/meridian-ledger/meridian/internal/shared"
)

type memoryRepo struct {
	vouchers map[int64]*Voucher
	entries  map[int64][]Entry
	links    []VoidLink
	periods  map[string]string
	balances *balance.MemoryStore
	engine   *balance.Engine
	nextID   int64
	maxSeq   map[string]int
}

func newMemoryRepo(directions map[string]coa.Direction) *memoryRepo {
	store := balance.NewMemoryStore(directions)
	return &memoryRepo{
		vouchers: make(map[int64]*Voucher),
		entries:  make(map[int64][]Entry),
		periods:  make(map[string]string),
		balances: store,
		engine:   balance.NewEngine(store),
		maxSeq:   make(map[string]int),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) GetVoucher(_ context.Context, id int64) (Voucher, error) {
	v, ok := r.vouchers[id]
	if !ok {
		return Voucher{}, shared.NewErrorf(shared.CodeVoucherNotFound, "voucher not found: %d", id)
	}
	out := *v
	out.Entries = r.entries[id]
	return out, nil
}

func (r *memoryRepo) List(_ context.Context, filter Filter) ([]Voucher, error) {
	var out []Voucher
	for id, v := range r.vouchers {
		if filter.Period != "" && v.Period != filter.Period {
			continue
		}
		if filter.Status != "" && v.Status != filter.Status {
			continue
		}
		if filter.SourceEventPrefix != "" && (len(v.SourceEventID) < len(filter.SourceEventPrefix) || v.SourceEventID[:len(filter.SourceEventPrefix)] != filter.SourceEventPrefix) {
			continue
		}
		copied := *v
		copied.Entries = r.entries[id]
		out = append(out, copied)
	}
	return out, nil
}

func (r *memoryRepo) FindBySourceEvent(_ context.Context, eventID string) (Voucher, bool, error) {
	for id, v := range r.vouchers {
		if v.SourceEventID == eventID {
			out := *v
			out.Entries = r.entries[id]
			return out, true, nil
		}
	}
	return Voucher{}, false, nil
}

func (r *memoryRepo) ListVoidLinks(_ context.Context, originalID int64) ([]VoidLink, error) {
	var out []VoidLink
	for _, l := range r.links {
		if l.OriginalVoucherID == originalID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memoryRepo) ConfirmedReplay(_ context.Context) ([]balance.ReplayVoucher, error) {
	var out []balance.ReplayVoucher
	for id, v := range r.vouchers {
		if v.Status != StatusConfirmed && v.Status != StatusVoided {
			continue
		}
		out = append(out, balance.ReplayVoucher{Number: v.VoucherNo, Period: v.Period, Effects: effectsOf(r.entries[id])})
	}
	return out, nil
}

func (r *memoryRepo) InsertVoucher(_ context.Context, v Voucher) (Voucher, error) {
	r.nextID++
	v.ID = r.nextID
	v.CreatedAt = time.Now()
	stored := v
	r.vouchers[v.ID] = &stored
	return v, nil
}

func (r *memoryRepo) InsertEntries(_ context.Context, voucherID int64, entries []Entry) error {
	r.entries[voucherID] = withVoucherID(voucherID, entries)
	return nil
}

func (r *memoryRepo) GetVoucherForUpdate(ctx context.Context, id int64) (Voucher, error) {
	return r.GetVoucher(ctx, id)
}

func (r *memoryRepo) UpdateStatus(_ context.Context, id int64, status Status, confirmedAt *time.Time) error {
	v, ok := r.vouchers[id]
	if !ok {
		return shared.NewErrorf(shared.CodeVoucherNotFound, "voucher not found: %d", id)
	}
	v.Status = status
	if confirmedAt != nil {
		v.ConfirmedAt = confirmedAt
	}
	return nil
}

func (r *memoryRepo) MarkVoided(_ context.Context, id int64, reason string, at time.Time) error {
	v, ok := r.vouchers[id]
	if !ok {
		return shared.NewErrorf(shared.CodeVoucherNotFound, "voucher not found: %d", id)
	}
	v.Status = StatusVoided
	v.VoidReason = reason
	v.VoidedAt = &at
	return nil
}

func (r *memoryRepo) DeleteVoucher(_ context.Context, id int64) error {
	delete(r.vouchers, id)
	delete(r.entries, id)
	return nil
}

func (r *memoryRepo) AssignVoucherNo(_ context.Context, id int64, date time.Time) (string, error) {
	prefix := "V" + date.Format("20060102")
	r.maxSeq[prefix]++
	voucherNo := fmt.Sprintf("%s%03d", prefix, r.maxSeq[prefix])
	if v, ok := r.vouchers[id]; ok {
		v.VoucherNo = voucherNo
	}
	return voucherNo, nil
}

func (r *memoryRepo) InsertVoidLink(_ context.Context, originalID, reversalID int64, reason string) error {
	r.links = append(r.links, VoidLink{ID: int64(len(r.links) + 1), OriginalVoucherID: originalID, VoidVoucherID: reversalID, Reason: reason})
	return nil
}

func (r *memoryRepo) EnsurePeriod(_ context.Context, period string) (string, error) {
	if status, ok := r.periods[period]; ok {
		return status, nil
	}
	r.periods[period] = shared.PeriodStatusOpen
	return shared.PeriodStatusOpen, nil
}

func (r *memoryRepo) PeriodStatus(_ context.Context, period string) (string, error) {
	status, ok := r.periods[period]
	if !ok {
		return "", shared.ErrNotFound
	}
	return status, nil
}

func (r *memoryRepo) ApplyEffects(ctx context.Context, period string, effects []balance.Effect) error {
	return r.engine.Apply(ctx, period, effects)
}

type memoryDirectory struct {
	accounts map[string]coa.Account
	dims     map[string]coa.Dimension
}

func newMemoryDirectory() *memoryDirectory {
	dir := &memoryDirectory{accounts: make(map[string]coa.Account), dims: make(map[string]coa.Dimension)}
	for _, a := range []coa.Account{
		{Code: "1001", Name: "cash", Type: coa.AccountTypeAsset, Direction: coa.DirectionDebit, Enabled: true},
		{Code: "1002", Name: "bank", Type: coa.AccountTypeAsset, Direction: coa.DirectionDebit, Enabled: true},
		{Code: "1122", Name: "receivable", Type: coa.AccountTypeAsset, Direction: coa.DirectionDebit, Enabled: true},
		{Code: "2202", Name: "payable", Type: coa.AccountTypeLiability, Direction: coa.DirectionCredit, Enabled: true},
		{Code: "4104", Name: "retained earnings", Type: coa.AccountTypeEquity, Direction: coa.DirectionCredit, Enabled: true},
		{Code: "6001", Name: "revenue", Type: coa.AccountTypeRevenue, Direction: coa.DirectionCredit, Enabled: true},
		{Code: "6401", Name: "cost", Type: coa.AccountTypeExpense, Direction: coa.DirectionDebit, Enabled: true},
		{Code: "9999", Name: "disabled", Type: coa.AccountTypeAsset, Direction: coa.DirectionDebit, Enabled: false},
	} {
		dir.accounts[a.Code] = a
	}
	dir.dims["department:D01"] = coa.Dimension{ID: 1, Type: coa.DimensionDepartment, Code: "D01", Enabled: true}
	return dir
}

func (d *memoryDirectory) directions() map[string]coa.Direction {
	out := make(map[string]coa.Direction)
	for code, a := range d.accounts {
		out[code] = a.Direction
	}
	return out
}

func (d *memoryDirectory) FindAccount(_ context.Context, identifier string) (coa.Account, error) {
	a, ok := d.accounts[identifier]
	if !ok {
		return coa.Account{}, shared.NewErrorf(shared.CodeAccountNotFound, "account not found: %s", identifier)
	}
	if !a.Enabled {
		return coa.Account{}, shared.NewErrorf(shared.CodeAccountDisabled, "account disabled: %s", identifier)
	}
	return a, nil
}

func (d *memoryDirectory) FindDimension(_ context.Context, typ coa.DimensionType, code string) (coa.Dimension, error) {
	dim, ok := d.dims[string(typ)+":"+code]
	if !ok {
		return coa.Dimension{}, shared.NewErrorf(shared.CodeDimensionNotFound, "dimension not found: %s:%s", typ, code)
	}
	return dim, nil
}

func newTestService() (*Service, *memoryRepo, *memoryDirectory) {
	dir := newMemoryDirectory()
	repo := newMemoryRepo(dir.directions())
	svc := NewService(repo, dir, nil)
	svc.WithNow(func() time.Time { return time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC) })
	return svc, repo, dir
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSubmitConfirmMinimalVoucher(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()

	v, err := svc.Submit(ctx, SubmitInput{
		Date: date(2025, 1, 15),
		Entries: []EntryInput{
			{Account: "1001", Debit: 1000},
			{Account: "1002", Credit: 1000},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, v.Status)
	require.Equal(t, "2025-01", v.Period)
	require.Empty(t, v.VoucherNo)

	_, err = svc.Review(ctx, v.ID)
	require.NoError(t, err)
	confirmed, err := svc.Confirm(ctx, v.ID)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, confirmed.Status)
	require.Equal(t, "V20250115001", confirmed.VoucherNo)

	cash, _, err := repo.balances.Get(ctx, balance.Key{AccountCode: "1001", Period: "2025-01"})
	require.NoError(t, err)
	require.Equal(t, 1000.0, cash.Closing)

	bank, _, err := repo.balances.Get(ctx, balance.Key{AccountCode: "1002", Period: "2025-01"})
	require.NoError(t, err)
	require.Equal(t, -1000.0, bank.Closing)
}

func TestVoidRestoresBalancesAndLinksPair(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()

	v, err := svc.Submit(ctx, SubmitInput{
		Date:        date(2025, 1, 15),
		AutoConfirm: true,
		Entries: []EntryInput{
			{Account: "1001", Debit: 1000},
			{Account: "1002", Credit: 1000},
		},
	})
	require.NoError(t, err)

	reversal, err := svc.Void(ctx, VoidInput{VoucherID: v.ID, Reason: "entry error"})
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, reversal.Status)
	require.Equal(t, v.ID, reversal.VoidOf)
	require.Equal(t, 1000.0, reversal.Entries[0].Credit)

	for _, code := range []string{"1001", "1002"} {
		row, _, err := repo.balances.Get(ctx, balance.Key{AccountCode: code, Period: "2025-01"})
		require.NoError(t, err)
		require.Equal(t, 0.0, row.Closing, "account %s", code)
	}

	original, err := svc.Get(ctx, v.ID)
	require.NoError(t, err)
	require.Equal(t, StatusVoided, original.Status)
	require.Equal(t, "entry error", original.VoidReason)

	links, err := svc.VoidLinks(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	require.Equal(t, reversal.ID, links[0].VoidVoucherID)
}

func TestSubmitUnbalancedRejected(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	_, err := svc.Submit(ctx, SubmitInput{
		Date: date(2025, 1, 15),
		Entries: []EntryInput{
			{Account: "1001", Debit: 1000},
			{Account: "1002", Credit: 900},
		},
	})
	require.Error(t, err)
	require.True(t, shared.IsCode(err, shared.CodeNotBalanced))

	var le *shared.LedgerError
	require.ErrorAs(t, err, &le)
	require.Equal(t, 1000.0, le.Details["debit_total"])
	require.Equal(t, 900.0, le.Details["credit_total"])
	require.Equal(t, 100.0, le.Details["difference"])
}

func TestSubmitToleratesRoundingResidue(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	_, err := svc.Submit(ctx, SubmitInput{
		Date: date(2025, 1, 15),
		Entries: []EntryInput{
			{Account: "1001", Debit: 100.004},
			{Account: "1002", Credit: 100},
		},
	})
	require.NoError(t, err)
}

func TestSubmitUnknownAndDisabledAccounts(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	_, err := svc.Submit(ctx, SubmitInput{
		Date: date(2025, 1, 15),
		Entries: []EntryInput{
			{Account: "0000", Debit: 10},
			{Account: "1002", Credit: 10},
		},
	})
	require.True(t, shared.IsCode(err, shared.CodeAccountNotFound))

	_, err = svc.Submit(ctx, SubmitInput{
		Date: date(2025, 1, 15),
		Entries: []EntryInput{
			{Account: "9999", Debit: 10},
			{Account: "1002", Credit: 10},
		},
	})
	require.True(t, shared.IsCode(err, shared.CodeAccountDisabled))
}

func TestIdempotentSubmitBySourceEvent(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	in := SubmitInput{
		Date:          date(2025, 1, 15),
		SourceEventID: "evt-001",
		AutoConfirm:   true,
		Entries: []EntryInput{
			{Account: "1001", Debit: 500},
			{Account: "6001", Credit: 500},
		},
	}
	first, err := svc.Submit(ctx, in)
	require.NoError(t, err)

	second, err := svc.Submit(ctx, in)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.VoucherNo, second.VoucherNo)

	all, err := svc.List(ctx, Filter{Period: "2025-01"})
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestStateMachineGuards(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	v, err := svc.Submit(ctx, SubmitInput{
		Date: date(2025, 1, 15),
		Entries: []EntryInput{
			{Account: "1001", Debit: 10},
			{Account: "1002", Credit: 10},
		},
	})
	require.NoError(t, err)

	// draft cannot confirm or unreview
	_, err = svc.Confirm(ctx, v.ID)
	require.True(t, shared.IsCode(err, shared.CodeVoucherNotReviewed))
	_, err = svc.Unreview(ctx, v.ID)
	require.True(t, shared.IsCode(err, shared.CodeInvalidStatus))

	_, err = svc.Review(ctx, v.ID)
	require.NoError(t, err)

	// reviewed cannot delete
	err = svc.Delete(ctx, v.ID)
	require.True(t, shared.IsCode(err, shared.CodeInvalidStatus))

	_, err = svc.Unreview(ctx, v.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, v.ID))

	_, err = svc.Get(ctx, v.ID)
	require.True(t, shared.IsCode(err, shared.CodeVoucherNotFound))
}

func TestVoidRequiresConfirmed(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	v, err := svc.Submit(ctx, SubmitInput{
		Date: date(2025, 1, 15),
		Entries: []EntryInput{
			{Account: "1001", Debit: 10},
			{Account: "1002", Credit: 10},
		},
	})
	require.NoError(t, err)

	_, err = svc.Void(ctx, VoidInput{VoucherID: v.ID, Reason: "oops"})
	require.True(t, shared.IsCode(err, shared.CodeVoidConfirmed))
}

func TestPeriodAdmission(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()

	repo.periods["2025-01"] = shared.PeriodStatusClosed
	_, err := svc.Submit(ctx, SubmitInput{
		Date: date(2025, 1, 15),
		Entries: []EntryInput{
			{Account: "1001", Debit: 10},
			{Account: "1002", Credit: 10},
		},
	})
	require.True(t, shared.IsCode(err, shared.CodePeriodClosed))

	repo.periods["2025-02"] = shared.PeriodStatusAdjustment
	_, err = svc.Submit(ctx, SubmitInput{
		Date: date(2025, 2, 10),
		Entries: []EntryInput{
			{Account: "1001", Debit: 10},
			{Account: "1002", Credit: 10},
		},
	})
	require.True(t, shared.IsCode(err, shared.CodePeriodAdjustOnly))

	// the same posting flows as an adjustment voucher
	_, err = svc.Submit(ctx, SubmitInput{
		Date:      date(2025, 2, 10),
		EntryType: EntryTypeAdjustment,
		Entries: []EntryInput{
			{Account: "1001", Debit: 10},
			{Account: "1002", Credit: 10},
		},
	})
	require.NoError(t, err)
}

func TestVoidClosedPeriodRejected(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()

	v, err := svc.Submit(ctx, SubmitInput{
		Date:        date(2025, 1, 15),
		AutoConfirm: true,
		Entries: []EntryInput{
			{Account: "1001", Debit: 10},
			{Account: "1002", Credit: 10},
		},
	})
	require.NoError(t, err)

	repo.periods["2025-01"] = shared.PeriodStatusClosed
	_, err = svc.Void(ctx, VoidInput{VoucherID: v.ID, Reason: "late"})
	require.True(t, shared.IsCode(err, shared.CodePeriodClosed))

	// adjustment override admits the reversal
	repo.periods["2025-01"] = shared.PeriodStatusAdjustment
	_, err = svc.Void(ctx, VoidInput{VoucherID: v.ID, Reason: "late"})
	require.True(t, shared.IsCode(err, shared.CodePeriodAdjustOnly))

	reversal, err := svc.Void(ctx, VoidInput{VoucherID: v.ID, Reason: "late", Adjustment: true})
	require.NoError(t, err)
	require.Equal(t, EntryTypeAdjustment, reversal.EntryType)
}

func TestVoucherNumbersMonotonicPerDay(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	entries := []EntryInput{
		{Account: "1001", Debit: 10},
		{Account: "1002", Credit: 10},
	}
	first, err := svc.Submit(ctx, SubmitInput{Date: date(2025, 1, 15), AutoConfirm: true, Entries: entries})
	require.NoError(t, err)
	require.Equal(t, "V20250115001", first.VoucherNo)

	// voiding consumes the next number; nothing is ever reused
	reversal, err := svc.Void(ctx, VoidInput{VoucherID: first.ID, Reason: "redo"})
	require.NoError(t, err)
	require.Equal(t, "V20250115002", reversal.VoucherNo)

	third, err := svc.Submit(ctx, SubmitInput{Date: date(2025, 1, 15), AutoConfirm: true, Entries: entries})
	require.NoError(t, err)
	require.Equal(t, "V20250115003", third.VoucherNo)

	otherDay, err := svc.Submit(ctx, SubmitInput{Date: date(2025, 1, 16), AutoConfirm: true, Entries: entries})
	require.NoError(t, err)
	require.Equal(t, "V20250116001", otherDay.VoucherNo)
}

func TestDimensionResolution(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()

	v, err := svc.Submit(ctx, SubmitInput{
		Date:        date(2025, 1, 15),
		AutoConfirm: true,
		Entries: []EntryInput{
			{Account: "6401", Debit: 80, Department: "D01"},
			{Account: "1001", Credit: 80},
		},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), v.Entries[0].DeptID)

	row, found, err := repo.balances.Get(ctx, balance.Key{AccountCode: "6401", Period: "2025-01", DeptID: 1})
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 80.0, row.Closing)

	_, err = svc.Submit(ctx, SubmitInput{
		Date: date(2025, 1, 15),
		Entries: []EntryInput{
			{Account: "6401", Debit: 80, Project: "missing"},
			{Account: "1001", Credit: 80},
		},
	})
	require.True(t, shared.IsCode(err, shared.CodeDimensionNotFound))
}
