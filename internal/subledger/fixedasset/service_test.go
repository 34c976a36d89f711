package fixedasset

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-ledger/meridian/internal/shared"
	"github.com/meridian-ledger/meridian/internal/voucher"
)

type memoryFARepo struct {
	assets      map[int64]*Asset
	projects    map[int64]*CIPProject
	transfers   []CIPTransfer
	depreciated map[string]bool
	nextAsset   int64
	nextProject int64
}

func newMemoryFARepo() *memoryFARepo {
	return &memoryFARepo{
		assets:      make(map[int64]*Asset),
		projects:    make(map[int64]*CIPProject),
		depreciated: make(map[string]bool),
	}
}

func (r *memoryFARepo) InsertAsset(_ context.Context, a Asset) (Asset, error) {
	r.nextAsset++
	a.ID = r.nextAsset
	stored := a
	r.assets[a.ID] = &stored
	return a, nil
}

func (r *memoryFARepo) GetAsset(_ context.Context, id int64) (Asset, error) {
	a, ok := r.assets[id]
	if !ok {
		return Asset{}, shared.ErrNotFound
	}
	return *a, nil
}

func (r *memoryFARepo) UpdateAsset(_ context.Context, a Asset) error {
	stored := a
	r.assets[a.ID] = &stored
	return nil
}

func (r *memoryFARepo) ListAssets(_ context.Context, status Status) ([]Asset, error) {
	var out []Asset
	for i := int64(1); i <= r.nextAsset; i++ {
		a, ok := r.assets[i]
		if !ok {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (r *memoryFARepo) InsertProject(_ context.Context, p CIPProject) (CIPProject, error) {
	r.nextProject++
	p.ID = r.nextProject
	stored := p
	r.projects[p.ID] = &stored
	return p, nil
}

func (r *memoryFARepo) GetProject(_ context.Context, id int64) (CIPProject, error) {
	p, ok := r.projects[id]
	if !ok {
		return CIPProject{}, shared.ErrNotFound
	}
	return *p, nil
}

func (r *memoryFARepo) UpdateProject(_ context.Context, p CIPProject) error {
	stored := p
	r.projects[p.ID] = &stored
	return nil
}

func (r *memoryFARepo) InsertTransfer(_ context.Context, t CIPTransfer) (CIPTransfer, error) {
	t.ID = int64(len(r.transfers) + 1)
	r.transfers = append(r.transfers, t)
	return t, nil
}

func (r *memoryFARepo) WasDepreciated(_ context.Context, period string) (bool, error) {
	return r.depreciated[period], nil
}

func (r *memoryFARepo) MarkDepreciated(_ context.Context, period string, _ int64) error {
	r.depreciated[period] = true
	return nil
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
	return voucher.Voucher{ID: p.nextID, VoucherNo: "V-TEST", Status: voucher.StatusConfirmed}, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newFixture() (*Service, *memoryFARepo, *capturePoster) {
	repo := newMemoryFARepo()
	poster := &capturePoster{}
	return NewService(repo, poster, DefaultAccounts()), repo, poster
}

func TestAddAndStraightLineDepreciation(t *testing.T) {
	ctx := context.Background()
	svc, _, poster := newFixture()

	asset, err := svc.Add(ctx, AddInput{Name: "press", Cost: 12000, LifeYears: 5, Salvage: 0, Date: day(2025, 1, 5)})
	require.NoError(t, err)
	require.Equal(t, StatusActive, asset.Status)

	result, err := svc.Depreciate(ctx, "2025-01")
	require.NoError(t, err)
	require.Equal(t, 200.0, result.Total) // 12000 / 60 months

	charge := poster.submitted[len(poster.submitted)-1]
	require.Equal(t, "6602", charge.Entries[0].Account)
	require.Equal(t, 200.0, charge.Entries[0].Debit)
	require.Equal(t, "1602", charge.Entries[1].Account)

	// a second run in the same period is a no-op
	again, err := svc.Depreciate(ctx, "2025-01")
	require.NoError(t, err)
	require.Equal(t, 0.0, again.Total)
}

func TestDoubleDecliningDepreciation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newFixture()

	_, err := svc.Add(ctx, AddInput{Name: "truck", Cost: 60000, LifeYears: 5, Method: MethodDoubleDeclining, Date: day(2025, 1, 5)})
	require.NoError(t, err)

	result, err := svc.Depreciate(ctx, "2025-01")
	require.NoError(t, err)
	require.Equal(t, 2000.0, result.Total) // 60000 x 40% / 12
}

func TestSumOfYearsDepreciation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newFixture()

	_, err := svc.Add(ctx, AddInput{Name: "lathe", Cost: 15000, LifeYears: 5, Method: MethodSumOfYears, Date: day(2025, 1, 5)})
	require.NoError(t, err)

	result, err := svc.Depreciate(ctx, "2025-01")
	require.NoError(t, err)
	require.Equal(t, 416.67, result.Total) // 15000 x 5/15 / 12
}

func TestImpairmentAndReversal(t *testing.T) {
	ctx := context.Background()
	svc, repo, poster := newFixture()

	asset, err := svc.Add(ctx, AddInput{Name: "plant", Cost: 10000, LifeYears: 10, Date: day(2025, 1, 5)})
	require.NoError(t, err)

	impaired, err := svc.Impair(ctx, asset.ID, 1500, day(2025, 3, 31))
	require.NoError(t, err)
	require.Equal(t, 1500.0, impaired.Impairment)

	loss := poster.submitted[len(poster.submitted)-1]
	require.Equal(t, "6701", loss.Entries[0].Account)
	require.Equal(t, "1603", loss.Entries[1].Account)

	restored, err := svc.ReverseImpairment(ctx, asset.ID, 500, day(2025, 6, 30))
	require.NoError(t, err)
	require.Equal(t, 1000.0, restored.Impairment)

	_, err = svc.ReverseImpairment(ctx, asset.ID, 5000, day(2025, 6, 30))
	require.Error(t, err)

	stored := repo.assets[asset.ID]
	require.Equal(t, 1000.0, stored.Impairment)
}

func TestDisposeWithLoss(t *testing.T) {
	ctx := context.Background()
	svc, _, poster := newFixture()

	asset, err := svc.Add(ctx, AddInput{Name: "van", Cost: 9000, LifeYears: 3, Date: day(2025, 1, 5)})
	require.NoError(t, err)
	_, err = svc.Depreciate(ctx, "2025-01") // 250
	require.NoError(t, err)

	disposed, err := svc.Dispose(ctx, asset.ID, 8000, day(2025, 2, 10))
	require.NoError(t, err)
	require.Equal(t, StatusDisposed, disposed.Status)

	entries := poster.submitted[len(poster.submitted)-1].Entries
	byAccount := make(map[string]voucher.EntryInput)
	for _, e := range entries {
		byAccount[e.Account] = e
	}
	require.Equal(t, 250.0, byAccount["1602"].Debit)
	require.Equal(t, 8000.0, byAccount["1002"].Debit)
	require.Equal(t, 9000.0, byAccount["1601"].Credit)
	require.Equal(t, 750.0, byAccount["6711"].Debit) // loss 8750 NBV vs 8000 proceeds
}

func TestCIPPartialAndFullTransfer(t *testing.T) {
	ctx := context.Background()
	svc, repo, poster := newFixture()

	project, err := svc.CreateProject(ctx, "warehouse build")
	require.NoError(t, err)

	project, err = svc.AddProjectCost(ctx, project.ID, 30000, day(2025, 1, 10))
	require.NoError(t, err)
	project, err = svc.AddProjectCost(ctx, project.ID, 20000, day(2025, 2, 10))
	require.NoError(t, err)
	require.Equal(t, 50000.0, project.Cost)

	first, err := svc.Transfer(ctx, TransferInput{ProjectID: project.ID, AssetName: "warehouse A", LifeYears: 20, Date: day(2025, 3, 1), Amount: 30000})
	require.NoError(t, err)
	require.Equal(t, 30000.0, first.Cost)

	stored := repo.projects[project.ID]
	require.Equal(t, CIPStatusActive, stored.Status)
	require.Equal(t, 20000.0, stored.Remaining())

	// zero amount transfers the remainder and completes the project
	second, err := svc.Transfer(ctx, TransferInput{ProjectID: project.ID, AssetName: "warehouse B", LifeYears: 20, Date: day(2025, 4, 1)})
	require.NoError(t, err)
	require.Equal(t, 20000.0, second.Cost)
	require.Equal(t, CIPStatusTransferred, repo.projects[project.ID].Status)

	transfer := poster.submitted[len(poster.submitted)-1]
	require.Equal(t, "1601", transfer.Entries[0].Account)
	require.Equal(t, "1604", transfer.Entries[1].Account)
}
