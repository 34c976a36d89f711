package fixedasset

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

// Accounts names the ledger accounts the fixed-asset sub-ledger posts to.
type Accounts struct {
	FixedAsset   string
	AccumDep     string
	Impairment   string
	CIP          string
	Cash         string
	DepExpense   string
	ImpairLoss   string
	DisposalGain string
	DisposalLoss string
}

// DefaultAccounts uses the seeded chart codes.
func DefaultAccounts() Accounts {
	return Accounts{
		FixedAsset:   "1601",
		AccumDep:     "1602",
		Impairment:   "1603",
		CIP:          "1604",
		Cash:         "1002",
		DepExpense:   "6602",
		ImpairLoss:   "6701",
		DisposalGain: "6301",
		DisposalLoss: "6711",
	}
}

// Service keeps asset cards and CIP projects, emitting a balanced voucher
// for every change.
type Service struct {
	repo     RepositoryPort
	poster   Poster
	accounts Accounts
}

// NewService builds Service.
func NewService(repo RepositoryPort, poster Poster, accounts Accounts) *Service {
	return &Service{repo: repo, poster: poster, accounts: accounts}
}

// AddInput describes a purchased asset.
type AddInput struct {
	Name       string
	Cost       float64
	LifeYears  int
	Salvage    float64
	Method     Method
	Date       time.Time
	Department string
	Project    string
}

// Add books the purchase: debit fixed assets, credit cash.
func (s *Service) Add(ctx context.Context, in AddInput) (Asset, error) {
	if in.Name == "" {
		return Asset{}, errors.New("fixedasset: name required")
	}
	if in.Cost <= 0 {
		return Asset{}, errors.New("fixedasset: cost must be positive")
	}
	if in.LifeYears <= 0 {
		return Asset{}, errors.New("fixedasset: life must be positive")
	}
	if in.Salvage < 0 || in.Salvage >= in.Cost {
		return Asset{}, errors.New("fixedasset: salvage must be within [0, cost)")
	}
	method := in.Method
	if method == "" {
		method = MethodStraightLine
	}
	cost := money.Round2(in.Cost)
	v, err := s.poster.Submit(ctx, voucher.SubmitInput{
		Date:          in.Date,
		Description:   "asset purchase: " + in.Name,
		SourceEventID: "fa-add:" + uuid.NewString(),
		AutoConfirm:   true,
		Entries: []voucher.EntryInput{
			{Account: s.accounts.FixedAsset, Debit: cost, Department: in.Department, Project: in.Project},
			{Account: s.accounts.Cash, Credit: cost},
		},
	})
	if err != nil {
		return Asset{}, err
	}
	asset := Asset{
		Name:       in.Name,
		Cost:       cost,
		Salvage:    money.Round2(in.Salvage),
		LifeYears:  in.LifeYears,
		Method:     method,
		AcquiredAt: in.Date,
		Status:     StatusActive,
		VoucherID:  v.ID,
	}
	if len(v.Entries) > 0 {
		asset.DeptID = v.Entries[0].DeptID
		asset.ProjectID = v.Entries[0].ProjectID
	}
	return s.repo.InsertAsset(ctx, asset)
}

// DepreciationResult reports one monthly run.
type DepreciationResult struct {
	Period    string
	Total     float64
	PerAsset  map[int64]float64
	VoucherNo string
}

// Depreciate runs the monthly charge for every active asset and emits one
// batch voucher. A period already depreciated is a no-op.
func (s *Service) Depreciate(ctx context.Context, period string) (DepreciationResult, error) {
	done, err := s.repo.WasDepreciated(ctx, period)
	if err != nil {
		return DepreciationResult{}, err
	}
	result := DepreciationResult{Period: period, PerAsset: make(map[int64]float64)}
	if done {
		return result, nil
	}
	assets, err := s.repo.ListAssets(ctx, StatusActive)
	if err != nil {
		return DepreciationResult{}, err
	}
	for _, asset := range assets {
		charge := monthlyCharge(asset)
		if money.IsZero(charge) {
			continue
		}
		result.PerAsset[asset.ID] = charge
		result.Total = money.Round2(result.Total + charge)
	}
	if money.IsZero(result.Total) {
		return result, nil
	}
	v, err := s.poster.Submit(ctx, voucher.SubmitInput{
		Date:          lastDayOf(period),
		Description:   "monthly depreciation " + period,
		SourceEventID: "fa-depreciation:" + period,
		AutoConfirm:   true,
		Entries: []voucher.EntryInput{
			{Account: s.accounts.DepExpense, Debit: result.Total},
			{Account: s.accounts.AccumDep, Credit: result.Total},
		},
	})
	if err != nil {
		return DepreciationResult{}, err
	}
	result.VoucherNo = v.VoucherNo
	for _, asset := range assets {
		charge, ok := result.PerAsset[asset.ID]
		if !ok {
			continue
		}
		asset.AccumDepreciation = money.Round2(asset.AccumDepreciation + charge)
		asset.MonthsDepreciated++
		if err := s.repo.UpdateAsset(ctx, asset); err != nil {
			return DepreciationResult{}, err
		}
	}
	if err := s.repo.MarkDepreciated(ctx, period, v.ID); err != nil {
		return DepreciationResult{}, err
	}
	return result, nil
}

// monthlyCharge computes one month of depreciation, capped so the net
// book value never falls below salvage.
func monthlyCharge(a Asset) float64 {
	lifeMonths := a.LifeYears * 12
	if lifeMonths == 0 || a.MonthsDepreciated >= lifeMonths {
		return 0
	}
	remainingCap := a.Cost - a.Salvage - a.Impairment - a.AccumDepreciation
	if remainingCap <= 0 {
		return 0
	}
	var charge float64
	switch a.Method {
	case MethodDoubleDeclining:
		rate := 2.0 / float64(a.LifeYears)
		charge = a.NetBookValue() * rate / 12
	case MethodSumOfYears:
		sum := a.LifeYears * (a.LifeYears + 1) / 2
		yearIndex := a.MonthsDepreciated / 12
		factor := float64(a.LifeYears-yearIndex) / float64(sum)
		charge = a.DepreciableBase() * factor / 12
	default:
		charge = a.DepreciableBase() / float64(lifeMonths)
	}
	charge = money.Round2(charge)
	if charge > remainingCap {
		charge = money.Round2(remainingCap)
	}
	return charge
}

// Impair books an impairment loss against the asset.
func (s *Service) Impair(ctx context.Context, assetID int64, amount float64, date time.Time) (Asset, error) {
	if amount <= 0 {
		return Asset{}, errors.New("fixedasset: impairment must be positive")
	}
	asset, err := s.repo.GetAsset(ctx, assetID)
	if err != nil {
		return Asset{}, err
	}
	if asset.Status != StatusActive {
		return Asset{}, shared.NewErrorf(shared.CodeInvalidStatus, "asset %d is %s", assetID, asset.Status)
	}
	amount = money.Round2(amount)
	if amount > asset.NetBookValue() {
		return Asset{}, fmt.Errorf("fixedasset: impairment %.2f exceeds net book value %.2f", amount, asset.NetBookValue())
	}
	_, err = s.poster.Submit(ctx, voucher.SubmitInput{
		Date:          date,
		Description:   "impairment: " + asset.Name,
		SourceEventID: "fa-impair:" + uuid.NewString(),
		AutoConfirm:   true,
		Entries: []voucher.EntryInput{
			{Account: s.accounts.ImpairLoss, Debit: amount},
			{Account: s.accounts.Impairment, Credit: amount},
		},
	})
	if err != nil {
		return Asset{}, err
	}
	asset.Impairment = money.Round2(asset.Impairment + amount)
	return asset, s.repo.UpdateAsset(ctx, asset)
}

// ReverseImpairment unwinds a prior impairment, capped at what was booked.
func (s *Service) ReverseImpairment(ctx context.Context, assetID int64, amount float64, date time.Time) (Asset, error) {
	if amount <= 0 {
		return Asset{}, errors.New("fixedasset: reversal must be positive")
	}
	asset, err := s.repo.GetAsset(ctx, assetID)
	if err != nil {
		return Asset{}, err
	}
	amount = money.Round2(amount)
	if amount > asset.Impairment {
		return Asset{}, fmt.Errorf("fixedasset: reversal %.2f exceeds booked impairment %.2f", amount, asset.Impairment)
	}
	_, err = s.poster.Submit(ctx, voucher.SubmitInput{
		Date:          date,
		Description:   "impairment reversal: " + asset.Name,
		SourceEventID: "fa-impair-reverse:" + uuid.NewString(),
		AutoConfirm:   true,
		Entries: []voucher.EntryInput{
			{Account: s.accounts.Impairment, Debit: amount},
			{Account: s.accounts.ImpairLoss, Credit: amount},
		},
	})
	if err != nil {
		return Asset{}, err
	}
	asset.Impairment = money.Round2(asset.Impairment - amount)
	return asset, s.repo.UpdateAsset(ctx, asset)
}

// Dispose retires the asset, posting proceeds and the gain or loss.
func (s *Service) Dispose(ctx context.Context, assetID int64, proceeds float64, date time.Time) (Asset, error) {
	asset, err := s.repo.GetAsset(ctx, assetID)
	if err != nil {
		return Asset{}, err
	}
	if asset.Status != StatusActive {
		return Asset{}, shared.NewErrorf(shared.CodeInvalidStatus, "asset %d is %s", assetID, asset.Status)
	}
	proceeds = money.Round2(proceeds)
	entries := []voucher.EntryInput{
		{Account: s.accounts.AccumDep, Debit: asset.AccumDepreciation},
	}
	if asset.Impairment > 0 {
		entries = append(entries, voucher.EntryInput{Account: s.accounts.Impairment, Debit: asset.Impairment})
	}
	if proceeds > 0 {
		entries = append(entries, voucher.EntryInput{Account: s.accounts.Cash, Debit: proceeds})
	}
	entries = append(entries, voucher.EntryInput{Account: s.accounts.FixedAsset, Credit: asset.Cost})
	result := money.Round2(proceeds - asset.NetBookValue())
	if result > 0 {
		entries = append(entries, voucher.EntryInput{Account: s.accounts.DisposalGain, Credit: result})
	} else if result < 0 {
		entries = append(entries, voucher.EntryInput{Account: s.accounts.DisposalLoss, Debit: -result})
	}
	_, err = s.poster.Submit(ctx, voucher.SubmitInput{
		Date:          date,
		Description:   "disposal: " + asset.Name,
		SourceEventID: "fa-dispose:" + uuid.NewString(),
		AutoConfirm:   true,
		Entries:       entries,
	})
	if err != nil {
		return Asset{}, err
	}
	asset.Status = StatusDisposed
	return asset, s.repo.UpdateAsset(ctx, asset)
}

// CreateProject opens a CIP project.
func (s *Service) CreateProject(ctx context.Context, name string) (CIPProject, error) {
	if name == "" {
		return CIPProject{}, errors.New("fixedasset: project name required")
	}
	return s.repo.InsertProject(ctx, CIPProject{Name: name, Status: CIPStatusActive})
}

// AddProjectCost books construction spend: debit CIP, credit cash.
func (s *Service) AddProjectCost(ctx context.Context, projectID int64, amount float64, date time.Time) (CIPProject, error) {
	if amount <= 0 {
		return CIPProject{}, errors.New("fixedasset: amount must be positive")
	}
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return CIPProject{}, err
	}
	if project.Status != CIPStatusActive {
		return CIPProject{}, shared.NewErrorf(shared.CodeInvalidStatus, "cip project %d is %s", projectID, project.Status)
	}
	amount = money.Round2(amount)
	_, err = s.poster.Submit(ctx, voucher.SubmitInput{
		Date:          date,
		Description:   "construction cost: " + project.Name,
		SourceEventID: "cip-cost:" + uuid.NewString(),
		AutoConfirm:   true,
		Entries: []voucher.EntryInput{
			{Account: s.accounts.CIP, Debit: amount},
			{Account: s.accounts.Cash, Credit: amount},
		},
	})
	if err != nil {
		return CIPProject{}, err
	}
	project.Cost = money.Round2(project.Cost + amount)
	return project, s.repo.UpdateProject(ctx, project)
}

// TransferInput moves CIP cost into a fixed-asset card. Amount zero means
// a full transfer of the remaining cost.
type TransferInput struct {
	ProjectID int64
	AssetName string
	LifeYears int
	Salvage   float64
	Method    Method
	Date      time.Time
	Amount    float64
}

// Transfer converts construction-in-progress into a depreciable asset.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (Asset, error) {
	project, err := s.repo.GetProject(ctx, in.ProjectID)
	if err != nil {
		return Asset{}, err
	}
	if project.Status != CIPStatusActive {
		return Asset{}, shared.NewErrorf(shared.CodeInvalidStatus, "cip project %d is %s", in.ProjectID, project.Status)
	}
	amount := money.Round2(in.Amount)
	if amount == 0 {
		amount = money.Round2(project.Remaining())
	}
	if amount <= 0 || amount > project.Remaining()+money.Tolerance {
		return Asset{}, fmt.Errorf("fixedasset: transfer %.2f exceeds remaining CIP %.2f", amount, project.Remaining())
	}
	if in.LifeYears <= 0 {
		return Asset{}, errors.New("fixedasset: life must be positive")
	}
	method := in.Method
	if method == "" {
		method = MethodStraightLine
	}
	v, err := s.poster.Submit(ctx, voucher.SubmitInput{
		Date:          in.Date,
		Description:   "CIP transfer: " + in.AssetName,
		SourceEventID: "cip-transfer:" + uuid.NewString(),
		AutoConfirm:   true,
		Entries: []voucher.EntryInput{
			{Account: s.accounts.FixedAsset, Debit: amount},
			{Account: s.accounts.CIP, Credit: amount},
		},
	})
	if err != nil {
		return Asset{}, err
	}
	asset, err := s.repo.InsertAsset(ctx, Asset{
		Name:       in.AssetName,
		Cost:       amount,
		Salvage:    money.Round2(in.Salvage),
		LifeYears:  in.LifeYears,
		Method:     method,
		AcquiredAt: in.Date,
		Status:     StatusActive,
		VoucherID:  v.ID,
	})
	if err != nil {
		return Asset{}, err
	}
	project.Transferred = money.Round2(project.Transferred + amount)
	if money.IsZero(project.Remaining()) {
		project.Status = CIPStatusTransferred
	}
	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return Asset{}, err
	}
	if _, err := s.repo.InsertTransfer(ctx, CIPTransfer{ProjectID: project.ID, AssetID: asset.ID, Amount: amount, Date: in.Date, VoucherID: v.ID}); err != nil {
		return Asset{}, err
	}
	return asset, nil
}

// ListAssets returns asset cards filtered by status.
func (s *Service) ListAssets(ctx context.Context, status Status) ([]Asset, error) {
	return s.repo.ListAssets(ctx, status)
}

func lastDayOf(period string) time.Time {
	t, err := time.Parse("2006-01-02", period+"-01")
	if err != nil {
		return time.Time{}
	}
	return t.AddDate(0, 1, -1)
}
