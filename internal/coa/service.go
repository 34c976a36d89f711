package coa

import (
	"context"
	"errors"
	"fmt"

	"github.com/meridian-ledger/meridian/internal/shared"
)

// Service governs chart-of-accounts and dimension maintenance.
type Service struct {
	repo Repository
}

// NewService builds the Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// AddAccountInput groups fields for a new account.
type AddAccountInput struct {
	Code       string
	Name       string
	ParentCode string
	Type       AccountType
	Direction  Direction
	CashFlow   CashFlowCategory
	Currency   string
	Revaluable bool
}

// AddAccount inserts a user-defined account under an optional parent.
func (s *Service) AddAccount(ctx context.Context, in AddAccountInput) (Account, error) {
	if in.Code == "" || in.Name == "" {
		return Account{}, errors.New("coa: code and name required")
	}
	if !validType(in.Type) {
		return Account{}, fmt.Errorf("coa: unknown account type %q", in.Type)
	}
	if in.Direction != DirectionDebit && in.Direction != DirectionCredit {
		return Account{}, fmt.Errorf("coa: unknown direction %q", in.Direction)
	}
	if in.CashFlow == "" {
		in.CashFlow = CashFlowNone
	}
	level := 1
	if in.ParentCode != "" {
		parent, err := s.repo.GetAccount(ctx, in.ParentCode)
		if err != nil {
			return Account{}, err
		}
		if parent.Type != in.Type {
			return Account{}, fmt.Errorf("coa: parent %s has type %s, child declares %s", parent.Code, parent.Type, in.Type)
		}
		level = parent.Level + 1
	}
	account := Account{
		Code:       in.Code,
		Name:       in.Name,
		Level:      level,
		ParentCode: in.ParentCode,
		Type:       in.Type,
		Direction:  in.Direction,
		CashFlow:   in.CashFlow,
		Currency:   in.Currency,
		Revaluable: in.Revaluable,
		Enabled:    true,
	}
	if err := s.repo.InsertAccount(ctx, account); err != nil {
		return Account{}, err
	}
	return account, nil
}

// DisableAccount turns an account off for future postings. Accounts are
// never deleted; history keeps referring to them.
func (s *Service) DisableAccount(ctx context.Context, code string) error {
	if _, err := s.repo.GetAccount(ctx, code); err != nil {
		return err
	}
	return s.repo.UpdateAccountEnabled(ctx, code, false)
}

// FindAccount resolves an account by code or display name and ensures it
// is enabled for posting.
func (s *Service) FindAccount(ctx context.Context, identifier string) (Account, error) {
	account, err := s.repo.GetAccount(ctx, identifier)
	if err != nil {
		return Account{}, err
	}
	if !account.Enabled {
		return Account{}, shared.NewErrorf(shared.CodeAccountDisabled, "account disabled: %s", identifier)
	}
	return account, nil
}

// ListAccounts returns the chart ordered by code.
func (s *Service) ListAccounts(ctx context.Context, onlyEnabled bool) ([]Account, error) {
	return s.repo.ListAccounts(ctx, onlyEnabled)
}

// AddDimension registers a new dimension value.
func (s *Service) AddDimension(ctx context.Context, typ DimensionType, code, name string) (Dimension, error) {
	if !validDimensionType(typ) {
		return Dimension{}, fmt.Errorf("coa: unknown dimension type %q", typ)
	}
	if code == "" || name == "" {
		return Dimension{}, errors.New("coa: dimension code and name required")
	}
	return s.repo.InsertDimension(ctx, Dimension{Type: typ, Code: code, Name: name, Enabled: true})
}

// FindDimension resolves an enabled dimension value by type and code.
func (s *Service) FindDimension(ctx context.Context, typ DimensionType, code string) (Dimension, error) {
	d, err := s.repo.GetDimension(ctx, typ, code)
	if err != nil {
		return Dimension{}, err
	}
	if !d.Enabled {
		return Dimension{}, shared.NewErrorf(shared.CodeDimensionNotFound, "dimension disabled: %s:%s", typ, code)
	}
	return d, nil
}

// DisableDimension turns a dimension value off.
func (s *Service) DisableDimension(ctx context.Context, id int64) error {
	return s.repo.UpdateDimensionEnabled(ctx, id, false)
}

// ListDimensions returns dimension values, optionally filtered by type.
func (s *Service) ListDimensions(ctx context.Context, typ DimensionType) ([]Dimension, error) {
	return s.repo.ListDimensions(ctx, typ)
}

func validType(t AccountType) bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

func validDimensionType(t DimensionType) bool {
	switch t {
	case DimensionDepartment, DimensionProject, DimensionCustomer, DimensionSupplier, DimensionEmployee:
		return true
	}
	return false
}
