package voucher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meridian-ledger/meridian/internal/balance"
	"github.com/meridian-ledger/meridian/internal/coa"
	internalShared "github.com/meridian-ledger/meridian/internal/shared"
)

// Directory resolves accounts and dimensions for entry lines.
type Directory interface {
	FindAccount(ctx context.Context, identifier string) (coa.Account, error)
	FindDimension(ctx context.Context, typ coa.DimensionType, code string) (coa.Dimension, error)
}

// AuditPort records voucher lifecycle actions.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Service is the voucher store: the only writer of vouchers and, through
// the transactional repository, of the balance index.
type Service struct {
	repo      Repository
	directory Directory
	audit     AuditPort
	now       func() time.Time
}

// NewService constructs a Service instance.
func NewService(repo Repository, directory Directory, audit AuditPort) *Service {
	return &Service{repo: repo, directory: directory, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Submit validates and records a voucher. With AutoConfirm the voucher is
// numbered, confirmed, and applied to balances in the same transaction.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Voucher, error) {
	if err := in.Validate(); err != nil {
		return Voucher{}, err
	}
	if in.EntryType == "" {
		in.EntryType = EntryTypeNormal
	}
	entries, err := s.resolveEntries(ctx, in.Entries)
	if err != nil {
		return Voucher{}, err
	}
	period := internalShared.PeriodOfTime(in.Date)

	var result Voucher
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if in.SourceEventID != "" {
			prior, found, err := tx.FindBySourceEvent(ctx, in.SourceEventID)
			if err != nil {
				return err
			}
			if found {
				result = prior
				return nil
			}
		}
		status, err := tx.EnsurePeriod(ctx, period)
		if err != nil {
			return err
		}
		if err := admit(status, in.EntryType, period); err != nil {
			return err
		}
		v := Voucher{
			Date:           in.Date,
			Period:         period,
			Description:    in.Description,
			Status:         StatusDraft,
			EntryType:      in.EntryType,
			SourceTemplate: in.SourceTemplate,
			SourceEventID:  in.SourceEventID,
			VoidOf:         in.voidOf,
		}
		if in.AutoConfirm {
			now := s.now()
			v.Status = StatusConfirmed
			v.ConfirmedAt = &now
		}
		inserted, err := tx.InsertVoucher(ctx, v)
		if err != nil {
			return err
		}
		if err := tx.InsertEntries(ctx, inserted.ID, entries); err != nil {
			return err
		}
		if in.AutoConfirm {
			voucherNo, err := tx.AssignVoucherNo(ctx, inserted.ID, in.Date)
			if err != nil {
				return err
			}
			inserted.VoucherNo = voucherNo
			if err := tx.ApplyEffects(ctx, period, effectsOf(entries)); err != nil {
				return err
			}
		}
		inserted.Entries = withVoucherID(inserted.ID, entries)
		result = inserted
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateSourceEvent) {
			prior, found, findErr := s.repo.FindBySourceEvent(ctx, in.SourceEventID)
			if findErr == nil && found {
				return prior, nil
			}
		}
		return Voucher{}, err
	}
	s.record(ctx, "voucher.submit", result.ID, map[string]any{"period": result.Period, "status": result.Status})
	return result, nil
}

// Review moves a draft to reviewed.
func (s *Service) Review(ctx context.Context, id int64) (Voucher, error) {
	return s.transition(ctx, id, StatusDraft, StatusReviewed, "voucher.review")
}

// Unreview moves a reviewed voucher back to draft.
func (s *Service) Unreview(ctx context.Context, id int64) (Voucher, error) {
	return s.transition(ctx, id, StatusReviewed, StatusDraft, "voucher.unreview")
}

func (s *Service) transition(ctx context.Context, id int64, from, to Status, action string) (Voucher, error) {
	var result Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetVoucherForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != from {
			return internalShared.NewErrorf(internalShared.CodeInvalidStatus, "voucher %d is %s, expected %s", id, current.Status, from)
		}
		if err := tx.UpdateStatus(ctx, id, to, nil); err != nil {
			return err
		}
		current.Status = to
		result = current
		return nil
	})
	if err != nil {
		return Voucher{}, err
	}
	s.record(ctx, action, id, nil)
	return result, nil
}

// Confirm numbers a reviewed voucher, marks it confirmed, and applies its
// entries to the balance index in one transaction.
func (s *Service) Confirm(ctx context.Context, id int64) (Voucher, error) {
	var result Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetVoucherForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch current.Status {
		case StatusReviewed:
		case StatusDraft:
			return internalShared.NewErrorf(internalShared.CodeVoucherNotReviewed, "voucher %d is not reviewed", id)
		default:
			return internalShared.NewErrorf(internalShared.CodeInvalidStatus, "voucher %d is %s", id, current.Status)
		}
		status, err := tx.PeriodStatus(ctx, current.Period)
		if err != nil {
			return err
		}
		if err := admit(status, current.EntryType, current.Period); err != nil {
			return err
		}
		if current.VoucherNo == "" {
			current.VoucherNo, err = tx.AssignVoucherNo(ctx, current.ID, current.Date)
			if err != nil {
				return err
			}
		}
		now := s.now()
		if err := tx.UpdateStatus(ctx, id, StatusConfirmed, &now); err != nil {
			return err
		}
		if err := tx.ApplyEffects(ctx, current.Period, effectsOf(current.Entries)); err != nil {
			return err
		}
		current.Status = StatusConfirmed
		current.ConfirmedAt = &now
		result = current
		return nil
	})
	if err != nil {
		return Voucher{}, err
	}
	s.record(ctx, "voucher.confirm", id, map[string]any{"voucher_no": result.VoucherNo})
	return result, nil
}

// Delete removes a draft voucher entirely. Any other status refuses.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetVoucherForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return internalShared.NewErrorf(internalShared.CodeInvalidStatus, "voucher %d is %s, only drafts delete", id, current.Status)
		}
		return tx.DeleteVoucher(ctx, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "voucher.delete", id, nil)
	return nil
}

// Void cancels a confirmed voucher by emitting a red-letter reversal. The
// reversal is confirmed immediately so the two balance applications cancel
// exactly; the original row stays visible, flagged voided.
func (s *Service) Void(ctx context.Context, in VoidInput) (Voucher, error) {
	if in.Reason == "" {
		return Voucher{}, fmt.Errorf("voucher: void reason required")
	}
	var reversal Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetVoucherForUpdate(ctx, in.VoucherID)
		if err != nil {
			return err
		}
		if original.Status != StatusConfirmed {
			return internalShared.NewErrorf(internalShared.CodeVoidConfirmed, "voucher %d is %s, only confirmed vouchers void", in.VoucherID, original.Status)
		}
		status, err := tx.PeriodStatus(ctx, original.Period)
		if err != nil {
			return err
		}
		entryType := EntryTypeNormal
		switch status {
		case internalShared.PeriodStatusOpen:
		case internalShared.PeriodStatusAdjustment:
			if !in.Adjustment {
				return internalShared.NewErrorf(internalShared.CodePeriodAdjustOnly, "period %s accepts adjustment postings only", original.Period)
			}
			entryType = EntryTypeAdjustment
		default:
			return internalShared.NewErrorf(internalShared.CodePeriodClosed, "period %s is closed", original.Period)
		}
		now := s.now()
		v := Voucher{
			Date:        original.Date,
			Period:      original.Period,
			Description: reversalDescription(original),
			Status:      StatusConfirmed,
			EntryType:   entryType,
			ConfirmedAt: &now,
			VoidOf:      original.ID,
		}
		inserted, err := tx.InsertVoucher(ctx, v)
		if err != nil {
			return err
		}
		entries := reverseEntries(original.Entries)
		if err := tx.InsertEntries(ctx, inserted.ID, entries); err != nil {
			return err
		}
		inserted.VoucherNo, err = tx.AssignVoucherNo(ctx, inserted.ID, inserted.Date)
		if err != nil {
			return err
		}
		if err := tx.ApplyEffects(ctx, inserted.Period, effectsOf(entries)); err != nil {
			return err
		}
		if err := tx.MarkVoided(ctx, original.ID, in.Reason, now); err != nil {
			return err
		}
		if err := tx.InsertVoidLink(ctx, original.ID, inserted.ID, in.Reason); err != nil {
			return err
		}
		inserted.Entries = withVoucherID(inserted.ID, entries)
		reversal = inserted
		return nil
	})
	if err != nil {
		return Voucher{}, err
	}
	s.record(ctx, "voucher.void", in.VoucherID, map[string]any{"reversal_id": reversal.ID, "reason": in.Reason})
	return reversal, nil
}

// Get loads a voucher with its entries.
func (s *Service) Get(ctx context.Context, id int64) (Voucher, error) {
	return s.repo.GetVoucher(ctx, id)
}

// List returns vouchers matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Voucher, error) {
	return s.repo.List(ctx, filter)
}

// VoidLinks returns the reversal links of a voucher.
func (s *Service) VoidLinks(ctx context.Context, originalID int64) ([]VoidLink, error) {
	return s.repo.ListVoidLinks(ctx, originalID)
}

func (s *Service) resolveEntries(ctx context.Context, inputs []EntryInput) ([]Entry, error) {
	entries := make([]Entry, 0, len(inputs))
	for idx, in := range inputs {
		account, err := s.directory.FindAccount(ctx, in.Account)
		if err != nil {
			return nil, err
		}
		entry := Entry{
			LineNo:        idx + 1,
			AccountCode:   account.Code,
			AccountName:   account.Name,
			Description:   in.Description,
			Debit:         in.Debit,
			Credit:        in.Credit,
			CurrencyCode:  in.Currency,
			FXRate:        in.Rate,
			ForeignDebit:  in.ForeignDebit,
			ForeignCredit: in.ForeignCredit,
		}
		for _, ref := range []struct {
			typ  coa.DimensionType
			code string
			dst  *int64
		}{
			{coa.DimensionDepartment, in.Department, &entry.DeptID},
			{coa.DimensionProject, in.Project, &entry.ProjectID},
			{coa.DimensionCustomer, in.Customer, &entry.CustomerID},
			{coa.DimensionSupplier, in.Supplier, &entry.SupplierID},
			{coa.DimensionEmployee, in.Employee, &entry.EmployeeID},
		} {
			if ref.code == "" {
				continue
			}
			dim, err := s.directory.FindDimension(ctx, ref.typ, ref.code)
			if err != nil {
				return nil, err
			}
			*ref.dst = dim.ID
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		Action:   action,
		Entity:   "voucher",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
		At:       s.now(),
	})
}

func admit(periodStatus string, entryType EntryType, period string) error {
	switch periodStatus {
	case internalShared.PeriodStatusOpen:
		if entryType == EntryTypeAdjustment {
			return internalShared.NewErrorf(internalShared.CodeInvalidStatus, "period %s is open; adjustment vouchers need an adjustment period", period)
		}
		return nil
	case internalShared.PeriodStatusAdjustment:
		if entryType != EntryTypeAdjustment {
			return internalShared.NewErrorf(internalShared.CodePeriodAdjustOnly, "period %s accepts adjustment postings only", period)
		}
		return nil
	case internalShared.PeriodStatusClosed:
		return internalShared.NewErrorf(internalShared.CodePeriodClosed, "period %s is closed", period)
	}
	return internalShared.NewErrorf(internalShared.CodeInvalidStatus, "period %s has unknown status %q", period, periodStatus)
}

func reverseEntries(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, Entry{
			LineNo:        e.LineNo,
			AccountCode:   e.AccountCode,
			AccountName:   e.AccountName,
			Description:   "reversal: " + e.Description,
			Debit:         e.Credit,
			Credit:        e.Debit,
			CurrencyCode:  e.CurrencyCode,
			FXRate:        e.FXRate,
			ForeignDebit:  e.ForeignCredit,
			ForeignCredit: e.ForeignDebit,
			DeptID:        e.DeptID,
			ProjectID:     e.ProjectID,
			CustomerID:    e.CustomerID,
			SupplierID:    e.SupplierID,
			EmployeeID:    e.EmployeeID,
		})
	}
	return out
}

func reversalDescription(original Voucher) string {
	if original.VoucherNo != "" {
		return fmt.Sprintf("Reversal of %s", original.VoucherNo)
	}
	return fmt.Sprintf("Reversal of voucher %d", original.ID)
}

func effectsOf(entries []Entry) []balance.Effect {
	effects := make([]balance.Effect, 0, len(entries))
	for _, e := range entries {
		effects = append(effects, balance.Effect{
			AccountCode:   e.AccountCode,
			Debit:         e.Debit,
			Credit:        e.Credit,
			CurrencyCode:  e.CurrencyCode,
			ForeignDebit:  e.ForeignDebit,
			ForeignCredit: e.ForeignCredit,
			DeptID:        e.DeptID,
			ProjectID:     e.ProjectID,
			CustomerID:    e.CustomerID,
			SupplierID:    e.SupplierID,
			EmployeeID:    e.EmployeeID,
		})
	}
	return effects
}

func withVoucherID(id int64, entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	for i := range out {
		out[i].VoucherID = id
	}
	return out
}
