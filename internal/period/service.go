package period

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/meridian-ledger/meridian/internal/coa"
	"github.com/meridian-ledger/meridian/internal/money"
	"github.com/meridian-ledger/meridian/internal/shared"
	"github.com/meridian-ledger/meridian/internal/voucher"
)

// VoucherPort is the slice of the voucher store the close flow drives.
type VoucherPort interface {
	Submit(ctx context.Context, in voucher.SubmitInput) (voucher.Voucher, error)
	Void(ctx context.Context, in voucher.VoidInput) (voucher.Voucher, error)
	List(ctx context.Context, filter voucher.Filter) ([]voucher.Voucher, error)
}

// AccountDirectory lists the chart for selector matching.
type AccountDirectory interface {
	ListAccounts(ctx context.Context, onlyEnabled bool) ([]coa.Account, error)
}

// AuditPort records period lifecycle actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service governs period status and the templated close/reopen flows.
//
// Closing vouchers post through the voucher store and are idempotent per
// (period, template) via the source event id, so a close interrupted after
// posting can simply be retried: the voucher commit is the authoritative
// fence.
type Service struct {
	repo     Repository
	vouchers VoucherPort
	accounts AccountDirectory
	audit    AuditPort
	now      func() time.Time
}

// NewService constructs a Service instance.
func NewService(repo Repository, vouchers VoucherPort, accounts AccountDirectory, audit AuditPort) *Service {
	return &Service{repo: repo, vouchers: vouchers, accounts: accounts, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns one period.
func (s *Service) Get(ctx context.Context, period string) (Period, error) {
	return s.repo.GetPeriod(ctx, period)
}

// List returns all periods in order.
func (s *Service) List(ctx context.Context) ([]Period, error) {
	return s.repo.ListPeriods(ctx)
}

// Open creates the period in open status when absent.
func (s *Service) Open(ctx context.Context, period string) (Period, error) {
	var out Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetPeriodForUpdate(ctx, period)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		out, err = tx.InsertPeriod(ctx, period, StatusOpen)
		return err
	})
	return out, err
}

// BeginAdjustment moves an open period into adjustment status.
func (s *Service) BeginAdjustment(ctx context.Context, period string) (Period, error) {
	return s.setStatus(ctx, period, StatusAdjustment, "period.adjust")
}

func (s *Service) setStatus(ctx context.Context, period, target, action string) (Period, error) {
	var out Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetPeriodForUpdate(ctx, period)
		if err != nil {
			return err
		}
		if err := shared.ValidatePeriodTransition(current.Status, target); err != nil {
			return shared.NewErrorf(shared.CodeInvalidStatus, "period %s cannot move from %s to %s", period, current.Status, target)
		}
		if err := tx.UpdateStatus(ctx, period, target, nil); err != nil {
			return err
		}
		current.Status = target
		out = current
		return nil
	})
	if err != nil {
		return Period{}, err
	}
	s.record(ctx, action, period, nil)
	return out, nil
}

// CloseResult summarises one close run.
type CloseResult struct {
	Period          string
	ClosingVouchers []string
	RolledRows      int
}

// Close executes the templated close: sanity-check the period's vouchers,
// post one closing voucher per active template, roll balances into the
// next period, and mark the period closed.
func (s *Service) Close(ctx context.Context, period string) (CloseResult, error) {
	current, err := s.repo.GetPeriod(ctx, period)
	if err != nil {
		return CloseResult{}, err
	}
	if current.Status == StatusClosed || shared.ValidatePeriodTransition(current.Status, StatusClosed) != nil {
		return CloseResult{}, shared.NewErrorf(shared.CodeInvalidStatus, "period %s is %s and cannot close", period, current.Status)
	}

	if err := s.assertVouchersBalanced(ctx, period); err != nil {
		return CloseResult{}, err
	}

	accounts, err := s.accounts.ListAccounts(ctx, false)
	if err != nil {
		return CloseResult{}, err
	}
	accountByCode := make(map[string]coa.Account, len(accounts))
	for _, a := range accounts {
		accountByCode[a.Code] = a
	}

	var balancesByAccount map[string]float64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rows, err := tx.PeriodBalances(ctx, period)
		if err != nil {
			return err
		}
		balancesByAccount = make(map[string]float64)
		for _, row := range rows {
			balancesByAccount[row.AccountCode] += row.Closing
		}
		return nil
	})
	if err != nil {
		return CloseResult{}, err
	}

	templates, err := s.repo.ListTemplates(ctx, true)
	if err != nil {
		return CloseResult{}, err
	}

	result := CloseResult{Period: period}
	entryType := voucher.EntryTypeNormal
	if current.Status == StatusAdjustment {
		entryType = voucher.EntryTypeAdjustment
	}
	for _, tmpl := range templates {
		entries, err := buildClosingEntries(tmpl, accountByCode, balancesByAccount)
		if err != nil {
			return result, err
		}
		if len(entries) == 0 {
			continue
		}
		v, err := s.vouchers.Submit(ctx, voucher.SubmitInput{
			Date:           lastDayOf(period),
			Description:    closingDescription(tmpl, period),
			EntryType:      entryType,
			SourceTemplate: tmpl.Code,
			SourceEventID:  closeEventID(period, tmpl.Code),
			AutoConfirm:    true,
			Entries:        entries,
		})
		if err != nil {
			return result, err
		}
		result.ClosingVouchers = append(result.ClosingVouchers, v.VoucherNo)
	}

	now := s.now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetPeriodForUpdate(ctx, period); err != nil {
			return err
		}
		rolled, err := tx.Rollover(ctx, period)
		if err != nil {
			return err
		}
		result.RolledRows = rolled
		return tx.UpdateStatus(ctx, period, StatusClosed, &now)
	})
	if err != nil {
		return result, err
	}
	s.record(ctx, "period.close", period, map[string]any{"closing_vouchers": result.ClosingVouchers, "rolled": result.RolledRows})
	return result, nil
}

// ReopenResult summarises a reopen run.
type ReopenResult struct {
	Period         string
	VoidedVouchers []string
	CarryVouchers  []string
	RemovedRows    int
}

// Reopen reverts a close: void the closing vouchers, un-roll untouched
// balances of the next period, and compensate touched ones with an
// adjustment-carry voucher.
func (s *Service) Reopen(ctx context.Context, period string) (ReopenResult, error) {
	result := ReopenResult{Period: period}
	if _, err := s.setStatus(ctx, period, StatusOpen, "period.reopen"); err != nil {
		return result, err
	}

	closings, err := s.vouchers.List(ctx, voucher.Filter{
		Period:            period,
		Status:            voucher.StatusConfirmed,
		SourceEventPrefix: "close:" + period + ":",
	})
	if err != nil {
		return result, err
	}
	sort.Slice(closings, func(i, j int) bool { return closings[i].VoucherNo < closings[j].VoucherNo })

	next := shared.NextPeriod(period)
	var nextHasActivity bool
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rows, err := tx.PeriodBalances(ctx, next)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if row.Debit != 0 || row.Credit != 0 {
				nextHasActivity = true
				break
			}
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	var reversals []voucher.Voucher
	for _, closing := range closings {
		reversal, err := s.vouchers.Void(ctx, voucher.VoidInput{VoucherID: closing.ID, Reason: "period reopened"})
		if err != nil {
			return result, err
		}
		reversals = append(reversals, reversal)
		result.VoidedVouchers = append(result.VoidedVouchers, closing.VoucherNo)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		_, removed, err := tx.UnrollInactive(ctx, period)
		if err != nil {
			return err
		}
		result.RemovedRows = removed
		return nil
	})
	if err != nil {
		return result, err
	}

	if nextHasActivity {
		for _, reversal := range reversals {
			carry, err := s.vouchers.Submit(ctx, voucher.SubmitInput{
				Date:          firstDayOf(next),
				Description:   fmt.Sprintf("Adjustment carry from reopening %s", period),
				EntryType:     voucher.EntryTypeNormal,
				SourceEventID: fmt.Sprintf("reopen-carry:%s:%s", period, reversal.VoucherNo),
				AutoConfirm:   true,
				Entries:       carryEntries(reversal),
			})
			if err != nil {
				return result, err
			}
			result.CarryVouchers = append(result.CarryVouchers, carry.VoucherNo)
		}
	}
	s.record(ctx, "period.reopen", period, map[string]any{"voided": result.VoidedVouchers, "carry": result.CarryVouchers})
	return result, nil
}

// SaveTemplate validates and stores a closing template.
func (s *Service) SaveTemplate(ctx context.Context, t ClosingTemplate) error {
	if t.Code == "" || t.Name == "" {
		return errors.New("period: template code and name required")
	}
	if t.Rule.Target == "" {
		return errors.New("period: template target account required")
	}
	if len(t.Rule.Sources) == 0 {
		return errors.New("period: template needs at least one source selector")
	}
	return s.repo.SaveTemplate(ctx, t)
}

// DisableTemplate turns a closing template off.
func (s *Service) DisableTemplate(ctx context.Context, code string) error {
	return s.repo.DisableTemplate(ctx, code)
}

// ListTemplates returns stored closing templates.
func (s *Service) ListTemplates(ctx context.Context, onlyActive bool) ([]ClosingTemplate, error) {
	return s.repo.ListTemplates(ctx, onlyActive)
}

func (s *Service) assertVouchersBalanced(ctx context.Context, period string) error {
	confirmed, err := s.vouchers.List(ctx, voucher.Filter{Period: period, Status: voucher.StatusConfirmed})
	if err != nil {
		return err
	}
	for _, v := range confirmed {
		var debit, credit float64
		for _, e := range v.Entries {
			debit += e.Debit
			credit += e.Credit
		}
		if !money.Equal(debit, credit) {
			return shared.NewErrorf(shared.CodeNotBalanced, "voucher %s is unbalanced: debit %.2f, credit %.2f", v.VoucherNo, debit, credit)
		}
	}
	return nil
}

// buildClosingEntries flattens the selected accounts into the target. A
// credit-natured source (revenue) is debited by its closing balance, a
// debit-natured source (expense) credited; the residual lands on the
// target so the voucher balances by construction.
func buildClosingEntries(tmpl ClosingTemplate, accounts map[string]coa.Account, closings map[string]float64) ([]voucher.EntryInput, error) {
	target, ok := accounts[tmpl.Rule.Target]
	if !ok {
		return nil, shared.NewErrorf(shared.CodeAccountNotFound, "closing target not found: %s", tmpl.Rule.Target)
	}
	if !tmpl.Active {
		return nil, shared.NewErrorf(shared.CodeTemplateDisabled, "template disabled: %s", tmpl.Code)
	}

	codes := make([]string, 0, len(closings))
	for code := range closings {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var entries []voucher.EntryInput
	var debitTotal, creditTotal float64
	for _, code := range codes {
		account, ok := accounts[code]
		if !ok || !tmpl.Rule.Matches(account) || code == target.Code {
			continue
		}
		closing := money.Round2(closings[code])
		if money.IsZero(closing) {
			continue
		}
		entry := voucher.EntryInput{Account: code, Description: tmpl.Name}
		side := account.Direction
		amount := closing
		if amount < 0 {
			side = opposite(side)
			amount = -amount
		}
		if side == coa.DirectionCredit {
			entry.Debit = amount
			debitTotal += amount
		} else {
			entry.Credit = amount
			creditTotal += amount
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	residual := money.Round2(debitTotal - creditTotal)
	if residual > 0 {
		entries = append(entries, voucher.EntryInput{Account: target.Code, Description: tmpl.Name, Credit: residual})
		creditTotal += residual
	} else if residual < 0 {
		entries = append(entries, voucher.EntryInput{Account: target.Code, Description: tmpl.Name, Debit: -residual})
		debitTotal += -residual
	}
	if !money.Equal(debitTotal, creditTotal) {
		return nil, shared.NewErrorf(shared.CodeTemplateUnbalanced, "template %s produced debit %.2f, credit %.2f", tmpl.Code, debitTotal, creditTotal)
	}
	return entries, nil
}

func carryEntries(reversal voucher.Voucher) []voucher.EntryInput {
	out := make([]voucher.EntryInput, 0, len(reversal.Entries))
	for _, e := range reversal.Entries {
		out = append(out, voucher.EntryInput{
			Account:     e.AccountCode,
			Description: e.Description,
			Debit:       e.Debit,
			Credit:      e.Credit,
		})
	}
	return out
}

func (s *Service) record(ctx context.Context, action, period string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "period",
		EntityID: period,
		Meta:     meta,
		At:       s.now(),
	})
}

func closeEventID(period, templateCode string) string {
	return "close:" + period + ":" + templateCode
}

func closingDescription(tmpl ClosingTemplate, period string) string {
	if tmpl.Rule.Description != "" {
		return tmpl.Rule.Description
	}
	return fmt.Sprintf("%s %s", tmpl.Name, period)
}

func opposite(d coa.Direction) coa.Direction {
	if d == coa.DirectionDebit {
		return coa.DirectionCredit
	}
	return coa.DirectionDebit
}

func firstDayOf(period string) time.Time {
	t, err := time.Parse("2006-01-02", period+"-01")
	if err != nil {
		return time.Time{}
	}
	return t
}

func lastDayOf(period string) time.Time {
	first := firstDayOf(period)
	return first.AddDate(0, 1, -1)
}
