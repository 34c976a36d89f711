package voucher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-ledger/meridian/internal/shared"
)

type memoryTemplateStore struct {
	templates map[string]Template
	events    map[string]int64
}

func newMemoryTemplateStore() *memoryTemplateStore {
	return &memoryTemplateStore{templates: make(map[string]Template), events: make(map[string]int64)}
}

func (s *memoryTemplateStore) GetTemplate(_ context.Context, code string) (Template, error) {
	t, ok := s.templates[code]
	if !ok {
		return Template{}, shared.NewErrorf(shared.CodeTemplateDisabled, "template not found: %s", code)
	}
	return t, nil
}

func (s *memoryTemplateStore) SaveTemplate(_ context.Context, t Template) error {
	s.templates[t.Code] = t
	return nil
}

func (s *memoryTemplateStore) ListTemplates(_ context.Context) ([]Template, error) {
	var out []Template
	for _, t := range s.templates {
		out = append(out, t)
	}
	return out, nil
}

func (s *memoryTemplateStore) DisableTemplate(_ context.Context, code string) error {
	t, ok := s.templates[code]
	if !ok {
		return shared.NewErrorf(shared.CodeTemplateDisabled, "template not found: %s", code)
	}
	t.Active = false
	s.templates[code] = t
	return nil
}

func (s *memoryTemplateStore) RecordEvent(_ context.Context, eventID, _ string, voucherID int64) error {
	s.events[eventID] = voucherID
	return nil
}

func salesTemplate() Template {
	return Template{
		Code:   "SALE",
		Name:   "Cash sale with tax",
		Active: true,
		Rule: TemplateRule{
			Description: "cash sale",
			Fields:      []string{"amount", "tax_rate"},
			Entries: []TemplateEntry{
				{Account: "1001", Debit: "round(amount * (1 + tax_rate), 2)"},
				{Account: "6001", Credit: "amount"},
				{Account: "2202", Credit: "round(amount * tax_rate, 2)"},
			},
		},
	}
}

func TestTemplateApplyEmitsBalancedVoucher(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	store := newMemoryTemplateStore()
	runner := NewTemplateRunner(store, svc)

	require.NoError(t, runner.Save(ctx, salesTemplate()))

	v, err := runner.Apply(ctx, ApplyTemplateInput{
		TemplateCode: "SALE",
		Date:         time.Date(2025, 1, 18, 0, 0, 0, 0, time.UTC),
		EventID:      "sale-42",
		Event:        map[string]float64{"amount": 1000, "tax_rate": 0.13},
		AutoConfirm:  true,
	})
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, v.Status)
	require.Equal(t, "SALE", v.SourceTemplate)
	require.Len(t, v.Entries, 3)
	require.Equal(t, 1130.0, v.Entries[0].Debit)
	require.Equal(t, 130.0, v.Entries[2].Credit)
	require.Equal(t, v.ID, store.events["sale-42"])
}

func TestTemplateApplyIdempotentPerEvent(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	store := newMemoryTemplateStore()
	runner := NewTemplateRunner(store, svc)
	require.NoError(t, runner.Save(ctx, salesTemplate()))

	in := ApplyTemplateInput{
		TemplateCode: "SALE",
		Date:         time.Date(2025, 1, 18, 0, 0, 0, 0, time.UTC),
		EventID:      "sale-43",
		Event:        map[string]float64{"amount": 500, "tax_rate": 0},
		AutoConfirm:  true,
	}
	first, err := runner.Apply(ctx, in)
	require.NoError(t, err)
	second, err := runner.Apply(ctx, in)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestTemplateDisabled(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	store := newMemoryTemplateStore()
	runner := NewTemplateRunner(store, svc)
	require.NoError(t, runner.Save(ctx, salesTemplate()))
	require.NoError(t, runner.Disable(ctx, "SALE"))

	_, err := runner.Apply(ctx, ApplyTemplateInput{
		TemplateCode: "SALE",
		Date:         time.Date(2025, 1, 18, 0, 0, 0, 0, time.UTC),
		Event:        map[string]float64{"amount": 100, "tax_rate": 0},
	})
	require.True(t, shared.IsCode(err, shared.CodeTemplateDisabled))
}

func TestTemplateUnbalancedRejectedBeforeSubmit(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()
	store := newMemoryTemplateStore()
	runner := NewTemplateRunner(store, svc)

	lopsided := Template{
		Code:   "BAD",
		Name:   "unbalanced",
		Active: true,
		Rule: TemplateRule{
			Entries: []TemplateEntry{
				{Account: "1001", Debit: "amount"},
				{Account: "6001", Credit: "amount / 2"},
			},
		},
	}
	require.NoError(t, runner.Save(ctx, lopsided))

	_, err := runner.Apply(ctx, ApplyTemplateInput{
		TemplateCode: "BAD",
		Date:         time.Date(2025, 1, 18, 0, 0, 0, 0, time.UTC),
		Event:        map[string]float64{"amount": 100},
	})
	require.True(t, shared.IsCode(err, shared.CodeTemplateUnbalanced))
	require.Empty(t, repo.vouchers)
}

func TestTemplateSaveRejectsBadExpression(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	runner := NewTemplateRunner(newMemoryTemplateStore(), svc)

	err := runner.Save(ctx, Template{
		Code: "EVIL", Name: "evil", Active: true,
		Rule: TemplateRule{Entries: []TemplateEntry{{Account: "1001", Debit: "system('rm')"}}},
	})
	require.Error(t, err)
}
