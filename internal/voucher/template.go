package voucher

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-ledger/meridian/internal/money"
	"github.com/meridian-ledger/meridian/internal/ruleexpr"
	"github.com/meridian-ledger/meridian/internal/shared"
)

// TemplateRule pairs an event schema with entry shapes whose amounts are
// expressions over event fields.
type TemplateRule struct {
	Description string          `json:"description"`
	Fields      []string        `json:"fields,omitempty"`
	Entries     []TemplateEntry `json:"entries"`
}

// TemplateEntry is one declarative entry shape.
type TemplateEntry struct {
	Account     string `json:"account"`
	Description string `json:"description,omitempty"`
	Debit       string `json:"debit,omitempty"`
	Credit      string `json:"credit,omitempty"`
	Department  string `json:"department,omitempty"`
	Project     string `json:"project,omitempty"`
	Customer    string `json:"customer,omitempty"`
	Supplier    string `json:"supplier,omitempty"`
	Employee    string `json:"employee,omitempty"`
}

// Template is a stored voucher template.
type Template struct {
	Code      string
	Name      string
	Rule      TemplateRule
	Active    bool
	CreatedAt time.Time
}

// TemplateStore persists voucher templates and the events they consumed.
type TemplateStore interface {
	GetTemplate(ctx context.Context, code string) (Template, error)
	SaveTemplate(ctx context.Context, t Template) error
	ListTemplates(ctx context.Context) ([]Template, error)
	DisableTemplate(ctx context.Context, code string) error
	RecordEvent(ctx context.Context, eventID, templateCode string, voucherID int64) error
}

// ApplyTemplateInput names the event a template run consumes.
type ApplyTemplateInput struct {
	TemplateCode string
	Date         time.Time
	EventID      string
	Event        map[string]float64
	AutoConfirm  bool
}

// TemplateRunner synthesizes vouchers from templates and events.
type TemplateRunner struct {
	store    TemplateStore
	vouchers *Service
}

// NewTemplateRunner builds a TemplateRunner.
func NewTemplateRunner(store TemplateStore, vouchers *Service) *TemplateRunner {
	return &TemplateRunner{store: store, vouchers: vouchers}
}

// Save validates the rule's expressions up front and stores the template.
func (r *TemplateRunner) Save(ctx context.Context, t Template) error {
	if t.Code == "" || t.Name == "" {
		return errors.New("voucher: template code and name required")
	}
	if len(t.Rule.Entries) == 0 {
		return errors.New("voucher: template needs at least one entry shape")
	}
	for _, entry := range t.Rule.Entries {
		for _, src := range []string{entry.Debit, entry.Credit} {
			if src == "" {
				continue
			}
			if _, err := ruleexpr.Parse(src); err != nil {
				return err
			}
		}
	}
	return r.store.SaveTemplate(ctx, t)
}

// Apply evaluates a template against an event and submits the resulting
// voucher. Evaluation that would produce an unbalanced voucher fails
// before anything is written.
func (r *TemplateRunner) Apply(ctx context.Context, in ApplyTemplateInput) (Voucher, error) {
	tmpl, err := r.store.GetTemplate(ctx, in.TemplateCode)
	if err != nil {
		return Voucher{}, err
	}
	if !tmpl.Active {
		return Voucher{}, shared.NewErrorf(shared.CodeTemplateDisabled, "template disabled: %s", tmpl.Code)
	}
	env := ruleexpr.Env(in.Event)
	var entries []EntryInput
	var debitTotal, creditTotal float64
	for _, shape := range tmpl.Rule.Entries {
		entry := EntryInput{
			Account:     shape.Account,
			Description: shape.Description,
			Department:  shape.Department,
			Project:     shape.Project,
			Customer:    shape.Customer,
			Supplier:    shape.Supplier,
			Employee:    shape.Employee,
		}
		if shape.Debit != "" {
			v, err := ruleexpr.EvalNumber(shape.Debit, env)
			if err != nil {
				return Voucher{}, err
			}
			entry.Debit = money.Round2(v)
		}
		if shape.Credit != "" {
			v, err := ruleexpr.EvalNumber(shape.Credit, env)
			if err != nil {
				return Voucher{}, err
			}
			entry.Credit = money.Round2(v)
		}
		// zero lines drop out so conditional shapes stay tidy
		if entry.Debit == 0 && entry.Credit == 0 {
			continue
		}
		debitTotal += entry.Debit
		creditTotal += entry.Credit
		entries = append(entries, entry)
	}
	if diff := money.Round2(debitTotal - creditTotal); money.Abs(diff) > money.Tolerance {
		return Voucher{}, shared.NewErrorf(shared.CodeTemplateUnbalanced,
			"template %s produced debit %.2f, credit %.2f", tmpl.Code, debitTotal, creditTotal).
			WithDetails(map[string]any{"debit_total": debitTotal, "credit_total": creditTotal, "difference": diff})
	}
	eventID := in.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}
	v, err := r.vouchers.Submit(ctx, SubmitInput{
		Date:           in.Date,
		Description:    tmpl.Rule.Description,
		EntryType:      EntryTypeNormal,
		SourceTemplate: tmpl.Code,
		SourceEventID:  eventID,
		AutoConfirm:    in.AutoConfirm,
		Entries:        entries,
	})
	if err != nil {
		return Voucher{}, err
	}
	if err := r.store.RecordEvent(ctx, eventID, tmpl.Code, v.ID); err != nil {
		return Voucher{}, err
	}
	return v, nil
}

// List returns all stored templates.
func (r *TemplateRunner) List(ctx context.Context) ([]Template, error) {
	return r.store.ListTemplates(ctx)
}

// Disable turns a template off.
func (r *TemplateRunner) Disable(ctx context.Context, code string) error {
	return r.store.DisableTemplate(ctx, code)
}
