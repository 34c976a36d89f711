package period

import (
	"time"

	"github.com/meridian-ledger/meridian/internal/coa"
)

// Status values for an accounting period.
const (
	StatusOpen       = "open"
	StatusAdjustment = "adjustment"
	StatusClosed     = "closed"
)

// Period is one YYYY-MM accounting period.
type Period struct {
	Period   string
	Status   string
	OpenedAt time.Time
	ClosedAt *time.Time
}

// SourceSelector picks accounts feeding a closing entry, by code prefix
// and/or account type.
type SourceSelector struct {
	Prefixes []string          `json:"prefixes,omitempty"`
	Types    []coa.AccountType `json:"types,omitempty"`
}

// ClosingRule is the declarative body of a closing template: flatten the
// selected accounts into the target account.
type ClosingRule struct {
	Description string           `json:"description"`
	Sources     []SourceSelector `json:"sources"`
	Target      string           `json:"target"`
}

// ClosingTemplate is a stored period-close rule. Evaluation is idempotent
// per period.
type ClosingTemplate struct {
	Code      string
	Name      string
	Rule      ClosingRule
	Active    bool
	CreatedAt time.Time
}

// Matches reports whether an account falls under the rule's selectors.
func (r ClosingRule) Matches(a coa.Account) bool {
	for _, sel := range r.Sources {
		if sel.matches(a) {
			return true
		}
	}
	return false
}

func (s SourceSelector) matches(a coa.Account) bool {
	if len(s.Prefixes) == 0 && len(s.Types) == 0 {
		return false
	}
	if len(s.Types) > 0 {
		found := false
		for _, t := range s.Types {
			if a.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(s.Prefixes) > 0 {
		found := false
		for _, p := range s.Prefixes {
			if len(a.Code) >= len(p) && a.Code[:len(p)] == p {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
