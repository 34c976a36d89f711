package balance

import (
	"context"
	"sort"

	"github.com/meridian-ledger/meridian/internal/coa"
	"github.com/meridian-ledger/meridian/internal/shared"
)

// MemoryStore keeps the index in a map. It backs the rebuild replay and
// the service tests.
type MemoryStore struct {
	rows       map[Key]Balance
	directions map[string]coa.Direction
}

// NewMemoryStore builds a MemoryStore resolving directions from the map.
func NewMemoryStore(directions map[string]coa.Direction) *MemoryStore {
	return &MemoryStore{
		rows:       make(map[Key]Balance),
		directions: directions,
	}
}

func (m *MemoryStore) Get(_ context.Context, key Key) (Balance, bool, error) {
	row, ok := m.rows[key]
	return row, ok, nil
}

func (m *MemoryStore) Put(_ context.Context, b Balance) error {
	m.rows[b.Key] = b
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key Key) error {
	delete(m.rows, key)
	return nil
}

func (m *MemoryStore) ListPeriod(_ context.Context, period string) ([]Balance, error) {
	var out []Balance
	for _, row := range m.rows {
		if row.Period == period {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i].Key, out[j].Key) })
	return out, nil
}

func (m *MemoryStore) PriorClosing(_ context.Context, key Key) (float64, float64, string, error) {
	prev := key
	prev.Period = shared.PrevPeriod(key.Period)
	if prev.Period == "" {
		return 0, 0, "", nil
	}
	row, ok := m.rows[prev]
	if !ok {
		return 0, 0, "", nil
	}
	return row.Closing, row.ForeignClosing, row.CurrencyCode, nil
}

func (m *MemoryStore) Direction(_ context.Context, accountCode string) (coa.Direction, error) {
	if d, ok := m.directions[accountCode]; ok {
		return d, nil
	}
	return "", shared.NewErrorf(shared.CodeAccountNotFound, "account not found: %s", accountCode)
}

// All returns every row sorted by key, used by rebuild comparison.
func (m *MemoryStore) All() []Balance {
	out := make([]Balance, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i].Key, out[j].Key) })
	return out
}

func less(a, b Key) bool {
	if a.Period != b.Period {
		return a.Period < b.Period
	}
	if a.AccountCode != b.AccountCode {
		return a.AccountCode < b.AccountCode
	}
	if a.DeptID != b.DeptID {
		return a.DeptID < b.DeptID
	}
	if a.ProjectID != b.ProjectID {
		return a.ProjectID < b.ProjectID
	}
	if a.CustomerID != b.CustomerID {
		return a.CustomerID < b.CustomerID
	}
	if a.SupplierID != b.SupplierID {
		return a.SupplierID < b.SupplierID
	}
	return a.EmployeeID < b.EmployeeID
}
