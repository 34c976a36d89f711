package balance

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolReader serves read-only period listings straight off the pool, for
// consumers outside a write transaction (statements, FX revaluation).
type PoolReader struct {
	pool *pgxpool.Pool
}

// NewPoolReader builds a PoolReader.
func NewPoolReader(pool *pgxpool.Pool) *PoolReader {
	return &PoolReader{pool: pool}
}

// PeriodBalances lists one period's balance rows.
func (r *PoolReader) PeriodBalances(ctx context.Context, period string) ([]Balance, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+balanceColumns+` FROM balances WHERE period=$1 ORDER BY account_code, dept_id, project_id, customer_id, supplier_id, employee_id`, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
