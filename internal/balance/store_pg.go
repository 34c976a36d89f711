package balance

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/meridian-ledger/meridian/internal/coa"
	"github.com/meridian-ledger/meridian/internal/shared"
)

// TxStore is the Postgres-backed Store over an open transaction. The
// voucher store applies effects inside its own transaction, so the store
// works over the transaction handle rather than the pool.
type TxStore struct {
	q pgx.Tx
}

// NewTxStore wraps a pgx transaction as a Store.
func NewTxStore(tx pgx.Tx) *TxStore {
	return &TxStore{q: tx}
}

const balanceColumns = `account_code, period, dept_id, project_id, customer_id, supplier_id, employee_id,
opening_balance, debit_amount, credit_amount, closing_balance,
currency_code, foreign_opening, foreign_debit, foreign_credit, foreign_closing`

func scanBalance(row pgx.Row) (Balance, error) {
	var b Balance
	err := row.Scan(&b.AccountCode, &b.Period, &b.DeptID, &b.ProjectID, &b.CustomerID, &b.SupplierID, &b.EmployeeID,
		&b.Opening, &b.Debit, &b.Credit, &b.Closing,
		&b.CurrencyCode, &b.ForeignOpening, &b.ForeignDebit, &b.ForeignCredit, &b.ForeignClosing)
	return b, err
}

func (s *TxStore) Get(ctx context.Context, key Key) (Balance, bool, error) {
	row := s.q.QueryRow(ctx, `SELECT `+balanceColumns+` FROM balances
WHERE account_code=$1 AND period=$2 AND dept_id=$3 AND project_id=$4 AND customer_id=$5 AND supplier_id=$6 AND employee_id=$7`,
		key.AccountCode, key.Period, key.DeptID, key.ProjectID, key.CustomerID, key.SupplierID, key.EmployeeID)
	b, err := scanBalance(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{}, false, nil
		}
		return Balance{}, false, err
	}
	return b, true, nil
}

func (s *TxStore) Put(ctx context.Context, b Balance) error {
	_, err := s.q.Exec(ctx, `INSERT INTO balances (account_code, period, dept_id, project_id, customer_id, supplier_id, employee_id,
opening_balance, debit_amount, credit_amount, closing_balance,
currency_code, foreign_opening, foreign_debit, foreign_credit, foreign_closing)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (account_code, period, dept_id, project_id, customer_id, supplier_id, employee_id)
DO UPDATE SET opening_balance=EXCLUDED.opening_balance, debit_amount=EXCLUDED.debit_amount,
credit_amount=EXCLUDED.credit_amount, closing_balance=EXCLUDED.closing_balance,
currency_code=EXCLUDED.currency_code, foreign_opening=EXCLUDED.foreign_opening,
foreign_debit=EXCLUDED.foreign_debit, foreign_credit=EXCLUDED.foreign_credit,
foreign_closing=EXCLUDED.foreign_closing, updated_at=NOW()`,
		b.AccountCode, b.Period, b.DeptID, b.ProjectID, b.CustomerID, b.SupplierID, b.EmployeeID,
		b.Opening, b.Debit, b.Credit, b.Closing,
		b.CurrencyCode, b.ForeignOpening, b.ForeignDebit, b.ForeignCredit, b.ForeignClosing)
	return err
}

func (s *TxStore) Delete(ctx context.Context, key Key) error {
	_, err := s.q.Exec(ctx, `DELETE FROM balances
WHERE account_code=$1 AND period=$2 AND dept_id=$3 AND project_id=$4 AND customer_id=$5 AND supplier_id=$6 AND employee_id=$7`,
		key.AccountCode, key.Period, key.DeptID, key.ProjectID, key.CustomerID, key.SupplierID, key.EmployeeID)
	return err
}

func (s *TxStore) ListPeriod(ctx context.Context, period string) ([]Balance, error) {
	rows, err := s.q.Query(ctx, `SELECT `+balanceColumns+` FROM balances WHERE period=$1 ORDER BY account_code, dept_id, project_id, customer_id, supplier_id, employee_id`, period)
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

func (s *TxStore) PriorClosing(ctx context.Context, key Key) (float64, float64, string, error) {
	prevPeriod := shared.PrevPeriod(key.Period)
	if prevPeriod == "" {
		return 0, 0, "", nil
	}
	var closing, foreignClosing float64
	var currency string
	err := s.q.QueryRow(ctx, `SELECT closing_balance, foreign_closing, currency_code FROM balances
WHERE account_code=$1 AND period=$2 AND dept_id=$3 AND project_id=$4 AND customer_id=$5 AND supplier_id=$6 AND employee_id=$7`,
		key.AccountCode, prevPeriod, key.DeptID, key.ProjectID, key.CustomerID, key.SupplierID, key.EmployeeID).
		Scan(&closing, &foreignClosing, &currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, "", nil
		}
		return 0, 0, "", err
	}
	return closing, foreignClosing, currency, nil
}

func (s *TxStore) Direction(ctx context.Context, accountCode string) (coa.Direction, error) {
	var direction coa.Direction
	err := s.q.QueryRow(ctx, `SELECT direction FROM accounts WHERE code=$1`, accountCode).Scan(&direction)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.NewErrorf(shared.CodeAccountNotFound, "account not found: %s", accountCode)
		}
		return "", err
	}
	return direction, nil
}
