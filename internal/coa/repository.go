package coa

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ledger/meridian/internal/shared"
)

// Repository defines data access for accounts and dimensions.
type Repository interface {
	InsertAccount(ctx context.Context, a Account) error
	UpdateAccountEnabled(ctx context.Context, code string, enabled bool) error
	GetAccount(ctx context.Context, codeOrName string) (Account, error)
	ListAccounts(ctx context.Context, onlyEnabled bool) ([]Account, error)
	AccountHasPostings(ctx context.Context, code string) (bool, error)

	InsertDimension(ctx context.Context, d Dimension) (Dimension, error)
	UpdateDimensionEnabled(ctx context.Context, id int64, enabled bool) error
	GetDimension(ctx context.Context, typ DimensionType, code string) (Dimension, error)
	GetDimensionByID(ctx context.Context, id int64) (Dimension, error)
	ListDimensions(ctx context.Context, typ DimensionType) ([]Dimension, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `code, name, level, parent_code, type, direction, cash_flow, currency, revaluable, enabled, system, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.Code, &a.Name, &a.Level, &a.ParentCode, &a.Type, &a.Direction, &a.CashFlow, &a.Currency, &a.Revaluable, &a.Enabled, &a.System, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *repository) InsertAccount(ctx context.Context, a Account) error {
	_, err := r.db.Exec(ctx, `INSERT INTO accounts (code, name, level, parent_code, type, direction, cash_flow, currency, revaluable, enabled, system)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (code) DO NOTHING`,
		a.Code, a.Name, a.Level, a.ParentCode, a.Type, a.Direction, a.CashFlow, a.Currency, a.Revaluable, a.Enabled, a.System)
	return err
}

func (r *repository) UpdateAccountEnabled(ctx context.Context, code string, enabled bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET enabled=$2, updated_at=NOW() WHERE code=$1`, code, enabled)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NewErrorf(shared.CodeAccountNotFound, "account not found: %s", code)
	}
	return nil
}

func (r *repository) GetAccount(ctx context.Context, codeOrName string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code=$1 OR name=$1`, codeOrName)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.NewErrorf(shared.CodeAccountNotFound, "account not found: %s", codeOrName)
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) ListAccounts(ctx context.Context, onlyEnabled bool) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	if onlyEnabled {
		query += ` WHERE enabled`
	}
	query += ` ORDER BY code`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) AccountHasPostings(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM voucher_entries WHERE account_code=$1)`, code).Scan(&exists)
	return exists, err
}

func (r *repository) InsertDimension(ctx context.Context, d Dimension) (Dimension, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO dimensions (type, code, name, parent_id, enabled)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at`,
		d.Type, d.Code, d.Name, d.ParentID, d.Enabled)
	if err := row.Scan(&d.ID, &d.CreatedAt); err != nil {
		return Dimension{}, err
	}
	return d, nil
}

func (r *repository) UpdateDimensionEnabled(ctx context.Context, id int64, enabled bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE dimensions SET enabled=$2 WHERE id=$1`, id, enabled)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NewErrorf(shared.CodeDimensionNotFound, "dimension not found: %d", id)
	}
	return nil
}

func (r *repository) GetDimension(ctx context.Context, typ DimensionType, code string) (Dimension, error) {
	var d Dimension
	err := r.db.QueryRow(ctx, `SELECT id, type, code, name, parent_id, enabled, created_at FROM dimensions WHERE type=$1 AND code=$2`, typ, code).
		Scan(&d.ID, &d.Type, &d.Code, &d.Name, &d.ParentID, &d.Enabled, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Dimension{}, shared.NewErrorf(shared.CodeDimensionNotFound, "dimension not found: %s:%s", typ, code)
		}
		return Dimension{}, err
	}
	return d, nil
}

func (r *repository) GetDimensionByID(ctx context.Context, id int64) (Dimension, error) {
	var d Dimension
	err := r.db.QueryRow(ctx, `SELECT id, type, code, name, parent_id, enabled, created_at FROM dimensions WHERE id=$1`, id).
		Scan(&d.ID, &d.Type, &d.Code, &d.Name, &d.ParentID, &d.Enabled, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Dimension{}, shared.NewErrorf(shared.CodeDimensionNotFound, "dimension not found: %d", id)
		}
		return Dimension{}, err
	}
	return d, nil
}

func (r *repository) ListDimensions(ctx context.Context, typ DimensionType) ([]Dimension, error) {
	rows, err := r.db.Query(ctx, `SELECT id, type, code, name, parent_id, enabled, created_at FROM dimensions WHERE ($1 = '' OR type=$1) ORDER BY type, code`, typ)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var dims []Dimension
	for rows.Next() {
		var d Dimension
		if err := rows.Scan(&d.ID, &d.Type, &d.Code, &d.Name, &d.ParentID, &d.Enabled, &d.CreatedAt); err != nil {
			return nil, err
		}
		dims = append(dims, d)
	}
	return dims, rows.Err()
}
