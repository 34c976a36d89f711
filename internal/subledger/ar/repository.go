package ar

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ledger/meridian/internal/shared"
)

// RepositoryPort defines data access for AR items and settlements.
type RepositoryPort interface {
	InsertItem(ctx context.Context, item Item) (Item, error)
	GetItem(ctx context.Context, id int64) (Item, error)
	UpdateItem(ctx context.Context, id int64, outstanding float64, status ItemStatus) error
	ListItems(ctx context.Context, status ItemStatus, customerCode string) ([]Item, error)
	InsertSettlement(ctx context.Context, s Settlement) (Settlement, error)
	ListSettlements(ctx context.Context, itemID int64) ([]Settlement, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) RepositoryPort {
	return &repository{db: db}
}

const itemColumns = `id, customer_code, customer_dim_id, amount, outstanding, invoice_date, description, status, voucher_id, created_at`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.CustomerCode, &it.CustomerDimID, &it.Amount, &it.Outstanding, &it.InvoiceDate, &it.Description, &it.Status, &it.VoucherID, &it.CreatedAt)
	return it, err
}

func (r *repository) InsertItem(ctx context.Context, item Item) (Item, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO ar_items (customer_code, customer_dim_id, amount, outstanding, invoice_date, description, status, voucher_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at`,
		item.CustomerCode, item.CustomerDimID, item.Amount, item.Outstanding, item.InvoiceDate, item.Description, item.Status, item.VoucherID)
	if err := row.Scan(&item.ID, &item.CreatedAt); err != nil {
		return Item{}, err
	}
	return item, nil
}

func (r *repository) GetItem(ctx context.Context, id int64) (Item, error) {
	it, err := scanItem(r.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM ar_items WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, shared.ErrNotFound
		}
		return Item{}, err
	}
	return it, nil
}

func (r *repository) UpdateItem(ctx context.Context, id int64, outstanding float64, status ItemStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE ar_items SET outstanding=$2, status=$3 WHERE id=$1`, id, outstanding, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) ListItems(ctx context.Context, status ItemStatus, customerCode string) ([]Item, error) {
	rows, err := r.db.Query(ctx, `SELECT `+itemColumns+` FROM ar_items
WHERE ($1 = '' OR status=$1) AND ($2 = '' OR customer_code=$2) ORDER BY id`, status, customerCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *repository) InsertSettlement(ctx context.Context, s Settlement) (Settlement, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO ar_settlements (item_id, amount, date, voucher_id) VALUES ($1,$2,$3,$4) RETURNING id`,
		s.ItemID, s.Amount, s.Date, s.VoucherID)
	if err := row.Scan(&s.ID); err != nil {
		return Settlement{}, err
	}
	return s, nil
}

func (r *repository) ListSettlements(ctx context.Context, itemID int64) ([]Settlement, error) {
	rows, err := r.db.Query(ctx, `SELECT id, item_id, amount, date, voucher_id FROM ar_settlements WHERE item_id=$1 ORDER BY id`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Settlement
	for rows.Next() {
		var s Settlement
		if err := rows.Scan(&s.ID, &s.ItemID, &s.Amount, &s.Date, &s.VoucherID); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
