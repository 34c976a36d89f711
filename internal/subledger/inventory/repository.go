package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ledger/meridian/internal/shared"
)

// RepositoryPort defines data access for items, batches, and moves.
type RepositoryPort interface {
	GetItem(ctx context.Context, sku string) (Item, error)
	UpsertItem(ctx context.Context, item Item) error
	ListItems(ctx context.Context) ([]Item, error)
	InsertBatch(ctx context.Context, b Batch) (Batch, error)
	OpenBatches(ctx context.Context, sku string) ([]Batch, error)
	UpdateBatchQty(ctx context.Context, id int64, qty float64) error
	InsertMove(ctx context.Context, m Move) (Move, error)
	ListMoves(ctx context.Context, sku string) ([]Move, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) RepositoryPort {
	return &repository{db: db}
}

const itemColumns = `sku, name, unit, warehouse, method, standard_cost, on_hand_qty, on_hand_value, last_cost, pending_qty, pending_cost, created_at`

func (r *repository) GetItem(ctx context.Context, sku string) (Item, error) {
	var it Item
	err := r.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE sku=$1`, sku).
		Scan(&it.SKU, &it.Name, &it.Unit, &it.Warehouse, &it.Method, &it.StandardCost, &it.OnHandQty, &it.OnHandValue, &it.LastCost, &it.PendingQty, &it.PendingCost, &it.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, shared.ErrNotFound
		}
		return Item{}, err
	}
	return it, nil
}

func (r *repository) UpsertItem(ctx context.Context, item Item) error {
	_, err := r.db.Exec(ctx, `INSERT INTO inventory_items (sku, name, unit, warehouse, method, standard_cost, on_hand_qty, on_hand_value, last_cost, pending_qty, pending_cost)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (sku) DO UPDATE SET name=EXCLUDED.name, unit=EXCLUDED.unit, warehouse=EXCLUDED.warehouse,
method=EXCLUDED.method, standard_cost=EXCLUDED.standard_cost, on_hand_qty=EXCLUDED.on_hand_qty,
on_hand_value=EXCLUDED.on_hand_value, last_cost=EXCLUDED.last_cost, pending_qty=EXCLUDED.pending_qty,
pending_cost=EXCLUDED.pending_cost`,
		item.SKU, item.Name, item.Unit, item.Warehouse, item.Method, item.StandardCost,
		item.OnHandQty, item.OnHandValue, item.LastCost, item.PendingQty, item.PendingCost)
	return err
}

func (r *repository) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := r.db.Query(ctx, `SELECT `+itemColumns+` FROM inventory_items ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.SKU, &it.Name, &it.Unit, &it.Warehouse, &it.Method, &it.StandardCost, &it.OnHandQty, &it.OnHandValue, &it.LastCost, &it.PendingQty, &it.PendingCost, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *repository) InsertBatch(ctx context.Context, b Batch) (Batch, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO inventory_batches (sku, qty, unit_cost, date) VALUES ($1,$2,$3,$4) RETURNING id`,
		b.SKU, b.Qty, b.UnitCost, b.Date)
	if err := row.Scan(&b.ID); err != nil {
		return Batch{}, err
	}
	return b, nil
}

func (r *repository) OpenBatches(ctx context.Context, sku string) ([]Batch, error) {
	rows, err := r.db.Query(ctx, `SELECT id, sku, qty, unit_cost, date FROM inventory_batches WHERE sku=$1 AND qty > 0 ORDER BY date, id`, sku)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.SKU, &b.Qty, &b.UnitCost, &b.Date); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repository) UpdateBatchQty(ctx context.Context, id int64, qty float64) error {
	_, err := r.db.Exec(ctx, `UPDATE inventory_batches SET qty=$2 WHERE id=$1`, id, qty)
	return err
}

func (r *repository) InsertMove(ctx context.Context, m Move) (Move, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO inventory_moves (sku, direction, qty, unit_cost, amount, date, voucher_id, pending_cost_adjustment)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		m.SKU, m.Direction, m.Qty, m.UnitCost, m.Amount, m.Date, m.VoucherID, m.Pending)
	if err := row.Scan(&m.ID); err != nil {
		return Move{}, err
	}
	return m, nil
}

func (r *repository) ListMoves(ctx context.Context, sku string) ([]Move, error) {
	rows, err := r.db.Query(ctx, `SELECT id, sku, direction, qty, unit_cost, amount, date, voucher_id, pending_cost_adjustment FROM inventory_moves WHERE ($1='' OR sku=$1) ORDER BY id`, sku)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Move
	for rows.Next() {
		var m Move
		if err := rows.Scan(&m.ID, &m.SKU, &m.Direction, &m.Qty, &m.UnitCost, &m.Amount, &m.Date, &m.VoucherID, &m.Pending); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
