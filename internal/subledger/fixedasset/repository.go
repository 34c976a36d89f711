package fixedasset

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ledger/meridian/internal/shared"
)

// RepositoryPort defines data access for asset cards and CIP projects.
type RepositoryPort interface {
	InsertAsset(ctx context.Context, a Asset) (Asset, error)
	GetAsset(ctx context.Context, id int64) (Asset, error)
	UpdateAsset(ctx context.Context, a Asset) error
	ListAssets(ctx context.Context, status Status) ([]Asset, error)

	InsertProject(ctx context.Context, p CIPProject) (CIPProject, error)
	GetProject(ctx context.Context, id int64) (CIPProject, error)
	UpdateProject(ctx context.Context, p CIPProject) error
	InsertTransfer(ctx context.Context, t CIPTransfer) (CIPTransfer, error)

	WasDepreciated(ctx context.Context, period string) (bool, error)
	MarkDepreciated(ctx context.Context, period string, voucherID int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) RepositoryPort {
	return &repository{db: db}
}

const assetColumns = `id, name, cost, salvage, life_years, method, accum_depreciation, impairment, months_depreciated, acquired_at, status, dept_id, project_id, voucher_id, created_at`

func scanAsset(row pgx.Row) (Asset, error) {
	var a Asset
	err := row.Scan(&a.ID, &a.Name, &a.Cost, &a.Salvage, &a.LifeYears, &a.Method, &a.AccumDepreciation, &a.Impairment, &a.MonthsDepreciated, &a.AcquiredAt, &a.Status, &a.DeptID, &a.ProjectID, &a.VoucherID, &a.CreatedAt)
	return a, err
}

func (r *repository) InsertAsset(ctx context.Context, a Asset) (Asset, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO fixed_assets (name, cost, salvage, life_years, method, accum_depreciation, impairment, months_depreciated, acquired_at, status, dept_id, project_id, voucher_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13) RETURNING id, created_at`,
		a.Name, a.Cost, a.Salvage, a.LifeYears, a.Method, a.AccumDepreciation, a.Impairment, a.MonthsDepreciated, a.AcquiredAt, a.Status, a.DeptID, a.ProjectID, a.VoucherID)
	if err := row.Scan(&a.ID, &a.CreatedAt); err != nil {
		return Asset{}, err
	}
	return a, nil
}

func (r *repository) GetAsset(ctx context.Context, id int64) (Asset, error) {
	a, err := scanAsset(r.db.QueryRow(ctx, `SELECT `+assetColumns+` FROM fixed_assets WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, shared.ErrNotFound
		}
		return Asset{}, err
	}
	return a, nil
}

func (r *repository) UpdateAsset(ctx context.Context, a Asset) error {
	cmd, err := r.db.Exec(ctx, `UPDATE fixed_assets SET accum_depreciation=$2, impairment=$3, months_depreciated=$4, status=$5, cost=$6, dept_id=$7, project_id=$8 WHERE id=$1`,
		a.ID, a.AccumDepreciation, a.Impairment, a.MonthsDepreciated, a.Status, a.Cost, a.DeptID, a.ProjectID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) ListAssets(ctx context.Context, status Status) ([]Asset, error) {
	rows, err := r.db.Query(ctx, `SELECT `+assetColumns+` FROM fixed_assets WHERE ($1='' OR status=$1) ORDER BY id`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) InsertProject(ctx context.Context, p CIPProject) (CIPProject, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO cip_projects (name, cost, transferred, status) VALUES ($1,$2,$3,$4) RETURNING id, created_at`,
		p.Name, p.Cost, p.Transferred, p.Status)
	if err := row.Scan(&p.ID, &p.CreatedAt); err != nil {
		return CIPProject{}, err
	}
	return p, nil
}

func (r *repository) GetProject(ctx context.Context, id int64) (CIPProject, error) {
	var p CIPProject
	err := r.db.QueryRow(ctx, `SELECT id, name, cost, transferred, status, created_at FROM cip_projects WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.Cost, &p.Transferred, &p.Status, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CIPProject{}, shared.ErrNotFound
		}
		return CIPProject{}, err
	}
	return p, nil
}

func (r *repository) UpdateProject(ctx context.Context, p CIPProject) error {
	cmd, err := r.db.Exec(ctx, `UPDATE cip_projects SET cost=$2, transferred=$3, status=$4 WHERE id=$1`, p.ID, p.Cost, p.Transferred, p.Status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) InsertTransfer(ctx context.Context, t CIPTransfer) (CIPTransfer, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO cip_transfers (project_id, asset_id, amount, date, voucher_id) VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		t.ProjectID, t.AssetID, t.Amount, t.Date, t.VoucherID)
	if err := row.Scan(&t.ID); err != nil {
		return CIPTransfer{}, err
	}
	return t, nil
}

func (r *repository) WasDepreciated(ctx context.Context, period string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM fixed_asset_changes WHERE change_type='depreciation' AND period=$1)`, period).Scan(&exists)
	return exists, err
}

func (r *repository) MarkDepreciated(ctx context.Context, period string, voucherID int64) error {
	_, err := r.db.Exec(ctx, `INSERT INTO fixed_asset_changes (asset_id, change_type, period, voucher_id) VALUES (0, 'depreciation', $1, $2)`, period, voucherID)
	return err
}
