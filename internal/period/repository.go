package period

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ledger/meridian/internal/balance"
	"github.com/meridian-ledger/meridian/internal/shared"
)

// Repository persists periods and closing templates, and gives the close
// flow transactional access to the balance index.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPeriod(ctx context.Context, period string) (Period, error)
	ListPeriods(ctx context.Context) ([]Period, error)

	ListTemplates(ctx context.Context, onlyActive bool) ([]ClosingTemplate, error)
	GetTemplate(ctx context.Context, code string) (ClosingTemplate, error)
	SaveTemplate(ctx context.Context, t ClosingTemplate) error
	DisableTemplate(ctx context.Context, code string) error
}

// TxRepository exposes the period mutations available in a transaction.
type TxRepository interface {
	GetPeriodForUpdate(ctx context.Context, period string) (Period, error)
	InsertPeriod(ctx context.Context, period, status string) (Period, error)
	UpdateStatus(ctx context.Context, period, status string, closedAt *time.Time) error
	Rollover(ctx context.Context, period string) (int, error)
	UnrollInactive(ctx context.Context, period string) (kept, removed int, err error)
	PeriodBalances(ctx context.Context, period string) ([]balance.Balance, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.Period, &p.Status, &p.OpenedAt, &p.ClosedAt)
	return p, err
}

func (r *repository) GetPeriod(ctx context.Context, period string) (Period, error) {
	p, err := scanPeriod(r.db.QueryRow(ctx, `SELECT period, status, opened_at, closed_at FROM periods WHERE period=$1`, period))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrNotFound
		}
		return Period{}, err
	}
	return p, nil
}

func (r *repository) ListPeriods(ctx context.Context) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT period, status, opened_at, closed_at FROM periods ORDER BY period`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) ListTemplates(ctx context.Context, onlyActive bool) ([]ClosingTemplate, error) {
	query := `SELECT code, name, rule_json, is_active, created_at FROM closing_templates`
	if onlyActive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY code`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ClosingTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTemplate(row pgx.Row) (ClosingTemplate, error) {
	var t ClosingTemplate
	var ruleJSON []byte
	if err := row.Scan(&t.Code, &t.Name, &ruleJSON, &t.Active, &t.CreatedAt); err != nil {
		return ClosingTemplate{}, err
	}
	if err := json.Unmarshal(ruleJSON, &t.Rule); err != nil {
		return ClosingTemplate{}, err
	}
	return t, nil
}

func (r *repository) GetTemplate(ctx context.Context, code string) (ClosingTemplate, error) {
	t, err := scanTemplate(r.db.QueryRow(ctx, `SELECT code, name, rule_json, is_active, created_at FROM closing_templates WHERE code=$1`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ClosingTemplate{}, shared.ErrNotFound
		}
		return ClosingTemplate{}, err
	}
	return t, nil
}

func (r *repository) SaveTemplate(ctx context.Context, t ClosingTemplate) error {
	ruleJSON, err := json.Marshal(t.Rule)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO closing_templates (code, name, rule_json, is_active)
VALUES ($1,$2,$3,$4)
ON CONFLICT (code) DO UPDATE SET name=EXCLUDED.name, rule_json=EXCLUDED.rule_json, is_active=EXCLUDED.is_active`,
		t.Code, t.Name, ruleJSON, t.Active)
	return err
}

func (r *repository) DisableTemplate(ctx context.Context, code string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE closing_templates SET is_active=false WHERE code=$1`, code)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetPeriodForUpdate(ctx context.Context, period string) (Period, error) {
	p, err := scanPeriod(r.tx.QueryRow(ctx, `SELECT period, status, opened_at, closed_at FROM periods WHERE period=$1 FOR UPDATE`, period))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, shared.ErrNotFound
		}
		return Period{}, err
	}
	return p, nil
}

func (r *txRepository) InsertPeriod(ctx context.Context, period, status string) (Period, error) {
	var p Period
	p.Period = period
	p.Status = status
	err := r.tx.QueryRow(ctx, `INSERT INTO periods (period, status, opened_at) VALUES ($1,$2,NOW()) RETURNING opened_at`, period, status).Scan(&p.OpenedAt)
	if err != nil {
		return Period{}, err
	}
	return p, nil
}

func (r *txRepository) UpdateStatus(ctx context.Context, period, status string, closedAt *time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE periods SET status=$2, closed_at=$3 WHERE period=$1`, period, status, closedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) Rollover(ctx context.Context, period string) (int, error) {
	store := balance.NewTxStore(r.tx)
	return balance.NewEngine(store).Rollover(ctx, period)
}

func (r *txRepository) UnrollInactive(ctx context.Context, period string) (int, int, error) {
	store := balance.NewTxStore(r.tx)
	return balance.NewEngine(store).Unroll(ctx, period, store.Delete)
}

func (r *txRepository) PeriodBalances(ctx context.Context, period string) ([]balance.Balance, error) {
	store := balance.NewTxStore(r.tx)
	return store.ListPeriod(ctx, period)
}
