package voucher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ledger/meridian/internal/balance"
	"github.com/meridian-ledger/meridian/internal/shared"
)

// ErrDuplicateSourceEvent signals a concurrent writer already recorded
// this source event; the caller re-reads and returns the prior voucher.
var ErrDuplicateSourceEvent = errors.New("voucher: source event already recorded")

// Repository encapsulates voucher persistence. Mutations run through
// WithTx so a confirmation and its balance updates share one transaction.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetVoucher(ctx context.Context, id int64) (Voucher, error)
	List(ctx context.Context, filter Filter) ([]Voucher, error)
	FindBySourceEvent(ctx context.Context, eventID string) (Voucher, bool, error)
	ListVoidLinks(ctx context.Context, originalID int64) ([]VoidLink, error)
	// ConfirmedReplay streams every confirmed voucher's effects for the
	// rebuild check, ordered by period then voucher number.
	ConfirmedReplay(ctx context.Context) ([]balance.ReplayVoucher, error)
}

// TxRepository exposes the operations available inside a transaction.
// Period lookups are included here so admission checks and posting stay in
// one transactional scope.
type TxRepository interface {
	InsertVoucher(ctx context.Context, v Voucher) (Voucher, error)
	InsertEntries(ctx context.Context, voucherID int64, entries []Entry) error
	GetVoucherForUpdate(ctx context.Context, id int64) (Voucher, error)
	UpdateStatus(ctx context.Context, id int64, status Status, confirmedAt *time.Time) error
	MarkVoided(ctx context.Context, id int64, reason string, at time.Time) error
	DeleteVoucher(ctx context.Context, id int64) error
	AssignVoucherNo(ctx context.Context, id int64, date time.Time) (string, error)
	InsertVoidLink(ctx context.Context, originalID, reversalID int64, reason string) error
	FindBySourceEvent(ctx context.Context, eventID string) (Voucher, bool, error)

	EnsurePeriod(ctx context.Context, period string) (string, error)
	PeriodStatus(ctx context.Context, period string) (string, error)

	ApplyEffects(ctx context.Context, period string, effects []balance.Effect) error
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

const voucherColumns = `id, voucher_no, date, period, description, status, entry_type,
source_template, source_event_id, void_reason, void_of, created_at, confirmed_at, voided_at`

func scanVoucher(row pgx.Row) (Voucher, error) {
	var v Voucher
	var voucherNo, sourceTemplate, sourceEventID, voidReason *string
	var voidOf *int64
	err := row.Scan(&v.ID, &voucherNo, &v.Date, &v.Period, &v.Description, &v.Status, &v.EntryType,
		&sourceTemplate, &sourceEventID, &voidReason, &voidOf, &v.CreatedAt, &v.ConfirmedAt, &v.VoidedAt)
	if err != nil {
		return Voucher{}, err
	}
	if voucherNo != nil {
		v.VoucherNo = *voucherNo
	}
	if sourceTemplate != nil {
		v.SourceTemplate = *sourceTemplate
	}
	if sourceEventID != nil {
		v.SourceEventID = *sourceEventID
	}
	if voidReason != nil {
		v.VoidReason = *voidReason
	}
	if voidOf != nil {
		v.VoidOf = *voidOf
	}
	return v, nil
}

func (r *repository) GetVoucher(ctx context.Context, id int64) (Voucher, error) {
	v, err := getVoucher(ctx, r.db, id, "")
	if err != nil {
		return Voucher{}, err
	}
	v.Entries, err = listEntries(ctx, r.db, id)
	return v, err
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getVoucher(ctx context.Context, q queryer, id int64, suffix string) (Voucher, error) {
	row := q.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id=$1`+suffix, id)
	v, err := scanVoucher(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, shared.NewErrorf(shared.CodeVoucherNotFound, "voucher not found: %d", id)
		}
		return Voucher{}, err
	}
	return v, nil
}

const entryColumns = `id, voucher_id, line_no, account_code, account_name, description,
debit_amount, credit_amount, currency_code, fx_rate, foreign_debit, foreign_credit,
dept_id, project_id, customer_id, supplier_id, employee_id`

func listEntries(ctx context.Context, q queryer, voucherID int64) ([]Entry, error) {
	rows, err := q.Query(ctx, `SELECT `+entryColumns+` FROM voucher_entries WHERE voucher_id=$1 ORDER BY line_no`, voucherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.VoucherID, &e.LineNo, &e.AccountCode, &e.AccountName, &e.Description,
			&e.Debit, &e.Credit, &e.CurrencyCode, &e.FXRate, &e.ForeignDebit, &e.ForeignCredit,
			&e.DeptID, &e.ProjectID, &e.CustomerID, &e.SupplierID, &e.EmployeeID); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) List(ctx context.Context, filter Filter) ([]Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.VoucherNo != "" {
		query += ` AND voucher_no=` + arg(filter.VoucherNo)
	}
	if filter.Period != "" {
		query += ` AND period=` + arg(filter.Period)
	}
	if filter.Status != "" {
		query += ` AND status=` + arg(filter.Status)
	}
	if filter.AccountCode != "" {
		query += ` AND id IN (SELECT voucher_id FROM voucher_entries WHERE account_code=` + arg(filter.AccountCode) + `)`
	}
	if filter.SourceEventPrefix != "" {
		query += ` AND source_event_id LIKE ` + arg(filter.SourceEventPrefix+"%")
	}
	query += ` ORDER BY id`
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var vouchers []Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		vouchers = append(vouchers, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range vouchers {
		vouchers[i].Entries, err = listEntries(ctx, r.db, vouchers[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return vouchers, nil
}

func (r *repository) FindBySourceEvent(ctx context.Context, eventID string) (Voucher, bool, error) {
	return findBySourceEvent(ctx, r.db, eventID)
}

func findBySourceEvent(ctx context.Context, q queryer, eventID string) (Voucher, bool, error) {
	row := q.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE source_event_id=$1`, eventID)
	v, err := scanVoucher(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, false, nil
		}
		return Voucher{}, false, err
	}
	v.Entries, err = listEntries(ctx, q, v.ID)
	return v, true, err
}

func (r *repository) ListVoidLinks(ctx context.Context, originalID int64) ([]VoidLink, error) {
	rows, err := r.db.Query(ctx, `SELECT id, original_voucher_id, void_voucher_id, reason, created_at FROM void_vouchers WHERE original_voucher_id=$1 ORDER BY id`, originalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var links []VoidLink
	for rows.Next() {
		var l VoidLink
		if err := rows.Scan(&l.ID, &l.OriginalVoucherID, &l.VoidVoucherID, &l.Reason, &l.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (r *repository) ConfirmedReplay(ctx context.Context) ([]balance.ReplayVoucher, error) {
	rows, err := r.db.Query(ctx, `SELECT v.voucher_no, v.period, e.account_code, e.debit_amount, e.credit_amount,
e.currency_code, e.foreign_debit, e.foreign_credit, e.dept_id, e.project_id, e.customer_id, e.supplier_id, e.employee_id
FROM vouchers v JOIN voucher_entries e ON e.voucher_id = v.id
WHERE v.status IN ('confirmed','voided')
ORDER BY v.period, v.voucher_no, e.line_no`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []balance.ReplayVoucher
	var current *balance.ReplayVoucher
	for rows.Next() {
		var number, period string
		var effect balance.Effect
		if err := rows.Scan(&number, &period, &effect.AccountCode, &effect.Debit, &effect.Credit,
			&effect.CurrencyCode, &effect.ForeignDebit, &effect.ForeignCredit,
			&effect.DeptID, &effect.ProjectID, &effect.CustomerID, &effect.SupplierID, &effect.EmployeeID); err != nil {
			return nil, err
		}
		if current == nil || current.Number != number {
			out = append(out, balance.ReplayVoucher{Number: number, Period: period})
			current = &out[len(out)-1]
		}
		current.Effects = append(current.Effects, effect)
	}
	return out, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertVoucher(ctx context.Context, v Voucher) (Voucher, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO vouchers (date, period, description, status, entry_type, source_template, source_event_id, void_of, confirmed_at)
VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),NULLIF($7,''),NULLIF($8,0),$9)
RETURNING id, created_at`,
		v.Date, v.Period, v.Description, v.Status, v.EntryType, v.SourceTemplate, v.SourceEventID, v.VoidOf, v.ConfirmedAt)
	if err := row.Scan(&v.ID, &v.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "vouchers_source_event_id_key" {
			return Voucher{}, ErrDuplicateSourceEvent
		}
		return Voucher{}, err
	}
	return v, nil
}

func (r *txRepository) InsertEntries(ctx context.Context, voucherID int64, entries []Entry) error {
	for _, e := range entries {
		if _, err := r.tx.Exec(ctx, `INSERT INTO voucher_entries (voucher_id, line_no, account_code, account_name, description,
debit_amount, credit_amount, currency_code, fx_rate, foreign_debit, foreign_credit,
dept_id, project_id, customer_id, supplier_id, employee_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			voucherID, e.LineNo, e.AccountCode, e.AccountName, e.Description,
			e.Debit, e.Credit, e.CurrencyCode, e.FXRate, e.ForeignDebit, e.ForeignCredit,
			e.DeptID, e.ProjectID, e.CustomerID, e.SupplierID, e.EmployeeID); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetVoucherForUpdate(ctx context.Context, id int64) (Voucher, error) {
	v, err := getVoucher(ctx, r.tx, id, " FOR UPDATE")
	if err != nil {
		return Voucher{}, err
	}
	v.Entries, err = listEntries(ctx, r.tx, id)
	return v, err
}

func (r *txRepository) UpdateStatus(ctx context.Context, id int64, status Status, confirmedAt *time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE vouchers SET status=$2, confirmed_at=COALESCE($3, confirmed_at) WHERE id=$1`, id, status, confirmedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NewErrorf(shared.CodeVoucherNotFound, "voucher not found: %d", id)
	}
	return nil
}

func (r *txRepository) MarkVoided(ctx context.Context, id int64, reason string, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE vouchers SET status='voided', void_reason=$2, voided_at=$3 WHERE id=$1`, id, reason, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NewErrorf(shared.CodeVoucherNotFound, "voucher not found: %d", id)
	}
	return nil
}

func (r *txRepository) DeleteVoucher(ctx context.Context, id int64) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM voucher_entries WHERE voucher_id=$1`, id); err != nil {
		return err
	}
	_, err := r.tx.Exec(ctx, `DELETE FROM vouchers WHERE id=$1`, id)
	return err
}

// AssignVoucherNo issues the next per-day sequence. Numbers survive void
// and delete: the maximum assigned suffix only grows.
func (r *txRepository) AssignVoucherNo(ctx context.Context, id int64, date time.Time) (string, error) {
	prefix := "V" + date.Format("20060102")
	var maxSeq int
	err := r.tx.QueryRow(ctx, `SELECT COALESCE(MAX(CAST(RIGHT(voucher_no, 3) AS INTEGER)), 0) FROM vouchers WHERE voucher_no LIKE $1`, prefix+"%").Scan(&maxSeq)
	if err != nil {
		return "", err
	}
	voucherNo := fmt.Sprintf("%s%03d", prefix, maxSeq+1)
	if _, err := r.tx.Exec(ctx, `UPDATE vouchers SET voucher_no=$2 WHERE id=$1`, id, voucherNo); err != nil {
		return "", err
	}
	return voucherNo, nil
}

func (r *txRepository) InsertVoidLink(ctx context.Context, originalID, reversalID int64, reason string) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO void_vouchers (original_voucher_id, void_voucher_id, reason) VALUES ($1,$2,$3)`, originalID, reversalID, reason)
	return err
}

func (r *txRepository) FindBySourceEvent(ctx context.Context, eventID string) (Voucher, bool, error) {
	return findBySourceEvent(ctx, r.tx, eventID)
}

// EnsurePeriod creates the period row on first touch and rolls opening
// balances forward from the previous period.
func (r *txRepository) EnsurePeriod(ctx context.Context, period string) (string, error) {
	status, err := r.PeriodStatus(ctx, period)
	if err == nil {
		return status, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return "", err
	}
	if _, err := r.tx.Exec(ctx, `INSERT INTO periods (period, status, opened_at) VALUES ($1,'open',NOW())`, period); err != nil {
		return "", err
	}
	store := balance.NewTxStore(r.tx)
	engine := balance.NewEngine(store)
	prev := shared.PrevPeriod(period)
	if prev != "" {
		if _, err := engine.Rollover(ctx, prev); err != nil {
			return "", err
		}
	}
	return shared.PeriodStatusOpen, nil
}

func (r *txRepository) PeriodStatus(ctx context.Context, period string) (string, error) {
	var status string
	err := r.tx.QueryRow(ctx, `SELECT status FROM periods WHERE period=$1 FOR UPDATE`, period).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return status, nil
}

func (r *txRepository) ApplyEffects(ctx context.Context, period string, effects []balance.Effect) error {
	store := balance.NewTxStore(r.tx)
	return balance.NewEngine(store).Apply(ctx, period, effects)
}
