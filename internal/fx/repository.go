package fx

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ledger/meridian/internal/shared"
)

// RepositoryPort defines data access for currencies and rates.
type RepositoryPort interface {
	UpsertCurrency(ctx context.Context, c Currency) error
	ListCurrencies(ctx context.Context) ([]Currency, error)
	InsertRate(ctx context.Context, r Rate) error
	// NearestRate returns the rate at or before the date within the same
	// rate type.
	NearestRate(ctx context.Context, currency string, date time.Time, typ RateType) (Rate, error)
	ListRates(ctx context.Context, currency string, typ RateType) ([]Rate, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) RepositoryPort {
	return &repository{db: db}
}

func (r *repository) UpsertCurrency(ctx context.Context, c Currency) error {
	_, err := r.db.Exec(ctx, `INSERT INTO currencies (code, name, symbol, precision, is_active)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (code) DO UPDATE SET name=EXCLUDED.name, symbol=EXCLUDED.symbol, precision=EXCLUDED.precision, is_active=EXCLUDED.is_active`,
		c.Code, c.Name, c.Symbol, c.Precision, c.Active)
	return err
}

func (r *repository) ListCurrencies(ctx context.Context) ([]Currency, error) {
	rows, err := r.db.Query(ctx, `SELECT code, name, symbol, precision, is_active, created_at FROM currencies ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Currency
	for rows.Next() {
		var c Currency
		if err := rows.Scan(&c.Code, &c.Name, &c.Symbol, &c.Precision, &c.Active, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) InsertRate(ctx context.Context, rate Rate) error {
	_, err := r.db.Exec(ctx, `INSERT INTO exchange_rates (currency, date, rate, rate_type, source)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (currency, date, rate_type) DO UPDATE SET rate=EXCLUDED.rate, source=EXCLUDED.source`,
		rate.Currency, rate.Date, rate.Rate, rate.Type, rate.Source)
	return err
}

func (r *repository) NearestRate(ctx context.Context, currency string, date time.Time, typ RateType) (Rate, error) {
	var rate Rate
	err := r.db.QueryRow(ctx, `SELECT currency, date, rate, rate_type, source FROM exchange_rates
WHERE currency=$1 AND rate_type=$2 AND date <= $3 ORDER BY date DESC LIMIT 1`, currency, typ, date).
		Scan(&rate.Currency, &rate.Date, &rate.Rate, &rate.Type, &rate.Source)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rate{}, shared.NewErrorf(shared.CodeRateNotFound, "no %s rate for %s on or before %s", typ, currency, date.Format("2006-01-02"))
		}
		return Rate{}, err
	}
	return rate, nil
}

func (r *repository) ListRates(ctx context.Context, currency string, typ RateType) ([]Rate, error) {
	rows, err := r.db.Query(ctx, `SELECT currency, date, rate, rate_type, source FROM exchange_rates
WHERE ($1='' OR currency=$1) AND ($2='' OR rate_type=$2) ORDER BY currency, date`, currency, typ)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Rate
	for rows.Next() {
		var rate Rate
		if err := rows.Scan(&rate.Currency, &rate.Date, &rate.Rate, &rate.Type, &rate.Source); err != nil {
			return nil, err
		}
		out = append(out, rate)
	}
	return out, rows.Err()
}
