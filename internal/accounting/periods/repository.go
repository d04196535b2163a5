package periods

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/ledger/internal/platform/db"
	"github.com/odyssey-erp/ledger/internal/shared"
)

// Repository reads periods and opens transactions for lifecycle changes.
type Repository interface {
	List(ctx context.Context, orgID int64, filter ListFilter) ([]Period, error)
	Get(ctx context.Context, orgID, id int64) (Period, error)
	FindOpenByDate(ctx context.Context, orgID int64, date time.Time) (Period, bool, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	WithLifecycleTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the period operations available inside a transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, orgID, id int64) (Period, error)
	FindCovering(ctx context.Context, orgID int64, date time.Time) (Period, bool, error)
	FindOverlap(ctx context.Context, orgID int64, start, end time.Time, excludeID int64) (Period, bool, error)
	FiscalSlotTaken(ctx context.Context, orgID int64, fiscalYear, periodNumber int, excludeID int64) (bool, error)
	Insert(ctx context.Context, p Period) (Period, error)
	Update(ctx context.Context, p Period) (Period, error)
	Delete(ctx context.Context, orgID, id int64) error
	CountEntries(ctx context.Context, p Period, status string) (int, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const periodColumns = "id, org_id, name, start_date, end_date, fiscal_year, period_number, status, closed_at, closed_by, created_at, updated_at"

var constraintMessages = shared.ConstraintMessages{
	"ex_periods_overlap": "Period overlaps with an existing period",
	"uq_periods_fiscal":  "Period already exists for this fiscal year and number",
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) List(ctx context.Context, orgID int64, filter ListFilter) ([]Period, error) {
	q := psql.Select(periodColumns).From("periods").Where(sq.Eq{"org_id": orgID}).OrderBy("start_date")
	if filter.FiscalYear != 0 {
		q = q.Where(sq.Eq{"fiscal_year": filter.FiscalYear})
	}
	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": filter.Status})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("periods: build list: %w", err)
	}
	var out []Period
	if err := pgxscan.Select(ctx, r.db, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("periods: list: %w", err)
	}
	return out, nil
}

func (r *repository) Get(ctx context.Context, orgID, id int64) (Period, error) {
	var p Period
	err := pgxscan.Get(ctx, r.db, &p, `SELECT `+periodColumns+` FROM periods WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		if pgxscan.NotFound(err) {
			return Period{}, ErrNotFound
		}
		return Period{}, fmt.Errorf("periods: get: %w", err)
	}
	return p, nil
}

// FindOpenByDate returns the open period covering the supplied date.
func (r *repository) FindOpenByDate(ctx context.Context, orgID int64, date time.Time) (Period, bool, error) {
	var p Period
	err := pgxscan.Get(ctx, r.db, &p, `SELECT `+periodColumns+` FROM periods
WHERE org_id = $1 AND status = 'OPEN' AND $2::date BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, orgID, date)
	if err != nil {
		if pgxscan.NotFound(err) {
			return Period{}, false, nil
		}
		return Period{}, false, fmt.Errorf("periods: find open: %w", err)
	}
	return p, true, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, "periods", func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

// WithLifecycleTx runs fn read committed. A close that waited on the period row
// lock must count drafts committed while it waited.
func (r *repository) WithLifecycleTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxLevel(ctx, r.db, "periods.lifecycle", pgx.ReadCommitted, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository binds period operations to an open transaction so other
// packages can check periods atomically with their own writes.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

func (r *txRepository) GetForUpdate(ctx context.Context, orgID, id int64) (Period, error) {
	var p Period
	err := pgxscan.Get(ctx, r.tx, &p, `SELECT `+periodColumns+` FROM periods WHERE org_id = $1 AND id = $2 FOR UPDATE`, orgID, id)
	if err != nil {
		if pgxscan.NotFound(err) {
			return Period{}, ErrNotFound
		}
		return Period{}, fmt.Errorf("periods: get for update: %w", err)
	}
	return p, nil
}

// FindCovering returns the period of any status covering date and holds a
// share lock on it until the transaction ends, so it cannot be closed underneath.
func (r *txRepository) FindCovering(ctx context.Context, orgID int64, date time.Time) (Period, bool, error) {
	var p Period
	err := pgxscan.Get(ctx, r.tx, &p, `SELECT `+periodColumns+` FROM periods
WHERE org_id = $1 AND $2::date BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1 FOR SHARE`, orgID, date)
	if err != nil {
		if pgxscan.NotFound(err) {
			return Period{}, false, nil
		}
		return Period{}, false, fmt.Errorf("periods: find covering: %w", err)
	}
	return p, true, nil
}

func (r *txRepository) FindOverlap(ctx context.Context, orgID int64, start, end time.Time, excludeID int64) (Period, bool, error) {
	var p Period
	err := pgxscan.Get(ctx, r.tx, &p, `SELECT `+periodColumns+` FROM periods
WHERE org_id = $1 AND id <> $4 AND start_date <= $3::date AND end_date >= $2::date
ORDER BY start_date LIMIT 1`, orgID, start, end, excludeID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return Period{}, false, nil
		}
		return Period{}, false, fmt.Errorf("periods: find overlap: %w", err)
	}
	return p, true, nil
}

func (r *txRepository) FiscalSlotTaken(ctx context.Context, orgID int64, fiscalYear, periodNumber int, excludeID int64) (bool, error) {
	var taken bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM periods
WHERE org_id = $1 AND fiscal_year = $2 AND period_number = $3 AND id <> $4)`, orgID, fiscalYear, periodNumber, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("periods: fiscal slot: %w", err)
	}
	return taken, nil
}

func (r *txRepository) Insert(ctx context.Context, p Period) (Period, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO periods (org_id, name, start_date, end_date, fiscal_year, period_number, status)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`,
		p.OrgID, p.Name, p.StartDate, p.EndDate, p.FiscalYear, p.PeriodNumber, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Period{}, shared.MapConstraint(fmt.Errorf("periods: insert: %w", err), constraintMessages)
	}
	return p, nil
}

func (r *txRepository) Update(ctx context.Context, p Period) (Period, error) {
	err := r.tx.QueryRow(ctx, `UPDATE periods SET name = $3, start_date = $4, end_date = $5, fiscal_year = $6,
period_number = $7, status = $8, closed_at = $9, closed_by = $10, updated_at = NOW()
WHERE org_id = $1 AND id = $2 RETURNING created_at, updated_at`,
		p.OrgID, p.ID, p.Name, p.StartDate, p.EndDate, p.FiscalYear, p.PeriodNumber, p.Status, p.ClosedAt, p.ClosedBy).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrNotFound
		}
		return Period{}, shared.MapConstraint(fmt.Errorf("periods: update: %w", err), constraintMessages)
	}
	return p, nil
}

func (r *txRepository) Delete(ctx context.Context, orgID, id int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM periods WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("periods: delete: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountEntries counts journal entries dated inside p, optionally by status.
func (r *txRepository) CountEntries(ctx context.Context, p Period, status string) (int, error) {
	q := psql.Select("COUNT(*)").From("journal_entries").
		Where(sq.Eq{"org_id": p.OrgID}).
		Where("posting_date BETWEEN ?::date AND ?::date", p.StartDate, p.EndDate)
	if status != "" {
		q = q.Where(sq.Eq{"status": status})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("periods: build count entries: %w", err)
	}
	var n int
	if err := r.tx.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("periods: count entries: %w", err)
	}
	return n, nil
}
