package accounts

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/ledger/internal/shared"
)

// Repository persists chart of accounts rows.
type Repository interface {
	List(ctx context.Context, orgID int64, filter ListFilter) ([]Account, error)
	Get(ctx context.Context, orgID, id int64) (Account, error)
	FindByNumber(ctx context.Context, orgID int64, number string) (Account, bool, error)
	Insert(ctx context.Context, account Account) (Account, error)
	Update(ctx context.Context, account Account) (Account, error)
	Delete(ctx context.Context, orgID, id int64) error
	CountLines(ctx context.Context, accountID int64) (int, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const accountColumns = "id, org_id, number, name, type, description, is_active, created_at, updated_at"

var constraintMessages = shared.ConstraintMessages{
	"uq_accounts_number":            "Account number already exists",
	"journal_lines_account_id_fkey": "Cannot delete account with journal entries. Deactivate it instead.",
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a pgx backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, orgID int64, filter ListFilter) ([]Account, error) {
	q := psql.Select(accountColumns).From("accounts").Where(sq.Eq{"org_id": orgID}).OrderBy("number")
	if filter.Type != "" {
		q = q.Where(sq.Eq{"type": filter.Type})
	}
	if filter.ActiveOnly {
		q = q.Where(sq.Eq{"is_active": true})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("accounts: build list: %w", err)
	}
	var out []Account
	if err := pgxscan.Select(ctx, r.db, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("accounts: list: %w", err)
	}
	return out, nil
}

func (r *repository) Get(ctx context.Context, orgID, id int64) (Account, error) {
	var a Account
	err := pgxscan.Get(ctx, r.db, &a, `SELECT `+accountColumns+` FROM accounts WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		if pgxscan.NotFound(err) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("accounts: get: %w", err)
	}
	return a, nil
}

func (r *repository) FindByNumber(ctx context.Context, orgID int64, number string) (Account, bool, error) {
	var a Account
	err := pgxscan.Get(ctx, r.db, &a, `SELECT `+accountColumns+` FROM accounts WHERE org_id = $1 AND number = $2`, orgID, number)
	if err != nil {
		if pgxscan.NotFound(err) {
			return Account{}, false, nil
		}
		return Account{}, false, fmt.Errorf("accounts: find by number: %w", err)
	}
	return a, true, nil
}

func (r *repository) Insert(ctx context.Context, a Account) (Account, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO accounts (org_id, number, name, type, description, is_active)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at, updated_at`,
		a.OrgID, a.Number, a.Name, a.Type, a.Description, a.IsActive).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Account{}, shared.MapConstraint(fmt.Errorf("accounts: insert: %w", err), constraintMessages)
	}
	return a, nil
}

func (r *repository) Update(ctx context.Context, a Account) (Account, error) {
	err := r.db.QueryRow(ctx, `UPDATE accounts SET number = $3, name = $4, type = $5, description = $6, is_active = $7, updated_at = NOW()
WHERE org_id = $1 AND id = $2 RETURNING created_at, updated_at`,
		a.OrgID, a.ID, a.Number, a.Name, a.Type, a.Description, a.IsActive).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, shared.MapConstraint(fmt.Errorf("accounts: update: %w", err), constraintMessages)
	}
	return a, nil
}

func (r *repository) Delete(ctx context.Context, orgID, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return shared.MapConstraint(fmt.Errorf("accounts: delete: %w", err), constraintMessages)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) CountLines(ctx context.Context, accountID int64) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM journal_lines WHERE account_id = $1`, accountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("accounts: count lines: %w", err)
	}
	return n, nil
}
