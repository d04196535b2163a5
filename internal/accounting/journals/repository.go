package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/periods"
	"github.com/odyssey-erp/ledger/internal/platform/db"
	"github.com/odyssey-erp/ledger/internal/sequence"
	"github.com/odyssey-erp/ledger/internal/shared"
)

// Repository encapsulates DB operations for journals.
type Repository interface {
	List(ctx context.Context, orgID int64, filter ListFilter) ([]Entry, int, error)
	Get(ctx context.Context, orgID, id int64) (Entry, error)
	PeekNumber(ctx context.Context, orgID int64) (string, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations available within a transaction,
// including the period and account lookups that gate a posting.
type TxRepository interface {
	NextNumber(ctx context.Context, orgID int64) (string, error)
	GetForUpdate(ctx context.Context, orgID, id int64) (Entry, error)
	InsertEntry(ctx context.Context, e Entry) (Entry, error)
	UpdateHeader(ctx context.Context, e Entry) (Entry, error)
	ReplaceLines(ctx context.Context, entryID int64, lines []Line) ([]Line, error)
	DeleteEntry(ctx context.Context, orgID, id int64) error

	AccountsByID(ctx context.Context, orgID int64, ids []int64) (map[int64]accounts.Account, error)
	FindCoveringPeriod(ctx context.Context, orgID int64, date time.Time) (periods.Period, bool, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const entryColumns = `e.id, e.org_id, e.journal_no, e.description, e.posting_date, e.status, e.reversal_of,
e.created_by, e.posted_by, e.posted_at, e.created_at, e.updated_at`

const lineColumns = `l.id, l.entry_id, l.line_no, l.account_id, a.number AS account_number, a.name AS account_name,
a.type AS account_type, l.debit, l.credit, l.memo, l.dimensions`

var constraintMessages = shared.ConstraintMessages{
	"uq_journal_entries_no":            "Journal number already exists",
	"journal_lines_account_id_fkey":    "Journal line references an unknown account",
	"journal_entries_reversal_of_fkey": "Cannot delete a journal entry that has been reversed",
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) List(ctx context.Context, orgID int64, filter ListFilter) ([]Entry, int, error) {
	where := sq.And{sq.Eq{"e.org_id": orgID}}
	if filter.Status != "" {
		where = append(where, sq.Eq{"e.status": filter.Status})
	}
	if filter.From != nil {
		where = append(where, sq.GtOrEq{"e.posting_date": *filter.From})
	}
	if filter.To != nil {
		where = append(where, sq.LtOrEq{"e.posting_date": *filter.To})
	}

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("journal_entries e").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("journals: build count: %w", err)
	}
	var total int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("journals: count: %w", err)
	}

	page := shared.NewPagination(filter.Page, filter.PerPage, total)
	q := psql.Select(entryColumns,
		"COALESCE(SUM(l.debit), 0) AS total_debit",
		"COALESCE(SUM(l.credit), 0) AS total_credit").
		From("journal_entries e").
		LeftJoin("journal_lines l ON l.entry_id = e.id").
		Where(where).
		GroupBy("e.id").
		OrderBy("e.posting_date DESC", "e.id DESC").
		Limit(uint64(page.PerPage)).
		Offset(uint64(page.Offset()))
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("journals: build list: %w", err)
	}
	var out []Entry
	if err := pgxscan.Select(ctx, r.db, &out, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("journals: list: %w", err)
	}
	return out, total, nil
}

func (r *repository) Get(ctx context.Context, orgID, id int64) (Entry, error) {
	return getEntry(ctx, r.db, orgID, id, false)
}

func (r *repository) PeekNumber(ctx context.Context, orgID int64) (string, error) {
	n, err := sequence.Peek(ctx, r.db, orgID, sequence.KeyJournalEntry)
	if err != nil {
		return "", err
	}
	return sequence.Format(sequence.KeyJournalEntry, n), nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, "journals", func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, periods: periods.NewTxRepository(tx)})
	})
}

type txRepository struct {
	tx      pgx.Tx
	periods periods.TxRepository
}

func (r *txRepository) NextNumber(ctx context.Context, orgID int64) (string, error) {
	n, err := sequence.Next(ctx, r.tx, orgID, sequence.KeyJournalEntry)
	if err != nil {
		return "", err
	}
	return sequence.Format(sequence.KeyJournalEntry, n), nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, orgID, id int64) (Entry, error) {
	return getEntry(ctx, r.tx, orgID, id, true)
}

func (r *txRepository) InsertEntry(ctx context.Context, e Entry) (Entry, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (org_id, journal_no, description, posting_date, status, reversal_of, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`,
		e.OrgID, e.JournalNo, e.Description, e.PostingDate, e.Status, e.ReversalOf, e.CreatedBy).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return Entry{}, shared.MapConstraint(fmt.Errorf("journals: insert entry: %w", err), constraintMessages)
	}
	return e, nil
}

func (r *txRepository) UpdateHeader(ctx context.Context, e Entry) (Entry, error) {
	err := r.tx.QueryRow(ctx, `UPDATE journal_entries SET description = $3, posting_date = $4, status = $5,
posted_by = $6, posted_at = $7, updated_at = NOW()
WHERE org_id = $1 AND id = $2 RETURNING updated_at`,
		e.OrgID, e.ID, e.Description, e.PostingDate, e.Status, e.PostedBy, e.PostedAt).
		Scan(&e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("journals: update entry: %w", err)
	}
	return e, nil
}

// ReplaceLines deletes the entry's lines and writes lines in their place,
// numbering them from 1 in slice order.
func (r *txRepository) ReplaceLines(ctx context.Context, entryID int64, lines []Line) ([]Line, error) {
	if _, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE entry_id = $1`, entryID); err != nil {
		return nil, fmt.Errorf("journals: delete lines: %w", err)
	}
	out := make([]Line, 0, len(lines))
	for i, l := range lines {
		l.EntryID = entryID
		l.LineNo = i + 1
		if l.Dimensions == nil {
			l.Dimensions = map[string]string{}
		}
		err := r.tx.QueryRow(ctx, `INSERT INTO journal_lines (entry_id, line_no, account_id, debit, credit, memo, dimensions)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			l.EntryID, l.LineNo, l.AccountID, l.Debit, l.Credit, l.Memo, l.Dimensions).Scan(&l.ID)
		if err != nil {
			return nil, shared.MapConstraint(fmt.Errorf("journals: insert line %d: %w", l.LineNo, err), constraintMessages)
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *txRepository) DeleteEntry(ctx context.Context, orgID, id int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return shared.MapConstraint(fmt.Errorf("journals: delete entry: %w", err), constraintMessages)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepository) AccountsByID(ctx context.Context, orgID int64, ids []int64) (map[int64]accounts.Account, error) {
	out := make(map[int64]accounts.Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	sql, args, err := psql.Select("id, org_id, number, name, type, description, is_active, created_at, updated_at").
		From("accounts").
		Where(sq.Eq{"org_id": orgID, "id": ids}).
		Suffix("FOR SHARE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("journals: build accounts: %w", err)
	}
	var rows []accounts.Account
	if err := pgxscan.Select(ctx, r.tx, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("journals: load accounts: %w", err)
	}
	for _, a := range rows {
		out[a.ID] = a
	}
	return out, nil
}

func (r *txRepository) FindCoveringPeriod(ctx context.Context, orgID int64, date time.Time) (periods.Period, bool, error) {
	return r.periods.FindCovering(ctx, orgID, date)
}

func getEntry(ctx context.Context, q pgxscan.Querier, orgID, id int64, forUpdate bool) (Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries e WHERE e.org_id = $1 AND e.id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var e Entry
	if err := pgxscan.Get(ctx, q, &e, query, orgID, id); err != nil {
		if pgxscan.NotFound(err) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("journals: get entry: %w", err)
	}
	if err := pgxscan.Select(ctx, q, &e.Lines, `SELECT `+lineColumns+` FROM journal_lines l
JOIN accounts a ON a.id = l.account_id
WHERE l.entry_id = $1 ORDER BY l.line_no`, id); err != nil {
		return Entry{}, fmt.Errorf("journals: get lines: %w", err)
	}
	e.TotalDebit, e.TotalCredit = Totals(e.Lines)
	return e, nil
}
