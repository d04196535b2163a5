package inventory

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/ledger/internal/platform/db"
	"github.com/odyssey-erp/ledger/internal/shared"
)

// Repository reads balances and the transaction log.
type Repository interface {
	GetBalance(ctx context.Context, orgID, itemID, warehouseID int64) (Balance, error)
	ListBalances(ctx context.Context, orgID int64, filter BalanceFilter) ([]Balance, error)
	ListTransactions(ctx context.Context, orgID int64, filter TransactionFilter) ([]Transaction, int, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	WithRebuildTx(ctx context.Context, orgID int64, fn func(context.Context, TxRepository) error) error
}

// TxStore is the write surface other packages use inside their own
// transactions to move stock.
type TxStore interface {
	ApplyDelta(ctx context.Context, orgID int64, d Delta) (Balance, error)
	AppendTransaction(ctx context.Context, t Transaction) (Transaction, error)
}

// TxRepository adds the rebuild operations to TxStore.
type TxRepository interface {
	TxStore
	LockedBalances(ctx context.Context, orgID int64) ([]Balance, error)
	Transactions(ctx context.Context, orgID int64) ([]Transaction, error)
	ResetBalance(ctx context.Context, orgID int64, k Key, p Position) error
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const balanceColumns = "org_id, item_id, warehouse_id, on_hand_qty, allocated_qty, available_qty, in_transit_qty, unit_cost, total_value, updated_at"

const transactionColumns = `id, org_id, batch_id, txn_type, item_id, warehouse_id, counterpart_warehouse_id, quantity, unit_cost,
reference_type, reference_id, txn_date, created_at`

// orgLock serialises rebuilds against deltas of the same org: writers hold it
// shared, a rebuild holds it exclusively.
const orgLock = `SELECT pg_advisory_xact_lock%s(hashtext('inventory:' || $1::bigint::text))`

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) GetBalance(ctx context.Context, orgID, itemID, warehouseID int64) (Balance, error) {
	var b Balance
	err := pgxscan.Get(ctx, r.db, &b, `SELECT `+balanceColumns+` FROM inventory_balances
WHERE org_id = $1 AND item_id = $2 AND warehouse_id = $3`, orgID, itemID, warehouseID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return Balance{}, ErrBalanceNotFound
		}
		return Balance{}, fmt.Errorf("inventory: get balance: %w", err)
	}
	return b, nil
}

func (r *repository) ListBalances(ctx context.Context, orgID int64, filter BalanceFilter) ([]Balance, error) {
	q := psql.Select(balanceColumns).From("inventory_balances").Where(sq.Eq{"org_id": orgID}).OrderBy("item_id", "warehouse_id")
	if filter.ItemID != 0 {
		q = q.Where(sq.Eq{"item_id": filter.ItemID})
	}
	if filter.WarehouseID != 0 {
		q = q.Where(sq.Eq{"warehouse_id": filter.WarehouseID})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("inventory: build balances: %w", err)
	}
	var out []Balance
	if err := pgxscan.Select(ctx, r.db, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("inventory: list balances: %w", err)
	}
	return out, nil
}

func (r *repository) ListTransactions(ctx context.Context, orgID int64, filter TransactionFilter) ([]Transaction, int, error) {
	where := sq.And{sq.Eq{"org_id": orgID}}
	if filter.ItemID != 0 {
		where = append(where, sq.Eq{"item_id": filter.ItemID})
	}
	if filter.WarehouseID != 0 {
		where = append(where, sq.Eq{"warehouse_id": filter.WarehouseID})
	}
	if filter.ReferenceType != "" {
		where = append(where, sq.Eq{"reference_type": filter.ReferenceType})
	}
	if filter.ReferenceID != "" {
		where = append(where, sq.Eq{"reference_id": filter.ReferenceID})
	}

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("inventory_transactions").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("inventory: build count: %w", err)
	}
	var total int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("inventory: count transactions: %w", err)
	}

	page := shared.NewPagination(filter.Page, filter.PerPage, total)
	sql, args, err := psql.Select(transactionColumns).From("inventory_transactions").Where(where).
		OrderBy("id DESC").Limit(uint64(page.PerPage)).Offset(uint64(page.Offset())).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("inventory: build transactions: %w", err)
	}
	var out []Transaction
	if err := pgxscan.Select(ctx, r.db, &out, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("inventory: list transactions: %w", err)
	}
	return out, total, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, "inventory", func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// WithRebuildTx runs fn read committed after taking the org lock exclusively,
// so every delta committed before the lock was granted is visible.
func (r *repository) WithRebuildTx(ctx context.Context, orgID int64, fn func(context.Context, TxRepository) error) error {
	return db.WithTxLevel(ctx, r.db, "inventory.rebuild", pgx.ReadCommitted, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, fmt.Sprintf(orgLock, ""), orgID); err != nil {
			return fmt.Errorf("inventory: lock org: %w", err)
		}
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxStore binds stock writes to a transaction opened elsewhere.
func NewTxStore(tx pgx.Tx) TxStore {
	return &txRepository{tx: tx}
}

// ApplyDelta upserts the balance row: on-hand and available move by
// QtyChange and in-transit by InTransitChange.
func (r *txRepository) ApplyDelta(ctx context.Context, orgID int64, d Delta) (Balance, error) {
	if _, err := r.tx.Exec(ctx, fmt.Sprintf(orgLock, "_shared"), orgID); err != nil {
		return Balance{}, fmt.Errorf("inventory: lock org: %w", err)
	}
	var b Balance
	err := pgxscan.Get(ctx, r.tx, &b, `INSERT INTO inventory_balances
    (org_id, item_id, warehouse_id, on_hand_qty, available_qty, in_transit_qty, updated_at)
VALUES ($1, $2, $3, $4, $4, $5, NOW())
ON CONFLICT (org_id, item_id, warehouse_id) DO UPDATE SET
    on_hand_qty    = inventory_balances.on_hand_qty + EXCLUDED.on_hand_qty,
    available_qty  = inventory_balances.available_qty + EXCLUDED.available_qty,
    in_transit_qty = inventory_balances.in_transit_qty + EXCLUDED.in_transit_qty,
    total_value    = (inventory_balances.on_hand_qty + EXCLUDED.on_hand_qty) * inventory_balances.unit_cost,
    updated_at     = NOW()
RETURNING `+balanceColumns, orgID, d.ItemID, d.WarehouseID, d.QtyChange, d.InTransitChange)
	if err != nil {
		return Balance{}, fmt.Errorf("inventory: apply delta: %w", err)
	}
	return b, nil
}

func (r *txRepository) AppendTransaction(ctx context.Context, t Transaction) (Transaction, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_transactions
    (org_id, batch_id, txn_type, item_id, warehouse_id, counterpart_warehouse_id, quantity, unit_cost,
     reference_type, reference_id, txn_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id, created_at`,
		t.OrgID, t.BatchID, t.TxnType, t.ItemID, t.WarehouseID, t.CounterpartWarehouseID, t.Quantity, t.UnitCost,
		t.ReferenceType, t.ReferenceID, t.TxnDate).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return Transaction{}, fmt.Errorf("inventory: append transaction: %w", err)
	}
	return t, nil
}

func (r *txRepository) LockedBalances(ctx context.Context, orgID int64) ([]Balance, error) {
	var out []Balance
	err := pgxscan.Select(ctx, r.tx, &out, `SELECT `+balanceColumns+` FROM inventory_balances
WHERE org_id = $1 ORDER BY item_id, warehouse_id FOR UPDATE`, orgID)
	if err != nil {
		return nil, fmt.Errorf("inventory: lock balances: %w", err)
	}
	return out, nil
}

func (r *txRepository) Transactions(ctx context.Context, orgID int64) ([]Transaction, error) {
	var out []Transaction
	err := pgxscan.Select(ctx, r.tx, &out, `SELECT `+transactionColumns+` FROM inventory_transactions
WHERE org_id = $1 ORDER BY id`, orgID)
	if err != nil {
		return nil, fmt.Errorf("inventory: load transactions: %w", err)
	}
	return out, nil
}

// ResetBalance overwrites quantities with rebuilt values, keeping the
// allocation and unit cost.
func (r *txRepository) ResetBalance(ctx context.Context, orgID int64, k Key, p Position) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO inventory_balances
    (org_id, item_id, warehouse_id, on_hand_qty, available_qty, in_transit_qty, updated_at)
VALUES ($1, $2, $3, $4, $4, $5, NOW())
ON CONFLICT (org_id, item_id, warehouse_id) DO UPDATE SET
    on_hand_qty    = EXCLUDED.on_hand_qty,
    available_qty  = EXCLUDED.on_hand_qty - inventory_balances.allocated_qty,
    in_transit_qty = EXCLUDED.in_transit_qty,
    total_value    = EXCLUDED.on_hand_qty * inventory_balances.unit_cost,
    updated_at     = NOW()`, orgID, k.ItemID, k.WarehouseID, p.OnHand, p.InTransit)
	if err != nil {
		return fmt.Errorf("inventory: reset balance: %w", err)
	}
	return nil
}
