package transfers

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/ledger/internal/inventory"
	"github.com/odyssey-erp/ledger/internal/platform/db"
	"github.com/odyssey-erp/ledger/internal/sequence"
	"github.com/odyssey-erp/ledger/internal/shared"
)

// Repository encapsulates DB operations for transfer orders.
type Repository interface {
	List(ctx context.Context, orgID int64, filter ListFilter) ([]Order, int, error)
	Get(ctx context.Context, orgID, id int64) (Order, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the order writes and the inventory store on the same
// transaction, so a shipment or receipt commits or rolls back as a whole.
type TxRepository interface {
	inventory.TxStore

	NextNumber(ctx context.Context, orgID int64) (string, error)
	GetForUpdate(ctx context.Context, orgID, id int64) (Order, error)
	Insert(ctx context.Context, o Order) (Order, error)
	UpdateHeader(ctx context.Context, o Order) (Order, error)
	ReplaceLines(ctx context.Context, orderID int64, lines []Line) ([]Line, error)
	UpdateLineQuantities(ctx context.Context, l Line) error
	Delete(ctx context.Context, orgID, id int64) error
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const orderColumns = `id, org_id, transfer_order_number, from_warehouse_id, to_warehouse_id, status, order_date,
requested_ship_date, actual_ship_date, actual_receipt_date, shipping_method, reference_number, notes,
created_by, created_at, updated_at`

const lineColumns = "id, order_id, line_no, item_id, ordered_qty, shipped_qty, received_qty, uom, unit_cost"

var constraintMessages = shared.ConstraintMessages{
	"uq_transfer_orders_number": "Transfer order number already exists",
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) List(ctx context.Context, orgID int64, filter ListFilter) ([]Order, int, error) {
	where := sq.And{sq.Eq{"org_id": orgID}}
	if filter.Status != "" {
		where = append(where, sq.Eq{"status": filter.Status})
	}
	countSQL, countArgs, err := psql.Select("COUNT(*)").From("transfer_orders").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("transfers: build count: %w", err)
	}
	var total int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("transfers: count: %w", err)
	}

	page := shared.NewPagination(filter.Page, filter.PerPage, total)
	sql, args, err := psql.Select(orderColumns).From("transfer_orders").Where(where).
		OrderBy("order_date DESC", "id DESC").
		Limit(uint64(page.PerPage)).
		Offset(uint64(page.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("transfers: build list: %w", err)
	}
	var out []Order
	if err := pgxscan.Select(ctx, r.db, &out, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("transfers: list: %w", err)
	}
	return out, total, nil
}

func (r *repository) Get(ctx context.Context, orgID, id int64) (Order, error) {
	return getOrder(ctx, r.db, orgID, id, false)
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, "transfers", func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txRepository{TxStore: inventory.NewTxStore(tx), tx: tx})
	})
}

type txRepository struct {
	inventory.TxStore
	tx pgx.Tx
}

func (r *txRepository) NextNumber(ctx context.Context, orgID int64) (string, error) {
	n, err := sequence.Next(ctx, r.tx, orgID, sequence.KeyTransferOrder)
	if err != nil {
		return "", err
	}
	return sequence.Format(sequence.KeyTransferOrder, n), nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, orgID, id int64) (Order, error) {
	return getOrder(ctx, r.tx, orgID, id, true)
}

func (r *txRepository) Insert(ctx context.Context, o Order) (Order, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO transfer_orders (org_id, transfer_order_number, from_warehouse_id, to_warehouse_id,
    status, order_date, requested_ship_date, shipping_method, reference_number, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id, created_at, updated_at`,
		o.OrgID, o.Number, o.FromWarehouseID, o.ToWarehouseID, o.Status, o.OrderDate, o.RequestedShipDate,
		o.ShippingMethod, o.ReferenceNumber, o.Notes, o.CreatedBy).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, shared.MapConstraint(fmt.Errorf("transfers: insert order: %w", err), constraintMessages)
	}
	return o, nil
}

func (r *txRepository) UpdateHeader(ctx context.Context, o Order) (Order, error) {
	err := r.tx.QueryRow(ctx, `UPDATE transfer_orders SET from_warehouse_id = $3, to_warehouse_id = $4, status = $5,
order_date = $6, requested_ship_date = $7, actual_ship_date = $8, actual_receipt_date = $9, shipping_method = $10,
reference_number = $11, notes = $12, updated_at = NOW()
WHERE org_id = $1 AND id = $2 RETURNING updated_at`,
		o.OrgID, o.ID, o.FromWarehouseID, o.ToWarehouseID, o.Status, o.OrderDate, o.RequestedShipDate,
		o.ActualShipDate, o.ActualReceiptDate, o.ShippingMethod, o.ReferenceNumber, o.Notes).
		Scan(&o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("transfers: update order: %w", err)
	}
	return o, nil
}

// ReplaceLines deletes the order's lines and writes lines in their place,
// numbering them from 1 in slice order.
func (r *txRepository) ReplaceLines(ctx context.Context, orderID int64, lines []Line) ([]Line, error) {
	if _, err := r.tx.Exec(ctx, `DELETE FROM transfer_order_lines WHERE order_id = $1`, orderID); err != nil {
		return nil, fmt.Errorf("transfers: delete lines: %w", err)
	}
	out := make([]Line, 0, len(lines))
	for i, l := range lines {
		l.OrderID = orderID
		l.LineNo = i + 1
		err := r.tx.QueryRow(ctx, `INSERT INTO transfer_order_lines (order_id, line_no, item_id, ordered_qty, shipped_qty,
    received_qty, uom, unit_cost)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			l.OrderID, l.LineNo, l.ItemID, l.OrderedQty, l.ShippedQty, l.ReceivedQty, l.UOM, l.UnitCost).Scan(&l.ID)
		if err != nil {
			return nil, fmt.Errorf("transfers: insert line %d: %w", l.LineNo, err)
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *txRepository) UpdateLineQuantities(ctx context.Context, l Line) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE transfer_order_lines SET shipped_qty = $2, received_qty = $3 WHERE id = $1`,
		l.ID, l.ShippedQty, l.ReceivedQty)
	if err != nil {
		return fmt.Errorf("transfers: update line %d: %w", l.LineNo, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepository) Delete(ctx context.Context, orgID, id int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM transfer_orders WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("transfers: delete order: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func getOrder(ctx context.Context, q pgxscan.Querier, orgID, id int64, forUpdate bool) (Order, error) {
	query := `SELECT ` + orderColumns + ` FROM transfer_orders WHERE org_id = $1 AND id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var o Order
	if err := pgxscan.Get(ctx, q, &o, query, orgID, id); err != nil {
		if pgxscan.NotFound(err) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("transfers: get order: %w", err)
	}
	if err := pgxscan.Select(ctx, q, &o.Lines, `SELECT `+lineColumns+` FROM transfer_order_lines
WHERE order_id = $1 ORDER BY line_no`, id); err != nil {
		return Order{}, fmt.Errorf("transfers: get lines: %w", err)
	}
	return o, nil
}
