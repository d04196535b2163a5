package inventory

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/shared"
)

var ErrBalanceNotFound = shared.NotFound("Inventory balance")

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
}

// Service owns the balance store and its transaction log.
type Service struct {
	repo     Repository
	audit    AuditPort
	allowNeg bool
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort, cfg ServiceConfig) *Service {
	return &Service{repo: repo, audit: audit, allowNeg: cfg.AllowNegativeStock, now: time.Now}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// TransactionPage is one page of the transaction log.
type TransactionPage struct {
	Transactions []Transaction     `json:"transactions"`
	Pagination   shared.Pagination `json:"pagination"`
}

func (s *Service) GetBalance(ctx context.Context, orgID, itemID, warehouseID int64) (Balance, error) {
	return s.repo.GetBalance(ctx, orgID, itemID, warehouseID)
}

func (s *Service) ListBalances(ctx context.Context, orgID int64, filter BalanceFilter) ([]Balance, error) {
	out, err := s.repo.ListBalances(ctx, orgID, filter)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Balance{}
	}
	return out, nil
}

func (s *Service) ListTransactions(ctx context.Context, orgID int64, filter TransactionFilter) (TransactionPage, error) {
	rows, total, err := s.repo.ListTransactions(ctx, orgID, filter)
	if err != nil {
		return TransactionPage{}, err
	}
	if rows == nil {
		rows = []Transaction{}
	}
	return TransactionPage{Transactions: rows, Pagination: shared.NewPagination(filter.Page, filter.PerPage, total)}, nil
}

// PostMovement records a receipt, issue or adjustment and applies it to the
// balance in one transaction. Receipt and issue quantities are given as
// positive numbers; an issue is logged negative. Adjustments keep their sign.
func (s *Service) PostMovement(ctx context.Context, orgID int64, in MovementInput) (Transaction, Balance, error) {
	qty, err := s.movementQuantity(in)
	if err != nil {
		return Transaction{}, Balance{}, err
	}
	date := in.TxnDate
	if date.IsZero() {
		date = s.now().UTC().Truncate(24 * time.Hour)
	}
	txn := Transaction{
		OrgID:         orgID,
		BatchID:       uuid.New(),
		TxnType:       in.TxnType,
		ItemID:        in.ItemID,
		WarehouseID:   in.WarehouseID,
		Quantity:      qty,
		UnitCost:      in.UnitCost,
		ReferenceType: strings.TrimSpace(in.ReferenceType),
		ReferenceID:   strings.TrimSpace(in.ReferenceID),
		TxnDate:       date,
	}

	var bal Balance
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var balances []Balance
		var err error
		txn, balances, err = Record(ctx, tx, txn, Delta{ItemID: in.ItemID, WarehouseID: in.WarehouseID, QtyChange: qty})
		if err != nil {
			return err
		}
		bal = balances[0]
		if !s.allowNeg && bal.OnHandQty.IsNegative() {
			return shared.Validation("Insufficient stock for item %d in warehouse %d: on hand would be %s",
				in.ItemID, in.WarehouseID, bal.OnHandQty.String())
		}
		return nil
	})
	if err != nil {
		return Transaction{}, Balance{}, err
	}
	s.record(ctx, orgID, "inventory."+strings.ToLower(string(in.TxnType)), strconv.FormatInt(txn.ID, 10), map[string]any{
		"item_id":      in.ItemID,
		"warehouse_id": in.WarehouseID,
		"quantity":     qty.String(),
	})
	return txn, bal, nil
}

func (s *Service) movementQuantity(in MovementInput) (decimal.Decimal, error) {
	switch {
	case in.TxnType == TxnTransfer:
		return decimal.Decimal{}, shared.Validation("Use a transfer order to move stock between warehouses")
	case !in.TxnType.Valid():
		return decimal.Decimal{}, shared.Validation("Invalid transaction type %q", in.TxnType)
	case in.ItemID <= 0 || in.WarehouseID <= 0:
		return decimal.Decimal{}, shared.Validation("Item and warehouse are required")
	case in.Quantity.IsZero():
		return decimal.Decimal{}, shared.Validation("Quantity must be non-zero")
	case in.UnitCost.IsNegative():
		return decimal.Decimal{}, shared.Validation("Unit cost cannot be negative")
	}
	if in.TxnType == TxnAdjustment {
		return in.Quantity, nil
	}
	if in.Quantity.IsNegative() {
		return decimal.Decimal{}, shared.Validation("Quantity must be positive")
	}
	if in.TxnType == TxnIssue {
		return in.Quantity.Neg(), nil
	}
	return in.Quantity, nil
}

// Record appends txn to the log and applies every delta through store, all
// inside the caller's transaction. The returned balances follow deltas order.
func Record(ctx context.Context, store TxStore, txn Transaction, deltas ...Delta) (Transaction, []Balance, error) {
	saved, err := store.AppendTransaction(ctx, txn)
	if err != nil {
		return Transaction{}, nil, err
	}
	balances := make([]Balance, 0, len(deltas))
	for _, d := range deltas {
		b, err := store.ApplyDelta(ctx, txn.OrgID, d)
		if err != nil {
			return Transaction{}, nil, err
		}
		balances = append(balances, b)
	}
	return saved, balances, nil
}

// RebuildBalances recomputes on-hand and in-transit quantities for the org by
// replaying the transaction log, overwriting rows that drifted.
func (s *Service) RebuildBalances(ctx context.Context, orgID int64) (RebuildReport, error) {
	var report RebuildReport
	err := s.repo.WithRebuildTx(ctx, orgID, func(ctx context.Context, tx TxRepository) error {
		stored, err := tx.LockedBalances(ctx, orgID)
		if err != nil {
			return err
		}
		txns, err := tx.Transactions(ctx, orgID)
		if err != nil {
			return err
		}
		rebuilt := Replay(txns)
		drift := Compare(stored, rebuilt)
		for _, d := range drift {
			k := Key{ItemID: d.ItemID, WarehouseID: d.WarehouseID}
			if err := tx.ResetBalance(ctx, orgID, k, rebuilt[k]); err != nil {
				return err
			}
		}
		report = RebuildReport{Transactions: len(txns), Balances: len(rebuilt), Drifted: drift}
		return nil
	})
	if err != nil {
		return RebuildReport{}, err
	}
	if report.Drifted == nil {
		report.Drifted = []Drift{}
	}
	if len(report.Drifted) > 0 {
		s.record(ctx, orgID, "inventory.rebuild", strconv.FormatInt(orgID, 10), map[string]any{
			"drifted": len(report.Drifted),
		})
	}
	return report, nil
}

func (s *Service) record(ctx context.Context, orgID int64, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		OrgID:    orgID,
		Actor:    shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "inventory",
		EntityID: entityID,
		Meta:     meta,
		At:       s.now(),
	})
}
