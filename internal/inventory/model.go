package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TxnType enumerates inventory movements recorded on the transaction log.
type TxnType string

const (
	TxnReceipt    TxnType = "RECEIPT"
	TxnIssue      TxnType = "ISSUE"
	TxnTransfer   TxnType = "TRANSFER"
	TxnAdjustment TxnType = "ADJUSTMENT"
)

// Valid reports whether t is a known movement type.
func (t TxnType) Valid() bool {
	switch t {
	case TxnReceipt, TxnIssue, TxnTransfer, TxnAdjustment:
		return true
	}
	return false
}

// Balance is the materialised stock position of one item in one warehouse.
// AvailableQty is maintained as OnHandQty minus AllocatedQty.
type Balance struct {
	OrgID        int64           `db:"org_id" json:"orgId"`
	ItemID       int64           `db:"item_id" json:"itemId"`
	WarehouseID  int64           `db:"warehouse_id" json:"warehouseId"`
	OnHandQty    decimal.Decimal `db:"on_hand_qty" json:"onHandQty"`
	AllocatedQty decimal.Decimal `db:"allocated_qty" json:"allocatedQty"`
	AvailableQty decimal.Decimal `db:"available_qty" json:"availableQty"`
	InTransitQty decimal.Decimal `db:"in_transit_qty" json:"inTransitQty"`
	UnitCost     decimal.Decimal `db:"unit_cost" json:"unitCost"`
	TotalValue   decimal.Decimal `db:"total_value" json:"totalValue"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

// Transaction is one append-only movement record. Quantity is signed;
// negative values leave the warehouse.
type Transaction struct {
	ID                     int64           `db:"id" json:"id"`
	OrgID                  int64           `db:"org_id" json:"orgId"`
	BatchID                uuid.UUID       `db:"batch_id" json:"batchId"`
	TxnType                TxnType         `db:"txn_type" json:"txnType"`
	ItemID                 int64           `db:"item_id" json:"itemId"`
	WarehouseID            int64           `db:"warehouse_id" json:"warehouseId"`
	CounterpartWarehouseID *int64          `db:"counterpart_warehouse_id" json:"counterpartWarehouseId,omitempty"`
	Quantity               decimal.Decimal `db:"quantity" json:"quantity"`
	UnitCost               decimal.Decimal `db:"unit_cost" json:"unitCost"`
	ReferenceType          string          `db:"reference_type" json:"referenceType"`
	ReferenceID            string          `db:"reference_id" json:"referenceId"`
	TxnDate                time.Time       `db:"txn_date" json:"txnDate"`
	CreatedAt              time.Time       `db:"created_at" json:"createdAt"`
}

// Delta is an incremental change applied to a balance row.
type Delta struct {
	ItemID          int64
	WarehouseID     int64
	QtyChange       decimal.Decimal
	InTransitChange decimal.Decimal
}

// MovementInput records a receipt, issue or adjustment outside a transfer order.
type MovementInput struct {
	TxnType       TxnType
	ItemID        int64
	WarehouseID   int64
	Quantity      decimal.Decimal
	UnitCost      decimal.Decimal
	ReferenceType string
	ReferenceID   string
	TxnDate       time.Time
}

// BalanceFilter narrows ListBalances.
type BalanceFilter struct {
	ItemID      int64
	WarehouseID int64
}

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	ItemID        int64
	WarehouseID   int64
	ReferenceType string
	ReferenceID   string
	Page          int
	PerPage       int
}

// Drift describes a balance row whose stored quantities disagreed with the
// transaction log.
type Drift struct {
	ItemID           int64           `json:"itemId"`
	WarehouseID      int64           `json:"warehouseId"`
	StoredOnHand     decimal.Decimal `json:"storedOnHand"`
	RebuiltOnHand    decimal.Decimal `json:"rebuiltOnHand"`
	StoredAvailable  decimal.Decimal `json:"storedAvailable"`
	RebuiltAvailable decimal.Decimal `json:"rebuiltAvailable"`
	StoredInTransit  decimal.Decimal `json:"storedInTransit"`
	RebuiltInTransit decimal.Decimal `json:"rebuiltInTransit"`
}

// RebuildReport summarises a RebuildBalances run.
type RebuildReport struct {
	Transactions int     `json:"transactions"`
	Balances     int     `json:"balances"`
	Drifted      []Drift `json:"drifted"`
}
