package transfers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/shared"
)

// Status represents the lifecycle of a transfer order.
type Status string

const (
	StatusDraft             Status = "DRAFT"
	StatusReleased          Status = "RELEASED"
	StatusShipped           Status = "SHIPPED"
	StatusPartiallyReceived Status = "PARTIALLY_RECEIVED"
	StatusReceived          Status = "RECEIVED"
)

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusReleased, StatusShipped, StatusPartiallyReceived, StatusReceived:
		return true
	default:
		return false
	}
}

// CanEdit reports whether header and lines may still change. Only DRAFT
// orders can be edited or deleted.
func (s Status) CanEdit() bool { return s == StatusDraft }

func (s Status) CanShip() bool { return s == StatusReleased }

func (s Status) CanReceive() bool {
	return s == StatusShipped || s == StatusPartiallyReceived
}

// ReferenceType tags inventory transactions written by transfer orders.
const ReferenceType = "TransferOrder"

// Order moves items from one warehouse to another.
type Order struct {
	ID                int64      `db:"id" json:"id"`
	OrgID             int64      `db:"org_id" json:"orgId"`
	Number            string     `db:"transfer_order_number" json:"transferOrderNumber"`
	FromWarehouseID   int64      `db:"from_warehouse_id" json:"fromWarehouseId"`
	ToWarehouseID     int64      `db:"to_warehouse_id" json:"toWarehouseId"`
	Status            Status     `db:"status" json:"status"`
	OrderDate         time.Time  `db:"order_date" json:"orderDate"`
	RequestedShipDate *time.Time `db:"requested_ship_date" json:"requestedShipDate,omitempty"`
	ActualShipDate    *time.Time `db:"actual_ship_date" json:"actualShipDate,omitempty"`
	ActualReceiptDate *time.Time `db:"actual_receipt_date" json:"actualReceiptDate,omitempty"`
	ShippingMethod    string     `db:"shipping_method" json:"shippingMethod"`
	ReferenceNumber   string     `db:"reference_number" json:"referenceNumber"`
	Notes             string     `db:"notes" json:"notes"`
	CreatedBy         string     `db:"created_by" json:"createdBy"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updatedAt"`
	Lines             []Line     `db:"-" json:"lines"`
}

// Line is one item on a transfer order. ShippedQty and ReceivedQty only grow.
type Line struct {
	ID          int64           `db:"id" json:"id"`
	OrderID     int64           `db:"order_id" json:"orderId"`
	LineNo      int             `db:"line_no" json:"lineNo"`
	ItemID      int64           `db:"item_id" json:"itemId"`
	OrderedQty  decimal.Decimal `db:"ordered_qty" json:"orderedQty"`
	ShippedQty  decimal.Decimal `db:"shipped_qty" json:"shippedQty"`
	ReceivedQty decimal.Decimal `db:"received_qty" json:"receivedQty"`
	UOM         string          `db:"uom" json:"uom"`
	UnitCost    decimal.Decimal `db:"unit_cost" json:"unitCost"`
}

// Outstanding is the shipped quantity not yet received.
func (l Line) Outstanding() decimal.Decimal {
	return l.ShippedQty.Sub(l.ReceivedQty)
}

type LineInput struct {
	ItemID     int64
	OrderedQty decimal.Decimal
	UOM        string
	UnitCost   decimal.Decimal
}

// Input carries the editable header and lines of a DRAFT order.
type Input struct {
	FromWarehouseID   int64
	ToWarehouseID     int64
	OrderDate         time.Time
	RequestedShipDate *time.Time
	ShippingMethod    string
	ReferenceNumber   string
	Notes             string
	Lines             []LineInput
}

// ShipInput records shipment details; empty fields keep the order's values.
type ShipInput struct {
	ActualShipDate  *time.Time
	ShippingMethod  string
	ReferenceNumber string
}

type ReceivedLine struct {
	LineID      int64
	ReceivedQty decimal.Decimal
}

type ReceiveInput struct {
	ActualReceiptDate *time.Time
	Lines             []ReceivedLine
}

type ListFilter struct {
	Status  Status
	Page    int
	PerPage int
}

// Page is one page of transfer order headers.
type Page struct {
	Orders     []Order           `json:"orders"`
	Pagination shared.Pagination `json:"pagination"`
}
