package transfers

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/platform/httpx"
)

type lineRequest struct {
	ItemID     int64           `json:"itemId" validate:"required,gt=0"`
	OrderedQty decimal.Decimal `json:"orderedQty"`
	UOM        string          `json:"uom" validate:"max=16"`
	UnitCost   decimal.Decimal `json:"unitCost"`
}

type orderRequest struct {
	FromWarehouseID   int64         `json:"fromWarehouseId" validate:"required,gt=0"`
	ToWarehouseID     int64         `json:"toWarehouseId" validate:"required,gt=0,nefield=FromWarehouseID"`
	OrderDate         string        `json:"orderDate"`
	RequestedShipDate string        `json:"requestedShipDate"`
	ShippingMethod    string        `json:"shippingMethod" validate:"max=100"`
	ReferenceNumber   string        `json:"referenceNumber" validate:"max=100"`
	Notes             string        `json:"notes" validate:"max=1000"`
	Lines             []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (req orderRequest) input() (Input, error) {
	in := Input{
		FromWarehouseID: req.FromWarehouseID,
		ToWarehouseID:   req.ToWarehouseID,
		ShippingMethod:  req.ShippingMethod,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	}
	orderDate, err := httpx.OptionalDate(req.OrderDate)
	if err != nil {
		return Input{}, err
	}
	if orderDate != nil {
		in.OrderDate = *orderDate
	}
	if in.RequestedShipDate, err = httpx.OptionalDate(req.RequestedShipDate); err != nil {
		return Input{}, err
	}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, LineInput{ItemID: l.ItemID, OrderedQty: l.OrderedQty, UOM: l.UOM, UnitCost: l.UnitCost})
	}
	return in, nil
}

type shipRequest struct {
	ActualShipDate  string `json:"actualShipDate"`
	ShippingMethod  string `json:"shippingMethod" validate:"max=100"`
	ReferenceNumber string `json:"referenceNumber" validate:"max=100"`
}

func (req shipRequest) input() (ShipInput, error) {
	date, err := httpx.OptionalDate(req.ActualShipDate)
	if err != nil {
		return ShipInput{}, err
	}
	return ShipInput{ActualShipDate: date, ShippingMethod: req.ShippingMethod, ReferenceNumber: req.ReferenceNumber}, nil
}

type receivedLineRequest struct {
	LineID      int64           `json:"lineId" validate:"required,gt=0"`
	ReceivedQty decimal.Decimal `json:"receivedQty"`
}

type receiveRequest struct {
	ActualReceiptDate string                `json:"actualReceiptDate"`
	ReceivedLines     []receivedLineRequest `json:"receivedLines" validate:"required,min=1,dive"`
}

func (req receiveRequest) input() (ReceiveInput, error) {
	date, err := httpx.OptionalDate(req.ActualReceiptDate)
	if err != nil {
		return ReceiveInput{}, err
	}
	in := ReceiveInput{ActualReceiptDate: date}
	for _, l := range req.ReceivedLines {
		in.Lines = append(in.Lines, ReceivedLine{LineID: l.LineID, ReceivedQty: l.ReceivedQty})
	}
	return in, nil
}
