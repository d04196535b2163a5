package transfers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/inventory"
	"github.com/odyssey-erp/ledger/internal/shared"
)

var ErrNotFound = shared.NotFound("Transfer order")

// AuditPort records transfer order changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service drives transfer orders through their lifecycle and moves the
// corresponding stock in the balance store.
type Service struct {
	repo     Repository
	audit    AuditPort
	now      func() time.Time
	allowNeg bool
}

func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithAllowNegativeStock lets shipments drive source on-hand below zero.
func (s *Service) WithAllowNegativeStock(allow bool) {
	s.allowNeg = allow
}

func (s *Service) today() time.Time {
	return s.now().UTC().Truncate(24 * time.Hour)
}

func (s *Service) List(ctx context.Context, orgID int64, filter ListFilter) (Page, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return Page{}, shared.Validation("Invalid status %q", filter.Status)
	}
	orders, total, err := s.repo.List(ctx, orgID, filter)
	if err != nil {
		return Page{}, err
	}
	if orders == nil {
		orders = []Order{}
	}
	return Page{Orders: orders, Pagination: shared.NewPagination(filter.Page, filter.PerPage, total)}, nil
}

func (s *Service) Get(ctx context.Context, orgID, id int64) (Order, error) {
	return s.repo.Get(ctx, orgID, id)
}

// Create allocates the next TO number and stores a DRAFT order with its lines.
func (s *Service) Create(ctx context.Context, orgID int64, in Input) (Order, error) {
	if err := ValidateInput(in); err != nil {
		return Order{}, err
	}
	if in.OrderDate.IsZero() {
		in.OrderDate = s.today()
	}
	var created Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		no, err := tx.NextNumber(ctx, orgID)
		if err != nil {
			return err
		}
		o := Order{OrgID: orgID, Number: no, Status: StatusDraft, CreatedBy: shared.ActorFromContext(ctx)}
		applyInput(&o, in)
		o, err = tx.Insert(ctx, o)
		if err != nil {
			return err
		}
		o.Lines, err = tx.ReplaceLines(ctx, o.ID, toLines(in.Lines))
		if err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.record(ctx, orgID, "transfer_order.create", created, nil)
	return created, nil
}

// Update rewrites a DRAFT order, replacing its whole line set.
func (s *Service) Update(ctx context.Context, orgID, id int64, in Input) (Order, error) {
	if err := ValidateInput(in); err != nil {
		return Order{}, err
	}
	var updated Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetForUpdate(ctx, orgID, id)
		if err != nil {
			return err
		}
		if !o.Status.CanEdit() {
			return shared.StateConflict("Can only edit DRAFT transfer orders", string(o.Status), string(StatusDraft))
		}
		if in.OrderDate.IsZero() {
			in.OrderDate = o.OrderDate
		}
		applyInput(&o, in)
		o, err = tx.UpdateHeader(ctx, o)
		if err != nil {
			return err
		}
		o.Lines, err = tx.ReplaceLines(ctx, o.ID, toLines(in.Lines))
		if err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.record(ctx, orgID, "transfer_order.update", updated, nil)
	return updated, nil
}

// Release moves a DRAFT order to RELEASED. Stock is untouched.
func (s *Service) Release(ctx context.Context, orgID, id int64) (Order, error) {
	var released Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetForUpdate(ctx, orgID, id)
		if err != nil {
			return err
		}
		if o.Status != StatusDraft {
			return shared.StateConflict("Can only release DRAFT transfer orders", string(o.Status), string(StatusDraft))
		}
		if len(o.Lines) == 0 {
			return shared.Validation("Transfer order must have at least one line")
		}
		o.Status = StatusReleased
		lines := o.Lines
		o, err = tx.UpdateHeader(ctx, o)
		o.Lines = lines
		released = o
		return err
	})
	if err != nil {
		return Order{}, err
	}
	s.record(ctx, orgID, "transfer_order.release", released, nil)
	return released, nil
}

// Ship sends the full ordered quantity of every line. Each line logs a
// negative TRANSFER at the source and moves the quantity from on-hand to
// in-transit there. Everything happens in one transaction, which fails when a
// line would leave source on-hand negative unless negative stock is allowed.
func (s *Service) Ship(ctx context.Context, orgID, id int64, in ShipInput) (Order, error) {
	var shipped Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetForUpdate(ctx, orgID, id)
		if err != nil {
			return err
		}
		if !o.Status.CanShip() {
			return shared.StateConflict("Transfer order must be RELEASED before shipping", string(o.Status), string(StatusReleased))
		}
		date := s.today()
		if in.ActualShipDate != nil {
			date = *in.ActualShipDate
		}
		batch := uuid.New()
		for i, l := range o.Lines {
			txn := inventory.Transaction{
				OrgID:                  orgID,
				BatchID:                batch,
				TxnType:                inventory.TxnTransfer,
				ItemID:                 l.ItemID,
				WarehouseID:            o.FromWarehouseID,
				CounterpartWarehouseID: &o.ToWarehouseID,
				Quantity:               l.OrderedQty.Neg(),
				UnitCost:               l.UnitCost,
				ReferenceType:          ReferenceType,
				ReferenceID:            o.Number,
				TxnDate:                date,
			}
			out := inventory.Delta{
				ItemID:          l.ItemID,
				WarehouseID:     o.FromWarehouseID,
				QtyChange:       l.OrderedQty.Neg(),
				InTransitChange: l.OrderedQty,
			}
			_, balances, err := inventory.Record(ctx, tx, txn, out)
			if err != nil {
				return err
			}
			if src := balances[0]; !s.allowNeg && src.OnHandQty.IsNegative() {
				return shared.Validation("Insufficient stock for item %d in warehouse %d: on hand would be %s",
					l.ItemID, o.FromWarehouseID, src.OnHandQty.String())
			}
			l.ShippedQty = l.OrderedQty
			if err := tx.UpdateLineQuantities(ctx, l); err != nil {
				return err
			}
			o.Lines[i] = l
		}
		o.Status = StatusShipped
		o.ActualShipDate = &date
		if m := strings.TrimSpace(in.ShippingMethod); m != "" {
			o.ShippingMethod = m
		}
		if ref := strings.TrimSpace(in.ReferenceNumber); ref != "" {
			o.ReferenceNumber = ref
		}
		lines := o.Lines
		o, err = tx.UpdateHeader(ctx, o)
		o.Lines = lines
		shipped = o
		return err
	})
	if err != nil {
		return Order{}, err
	}
	s.record(ctx, orgID, "transfer_order.ship", shipped, map[string]any{"lines": len(shipped.Lines)})
	return shipped, nil
}

// Receive books received quantities at the destination and releases them
// from in-transit at the source. Lines omitted from the receipt are unchanged.
// The order becomes RECEIVED once every line has received its ordered
// quantity, PARTIALLY_RECEIVED otherwise.
func (s *Service) Receive(ctx context.Context, orgID, id int64, in ReceiveInput) (Order, error) {
	if len(in.Lines) == 0 {
		return Order{}, shared.Validation("Receipt must include at least one line")
	}
	var received Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetForUpdate(ctx, orgID, id)
		if err != nil {
			return err
		}
		if !o.Status.CanReceive() {
			return shared.StateConflict("Transfer order must be SHIPPED before receiving", string(o.Status), string(StatusShipped))
		}
		qty, err := receiptQuantities(o, in.Lines)
		if err != nil {
			return err
		}
		date := s.today()
		if in.ActualReceiptDate != nil {
			date = *in.ActualReceiptDate
		}
		batch := uuid.New()
		complete := true
		for i, l := range o.Lines {
			q, ok := qty[l.ID]
			if ok {
				txn := inventory.Transaction{
					OrgID:                  orgID,
					BatchID:                batch,
					TxnType:                inventory.TxnTransfer,
					ItemID:                 l.ItemID,
					WarehouseID:            o.ToWarehouseID,
					CounterpartWarehouseID: &o.FromWarehouseID,
					Quantity:               q,
					UnitCost:               l.UnitCost,
					ReferenceType:          ReferenceType,
					ReferenceID:            o.Number,
					TxnDate:                date,
				}
				dst := inventory.Delta{ItemID: l.ItemID, WarehouseID: o.ToWarehouseID, QtyChange: q}
				src := inventory.Delta{ItemID: l.ItemID, WarehouseID: o.FromWarehouseID, InTransitChange: q.Neg()}
				if _, _, err := inventory.Record(ctx, tx, txn, dst, src); err != nil {
					return err
				}
				l.ReceivedQty = l.ReceivedQty.Add(q)
				if err := tx.UpdateLineQuantities(ctx, l); err != nil {
					return err
				}
				o.Lines[i] = l
			}
			if l.ReceivedQty.LessThan(l.OrderedQty) {
				complete = false
			}
		}
		o.Status = StatusPartiallyReceived
		if complete {
			o.Status = StatusReceived
		}
		o.ActualReceiptDate = &date
		lines := o.Lines
		o, err = tx.UpdateHeader(ctx, o)
		o.Lines = lines
		received = o
		return err
	})
	if err != nil {
		return Order{}, err
	}
	s.record(ctx, orgID, "transfer_order.receive", received, map[string]any{"lines": len(in.Lines)})
	return received, nil
}

// receiptQuantities sums the receipt per line, rejecting unknown lines,
// non-positive quantities and quantities beyond what is still in transit.
func receiptQuantities(o Order, lines []ReceivedLine) (map[int64]decimal.Decimal, error) {
	byID := make(map[int64]Line, len(o.Lines))
	for _, l := range o.Lines {
		byID[l.ID] = l
	}
	out := make(map[int64]decimal.Decimal, len(lines))
	for _, r := range lines {
		l, ok := byID[r.LineID]
		if !ok {
			return nil, shared.Validation("Line %d does not belong to transfer order %s", r.LineID, o.Number)
		}
		if !r.ReceivedQty.IsPositive() {
			return nil, shared.Validation("Line %d: Received quantity must be positive", l.LineNo)
		}
		out[r.LineID] = out[r.LineID].Add(r.ReceivedQty)
	}
	for id, q := range out {
		l := byID[id]
		if q.GreaterThan(l.Outstanding()) {
			return nil, shared.Validation("Line %d: Cannot receive %s, only %s in transit", l.LineNo, q.String(), l.Outstanding().String())
		}
	}
	return out, nil
}

// Delete removes a DRAFT order and its lines.
func (s *Service) Delete(ctx context.Context, orgID, id int64) error {
	var deleted Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetForUpdate(ctx, orgID, id)
		if err != nil {
			return err
		}
		if !o.Status.CanEdit() {
			return shared.StateConflict("Can only delete DRAFT transfer orders", string(o.Status), string(StatusDraft))
		}
		deleted = o
		return tx.Delete(ctx, orgID, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, orgID, "transfer_order.delete", deleted, nil)
	return nil
}

func applyInput(o *Order, in Input) {
	o.FromWarehouseID = in.FromWarehouseID
	o.ToWarehouseID = in.ToWarehouseID
	o.OrderDate = in.OrderDate
	o.RequestedShipDate = in.RequestedShipDate
	o.ShippingMethod = strings.TrimSpace(in.ShippingMethod)
	o.ReferenceNumber = strings.TrimSpace(in.ReferenceNumber)
	o.Notes = strings.TrimSpace(in.Notes)
}

func toLines(in []LineInput) []Line {
	out := make([]Line, 0, len(in))
	for _, l := range in {
		uom := strings.TrimSpace(l.UOM)
		if uom == "" {
			uom = "EA"
		}
		out = append(out, Line{ItemID: l.ItemID, OrderedQty: l.OrderedQty, UOM: uom, UnitCost: l.UnitCost})
	}
	return out
}

func (s *Service) record(ctx context.Context, orgID int64, action string, o Order, extra map[string]any) {
	if s.audit == nil {
		return
	}
	meta := map[string]any{"transfer_order_number": o.Number, "status": string(o.Status)}
	for k, v := range extra {
		meta[k] = v
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		OrgID:    orgID,
		Actor:    shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "transfer_order",
		EntityID: strconv.FormatInt(o.ID, 10),
		Meta:     meta,
		At:       s.now(),
	})
}
