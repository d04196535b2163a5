package transfers

import "github.com/odyssey-erp/ledger/internal/shared"

// ValidateInput checks the header and lines of a create or update request.
func ValidateInput(in Input) error {
	if in.FromWarehouseID <= 0 || in.ToWarehouseID <= 0 {
		return shared.Validation("Source and destination warehouses are required")
	}
	if in.FromWarehouseID == in.ToWarehouseID {
		return shared.Validation("Source and destination warehouses must differ")
	}
	if len(in.Lines) == 0 {
		return shared.Validation("Transfer order must have at least one line")
	}
	for i, l := range in.Lines {
		if l.ItemID <= 0 {
			return shared.Validation("Line %d: Item is required", i+1)
		}
		if !l.OrderedQty.IsPositive() {
			return shared.Validation("Line %d: Ordered quantity must be positive", i+1)
		}
		if l.UnitCost.IsNegative() {
			return shared.Validation("Line %d: Unit cost cannot be negative", i+1)
		}
	}
	if in.RequestedShipDate != nil && !in.OrderDate.IsZero() && in.RequestedShipDate.Before(in.OrderDate) {
		return shared.Validation("Requested ship date cannot be before the order date")
	}
	return nil
}
