package inventory

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Key identifies a balance row within an org.
type Key struct {
	ItemID      int64
	WarehouseID int64
}

// Position is the on-hand and in-transit quantity derived for one key.
type Position struct {
	OnHand    decimal.Decimal
	InTransit decimal.Decimal
}

// Replay folds the transaction log into positions. Every movement changes
// on-hand at its warehouse. An outbound TRANSFER also puts the quantity in
// transit at its source; an inbound TRANSFER with a counterpart warehouse takes
// it back out of transit there.
func Replay(txns []Transaction) map[Key]Position {
	out := make(map[Key]Position)
	apply := func(k Key, onHand, inTransit decimal.Decimal) {
		p := out[k]
		p.OnHand = p.OnHand.Add(onHand)
		p.InTransit = p.InTransit.Add(inTransit)
		out[k] = p
	}
	for _, t := range txns {
		k := Key{ItemID: t.ItemID, WarehouseID: t.WarehouseID}
		apply(k, t.Quantity, decimal.Zero)
		if t.TxnType != TxnTransfer {
			continue
		}
		switch {
		case t.Quantity.IsNegative():
			apply(k, decimal.Zero, t.Quantity.Neg())
		case t.CounterpartWarehouseID != nil:
			apply(Key{ItemID: t.ItemID, WarehouseID: *t.CounterpartWarehouseID}, decimal.Zero, t.Quantity.Neg())
		}
	}
	return out
}

// Compare reports every stored balance that disagrees with the rebuilt
// positions, plus positions with no stored row. A stored row also drifts when
// its available quantity is not on-hand less allocated. Zero positions without
// a row are not drift.
func Compare(stored []Balance, rebuilt map[Key]Position) []Drift {
	seen := make(map[Key]bool, len(stored))
	var drift []Drift
	for _, b := range stored {
		k := Key{ItemID: b.ItemID, WarehouseID: b.WarehouseID}
		seen[k] = true
		p := rebuilt[k]
		available := p.OnHand.Sub(b.AllocatedQty)
		if b.OnHandQty.Equal(p.OnHand) && b.InTransitQty.Equal(p.InTransit) && b.AvailableQty.Equal(available) {
			continue
		}
		drift = append(drift, Drift{
			ItemID:           k.ItemID,
			WarehouseID:      k.WarehouseID,
			StoredOnHand:     b.OnHandQty,
			RebuiltOnHand:    p.OnHand,
			StoredAvailable:  b.AvailableQty,
			RebuiltAvailable: available,
			StoredInTransit:  b.InTransitQty,
			RebuiltInTransit: p.InTransit,
		})
	}
	for k, p := range rebuilt {
		if seen[k] || (p.OnHand.IsZero() && p.InTransit.IsZero()) {
			continue
		}
		drift = append(drift, Drift{
			ItemID:           k.ItemID,
			WarehouseID:      k.WarehouseID,
			RebuiltOnHand:    p.OnHand,
			RebuiltAvailable: p.OnHand,
			RebuiltInTransit: p.InTransit,
		})
	}
	sort.Slice(drift, func(i, j int) bool {
		if drift[i].ItemID != drift[j].ItemID {
			return drift[i].ItemID < drift[j].ItemID
		}
		return drift[i].WarehouseID < drift[j].WarehouseID
	})
	return drift
}
