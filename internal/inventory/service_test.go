package inventory

import (
	"context"
	"maps"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ledger/internal/shared"
)

type memoryRepo struct {
	balances map[Key]Balance
	txns     []Transaction
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{balances: make(map[Key]Balance)}
}

func (r *memoryRepo) GetBalance(ctx context.Context, orgID, itemID, warehouseID int64) (Balance, error) {
	b, ok := r.balances[Key{ItemID: itemID, WarehouseID: warehouseID}]
	if !ok || b.OrgID != orgID {
		return Balance{}, ErrBalanceNotFound
	}
	return b, nil
}

func (r *memoryRepo) ListBalances(ctx context.Context, orgID int64, filter BalanceFilter) ([]Balance, error) {
	var out []Balance
	for _, b := range r.balances {
		if b.OrgID == orgID && (filter.ItemID == 0 || b.ItemID == filter.ItemID) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListTransactions(ctx context.Context, orgID int64, filter TransactionFilter) ([]Transaction, int, error) {
	var out []Transaction
	for _, t := range r.txns {
		if t.OrgID == orgID && (filter.ReferenceID == "" || t.ReferenceID == filter.ReferenceID) {
			out = append(out, t)
		}
	}
	return out, len(out), nil
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	balances := maps.Clone(r.balances)
	txns := slices.Clone(r.txns)
	if err := fn(ctx, r); err != nil {
		r.balances = balances
		r.txns = txns
		return err
	}
	return nil
}

func (r *memoryRepo) WithRebuildTx(ctx context.Context, orgID int64, fn func(context.Context, TxRepository) error) error {
	return r.WithTx(ctx, fn)
}

func (r *memoryRepo) ApplyDelta(ctx context.Context, orgID int64, d Delta) (Balance, error) {
	k := Key{ItemID: d.ItemID, WarehouseID: d.WarehouseID}
	b, ok := r.balances[k]
	if !ok {
		b = Balance{OrgID: orgID, ItemID: d.ItemID, WarehouseID: d.WarehouseID}
	}
	b.OnHandQty = b.OnHandQty.Add(d.QtyChange)
	b.AvailableQty = b.AvailableQty.Add(d.QtyChange)
	b.InTransitQty = b.InTransitQty.Add(d.InTransitChange)
	r.balances[k] = b
	return b, nil
}

func (r *memoryRepo) AppendTransaction(ctx context.Context, t Transaction) (Transaction, error) {
	r.nextID++
	t.ID = r.nextID
	r.txns = append(r.txns, t)
	return t, nil
}

func (r *memoryRepo) LockedBalances(ctx context.Context, orgID int64) ([]Balance, error) {
	return r.ListBalances(ctx, orgID, BalanceFilter{})
}

func (r *memoryRepo) Transactions(ctx context.Context, orgID int64) ([]Transaction, error) {
	var out []Transaction
	for _, t := range r.txns {
		if t.OrgID == orgID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memoryRepo) ResetBalance(ctx context.Context, orgID int64, k Key, p Position) error {
	b, ok := r.balances[k]
	if !ok {
		b = Balance{OrgID: orgID, ItemID: k.ItemID, WarehouseID: k.WarehouseID}
	}
	b.OnHandQty = p.OnHand
	b.AvailableQty = p.OnHand.Sub(b.AllocatedQty)
	b.InTransitQty = p.InTransit
	r.balances[k] = b
	return nil
}

func qty(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

func newService(repo *memoryRepo) *Service {
	svc := NewService(repo, nil, ServiceConfig{})
	svc.WithNow(func() time.Time { return time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC) })
	return svc
}

func TestPostMovementReceiptAndIssue(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo)
	ctx := context.Background()

	txn, bal, err := svc.PostMovement(ctx, 1, MovementInput{TxnType: TxnReceipt, ItemID: 10, WarehouseID: 1, Quantity: qty("100"), UnitCost: qty("2.5")})
	require.NoError(t, err)
	require.True(t, txn.Quantity.Equal(qty("100")))
	require.True(t, bal.OnHandQty.Equal(qty("100")))
	require.True(t, bal.AvailableQty.Equal(qty("100")))
	require.Equal(t, time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC), txn.TxnDate)
	require.NotEqual(t, txn.BatchID.String(), "00000000-0000-0000-0000-000000000000")

	txn, bal, err = svc.PostMovement(ctx, 1, MovementInput{TxnType: TxnIssue, ItemID: 10, WarehouseID: 1, Quantity: qty("30")})
	require.NoError(t, err)
	require.True(t, txn.Quantity.Equal(qty("-30")))
	require.True(t, bal.OnHandQty.Equal(qty("70")))
}

func TestPostMovementRejectsNegativeStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo)

	_, _, err := svc.PostMovement(context.Background(), 1, MovementInput{TxnType: TxnIssue, ItemID: 10, WarehouseID: 1, Quantity: qty("5")})
	require.Error(t, err)
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
	require.Empty(t, repo.txns)
	require.Empty(t, repo.balances)

	allowing := NewService(repo, nil, ServiceConfig{AllowNegativeStock: true})
	_, bal, err := allowing.PostMovement(context.Background(), 1, MovementInput{TxnType: TxnIssue, ItemID: 10, WarehouseID: 1, Quantity: qty("5")})
	require.NoError(t, err)
	require.True(t, bal.OnHandQty.Equal(qty("-5")))
}

func TestPostMovementValidation(t *testing.T) {
	svc := newService(newMemoryRepo())
	cases := map[string]MovementInput{
		"transfer":      {TxnType: TxnTransfer, ItemID: 1, WarehouseID: 1, Quantity: qty("1")},
		"unknown type":  {TxnType: "LOSS", ItemID: 1, WarehouseID: 1, Quantity: qty("1")},
		"missing item":  {TxnType: TxnReceipt, WarehouseID: 1, Quantity: qty("1")},
		"zero quantity": {TxnType: TxnReceipt, ItemID: 1, WarehouseID: 1},
		"negative cost": {TxnType: TxnReceipt, ItemID: 1, WarehouseID: 1, Quantity: qty("1"), UnitCost: qty("-1")},
		"negative qty":  {TxnType: TxnReceipt, ItemID: 1, WarehouseID: 1, Quantity: qty("-1")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := svc.PostMovement(context.Background(), 1, in)
			require.Equal(t, shared.KindValidation, shared.KindOf(err))
		})
	}
}

func TestReplayTracksInTransit(t *testing.T) {
	src, dst := int64(1), int64(2)
	txns := []Transaction{
		{TxnType: TxnReceipt, ItemID: 7, WarehouseID: src, Quantity: qty("100")},
		{TxnType: TxnTransfer, ItemID: 7, WarehouseID: src, CounterpartWarehouseID: ptr(dst), Quantity: qty("-40")},
		{TxnType: TxnTransfer, ItemID: 7, WarehouseID: dst, CounterpartWarehouseID: ptr(src), Quantity: qty("25")},
		{TxnType: TxnAdjustment, ItemID: 7, WarehouseID: dst, Quantity: qty("-1")},
	}
	got := Replay(txns)

	require.True(t, got[Key{7, src}].OnHand.Equal(qty("60")))
	require.True(t, got[Key{7, src}].InTransit.Equal(qty("15")))
	require.True(t, got[Key{7, dst}].OnHand.Equal(qty("24")))
	require.True(t, got[Key{7, dst}].InTransit.IsZero())
}

func TestRebuildBalancesRepairsDrift(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo)
	ctx := context.Background()

	_, _, err := svc.PostMovement(ctx, 1, MovementInput{TxnType: TxnReceipt, ItemID: 10, WarehouseID: 1, Quantity: qty("50")})
	require.NoError(t, err)
	_, _, err = svc.PostMovement(ctx, 1, MovementInput{TxnType: TxnReceipt, ItemID: 11, WarehouseID: 1, Quantity: qty("5")})
	require.NoError(t, err)

	report, err := svc.RebuildBalances(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, report.Drifted)
	require.Equal(t, 2, report.Transactions)

	drifted := repo.balances[Key{10, 1}]
	drifted.OnHandQty = qty("48")
	drifted.AvailableQty = qty("48")
	repo.balances[Key{10, 1}] = drifted
	delete(repo.balances, Key{11, 1})

	report, err = svc.RebuildBalances(ctx, 1)
	require.NoError(t, err)
	require.Len(t, report.Drifted, 2)
	require.Equal(t, int64(10), report.Drifted[0].ItemID)
	require.True(t, report.Drifted[0].StoredOnHand.Equal(qty("48")))
	require.True(t, report.Drifted[0].RebuiltOnHand.Equal(qty("50")))
	require.Equal(t, int64(11), report.Drifted[1].ItemID)

	require.True(t, repo.balances[Key{10, 1}].OnHandQty.Equal(qty("50")))
	require.True(t, repo.balances[Key{10, 1}].AvailableQty.Equal(qty("50")))
	require.True(t, repo.balances[Key{11, 1}].OnHandQty.Equal(qty("5")))
}

func TestRebuildBalancesRepairsAvailableDrift(t *testing.T) {
	repo := newMemoryRepo()
	svc := newService(repo)
	ctx := context.Background()

	_, _, err := svc.PostMovement(ctx, 1, MovementInput{TxnType: TxnReceipt, ItemID: 10, WarehouseID: 1, Quantity: qty("30")})
	require.NoError(t, err)

	b := repo.balances[Key{10, 1}]
	b.AllocatedQty = qty("5")
	b.AvailableQty = qty("30")
	repo.balances[Key{10, 1}] = b

	report, err := svc.RebuildBalances(ctx, 1)
	require.NoError(t, err)
	require.Len(t, report.Drifted, 1)
	require.True(t, report.Drifted[0].StoredOnHand.Equal(report.Drifted[0].RebuiltOnHand))
	require.True(t, report.Drifted[0].StoredAvailable.Equal(qty("30")))
	require.True(t, report.Drifted[0].RebuiltAvailable.Equal(qty("25")))
	require.True(t, repo.balances[Key{10, 1}].AvailableQty.Equal(qty("25")))

	report, err = svc.RebuildBalances(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, report.Drifted)
}

func TestRecordAppliesEveryDelta(t *testing.T) {
	repo := newMemoryRepo()
	txn := Transaction{OrgID: 1, TxnType: TxnTransfer, ItemID: 3, WarehouseID: 2, Quantity: qty("4")}

	saved, balances, err := Record(context.Background(), repo, txn,
		Delta{ItemID: 3, WarehouseID: 2, QtyChange: qty("4")},
		Delta{ItemID: 3, WarehouseID: 1, InTransitChange: qty("-4")},
	)
	require.NoError(t, err)
	require.Equal(t, int64(1), saved.ID)
	require.Len(t, balances, 2)
	require.True(t, balances[0].OnHandQty.Equal(qty("4")))
	require.True(t, balances[1].InTransitQty.Equal(qty("-4")))
}
