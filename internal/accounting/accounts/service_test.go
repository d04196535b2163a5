package accounts

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ledger/internal/shared"
)

type memoryRepo struct {
	accounts map[int64]Account
	lines    map[int64]int
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{accounts: make(map[int64]Account), lines: make(map[int64]int)}
}

func (r *memoryRepo) List(ctx context.Context, orgID int64, filter ListFilter) ([]Account, error) {
	var out []Account
	for _, a := range r.accounts {
		if a.OrgID != orgID {
			continue
		}
		if filter.Type != "" && a.Type != filter.Type {
			continue
		}
		if filter.ActiveOnly && !a.IsActive {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, orgID, id int64) (Account, error) {
	a, ok := r.accounts[id]
	if !ok || a.OrgID != orgID {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (r *memoryRepo) FindByNumber(ctx context.Context, orgID int64, number string) (Account, bool, error) {
	for _, a := range r.accounts {
		if a.OrgID == orgID && a.Number == number {
			return a, true, nil
		}
	}
	return Account{}, false, nil
}

func (r *memoryRepo) Insert(ctx context.Context, a Account) (Account, error) {
	r.nextID++
	a.ID = r.nextID
	r.accounts[a.ID] = a
	return a, nil
}

func (r *memoryRepo) Update(ctx context.Context, a Account) (Account, error) {
	r.accounts[a.ID] = a
	return a, nil
}

func (r *memoryRepo) Delete(ctx context.Context, orgID, id int64) error {
	delete(r.accounts, id)
	return nil
}

func (r *memoryRepo) CountLines(ctx context.Context, accountID int64) (int, error) {
	return r.lines[accountID], nil
}

func TestCreateRejectsDuplicateNumber(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	acc, err := svc.Create(ctx, 1, Input{Number: "1000", Name: "Cash", Type: "asset"})
	require.NoError(t, err)
	require.Equal(t, AccountTypeAsset, acc.Type)
	require.True(t, acc.IsActive)

	_, err = svc.Create(ctx, 1, Input{Number: " 1000 ", Name: "Petty cash", Type: AccountTypeAsset})
	require.ErrorIs(t, err, ErrDuplicateNumber)

	_, err = svc.Create(ctx, 2, Input{Number: "1000", Name: "Cash", Type: AccountTypeAsset})
	require.NoError(t, err)
}

func TestCreateRejectsUnknownType(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	_, err := svc.Create(context.Background(), 1, Input{Number: "9", Name: "X", Type: "INCOME"})
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestUpdateKeepsOwnNumber(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()
	cash, err := svc.Create(ctx, 1, Input{Number: "1000", Name: "Cash", Type: AccountTypeAsset})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, Input{Number: "1100", Name: "Bank", Type: AccountTypeAsset})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, 1, cash.ID, Input{Number: "1000", Name: "Cash on hand", Type: AccountTypeAsset})
	require.NoError(t, err)
	require.Equal(t, "Cash on hand", updated.Name)

	_, err = svc.Update(ctx, 1, cash.ID, Input{Number: "1100", Name: "Cash", Type: AccountTypeAsset})
	require.ErrorIs(t, err, ErrDuplicateNumber)
}

func TestToggleAndDelete(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	acc, err := svc.Create(ctx, 1, Input{Number: "6000", Name: "Rent", Type: AccountTypeExpense})
	require.NoError(t, err)

	toggled, err := svc.ToggleStatus(ctx, 1, acc.ID)
	require.NoError(t, err)
	require.False(t, toggled.IsActive)

	repo.lines[acc.ID] = 3
	err = svc.Delete(ctx, 1, acc.ID)
	require.ErrorIs(t, err, ErrHasLines)
	require.Equal(t, shared.KindIntegrity, shared.KindOf(err))

	repo.lines[acc.ID] = 0
	require.NoError(t, svc.Delete(ctx, 1, acc.ID))
	_, err = svc.Get(ctx, 1, acc.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDebitNormal(t *testing.T) {
	require.True(t, AccountTypeAsset.DebitNormal())
	require.True(t, AccountTypeExpense.DebitNormal())
	require.False(t, AccountTypeLiability.DebitNormal())
	require.False(t, AccountTypeEquity.DebitNormal())
	require.False(t, AccountTypeRevenue.DebitNormal())
}
