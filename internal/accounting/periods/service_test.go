package periods

import (
	"context"
	"maps"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ledger/internal/shared"
)

type memoryRepo struct {
	periods map[int64]Period
	entries []entryStub
	nextID  int64

	// view is the entry snapshot a repeatable read transaction sees; nil reads live.
	view      []entryStub
	// onRowLock runs when GetForUpdate is granted, standing in for writers
	// that committed while the lock was awaited.
	onRowLock func()
}

type entryStub struct {
	orgID  int64
	date   time.Time
	status string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{periods: make(map[int64]Period)}
}

func (r *memoryRepo) List(ctx context.Context, orgID int64, filter ListFilter) ([]Period, error) {
	var out []Period
	for _, p := range r.periods {
		if p.OrgID != orgID || (filter.FiscalYear != 0 && p.FiscalYear != filter.FiscalYear) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, orgID, id int64) (Period, error) {
	p, ok := r.periods[id]
	if !ok || p.OrgID != orgID {
		return Period{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) FindOpenByDate(ctx context.Context, orgID int64, date time.Time) (Period, bool, error) {
	for _, p := range r.periods {
		if p.OrgID == orgID && p.Status == PeriodStatusOpen && p.Covers(date) {
			return p, true, nil
		}
	}
	return Period{}, false, nil
}

// WithTx restores the previous state when fn fails. Entry counts come from the
// snapshot taken when the transaction began.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.view = slices.Clone(r.entries)
	if r.view == nil {
		r.view = []entryStub{}
	}
	defer func() { r.view = nil }()
	return r.run(ctx, fn)
}

func (r *memoryRepo) WithLifecycleTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return r.run(ctx, fn)
}

func (r *memoryRepo) run(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := maps.Clone(r.periods)
	nextID := r.nextID
	if err := fn(ctx, r); err != nil {
		r.periods = snapshot
		r.nextID = nextID
		return err
	}
	return nil
}

func (r *memoryRepo) GetForUpdate(ctx context.Context, orgID, id int64) (Period, error) {
	if r.onRowLock != nil {
		r.onRowLock()
		r.onRowLock = nil
	}
	return r.Get(ctx, orgID, id)
}

func (r *memoryRepo) FindCovering(ctx context.Context, orgID int64, date time.Time) (Period, bool, error) {
	for _, p := range r.periods {
		if p.OrgID == orgID && p.Covers(date) {
			return p, true, nil
		}
	}
	return Period{}, false, nil
}

func (r *memoryRepo) FindOverlap(ctx context.Context, orgID int64, start, end time.Time, excludeID int64) (Period, bool, error) {
	for _, p := range r.periods {
		if p.OrgID == orgID && p.ID != excludeID && p.Overlaps(start, end) {
			return p, true, nil
		}
	}
	return Period{}, false, nil
}

func (r *memoryRepo) FiscalSlotTaken(ctx context.Context, orgID int64, fiscalYear, periodNumber int, excludeID int64) (bool, error) {
	for _, p := range r.periods {
		if p.OrgID == orgID && p.ID != excludeID && p.FiscalYear == fiscalYear && p.PeriodNumber == periodNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) Insert(ctx context.Context, p Period) (Period, error) {
	r.nextID++
	p.ID = r.nextID
	r.periods[p.ID] = p
	return p, nil
}

func (r *memoryRepo) Update(ctx context.Context, p Period) (Period, error) {
	r.periods[p.ID] = p
	return p, nil
}

func (r *memoryRepo) Delete(ctx context.Context, orgID, id int64) error {
	delete(r.periods, id)
	return nil
}

func (r *memoryRepo) CountEntries(ctx context.Context, p Period, status string) (int, error) {
	entries := r.entries
	if r.view != nil {
		entries = r.view
	}
	n := 0
	for _, e := range entries {
		if e.orgID == p.OrgID && p.Covers(e.date) && (status == "" || e.status == status) {
			n++
		}
	}
	return n, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func january(t *testing.T, svc *Service) Period {
	t.Helper()
	p, err := svc.Create(context.Background(), 1, Input{
		Name: "Jan 2025", StartDate: day(2025, 1, 1), EndDate: day(2025, 1, 31), FiscalYear: 2025, PeriodNumber: 1,
	})
	require.NoError(t, err)
	return p
}

func TestCreateRejectsOverlap(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	ctx := context.Background()
	january(t, svc)

	cases := []Input{
		{Name: "Jan overlap", StartDate: day(2025, 1, 15), EndDate: day(2025, 2, 15), FiscalYear: 2025, PeriodNumber: 2},
		{Name: "Ends inside", StartDate: day(2024, 12, 15), EndDate: day(2025, 1, 1), FiscalYear: 2024, PeriodNumber: 12},
		{Name: "Contains", StartDate: day(2024, 12, 1), EndDate: day(2025, 2, 28), FiscalYear: 2025, PeriodNumber: 3},
	}
	for _, in := range cases {
		_, err := svc.Create(ctx, 1, in)
		require.EqualError(t, err, "Period overlaps with existing period: Jan 2025", in.Name)
		require.Equal(t, shared.KindValidation, shared.KindOf(err))
	}

	_, err := svc.Create(ctx, 2, cases[0])
	require.NoError(t, err)
}

func TestCreateValidatesRangeAndFiscalSlot(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	ctx := context.Background()
	january(t, svc)

	_, err := svc.Create(ctx, 1, Input{Name: "Bad", StartDate: day(2025, 3, 1), EndDate: day(2025, 3, 1), FiscalYear: 2025, PeriodNumber: 3})
	require.EqualError(t, err, "End date must be after start date")

	_, err = svc.Create(ctx, 1, Input{Name: "Feb", StartDate: day(2025, 2, 1), EndDate: day(2025, 2, 28), FiscalYear: 2025, PeriodNumber: 1})
	require.EqualError(t, err, "Period 2025-1 already exists")
}

func TestLifecycle(t *testing.T) {
	repo := newMemoryRepo()
	now := time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)
	svc := NewService(repo, nil, nil)
	svc.WithNow(func() time.Time { return now })
	ctx := shared.ContextWithActor(context.Background(), "controller")
	p := january(t, svc)

	_, err := svc.Lock(ctx, 1, p.ID)
	require.EqualError(t, err, "Period must be closed before locking (current: OPEN, required: CLOSED)")

	repo.entries = append(repo.entries, entryStub{orgID: 1, date: day(2025, 1, 10), status: "DRAFT"})
	_, err = svc.Close(ctx, 1, p.ID)
	require.EqualError(t, err, "Cannot close period with 1 draft journal entries. Post or delete them first.")

	repo.entries[0].status = "POSTED"
	closed, err := svc.Close(ctx, 1, p.ID)
	require.NoError(t, err)
	require.Equal(t, PeriodStatusClosed, closed.Status)
	require.Equal(t, now, *closed.ClosedAt)
	require.Equal(t, "controller", *closed.ClosedBy)

	_, err = svc.Close(ctx, 1, p.ID)
	require.Equal(t, shared.KindStateConflict, shared.KindOf(err))

	_, err = svc.Update(ctx, 1, p.ID, Input{Name: "Renamed", StartDate: day(2025, 1, 1), EndDate: day(2025, 1, 31), FiscalYear: 2025, PeriodNumber: 1})
	require.Equal(t, shared.KindStateConflict, shared.KindOf(err))

	reopened, err := svc.Reopen(ctx, 1, p.ID)
	require.NoError(t, err)
	require.Equal(t, PeriodStatusOpen, reopened.Status)
	require.Nil(t, reopened.ClosedAt)

	_, err = svc.Close(ctx, 1, p.ID)
	require.NoError(t, err)
	locked, err := svc.Lock(ctx, 1, p.ID)
	require.NoError(t, err)
	require.Equal(t, PeriodStatusLocked, locked.Status)

	_, err = svc.Reopen(ctx, 1, p.ID)
	require.EqualError(t, err, "Cannot reopen locked period. Unlock it first. (current: LOCKED, required: CLOSED)")
	_, err = svc.Close(ctx, 1, p.ID)
	require.Equal(t, shared.KindStateConflict, shared.KindOf(err))
}

func TestCloseCountsDraftsCommittedWhileWaiting(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()
	p := january(t, svc)

	repo.onRowLock = func() {
		repo.entries = append(repo.entries, entryStub{orgID: 1, date: day(2025, 1, 20), status: "DRAFT"})
	}
	_, err := svc.Close(ctx, 1, p.ID)
	require.EqualError(t, err, "Cannot close period with 1 draft journal entries. Post or delete them first.")

	got, err := svc.Get(ctx, 1, p.ID)
	require.NoError(t, err)
	require.Equal(t, PeriodStatusOpen, got.Status)
}

func TestDeleteBlockedByEntries(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()
	p := january(t, svc)

	repo.entries = append(repo.entries, entryStub{orgID: 1, date: day(2025, 1, 31), status: "POSTED"})
	err := svc.Delete(ctx, 1, p.ID)
	require.EqualError(t, err, "Cannot delete period with 1 journal entries")
	require.Equal(t, shared.KindIntegrity, shared.KindOf(err))

	repo.entries = nil
	require.NoError(t, svc.Delete(ctx, 1, p.ID))
	_, err = svc.Get(ctx, 1, p.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGenerateFiscalYear(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	ctx := context.Background()

	created, err := svc.GenerateFiscalYear(ctx, 1, 2025, 1)
	require.NoError(t, err)
	require.Len(t, created, 12)
	require.Equal(t, "January 2025", created[0].Name)
	require.Equal(t, "December 2025", created[11].Name)
	require.Equal(t, day(2025, 2, 28), created[1].EndDate)
	for i, p := range created {
		require.Equal(t, i+1, p.PeriodNumber)
		if i > 0 {
			require.Equal(t, created[i-1].EndDate.AddDate(0, 0, 1), p.StartDate)
		}
	}
	require.Equal(t, day(2025, 1, 1), created[0].StartDate)
	require.Equal(t, day(2025, 12, 31), created[11].EndDate)
}

func TestGenerateFiscalYearWrapsAndRollsBack(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	inputs := FiscalYearInputs(2025, 7)
	require.Equal(t, "July 2025", inputs[0].Name)
	require.Equal(t, "June 2026", inputs[11].Name)
	require.Equal(t, day(2026, 6, 30), inputs[11].EndDate)

	_, err := svc.Create(ctx, 1, Input{Name: "Custom Mar", StartDate: day(2026, 3, 10), EndDate: day(2026, 3, 20), FiscalYear: 2030, PeriodNumber: 1})
	require.NoError(t, err)

	_, err = svc.GenerateFiscalYear(ctx, 1, 2025, 7)
	require.EqualError(t, err, "Failed to create period March 2026: Period overlaps with existing period: Custom Mar")
	require.Equal(t, shared.KindValidation, shared.KindOf(err))

	all, err := svc.List(ctx, 1, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestGetCurrentPeriod(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	ctx := context.Background()
	p := january(t, svc)

	got, err := svc.GetCurrentPeriod(ctx, 1, day(2025, 1, 31))
	require.NoError(t, err)
	require.Equal(t, p.ID, got.ID)

	_, err = svc.GetCurrentPeriod(ctx, 1, day(2025, 2, 1))
	require.EqualError(t, err, "No open period covers 2025-02-01")
	require.Equal(t, shared.KindNotFound, shared.KindOf(err))
}

func TestTransitionRejectedWhileLockHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := shared.NewRedisLocker(client)

	svc := NewService(newMemoryRepo(), nil, locker)
	ctx := context.Background()
	p := january(t, svc)

	release, err := locker.Acquire(ctx, shared.FinanceLockKey(1, p.ID), time.Minute)
	require.NoError(t, err)
	_, err = svc.Close(ctx, 1, p.ID)
	require.ErrorIs(t, err, ErrBusy)

	release()
	_, err = svc.Close(ctx, 1, p.ID)
	require.NoError(t, err)
}
