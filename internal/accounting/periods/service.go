package periods

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/ledger/internal/shared"
)

var (
	ErrNotFound = shared.NotFound("Period")
	// ErrBusy is returned while another request holds the period's finance lock.
	ErrBusy = shared.StateConflict("Period is being modified by another request", "", "")
)

// DefaultLockTTL bounds how long a lifecycle change may hold the finance lock.
const DefaultLockTTL = 30 * time.Second

// AuditPort records period changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Locker serialises lifecycle changes on one period across instances.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// Service manages the fiscal period lifecycle.
type Service struct {
	repo    Repository
	audit   AuditPort
	locker  Locker
	lockTTL time.Duration
	now     func() time.Time
}

func NewService(repo Repository, audit AuditPort, locker Locker) *Service {
	return &Service{repo: repo, audit: audit, locker: locker, lockTTL: DefaultLockTTL, now: time.Now}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithLockTTL overrides the finance lock lifetime.
func (s *Service) WithLockTTL(ttl time.Duration) {
	if ttl > 0 {
		s.lockTTL = ttl
	}
}

func (s *Service) List(ctx context.Context, orgID int64, filter ListFilter) ([]Period, error) {
	return s.repo.List(ctx, orgID, filter)
}

func (s *Service) Get(ctx context.Context, orgID, id int64) (Period, error) {
	return s.repo.Get(ctx, orgID, id)
}

// GetCurrentPeriod returns the open period covering date.
func (s *Service) GetCurrentPeriod(ctx context.Context, orgID int64, date time.Time) (Period, error) {
	if date.IsZero() {
		date = s.now()
	}
	p, found, err := s.repo.FindOpenByDate(ctx, orgID, date)
	if err != nil {
		return Period{}, err
	}
	if !found {
		return Period{}, NoOpenPeriod(date)
	}
	return p, nil
}

// NoOpenPeriod reports that no OPEN period covers date.
func NoOpenPeriod(date time.Time) error {
	return &shared.Error{Kind: shared.KindNotFound, Message: "No open period covers " + date.Format("2006-01-02")}
}

// Create adds an OPEN period. Overlap and fiscal slot checks run inside the
// transaction; the exclusion and unique constraints back them under races.
func (s *Service) Create(ctx context.Context, orgID int64, in Input) (Period, error) {
	in = normalise(in)
	if err := validateInput(in); err != nil {
		return Period{}, err
	}
	var created Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := createInTx(ctx, tx, orgID, in)
		created = p
		return err
	})
	if err != nil {
		return Period{}, err
	}
	s.record(ctx, orgID, "period.create", created)
	return created, nil
}

func createInTx(ctx context.Context, tx TxRepository, orgID int64, in Input) (Period, error) {
	if err := checkPlacement(ctx, tx, orgID, in, 0); err != nil {
		return Period{}, err
	}
	return tx.Insert(ctx, Period{
		OrgID:        orgID,
		Name:         in.Name,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		FiscalYear:   in.FiscalYear,
		PeriodNumber: in.PeriodNumber,
		Status:       PeriodStatusOpen,
	})
}

func checkPlacement(ctx context.Context, tx TxRepository, orgID int64, in Input, selfID int64) error {
	if other, found, err := tx.FindOverlap(ctx, orgID, in.StartDate, in.EndDate, selfID); err != nil {
		return err
	} else if found {
		return shared.Validation("Period overlaps with existing period: %s", other.Name)
	}
	taken, err := tx.FiscalSlotTaken(ctx, orgID, in.FiscalYear, in.PeriodNumber, selfID)
	if err != nil {
		return err
	}
	if taken {
		return shared.Validation("Period %d-%d already exists", in.FiscalYear, in.PeriodNumber)
	}
	return nil
}

// Update edits an OPEN period.
func (s *Service) Update(ctx context.Context, orgID, id int64, in Input) (Period, error) {
	in = normalise(in)
	if err := validateInput(in); err != nil {
		return Period{}, err
	}
	var updated Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, orgID, id)
		if err != nil {
			return err
		}
		if current.Status != PeriodStatusOpen {
			return shared.StateConflict("Cannot update closed or locked periods", string(current.Status), string(PeriodStatusOpen))
		}
		if err := checkPlacement(ctx, tx, orgID, in, id); err != nil {
			return err
		}
		current.Name = in.Name
		current.StartDate = in.StartDate
		current.EndDate = in.EndDate
		current.FiscalYear = in.FiscalYear
		current.PeriodNumber = in.PeriodNumber
		updated, err = tx.Update(ctx, current)
		return err
	})
	if err != nil {
		return Period{}, err
	}
	s.record(ctx, orgID, "period.update", updated)
	return updated, nil
}

// Close moves an OPEN period without DRAFT entries to CLOSED.
func (s *Service) Close(ctx context.Context, orgID, id int64) (Period, error) {
	return s.transition(ctx, orgID, id, "period.close", func(ctx context.Context, tx TxRepository, p *Period) error {
		switch p.Status {
		case PeriodStatusClosed:
			return shared.StateConflict("Period is already closed", string(p.Status), string(PeriodStatusOpen))
		case PeriodStatusLocked:
			return shared.StateConflict("Period is locked and cannot be closed again", string(p.Status), string(PeriodStatusOpen))
		}
		drafts, err := tx.CountEntries(ctx, *p, "DRAFT")
		if err != nil {
			return err
		}
		if drafts > 0 {
			return shared.Validation("Cannot close period with %d draft journal entries. Post or delete them first.", drafts)
		}
		closedAt := s.now()
		actor := shared.ActorFromContext(ctx)
		p.Status = PeriodStatusClosed
		p.ClosedAt = &closedAt
		p.ClosedBy = &actor
		return nil
	})
}

// Reopen moves a CLOSED period back to OPEN. LOCKED periods never reopen.
func (s *Service) Reopen(ctx context.Context, orgID, id int64) (Period, error) {
	return s.transition(ctx, orgID, id, "period.reopen", func(ctx context.Context, tx TxRepository, p *Period) error {
		switch p.Status {
		case PeriodStatusLocked:
			return shared.StateConflict("Cannot reopen locked period. Unlock it first.", string(p.Status), string(PeriodStatusClosed))
		case PeriodStatusOpen:
			return shared.StateConflict("Period is already open", string(p.Status), string(PeriodStatusClosed))
		}
		p.Status = PeriodStatusOpen
		p.ClosedAt = nil
		p.ClosedBy = nil
		return nil
	})
}

// Lock moves a CLOSED period to the terminal LOCKED state.
func (s *Service) Lock(ctx context.Context, orgID, id int64) (Period, error) {
	return s.transition(ctx, orgID, id, "period.lock", func(ctx context.Context, tx TxRepository, p *Period) error {
		switch p.Status {
		case PeriodStatusLocked:
			return shared.StateConflict("Period is already locked", string(p.Status), string(PeriodStatusClosed))
		case PeriodStatusOpen:
			return shared.StateConflict("Period must be closed before locking", string(p.Status), string(PeriodStatusClosed))
		}
		p.Status = PeriodStatusLocked
		return nil
	})
}

func (s *Service) transition(ctx context.Context, orgID, id int64, action string, apply func(context.Context, TxRepository, *Period) error) (Period, error) {
	release, err := s.acquire(ctx, orgID, id)
	if err != nil {
		return Period{}, err
	}
	defer release()

	var from PeriodStatus
	var result Period
	err = s.repo.WithLifecycleTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetForUpdate(ctx, orgID, id)
		if err != nil {
			return err
		}
		from = p.Status
		if err := apply(ctx, tx, &p); err != nil {
			return err
		}
		if err := shared.ValidatePeriodTransition(string(from), string(p.Status)); err != nil {
			return shared.StateConflict("Invalid period transition", string(from), string(p.Status))
		}
		result, err = tx.Update(ctx, p)
		return err
	})
	if err != nil {
		return Period{}, err
	}
	s.record(ctx, orgID, action, result, "from", string(from))
	return result, nil
}

func (s *Service) acquire(ctx context.Context, orgID, id int64) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	release, err := s.locker.Acquire(ctx, shared.FinanceLockKey(orgID, id), s.lockTTL)
	if err != nil {
		if errors.Is(err, shared.ErrLockHeld) {
			return nil, ErrBusy
		}
		return nil, err
	}
	return release, nil
}

// Delete removes an OPEN period that no journal entry falls into.
func (s *Service) Delete(ctx context.Context, orgID, id int64) error {
	var deleted Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetForUpdate(ctx, orgID, id)
		if err != nil {
			return err
		}
		if p.Status != PeriodStatusOpen {
			return shared.StateConflict("Cannot delete closed or locked periods", string(p.Status), string(PeriodStatusOpen))
		}
		n, err := tx.CountEntries(ctx, p, "")
		if err != nil {
			return err
		}
		if n > 0 {
			return shared.Integrity("Cannot delete period with %d journal entries", n)
		}
		deleted = p
		return tx.Delete(ctx, orgID, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, orgID, "period.delete", deleted)
	return nil
}

// GenerateFiscalYear creates twelve monthly periods starting at startMonth in a
// single transaction. Any failure rolls back every period of the batch.
func (s *Service) GenerateFiscalYear(ctx context.Context, orgID int64, fiscalYear, startMonth int) ([]Period, error) {
	if startMonth == 0 {
		startMonth = 1
	}
	if startMonth < 1 || startMonth > 12 {
		return nil, shared.Validation("Start month must be between 1 and 12")
	}
	if fiscalYear < 1900 || fiscalYear > 9999 {
		return nil, shared.Validation("Invalid fiscal year %d", fiscalYear)
	}
	inputs := FiscalYearInputs(fiscalYear, startMonth)
	created := make([]Period, 0, len(inputs))
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, in := range inputs {
			p, err := createInTx(ctx, tx, orgID, in)
			if err != nil {
				return prefixError(err, fmt.Sprintf("Failed to create period %s: ", in.Name))
			}
			created = append(created, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, p := range created {
		s.record(ctx, orgID, "period.create", p)
	}
	return created, nil
}

// FiscalYearInputs lays out twelve consecutive calendar months, wrapping into
// the next year after December.
func FiscalYearInputs(fiscalYear, startMonth int) []Input {
	out := make([]Input, 0, 12)
	for i := 0; i < 12; i++ {
		offset := startMonth - 1 + i
		year := fiscalYear + offset/12
		month := time.Month(offset%12 + 1)
		start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, -1)
		out = append(out, Input{
			Name:         fmt.Sprintf("%s %d", month, year),
			StartDate:    start,
			EndDate:      end,
			FiscalYear:   fiscalYear,
			PeriodNumber: i + 1,
		})
	}
	return out
}

func prefixError(err error, prefix string) error {
	var e *shared.Error
	if !errors.As(err, &e) || e.Kind == shared.KindUnexpected {
		return err
	}
	wrapped := *e
	wrapped.Message = prefix + e.Message
	wrapped.Err = err
	return &wrapped
}

func (s *Service) record(ctx context.Context, orgID int64, action string, p Period, kv ...string) {
	if s.audit == nil {
		return
	}
	meta := map[string]any{"name": p.Name, "status": string(p.Status)}
	for i := 0; i+1 < len(kv); i += 2 {
		meta[kv[i]] = kv[i+1]
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		OrgID:    orgID,
		Actor:    shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "period",
		EntityID: strconv.FormatInt(p.ID, 10),
		Meta:     meta,
		At:       s.now(),
	})
}

func normalise(in Input) Input {
	in.Name = strings.TrimSpace(in.Name)
	in.StartDate = dateOnly(in.StartDate)
	in.EndDate = dateOnly(in.EndDate)
	return in
}

func validateInput(in Input) error {
	if in.Name == "" {
		return shared.Validation("Period name is required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return shared.Validation("Start and end dates are required")
	}
	if !in.EndDate.After(in.StartDate) {
		return shared.Validation("End date must be after start date")
	}
	if in.PeriodNumber < 1 {
		return shared.Validation("Period number must be positive")
	}
	if in.FiscalYear < 1 {
		return shared.Validation("Fiscal year is required")
	}
	return nil
}
