package accounts

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/ledger/internal/shared"
)

var (
	// ErrNotFound indicates the account does not exist in the org.
	ErrNotFound = shared.NotFound("Account")
	// ErrDuplicateNumber indicates the account number is taken.
	ErrDuplicateNumber = shared.Validation("Account number already exists")
	// ErrHasLines blocks deletion of referenced accounts.
	ErrHasLines = shared.Integrity("Cannot delete account with journal entries. Deactivate it instead.")
)

// AuditPort records account changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages the chart of accounts.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the chart of accounts service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

func (s *Service) List(ctx context.Context, orgID int64, filter ListFilter) ([]Account, error) {
	return s.repo.List(ctx, orgID, filter)
}

func (s *Service) Get(ctx context.Context, orgID, id int64) (Account, error) {
	return s.repo.Get(ctx, orgID, id)
}

// Create adds an account after checking number uniqueness. The unique index
// remains the source of truth under concurrent creates.
func (s *Service) Create(ctx context.Context, orgID int64, in Input) (Account, error) {
	in = normalise(in)
	if err := validateInput(in); err != nil {
		return Account{}, err
	}
	if _, found, err := s.repo.FindByNumber(ctx, orgID, in.Number); err != nil {
		return Account{}, err
	} else if found {
		return Account{}, ErrDuplicateNumber
	}
	account, err := s.repo.Insert(ctx, Account{
		OrgID:       orgID,
		Number:      in.Number,
		Name:        in.Name,
		Type:        in.Type,
		Description: in.Description,
		IsActive:    true,
	})
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, orgID, "account.create", account)
	return account, nil
}

// Update edits an account, keeping the number unique within the org.
func (s *Service) Update(ctx context.Context, orgID, id int64, in Input) (Account, error) {
	in = normalise(in)
	if err := validateInput(in); err != nil {
		return Account{}, err
	}
	current, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return Account{}, err
	}
	if other, found, err := s.repo.FindByNumber(ctx, orgID, in.Number); err != nil {
		return Account{}, err
	} else if found && other.ID != id {
		return Account{}, ErrDuplicateNumber
	}
	current.Number = in.Number
	current.Name = in.Name
	current.Type = in.Type
	current.Description = in.Description
	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, orgID, "account.update", updated)
	return updated, nil
}

// ToggleStatus flips the active flag. Inactive accounts cannot be posted to.
func (s *Service) ToggleStatus(ctx context.Context, orgID, id int64) (Account, error) {
	current, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return Account{}, err
	}
	current.IsActive = !current.IsActive
	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, orgID, "account.toggle", updated)
	return updated, nil
}

// Delete removes an account that no journal line references.
func (s *Service) Delete(ctx context.Context, orgID, id int64) error {
	account, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	n, err := s.repo.CountLines(ctx, account.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrHasLines
	}
	if err := s.repo.Delete(ctx, orgID, id); err != nil {
		return err
	}
	s.record(ctx, orgID, "account.delete", account)
	return nil
}

func (s *Service) record(ctx context.Context, orgID int64, action string, a Account) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		OrgID:    orgID,
		Actor:    shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "account",
		EntityID: strconv.FormatInt(a.ID, 10),
		Meta:     map[string]any{"number": a.Number, "active": a.IsActive},
		At:       s.now(),
	})
}

func normalise(in Input) Input {
	in.Number = strings.TrimSpace(in.Number)
	in.Name = strings.TrimSpace(in.Name)
	in.Type = AccountType(strings.ToUpper(string(in.Type)))
	return in
}

func validateInput(in Input) error {
	if in.Number == "" {
		return shared.Validation("Account number is required")
	}
	if in.Name == "" {
		return shared.Validation("Account name is required")
	}
	if !in.Type.Valid() {
		return shared.Validation("Invalid account type %q", in.Type)
	}
	return nil
}
