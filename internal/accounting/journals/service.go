package journals

import (
	"context"
	"strconv"
	"time"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/dimensions"
	"github.com/odyssey-erp/ledger/internal/accounting/periods"
	"github.com/odyssey-erp/ledger/internal/shared"
)

var ErrNotFound = shared.NotFound("Journal entry")

// AuditPort records journal changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service validates, posts and reverses journal entries.
type Service struct {
	repo  Repository
	dims  dimensions.Provider
	audit AuditPort
	now   func() time.Time
}

func NewService(repo Repository, dims dimensions.Provider, audit AuditPort) *Service {
	return &Service{repo: repo, dims: dims, audit: audit, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) List(ctx context.Context, orgID int64, filter ListFilter) (Page, error) {
	entries, total, err := s.repo.List(ctx, orgID, filter)
	if err != nil {
		return Page{}, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return Page{Entries: entries, Pagination: shared.NewPagination(filter.Page, filter.PerPage, total)}, nil
}

func (s *Service) Get(ctx context.Context, orgID, id int64) (Entry, error) {
	return s.repo.Get(ctx, orgID, id)
}

// NextNumber previews the number the next entry will receive.
func (s *Service) NextNumber(ctx context.Context, orgID int64) (NextNumber, error) {
	no, err := s.repo.PeekNumber(ctx, orgID)
	if err != nil {
		return NextNumber{}, err
	}
	return NextNumber{JournalNo: no}, nil
}

// Create stores a DRAFT entry and its lines in one transaction.
func (s *Service) Create(ctx context.Context, orgID int64, in Input) (Entry, error) {
	var created Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		accts, err := tx.AccountsByID(ctx, orgID, accountIDs(in.Lines))
		if err != nil {
			return err
		}
		if err := s.validate(ctx, orgID, in.Lines, accts); err != nil {
			return err
		}
		if err := requireOpenPeriod(ctx, tx, orgID, in.PostingDate); err != nil {
			return err
		}
		no, err := tx.NextNumber(ctx, orgID)
		if err != nil {
			return err
		}
		entry, err := tx.InsertEntry(ctx, Entry{
			OrgID:       orgID,
			JournalNo:   no,
			Description: in.Description,
			PostingDate: in.PostingDate,
			Status:      StatusDraft,
			CreatedBy:   shared.ActorFromContext(ctx),
		})
		if err != nil {
			return err
		}
		entry.Lines, err = tx.ReplaceLines(ctx, entry.ID, toLines(in.Lines, accts))
		if err != nil {
			return err
		}
		entry.TotalDebit, entry.TotalCredit = Totals(entry.Lines)
		created = entry
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.record(ctx, orgID, "journal.create", created, nil)
	return created, nil
}

// Update rewrites a DRAFT entry, replacing its whole line set.
func (s *Service) Update(ctx context.Context, orgID, id int64, in Input) (Entry, error) {
	var updated Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, orgID, id)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return shared.StateConflict("Cannot edit posted journal entries. Create a reversing entry instead.", string(current.Status), string(StatusDraft))
		}
		accts, err := tx.AccountsByID(ctx, orgID, accountIDs(in.Lines))
		if err != nil {
			return err
		}
		if err := s.validate(ctx, orgID, in.Lines, accts); err != nil {
			return err
		}
		if err := requireOpenPeriod(ctx, tx, orgID, in.PostingDate); err != nil {
			return err
		}
		current.Description = in.Description
		current.PostingDate = in.PostingDate
		entry, err := tx.UpdateHeader(ctx, current)
		if err != nil {
			return err
		}
		entry.Lines, err = tx.ReplaceLines(ctx, entry.ID, toLines(in.Lines, accts))
		if err != nil {
			return err
		}
		entry.TotalDebit, entry.TotalCredit = Totals(entry.Lines)
		updated = entry
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.record(ctx, orgID, "journal.update", updated, nil)
	return updated, nil
}

// Post re-validates the persisted lines and flips the entry to POSTED. Posted
// entries are immutable from then on.
func (s *Service) Post(ctx context.Context, orgID, id int64) (Entry, error) {
	var posted Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, orgID, id)
		if err != nil {
			return err
		}
		if current.Status == StatusPosted {
			return shared.StateConflict("Journal entry is already posted", string(current.Status), string(StatusDraft))
		}
		lines := linesFromEntry(current.Lines)
		accts, err := tx.AccountsByID(ctx, orgID, accountIDs(lines))
		if err != nil {
			return err
		}
		if err := s.validate(ctx, orgID, lines, accts); err != nil {
			return err
		}
		if err := requireOpenPeriod(ctx, tx, orgID, current.PostingDate); err != nil {
			return err
		}
		postedAt := s.now()
		actor := shared.ActorFromContext(ctx)
		current.Status = StatusPosted
		current.PostedAt = &postedAt
		current.PostedBy = &actor
		entry, err := tx.UpdateHeader(ctx, current)
		if err != nil {
			return err
		}
		posted = entry
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.record(ctx, orgID, "journal.post", posted, nil)
	return posted, nil
}

// Delete removes a DRAFT entry; its lines cascade.
func (s *Service) Delete(ctx context.Context, orgID, id int64) error {
	var deleted Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, orgID, id)
		if err != nil {
			return err
		}
		if current.Status == StatusPosted {
			return shared.StateConflict("Cannot delete posted journal entries. Create a reversing entry instead.", string(current.Status), string(StatusDraft))
		}
		deleted = current
		return tx.DeleteEntry(ctx, orgID, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, orgID, "journal.delete", deleted, nil)
	return nil
}

// Reverse creates a DRAFT entry that swaps debit and credit on every line of a
// POSTED entry. The reversal is not posted automatically.
func (s *Service) Reverse(ctx context.Context, orgID, id int64, reversalDate *time.Time) (Entry, error) {
	date := s.now()
	if reversalDate != nil && !reversalDate.IsZero() {
		date = *reversalDate
	}
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	var reversal Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		source, err := tx.GetForUpdate(ctx, orgID, id)
		if err != nil {
			return err
		}
		if source.Status != StatusPosted {
			return shared.StateConflict("Can only reverse posted journal entries", string(source.Status), string(StatusPosted))
		}
		if err := requireOpenPeriod(ctx, tx, orgID, date); err != nil {
			return err
		}
		no, err := tx.NextNumber(ctx, orgID)
		if err != nil {
			return err
		}
		sourceID := source.ID
		entry, err := tx.InsertEntry(ctx, Entry{
			OrgID:       orgID,
			JournalNo:   no,
			Description: "Reversal of " + source.JournalNo + ": " + source.Description,
			PostingDate: date,
			Status:      StatusDraft,
			ReversalOf:  &sourceID,
			CreatedBy:   shared.ActorFromContext(ctx),
		})
		if err != nil {
			return err
		}
		entry.Lines, err = tx.ReplaceLines(ctx, entry.ID, ReverseLines(source.Lines))
		if err != nil {
			return err
		}
		entry.TotalDebit, entry.TotalCredit = Totals(entry.Lines)
		reversal = entry
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.record(ctx, orgID, "journal.reverse", reversal, map[string]any{"reversal_of": id})
	return reversal, nil
}

// ReverseLines swaps the sides of lines, keeping accounts, order and dimensions.
func ReverseLines(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		memo := "Reversal entry"
		if l.Memo != "" {
			memo = "Reversal: " + l.Memo
		}
		out = append(out, Line{
			AccountID:     l.AccountID,
			AccountNumber: l.AccountNumber,
			AccountName:   l.AccountName,
			AccountType:   l.AccountType,
			Debit:         l.Credit,
			Credit:        l.Debit,
			Memo:          memo,
			Dimensions:    l.Dimensions,
		})
	}
	return out
}

// requireOpenPeriod rejects dates that no OPEN period covers.
func requireOpenPeriod(ctx context.Context, tx TxRepository, orgID int64, date time.Time) error {
	p, found, err := tx.FindCoveringPeriod(ctx, orgID, date)
	if err != nil {
		return err
	}
	if !found {
		return shared.Validation("No open period covers %s", date.Format("2006-01-02"))
	}
	if p.Status != periods.PeriodStatusOpen {
		return shared.StateConflict("Period "+p.Name+" is not open for posting", string(p.Status), string(periods.PeriodStatusOpen))
	}
	return nil
}

func toLines(in []LineInput, accts map[int64]accounts.Account) []Line {
	out := make([]Line, 0, len(in))
	for _, l := range in {
		acc := accts[l.AccountID]
		out = append(out, Line{
			AccountID:     l.AccountID,
			AccountNumber: acc.Number,
			AccountName:   acc.Name,
			AccountType:   acc.Type,
			Debit:         l.Debit,
			Credit:        l.Credit,
			Memo:          l.Memo,
			Dimensions:    l.Dimensions,
		})
	}
	return out
}

func (s *Service) record(ctx context.Context, orgID int64, action string, e Entry, extra map[string]any) {
	if s.audit == nil {
		return
	}
	meta := map[string]any{"journal_no": e.JournalNo, "status": string(e.Status)}
	for k, v := range extra {
		meta[k] = v
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		OrgID:    orgID,
		Actor:    shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "journal_entry",
		EntityID: strconv.FormatInt(e.ID, 10),
		Meta:     meta,
		At:       s.now(),
	})
}
