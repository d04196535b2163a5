package journals

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/dimensions"
	"github.com/odyssey-erp/ledger/internal/shared"
)

// ValidateLines checks line shape: at least two lines, each carrying exactly
// one positive side in whole cents.
func ValidateLines(lines []LineInput) error {
	if len(lines) < 2 {
		return shared.Validation("Journal entry must have at least 2 lines")
	}
	for i, line := range lines {
		no := i + 1
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return shared.Validation("Line %d: Cannot have both debit and credit", no)
		}
		if line.Debit.IsZero() && line.Credit.IsZero() {
			return shared.Validation("Line %d: Must have either debit or credit", no)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return shared.Validation("Line %d: Amounts cannot be negative", no)
		}
		if !line.Debit.Equal(line.Debit.Round(2)) || !line.Credit.Equal(line.Credit.Round(2)) {
			return shared.Validation("Line %d: Amounts must have at most 2 decimals", no)
		}
	}
	return nil
}

// ValidateBalance requires total debits and credits to agree within 0.01.
func ValidateBalance(lines []LineInput) error {
	var debit, credit decimal.Decimal
	for _, line := range lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	if shared.WithinTolerance(debit, credit) {
		return nil
	}
	return shared.Validation("Journal entry is out of balance. Debits: %s, Credits: %s, Difference: %s",
		shared.Money(debit), shared.Money(credit), shared.Money(debit.Sub(credit).Abs()))
}

// validateAccounts resolves every line's account and rejects unknown or
// inactive ones.
func validateAccounts(lines []LineInput, accts map[int64]accounts.Account) error {
	for i, line := range lines {
		acc, ok := accts[line.AccountID]
		if !ok {
			return shared.Validation("Line %d: Account %d not found", i+1, line.AccountID)
		}
		if !acc.IsActive {
			return shared.Validation("Account %s is inactive", acc.Label())
		}
	}
	return nil
}

// ValidateDimensions applies the org's dimension table to each line and
// reports every violating line.
func ValidateDimensions(table dimensions.Table, lines []LineInput, accts map[int64]accounts.Account) error {
	var failures []string
	for i, line := range lines {
		acc, ok := accts[line.AccountID]
		if !ok {
			continue
		}
		if errs := table.Validate(acc.Type, line.Dimensions); len(errs) > 0 {
			failures = append(failures, fmt.Sprintf("Line %d (%s): %s", i+1, acc.Label(), strings.Join(errs, ", ")))
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return shared.Validation("%s", strings.Join(failures, "; "))
}

// validate runs the full rule chain in order and stops at the first failure.
func (s *Service) validate(ctx context.Context, orgID int64, lines []LineInput, accts map[int64]accounts.Account) error {
	if err := ValidateLines(lines); err != nil {
		return err
	}
	if err := ValidateBalance(lines); err != nil {
		return err
	}
	if err := validateAccounts(lines, accts); err != nil {
		return err
	}
	table, err := s.dimensionTable(ctx, orgID)
	if err != nil {
		return err
	}
	return ValidateDimensions(table, lines, accts)
}

func (s *Service) dimensionTable(ctx context.Context, orgID int64) (dimensions.Table, error) {
	if s.dims == nil {
		return dimensions.NewTable(nil), nil
	}
	return s.dims.Table(ctx, orgID)
}

func accountIDs(lines []LineInput) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.AccountID]; ok {
			continue
		}
		seen[l.AccountID] = struct{}{}
		ids = append(ids, l.AccountID)
	}
	return ids
}
