package dimensions

import (
	"context"
	"slices"
	"strings"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
)

// Rule makes a dimension mandatory for a set of account types. An empty
// AccountTypes list applies the rule to every account.
type Rule struct {
	DimensionCode string
	Name          string
	AccountTypes  []accounts.AccountType
	Required      bool
}

func (r Rule) appliesTo(t accounts.AccountType) bool {
	return len(r.AccountTypes) == 0 || slices.Contains(r.AccountTypes, t)
}

func (r Rule) message(t accounts.AccountType) string {
	name := r.Name
	if name == "" {
		name = r.DimensionCode
	}
	if len(r.AccountTypes) == 0 {
		return name + " is required"
	}
	return name + " is required for " + strings.ToLower(string(t)) + " accounts"
}

// DefaultRules requires a department on expense lines and keeps project
// optional on revenue lines.
func DefaultRules() []Rule {
	return []Rule{
		{DimensionCode: "DEPT", Name: "Department", AccountTypes: []accounts.AccountType{accounts.AccountTypeExpense}, Required: true},
		{DimensionCode: "PROJ", Name: "Project", AccountTypes: []accounts.AccountType{accounts.AccountTypeRevenue}, Required: false},
	}
}

// Table is an immutable rule set evaluated per journal line.
type Table struct {
	rules []Rule
}

// NewTable builds a Table from rules.
func NewTable(rules []Rule) Table {
	return Table{rules: slices.Clone(rules)}
}

// Validate returns one message per required dimension missing from dims for
// an account of type t. An empty result means the line is valid.
func (t Table) Validate(accountType accounts.AccountType, dims map[string]string) []string {
	var errs []string
	for _, rule := range t.rules {
		if !rule.Required || !rule.appliesTo(accountType) {
			continue
		}
		if strings.TrimSpace(dims[rule.DimensionCode]) == "" {
			errs = append(errs, rule.message(accountType))
		}
	}
	return errs
}

// Provider resolves the rule table of an org.
type Provider interface {
	Table(ctx context.Context, orgID int64) (Table, error)
}

// StaticProvider serves the same table to every org.
type StaticProvider struct {
	Rules []Rule
}

func (p StaticProvider) Table(ctx context.Context, orgID int64) (Table, error) {
	return NewTable(p.Rules), nil
}

// DefinitionLister is the slice of Repository the policy needs.
type DefinitionLister interface {
	ListDefinitions(ctx context.Context, orgID int64) ([]Definition, error)
}

// RepositoryProvider derives rules from the org's active definitions. Orgs
// without any definition fall back to the configured rules.
type RepositoryProvider struct {
	repo     DefinitionLister
	fallback []Rule
}

// NewRepositoryProvider wires a Provider over stored definitions.
func NewRepositoryProvider(repo DefinitionLister, fallback []Rule) *RepositoryProvider {
	return &RepositoryProvider{repo: repo, fallback: fallback}
}

func (p *RepositoryProvider) Table(ctx context.Context, orgID int64) (Table, error) {
	defs, err := p.repo.ListDefinitions(ctx, orgID)
	if err != nil {
		return Table{}, err
	}
	if len(defs) == 0 {
		return NewTable(p.fallback), nil
	}
	return NewTable(RulesFromDefinitions(defs)), nil
}

// RulesFromDefinitions turns active required definitions into rules.
func RulesFromDefinitions(defs []Definition) []Rule {
	rules := make([]Rule, 0, len(defs))
	for _, d := range defs {
		if !d.IsActive || !d.IsRequired {
			continue
		}
		types := make([]accounts.AccountType, 0, len(d.AccountTypes))
		for _, t := range d.AccountTypes {
			types = append(types, accounts.AccountType(t))
		}
		rules = append(rules, Rule{DimensionCode: d.Code, Name: d.Name, AccountTypes: types, Required: true})
	}
	return rules
}

// Rules returns a copy of the table's rules.
func (t Table) Rules() []Rule {
	return slices.Clone(t.rules)
}
