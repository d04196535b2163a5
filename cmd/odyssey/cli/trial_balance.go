package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/odyssey-erp/ledger/internal/accounting/reports"
	"github.com/odyssey-erp/ledger/internal/platform/httpx"
	"github.com/odyssey-erp/ledger/internal/shared"
)

// TrialBalancer is the reports capability the command needs.
type TrialBalancer interface {
	TrialBalance(ctx context.Context, orgID int64, asOf *time.Time) (reports.TrialBalance, error)
}

// TrialBalanceOptions holds the parsed flags of the trial-balance command.
type TrialBalanceOptions struct {
	OrgID      int64
	AsOf       *time.Time
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// ParseTrialBalanceArgs parses `--org N [--as-of YYYY-MM-DD] [--json]`.
func ParseTrialBalanceArgs(args []string, stderr io.Writer) (TrialBalanceOptions, error) {
	fs := flag.NewFlagSet("trial-balance", flag.ContinueOnError)
	fs.SetOutput(stderr)
	org := fs.Int64("org", 0, "organisation id")
	asOf := fs.String("as-of", "", "include postings up to this date (YYYY-MM-DD)")
	asJSON := fs.Bool("json", false, "print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return TrialBalanceOptions{}, err
	}
	if *org <= 0 {
		return TrialBalanceOptions{}, fmt.Errorf("--org is required and must be positive")
	}
	date, err := httpx.OptionalDate(*asOf)
	if err != nil {
		return TrialBalanceOptions{}, err
	}
	return TrialBalanceOptions{OrgID: *org, AsOf: date, JSONOutput: *asJSON}, nil
}

// RunTrialBalance prints the trial balance and returns the process exit code:
// 0 balanced, 1 failure, 10 out of balance.
func RunTrialBalance(ctx context.Context, svc TrialBalancer, opts TrialBalanceOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	tb, err := svc.TrialBalance(ctx, opts.OrgID, opts.AsOf)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "trial-balance: %s\n", shared.PublicMessage(err))
		return 1
	}
	if opts.JSONOutput {
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tb); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "trial-balance: encode json: %v\n", err)
			return 1
		}
	} else {
		renderTrialBalance(opts.Stdout, opts, tb)
	}
	if !tb.IsBalanced {
		return 10
	}
	return 0
}

func renderTrialBalance(out io.Writer, opts TrialBalanceOptions, tb reports.TrialBalance) {
	asOf := "all postings"
	if opts.AsOf != nil {
		asOf = "as of " + opts.AsOf.Format(httpx.DateLayout)
	}
	_, _ = fmt.Fprintf(out, "Trial balance for org %d (%s)\n", opts.OrgID, asOf)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintln(tw, "Number\tName\tType\tDebit\tCredit\tBalance\t")
	for _, b := range tb.Balances {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			b.AccountNumber, b.AccountName, b.AccountType,
			shared.Money(b.DebitTotal), shared.Money(b.CreditTotal), shared.Money(b.Balance))
	}
	_, _ = fmt.Fprintf(tw, "\tTotal\t\t%s\t%s\t\t\n", shared.Money(tb.TotalDebits), shared.Money(tb.TotalCredits))
	_ = tw.Flush()
	if tb.IsBalanced {
		_, _ = fmt.Fprintln(out, "Balanced.")
		return
	}
	_, _ = fmt.Fprintf(out, "OUT OF BALANCE by %s\n", shared.Money(tb.Difference))
}
