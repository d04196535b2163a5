// Package sequence allocates human readable document numbers from per-org
// counters persisted in number_sequences. Allocation is a single
// INSERT .. ON CONFLICT .. RETURNING so concurrent callers never share a value;
// rendering is a pure step on top of the integer.
package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Well known sequence keys.
const (
	KeyJournalEntry  = "JE"
	KeyTransferOrder = "TO"
)

// PadWidth is the minimum digit count of a rendered number.
const PadWidth = 4

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Next increments and returns the counter for (orgID, key). Run it inside the
// transaction that stores the document so a rollback also releases the number.
func Next(ctx context.Context, q Querier, orgID int64, key string) (int64, error) {
	var n int64
	err := q.QueryRow(ctx, `INSERT INTO number_sequences (org_id, key, current_val)
VALUES ($1, $2, 1)
ON CONFLICT (org_id, key) DO UPDATE SET current_val = number_sequences.current_val + 1
RETURNING current_val`, orgID, key).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sequence: next %s: %w", key, err)
	}
	return n, nil
}

// Peek returns the value Next would hand out without consuming it.
func Peek(ctx context.Context, q Querier, orgID int64, key string) (int64, error) {
	var current int64
	err := q.QueryRow(ctx, `SELECT current_val FROM number_sequences WHERE org_id = $1 AND key = $2`, orgID, key).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 1, nil
		}
		return 0, fmt.Errorf("sequence: peek %s: %w", key, err)
	}
	return current + 1, nil
}

// Format renders n as PREFIX-NNNN.
func Format(prefix string, n int64) string {
	return fmt.Sprintf("%s-%0*d", prefix, PadWidth, n)
}
