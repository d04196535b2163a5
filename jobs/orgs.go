package jobs

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrgSource lists the organisations a job fans out over.
type OrgSource interface {
	OrgIDs(ctx context.Context) ([]int64, error)
}

// OrgSourceFunc adapts a function to OrgSource.
type OrgSourceFunc func(ctx context.Context) ([]int64, error)

func (f OrgSourceFunc) OrgIDs(ctx context.Context) ([]int64, error) { return f(ctx) }

// LedgerOrgs returns organisations owning at least one active account.
func LedgerOrgs(pool *pgxpool.Pool) OrgSource {
	return queryOrgs(pool, `SELECT DISTINCT org_id FROM accounts WHERE is_active ORDER BY org_id`)
}

// InventoryOrgs returns organisations with balances or logged transactions.
func InventoryOrgs(pool *pgxpool.Pool) OrgSource {
	return queryOrgs(pool, `SELECT org_id FROM inventory_balances
UNION
SELECT org_id FROM inventory_transactions
ORDER BY org_id`)
}

func queryOrgs(pool *pgxpool.Pool, query string) OrgSource {
	return OrgSourceFunc(func(ctx context.Context) ([]int64, error) {
		var ids []int64
		if err := pgxscan.Select(ctx, pool, &ids, query); err != nil {
			return nil, fmt.Errorf("jobs: list orgs: %w", err)
		}
		return ids, nil
	})
}

func resolveOrgs(ctx context.Context, src OrgSource, payload OrgPayload) ([]int64, error) {
	if payload.OrgID > 0 {
		return []int64{payload.OrgID}, nil
	}
	return src.OrgIDs(ctx)
}
