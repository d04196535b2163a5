package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/dimensions"
	"github.com/odyssey-erp/ledger/internal/accounting/journals"
	"github.com/odyssey-erp/ledger/internal/accounting/periods"
	"github.com/odyssey-erp/ledger/internal/accounting/reports"
	"github.com/odyssey-erp/ledger/internal/inventory"
	"github.com/odyssey-erp/ledger/internal/shared"
	"github.com/odyssey-erp/ledger/internal/transfers"
)

// Services bundles the ledger services shared by the API server, the worker
// and the CLI.
type Services struct {
	Accounts   *accounts.Service
	Dimensions *dimensions.Service
	DimRules   dimensions.Provider
	Periods    *periods.Service
	Journals   *journals.Service
	Reports    *reports.Service
	Inventory  *inventory.Service
	Transfers  *transfers.Service
}

// NewServices wires repositories and services over one pool. A nil redis
// client disables the cross-instance period lock.
func NewServices(cfg *Config, pool *pgxpool.Pool, redisClient *redis.Client, logger *slog.Logger) *Services {
	audit := shared.NewAuditLogger(pool)

	dimRepo := dimensions.NewRepository(pool)
	var fallback []dimensions.Rule
	if cfg.DefaultDimensionRules {
		fallback = dimensions.DefaultRules()
	}
	provider := dimensions.NewRepositoryProvider(dimRepo, fallback)

	periodService := periods.NewService(periods.NewRepository(pool), audit, shared.NewRedisLocker(redisClient))
	periodService.WithLockTTL(cfg.PeriodLockTTL)
	transferService := transfers.NewService(transfers.NewRepository(pool), audit)
	transferService.WithAllowNegativeStock(cfg.AllowNegativeStock)

	return &Services{
		Accounts:   accounts.NewService(accounts.NewRepository(pool), audit),
		Dimensions: dimensions.NewService(dimRepo, audit),
		DimRules:   provider,
		Periods:    periodService,
		Journals:   journals.NewService(journals.NewRepository(pool), provider, audit),
		Reports:    reports.NewService(reports.NewRepository(pool), logger),
		Inventory: inventory.NewService(inventory.NewRepository(pool), audit, inventory.ServiceConfig{
			AllowNegativeStock: cfg.AllowNegativeStock,
		}),
		Transfers: transferService,
	}
}
