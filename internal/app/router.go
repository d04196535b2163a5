package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/dimensions"
	"github.com/odyssey-erp/ledger/internal/accounting/journals"
	"github.com/odyssey-erp/ledger/internal/accounting/periods"
	"github.com/odyssey-erp/ledger/internal/accounting/reports"
	"github.com/odyssey-erp/ledger/internal/inventory"
	"github.com/odyssey-erp/ledger/internal/observability"
	"github.com/odyssey-erp/ledger/internal/transfers"
	"github.com/odyssey-erp/ledger/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	AccountsHandler   *accounts.Handler
	DimensionsHandler *dimensions.Handler
	PeriodsHandler    *periods.Handler
	JournalsHandler   *journals.Handler
	ReportsHandler    *reports.Handler
	InventoryHandler  *inventory.Handler
	TransfersHandler  *transfers.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewHandlers builds every HTTP handler over svc.
func NewHandlers(logger *slog.Logger, svc *Services) RouterParams {
	return RouterParams{
		Logger:            logger,
		AccountsHandler:   accounts.NewHandler(logger, svc.Accounts),
		DimensionsHandler: dimensions.NewHandler(logger, svc.Dimensions, svc.DimRules),
		PeriodsHandler:    periods.NewHandler(logger, svc.Periods),
		JournalsHandler:   journals.NewHandler(logger, svc.Journals),
		ReportsHandler:    reports.NewHandler(logger, svc.Reports),
		InventoryHandler:  inventory.NewHandler(logger, svc.Inventory),
		TransfersHandler:  transfers.NewHandler(logger, svc.Transfers),
	}
}

// NewRouter constructs the chi.Router with Odyssey defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(IdentityMiddleware(params.Logger))
		r.Route("/accounting", func(r chi.Router) {
			if params.AccountsHandler != nil {
				r.Route("/accounts", params.AccountsHandler.MountRoutes)
			}
			if params.DimensionsHandler != nil {
				r.Route("/dimensions", params.DimensionsHandler.MountRoutes)
			}
			if params.PeriodsHandler != nil {
				r.Route("/periods", params.PeriodsHandler.MountRoutes)
			}
			if params.JournalsHandler != nil {
				r.Route("/journals", params.JournalsHandler.MountRoutes)
			}
			if params.ReportsHandler != nil {
				r.Route("/reports", params.ReportsHandler.MountRoutes)
			}
		})
		if params.InventoryHandler != nil {
			r.Route("/inventory", params.InventoryHandler.MountRoutes)
		}
		if params.TransfersHandler != nil {
			r.Route("/transfer-orders", params.TransfersHandler.MountRoutes)
		}
	})

	return r
}
