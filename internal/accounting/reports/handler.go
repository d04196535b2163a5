package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/ledger/internal/platform/httpx"
	"github.com/odyssey-erp/ledger/internal/shared"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/balances", h.Balances)
	r.Get("/trial-balance", h.TrialBalance)
	r.Get("/by-type", h.ByType)
}

func (h *Handler) Balances(w http.ResponseWriter, r *http.Request) {
	asOf, err := httpx.QueryDate(r, "asOf")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	ids, err := parseIDs(r.URL.Query().Get("accountIds"))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	opts := Options{AsOf: asOf, AccountIDs: ids, IncludeZero: httpx.QueryBool(r, "includeZero")}
	out, err := h.service.AccountBalances(r.Context(), shared.OrgFromContext(r.Context()), opts)
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := httpx.QueryDate(r, "asOf")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := h.service.TrialBalance(r.Context(), shared.OrgFromContext(r.Context()), asOf)
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

func (h *Handler) ByType(w http.ResponseWriter, r *http.Request) {
	asOf, err := httpx.QueryDate(r, "asOf")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := h.service.BalancesByType(r.Context(), shared.OrgFromContext(r.Context()), asOf)
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

// parseIDs reads a comma separated id list.
func parseIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 {
			return nil, shared.Validation("Invalid account id %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
