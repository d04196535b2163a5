package inventory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/platform/httpx"
	"github.com/odyssey-erp/ledger/internal/shared"
)

// Handler exposes the balance store over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/balances", h.listBalances)
	r.Post("/balances/rebuild", h.rebuild)
	r.Get("/balances/{itemID}/{warehouseID}", h.getBalance)
	r.Get("/transactions", h.listTransactions)
	r.Post("/movements", h.postMovement)
}

func (h *Handler) listBalances(w http.ResponseWriter, r *http.Request) {
	filter := BalanceFilter{
		ItemID:      int64(httpx.QueryInt(r, "itemId", 0)),
		WarehouseID: int64(httpx.QueryInt(r, "warehouseId", 0)),
	}
	out, err := h.service.ListBalances(r.Context(), shared.OrgFromContext(r.Context()), filter)
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	itemID, err := httpx.IDParam(r, "itemID")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	warehouseID, err := httpx.IDParam(r, "warehouseID")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := h.service.GetBalance(r.Context(), shared.OrgFromContext(r.Context()), itemID, warehouseID)
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

func (h *Handler) rebuild(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.RebuildBalances(r.Context(), shared.OrgFromContext(r.Context()))
	if err == nil && len(out.Drifted) > 0 {
		h.logger.Warn("inventory balances drifted", slog.Int64("org_id", shared.OrgFromContext(r.Context())), slog.Int("rows", len(out.Drifted)))
	}
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := TransactionFilter{
		ItemID:        int64(httpx.QueryInt(r, "itemId", 0)),
		WarehouseID:   int64(httpx.QueryInt(r, "warehouseId", 0)),
		ReferenceType: q.Get("referenceType"),
		ReferenceID:   q.Get("referenceId"),
		Page:          httpx.QueryInt(r, "page", 1),
		PerPage:       httpx.QueryInt(r, "perPage", 50),
	}
	out, err := h.service.ListTransactions(r.Context(), shared.OrgFromContext(r.Context()), filter)
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

type movementRequest struct {
	TxnType       TxnType         `json:"txnType" validate:"required,oneof=RECEIPT ISSUE ADJUSTMENT"`
	ItemID        int64           `json:"itemId" validate:"required,gt=0"`
	WarehouseID   int64           `json:"warehouseId" validate:"required,gt=0"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unitCost"`
	ReferenceType string          `json:"referenceType" validate:"max=50"`
	ReferenceID   string          `json:"referenceId" validate:"max=100"`
	TxnDate       string          `json:"txnDate"`
}

func (h *Handler) postMovement(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	date, err := httpx.OptionalDate(req.TxnDate)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	in := MovementInput{
		TxnType:       req.TxnType,
		ItemID:        req.ItemID,
		WarehouseID:   req.WarehouseID,
		Quantity:      req.Quantity,
		UnitCost:      req.UnitCost,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
	}
	if date != nil {
		in.TxnDate = *date
	}
	txn, bal, err := h.service.PostMovement(r.Context(), shared.OrgFromContext(r.Context()), in)
	httpx.Respond(w, r, h.logger, http.StatusCreated, movementResponse{Transaction: txn, Balance: bal}, err)
}

type movementResponse struct {
	Transaction Transaction `json:"transaction"`
	Balance     Balance     `json:"balance"`
}
