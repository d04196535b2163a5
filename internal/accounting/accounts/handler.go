package accounts

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/ledger/internal/platform/httpx"
	"github.com/odyssey-erp/ledger/internal/shared"
)

// Handler exposes the chart of accounts over HTTP.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches account routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/toggle", h.toggle)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Type:       AccountType(r.URL.Query().Get("type")),
		ActiveOnly: httpx.QueryBool(r, "active"),
	}
	out, err := h.service.List(r.Context(), shared.OrgFromContext(r.Context()), filter)
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := h.service.Get(r.Context(), shared.OrgFromContext(r.Context()), id)
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := h.service.Create(r.Context(), shared.OrgFromContext(r.Context()), in)
	httpx.Respond(w, r, h.logger, http.StatusCreated, out, err)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := h.service.Update(r.Context(), shared.OrgFromContext(r.Context()), id, in)
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := h.service.ToggleStatus(r.Context(), shared.OrgFromContext(r.Context()), id)
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	err = h.service.Delete(r.Context(), shared.OrgFromContext(r.Context()), id)
	httpx.Respond(w, r, h.logger, http.StatusOK, struct{}{}, err)
}
