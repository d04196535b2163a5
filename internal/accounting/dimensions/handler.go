package dimensions

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/ledger/internal/platform/httpx"
	"github.com/odyssey-erp/ledger/internal/shared"
)

// Handler exposes dimension maintenance over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	provider Provider
}

func NewHandler(logger *slog.Logger, service *Service, provider Provider) *Handler {
	return &Handler{logger: logger, service: service, provider: provider}
}

// RuleView is the wire form of an effective rule.
type RuleView struct {
	DimensionCode string   `json:"dimensionCode"`
	Name          string   `json:"name"`
	AccountTypes  []string `json:"accountTypes"`
	Required      bool     `json:"required"`
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listDefinitions)
	r.Post("/", h.createDefinition)
	r.Get("/rules", h.rules)
	r.Get("/{id}", h.getDefinition)
	r.Put("/{id}", h.updateDefinition)
	r.Delete("/{id}", h.deleteDefinition)
	r.Get("/{id}/values", h.listValues)
	r.Post("/{id}/values", h.createValue)
	r.Put("/{id}/values/{valueID}", h.updateValue)
	r.Delete("/{id}/values/{valueID}", h.deleteValue)
}

func (h *Handler) listDefinitions(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListDefinitions(r.Context(), shared.OrgFromContext(r.Context()))
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

func (h *Handler) rules(w http.ResponseWriter, r *http.Request) {
	table, err := h.provider.Table(r.Context(), shared.OrgFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	views := make([]RuleView, 0)
	for _, rule := range table.Rules() {
		types := make([]string, 0, len(rule.AccountTypes))
		for _, t := range rule.AccountTypes {
			types = append(types, string(t))
		}
		views = append(views, RuleView{DimensionCode: rule.DimensionCode, Name: rule.Name, AccountTypes: types, Required: rule.Required})
	}
	httpx.Respond(w, r, h.logger, http.StatusOK, views, nil)
}

func (h *Handler) getDefinition(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := h.service.GetDefinition(r.Context(), shared.OrgFromContext(r.Context()), id)
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

func (h *Handler) createDefinition(w http.ResponseWriter, r *http.Request) {
	var in DefinitionInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := h.service.CreateDefinition(r.Context(), shared.OrgFromContext(r.Context()), in)
	httpx.Respond(w, r, h.logger, http.StatusCreated, out, err)
}

func (h *Handler) updateDefinition(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var in DefinitionInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := h.service.UpdateDefinition(r.Context(), shared.OrgFromContext(r.Context()), id, in)
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

func (h *Handler) deleteDefinition(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	err = h.service.DeleteDefinition(r.Context(), shared.OrgFromContext(r.Context()), id)
	httpx.Respond(w, r, h.logger, http.StatusOK, struct{}{}, err)
}

func (h *Handler) listValues(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := h.service.ListValues(r.Context(), shared.OrgFromContext(r.Context()), id)
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

func (h *Handler) createValue(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var in ValueInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := h.service.CreateValue(r.Context(), shared.OrgFromContext(r.Context()), id, in)
	httpx.Respond(w, r, h.logger, http.StatusCreated, out, err)
}

func (h *Handler) updateValue(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	valueID, err := httpx.IDParam(r, "valueID")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var in ValueInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := h.service.UpdateValue(r.Context(), shared.OrgFromContext(r.Context()), id, valueID, in)
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

func (h *Handler) deleteValue(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	valueID, err := httpx.IDParam(r, "valueID")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	err = h.service.DeleteValue(r.Context(), shared.OrgFromContext(r.Context()), id, valueID)
	httpx.Respond(w, r, h.logger, http.StatusOK, struct{}{}, err)
}
