package transfers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/ledger/internal/platform/httpx"
	"github.com/odyssey-erp/ledger/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/release", h.Release)
	r.Post("/{id}/ship", h.Ship)
	r.Post("/{id}/receive", h.Receive)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Status:  Status(r.URL.Query().Get("status")),
		Page:    httpx.QueryInt(r, "page", 1),
		PerPage: httpx.QueryInt(r, "perPage", 50),
	}
	out, err := h.service.List(r.Context(), shared.OrgFromContext(r.Context()), filter)
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, http.StatusOK, h.service.Get)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	in, err := req.input()
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := h.service.Create(r.Context(), shared.OrgFromContext(r.Context()), in)
	httpx.Respond(w, r, h.logger, http.StatusCreated, out, err)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req orderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	in, err := req.input()
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := h.service.Update(r.Context(), shared.OrgFromContext(r.Context()), id, in)
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	err = h.service.Delete(r.Context(), shared.OrgFromContext(r.Context()), id)
	httpx.Respond(w, r, h.logger, http.StatusOK, struct{}{}, err)
}

func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, http.StatusOK, h.service.Release)
}

func (h *Handler) Ship(w http.ResponseWriter, r *http.Request) {
	var req shipRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, r, h.logger, err)
			return
		}
	}
	in, err := req.input()
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	h.withID(w, r, http.StatusOK, func(ctx context.Context, orgID, id int64) (Order, error) {
		return h.service.Ship(ctx, orgID, id, in)
	})
}

func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	var req receiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	in, err := req.input()
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	h.withID(w, r, http.StatusOK, func(ctx context.Context, orgID, id int64) (Order, error) {
		return h.service.Receive(ctx, orgID, id, in)
	})
}

func (h *Handler) withID(w http.ResponseWriter, r *http.Request, status int, op func(context.Context, int64, int64) (Order, error)) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := op(r.Context(), shared.OrgFromContext(r.Context()), id)
	httpx.Respond(w, r, h.logger, status, out, err)
}
