package journals

import (
	"log/slog"
	"net/http"

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
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/next-number", h.NextNumber)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/post", h.Post)
	r.Post("/{id}/reverse", h.Reverse)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	from, err := httpx.QueryDate(r, "from")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	to, err := httpx.QueryDate(r, "to")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	filter := ListFilter{
		Status:  Status(r.URL.Query().Get("status")),
		From:    from,
		To:      to,
		Page:    httpx.QueryInt(r, "page", 1),
		PerPage: httpx.QueryInt(r, "perPage", 50),
	}
	out, err := h.service.List(r.Context(), shared.OrgFromContext(r.Context()), filter)
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

func (h *Handler) NextNumber(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.NextNumber(r.Context(), shared.OrgFromContext(r.Context()))
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := h.service.Get(r.Context(), shared.OrgFromContext(r.Context()), id)
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
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
	var req entryRequest
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

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := h.service.Post(r.Context(), shared.OrgFromContext(r.Context()), id)
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req reverseRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, r, h.logger, err)
			return
		}
	}
	date, err := httpx.OptionalDate(req.ReversalDate)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := h.service.Reverse(r.Context(), shared.OrgFromContext(r.Context()), id, date)
	httpx.Respond(w, r, h.logger, http.StatusCreated, out, err)
}
