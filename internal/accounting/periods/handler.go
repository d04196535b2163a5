package periods

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/ledger/internal/platform/httpx"
	"github.com/odyssey-erp/ledger/internal/shared"
)

// Handler exposes the period lifecycle over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type periodRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	StartDate    string `json:"startDate" validate:"required"`
	EndDate      string `json:"endDate" validate:"required"`
	FiscalYear   int    `json:"fiscalYear" validate:"required,gt=0"`
	PeriodNumber int    `json:"periodNumber" validate:"required,gt=0"`
}

func (req periodRequest) input() (Input, error) {
	start, err := httpx.ParseDate(req.StartDate)
	if err != nil {
		return Input{}, err
	}
	end, err := httpx.ParseDate(req.EndDate)
	if err != nil {
		return Input{}, err
	}
	return Input{Name: req.Name, StartDate: start, EndDate: end, FiscalYear: req.FiscalYear, PeriodNumber: req.PeriodNumber}, nil
}

type generateRequest struct {
	FiscalYear int `json:"fiscalYear" validate:"required,gt=0"`
	StartMonth int `json:"startMonth" validate:"omitempty,min=1,max=12"`
}

// MountRoutes attaches period routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/current", h.current)
	r.Post("/generate", h.generate)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/close", h.lifecycle(h.service.Close))
	r.Post("/{id}/reopen", h.lifecycle(h.service.Reopen))
	r.Post("/{id}/lock", h.lifecycle(h.service.Lock))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		FiscalYear: httpx.QueryInt(r, "fiscalYear", 0),
		Status:     PeriodStatus(r.URL.Query().Get("status")),
	}
	out, err := h.service.List(r.Context(), shared.OrgFromContext(r.Context()), filter)
	httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	date, err := httpx.QueryDate(r, "date")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	at := h.service.now()
	if date != nil {
		at = *date
	}
	out, err := h.service.GetCurrentPeriod(r.Context(), shared.OrgFromContext(r.Context()), at)
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
	var req periodRequest
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

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	var req periodRequest
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

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	err = h.service.Delete(r.Context(), shared.OrgFromContext(r.Context()), id)
	httpx.Respond(w, r, h.logger, http.StatusOK, struct{}{}, err)
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	out, err := h.service.GenerateFiscalYear(r.Context(), shared.OrgFromContext(r.Context()), req.FiscalYear, req.StartMonth)
	httpx.Respond(w, r, h.logger, http.StatusCreated, out, err)
}

func (h *Handler) lifecycle(op func(ctx context.Context, orgID, id int64) (Period, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.RespondError(w, r, h.logger, err)
			return
		}
		out, err := op(r.Context(), shared.OrgFromContext(r.Context()), id)
		httpx.Respond(w, r, h.logger, http.StatusOK, out, err)
	}
}
