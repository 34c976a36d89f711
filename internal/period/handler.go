package period

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-ledger/meridian/internal/platform/httpx"
)

// Handler exposes period lifecycle and closing templates over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
	// onClose is invoked with the period after close/reopen so report
	// caches can drop stale entries.
	onClose func(period string)
}

// NewHandler builds the Handler.
func NewHandler(logger *slog.Logger, service *Service, onClose func(period string)) *Handler {
	return &Handler{logger: logger, service: service, onClose: onClose}
}

// Routes mounts the period endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/periods", h.list)
	r.Post("/periods/{period}/open", h.open)
	r.Post("/periods/{period}/adjust", h.adjust)
	r.Post("/periods/{period}/close", h.close)
	r.Post("/periods/{period}/reopen", h.reopen)
	r.Get("/closing-templates", h.listTemplates)
	r.Post("/closing-templates", h.saveTemplate)
	r.Post("/closing-templates/{code}/disable", h.disableTemplate)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	periods, err := h.service.List(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, periods)
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Open(r.Context(), chi.URLParam(r, "period"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.BeginAdjustment(r.Context(), chi.URLParam(r, "period"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	period := chi.URLParam(r, "period")
	result, err := h.service.Close(r.Context(), period)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if h.onClose != nil {
		h.onClose(period)
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) reopen(w http.ResponseWriter, r *http.Request) {
	period := chi.URLParam(r, "period")
	result, err := h.service.Reopen(r.Context(), period)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if h.onClose != nil {
		h.onClose(period)
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.service.ListTemplates(r.Context(), false)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, templates)
}

func (h *Handler) saveTemplate(w http.ResponseWriter, r *http.Request) {
	var tmpl ClosingTemplate
	if err := httpx.DecodeJSON(r, &tmpl); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	tmpl.Active = true
	if err := h.service.SaveTemplate(r.Context(), tmpl); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tmpl)
}

func (h *Handler) disableTemplate(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := h.service.DisableTemplate(r.Context(), code); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"disabled": code})
}
