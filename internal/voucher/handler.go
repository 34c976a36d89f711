package voucher

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-ledger/meridian/internal/platform/httpx"
)

// Handler exposes the voucher store over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	runner   *TemplateRunner
	validate *validator.Validate
	// onPosting is invoked with the period of any confirmed posting so
	// report caches can drop stale entries.
	onPosting func(period string)
}

// NewHandler builds the Handler.
func NewHandler(logger *slog.Logger, service *Service, runner *TemplateRunner, onPosting func(period string)) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		runner:    runner,
		validate:  validator.New(),
		onPosting: onPosting,
	}
}

// Routes mounts the voucher endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/vouchers", h.submit)
	r.Get("/vouchers", h.list)
	r.Get("/vouchers/{id}", h.get)
	r.Delete("/vouchers/{id}", h.delete)
	r.Post("/vouchers/{id}/review", h.review)
	r.Post("/vouchers/{id}/unreview", h.unreview)
	r.Post("/vouchers/{id}/confirm", h.confirm)
	r.Post("/vouchers/{id}/void", h.void)
	r.Post("/voucher-templates", h.saveTemplate)
	r.Get("/voucher-templates", h.listTemplates)
	r.Post("/voucher-templates/{code}/disable", h.disableTemplate)
	r.Post("/voucher-templates/{code}/apply", h.applyTemplate)
}

type submitRequest struct {
	Date          string       `json:"date" validate:"required,datetime=2006-01-02"`
	Description   string       `json:"description"`
	EntryType     string       `json:"entry_type"`
	SourceEventID string       `json:"source_event_id"`
	AutoConfirm   bool         `json:"auto_confirm"`
	Entries       []EntryInput `json:"entries" validate:"dive"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, _ := time.Parse("2006-01-02", req.Date)
	v, err := h.service.Submit(r.Context(), SubmitInput{
		Date:          date,
		Description:   req.Description,
		EntryType:     EntryType(req.EntryType),
		SourceEventID: req.SourceEventID,
		AutoConfirm:   req.AutoConfirm,
		Entries:       req.Entries,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if v.Status == StatusConfirmed && h.onPosting != nil {
		h.onPosting(v.Period)
	}
	httpx.JSON(w, http.StatusCreated, v)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	vouchers, err := h.service.List(r.Context(), Filter{
		VoucherNo:   q.Get("voucher_no"),
		Period:      q.Get("period"),
		Status:      Status(q.Get("status")),
		AccountCode: q.Get("account"),
		Limit:       limit,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, vouchers)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid voucher id")
		return
	}
	v, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid voucher id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request)   { h.transition(w, r, h.service.Review) }
func (h *Handler) unreview(w http.ResponseWriter, r *http.Request) { h.transition(w, r, h.service.Unreview) }

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid voucher id")
		return
	}
	v, err := h.service.Confirm(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if h.onPosting != nil {
		h.onPosting(v.Period)
	}
	httpx.JSON(w, http.StatusOK, v)
}

type voidRequest struct {
	Reason     string `json:"reason" validate:"required"`
	Adjustment bool   `json:"adjustment"`
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid voucher id")
		return
	}
	var req voidRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	reversal, err := h.service.Void(r.Context(), VoidInput{VoucherID: id, Reason: req.Reason, Adjustment: req.Adjustment})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if h.onPosting != nil {
		h.onPosting(reversal.Period)
	}
	httpx.JSON(w, http.StatusOK, reversal)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int64) (Voucher, error)) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid voucher id")
		return
	}
	v, err := op(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) saveTemplate(w http.ResponseWriter, r *http.Request) {
	var tmpl Template
	if err := httpx.DecodeJSON(r, &tmpl); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	tmpl.Active = true
	if err := h.runner.Save(r.Context(), tmpl); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tmpl)
}

func (h *Handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.runner.List(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, templates)
}

func (h *Handler) disableTemplate(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := h.runner.Disable(r.Context(), code); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"disabled": code})
}

type applyTemplateRequest struct {
	Date        string             `json:"date" validate:"required,datetime=2006-01-02"`
	EventID     string             `json:"event_id"`
	Event       map[string]float64 `json:"event"`
	AutoConfirm bool               `json:"auto_confirm"`
}

func (h *Handler) applyTemplate(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req applyTemplateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, _ := time.Parse("2006-01-02", req.Date)
	v, err := h.runner.Apply(r.Context(), ApplyTemplateInput{
		TemplateCode: code,
		Date:         date,
		EventID:      req.EventID,
		Event:        req.Event,
		AutoConfirm:  req.AutoConfirm,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if v.Status == StatusConfirmed && h.onPosting != nil {
		h.onPosting(v.Period)
	}
	httpx.JSON(w, http.StatusCreated, v)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
