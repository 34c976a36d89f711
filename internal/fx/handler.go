package fx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-ledger/meridian/internal/platform/httpx"
)

// Handler exposes currency, rate, and revaluation operations.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validate  *validator.Validate
	onPosting func(period string)
}

// NewHandler builds the Handler.
func NewHandler(logger *slog.Logger, service *Service, onPosting func(period string)) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), onPosting: onPosting}
}

// Routes mounts the FX endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/fx/currencies", h.listCurrencies)
	r.Post("/fx/currencies", h.addCurrency)
	r.Get("/fx/rates", h.listRates)
	r.Post("/fx/rates", h.addRate)
	r.Post("/fx/revalue/{period}", h.revalue)
}

type addCurrencyRequest struct {
	Code      string `json:"code" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Symbol    string `json:"symbol"`
	Precision int    `json:"precision"`
}

func (h *Handler) addCurrency(w http.ResponseWriter, r *http.Request) {
	var req addCurrencyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.AddCurrency(r.Context(), req.Code, req.Name, req.Symbol, req.Precision); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"code": req.Code})
}

func (h *Handler) listCurrencies(w http.ResponseWriter, r *http.Request) {
	currencies, err := h.service.ListCurrencies(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, currencies)
}

type addRateRequest struct {
	Currency string  `json:"currency" validate:"required"`
	Date     string  `json:"date" validate:"required,datetime=2006-01-02"`
	Rate     float64 `json:"rate" validate:"required,gt=0"`
	RateType string  `json:"rate_type" validate:"omitempty,oneof=spot closing average"`
	Source   string  `json:"source"`
}

func (h *Handler) addRate(w http.ResponseWriter, r *http.Request) {
	var req addRateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, _ := time.Parse("2006-01-02", req.Date)
	if err := h.service.AddRate(r.Context(), req.Currency, date, req.Rate, RateType(req.RateType), req.Source); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"currency": req.Currency, "date": req.Date})
}

func (h *Handler) listRates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rates, err := h.service.ListRates(r.Context(), q.Get("currency"), RateType(q.Get("rate_type")))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rates)
}

func (h *Handler) revalue(w http.ResponseWriter, r *http.Request) {
	period := chi.URLParam(r, "period")
	result, err := h.service.Revalue(r.Context(), period, RateType(r.URL.Query().Get("rate_type")))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if h.onPosting != nil {
		h.onPosting(period)
	}
	httpx.JSON(w, http.StatusOK, result)
}
