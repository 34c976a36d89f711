package coa

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-ledger/meridian/internal/platform/httpx"
)

// Handler exposes chart and dimension maintenance over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds the Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// Routes mounts the chart endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/accounts", h.listAccounts)
	r.Post("/accounts", h.addAccount)
	r.Post("/accounts/{code}/disable", h.disableAccount)
	r.Get("/dimensions", h.listDimensions)
	r.Post("/dimensions", h.addDimension)
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	onlyEnabled := r.URL.Query().Get("enabled") == "true"
	accounts, err := h.service.ListAccounts(r.Context(), onlyEnabled)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, accounts)
}

type addAccountRequest struct {
	Code       string `json:"code" validate:"required"`
	Name       string `json:"name" validate:"required"`
	ParentCode string `json:"parent_code"`
	Type       string `json:"type" validate:"required,oneof=asset liability equity revenue expense"`
	Direction  string `json:"direction" validate:"required,oneof=debit credit"`
	CashFlow   string `json:"cash_flow" validate:"omitempty,oneof=operating investing financing none"`
	Currency   string `json:"currency"`
	Revaluable bool   `json:"revaluable"`
}

func (h *Handler) addAccount(w http.ResponseWriter, r *http.Request) {
	var req addAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.AddAccount(r.Context(), AddAccountInput{
		Code:       req.Code,
		Name:       req.Name,
		ParentCode: req.ParentCode,
		Type:       AccountType(req.Type),
		Direction:  Direction(req.Direction),
		CashFlow:   CashFlowCategory(req.CashFlow),
		Currency:   req.Currency,
		Revaluable: req.Revaluable,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) disableAccount(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := h.service.DisableAccount(r.Context(), code); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"disabled": code})
}

func (h *Handler) listDimensions(w http.ResponseWriter, r *http.Request) {
	dims, err := h.service.ListDimensions(r.Context(), DimensionType(r.URL.Query().Get("type")))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dims)
}

type addDimensionRequest struct {
	Type string `json:"type" validate:"required,oneof=department project customer supplier employee"`
	Code string `json:"code" validate:"required"`
	Name string `json:"name" validate:"required"`
}

func (h *Handler) addDimension(w http.ResponseWriter, r *http.Request) {
	var req addDimensionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	dim, err := h.service.AddDimension(r.Context(), DimensionType(req.Type), req.Code, req.Name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, dim)
}
