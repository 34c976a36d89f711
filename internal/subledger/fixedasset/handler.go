package fixedasset

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

// Handler exposes the fixed-asset sub-ledger over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds the Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// Routes mounts the fixed-asset endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/fixed-assets", h.list)
	r.Post("/fixed-assets", h.add)
	r.Post("/fixed-assets/depreciate/{period}", h.depreciate)
	r.Post("/fixed-assets/{id}/impair", h.impair)
	r.Post("/fixed-assets/{id}/impair/reverse", h.reverseImpair)
	r.Post("/fixed-assets/{id}/dispose", h.dispose)
	r.Post("/cip/projects", h.createProject)
	r.Post("/cip/projects/{id}/cost", h.addCost)
	r.Post("/cip/projects/{id}/transfer", h.transfer)
}

type addRequest struct {
	Name       string  `json:"name" validate:"required"`
	Cost       float64 `json:"cost" validate:"required,gt=0"`
	LifeYears  int     `json:"life_years" validate:"required,gt=0"`
	Salvage    float64 `json:"salvage" validate:"gte=0"`
	Method     string  `json:"method" validate:"omitempty,oneof=straight-line double-declining sum-of-years"`
	Date       string  `json:"date" validate:"required,datetime=2006-01-02"`
	Department string  `json:"department"`
	Project    string  `json:"project"`
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, _ := time.Parse("2006-01-02", req.Date)
	asset, err := h.service.Add(r.Context(), AddInput{
		Name: req.Name, Cost: req.Cost, LifeYears: req.LifeYears, Salvage: req.Salvage,
		Method: Method(req.Method), Date: date, Department: req.Department, Project: req.Project,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, asset)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	assets, err := h.service.ListAssets(r.Context(), Status(r.URL.Query().Get("status")))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, assets)
}

func (h *Handler) depreciate(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Depreciate(r.Context(), chi.URLParam(r, "period"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type amountRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Date   string  `json:"date" validate:"required,datetime=2006-01-02"`
}

func (h *Handler) impair(w http.ResponseWriter, r *http.Request) {
	h.assetAmountOp(w, r, h.service.Impair)
}

func (h *Handler) reverseImpair(w http.ResponseWriter, r *http.Request) {
	h.assetAmountOp(w, r, h.service.ReverseImpairment)
}

func (h *Handler) assetAmountOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int64, amount float64, date time.Time) (Asset, error)) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid asset id")
		return
	}
	var req amountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, _ := time.Parse("2006-01-02", req.Date)
	asset, err := op(r.Context(), id, req.Amount, date)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, asset)
}

type disposeRequest struct {
	Proceeds float64 `json:"proceeds" validate:"gte=0"`
	Date     string  `json:"date" validate:"required,datetime=2006-01-02"`
}

func (h *Handler) dispose(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid asset id")
		return
	}
	var req disposeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, _ := time.Parse("2006-01-02", req.Date)
	asset, err := h.service.Dispose(r.Context(), id, req.Proceeds, date)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, asset)
}

type createProjectRequest struct {
	Name string `json:"name" validate:"required"`
}

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	project, err := h.service.CreateProject(r.Context(), req.Name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, project)
}

func (h *Handler) addCost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid project id")
		return
	}
	var req amountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, _ := time.Parse("2006-01-02", req.Date)
	project, err := h.service.AddProjectCost(r.Context(), id, req.Amount, date)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

type transferRequest struct {
	AssetName string  `json:"asset_name" validate:"required"`
	LifeYears int     `json:"life_years" validate:"required,gt=0"`
	Salvage   float64 `json:"salvage" validate:"gte=0"`
	Method    string  `json:"method" validate:"omitempty,oneof=straight-line double-declining sum-of-years"`
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	Amount    float64 `json:"amount" validate:"gte=0"`
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid project id")
		return
	}
	var req transferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, _ := time.Parse("2006-01-02", req.Date)
	asset, err := h.service.Transfer(r.Context(), TransferInput{
		ProjectID: id, AssetName: req.AssetName, LifeYears: req.LifeYears,
		Salvage: req.Salvage, Method: Method(req.Method), Date: date, Amount: req.Amount,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, asset)
}
