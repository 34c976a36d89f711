package model

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-ledger/meridian/internal/platform/httpx"
)

// Handler exposes the five-step model over HTTP.
type Handler struct {
	logger *slog.Logger
}

// NewHandler builds the Handler.
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

// Routes mounts the model endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/model/calc", h.calc)
	r.Post("/model/check", h.check)
	r.Post("/model/diagnose", h.diagnose)
	r.Post("/model/scenario", h.scenario)
	r.Post("/model/explain", h.explain)
}

type calcRequest struct {
	Driver     Driver  `json:"driver"`
	Iterations int     `json:"iterations"`
	Tolerance  float64 `json:"tolerance"`
}

func (h *Handler) calc(w http.ResponseWriter, r *http.Request) {
	var req calcRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := req.Driver.Validate(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result := Calc(req.Driver, Options{Iterations: req.Iterations, Tolerance: req.Tolerance})
	if !result.IterationConverged {
		h.logger.Warn("model iteration did not converge",
			slog.Int("iterations", result.Iterations),
			slog.Bool("diverging", result.Diverging))
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	var d Driver
	if err := httpx.DecodeJSON(r, &d); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	httpx.JSON(w, http.StatusOK, Check(d))
}

func (h *Handler) diagnose(w http.ResponseWriter, r *http.Request) {
	var req calcRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := req.Driver.Validate(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result := Calc(req.Driver, Options{Iterations: req.Iterations, Tolerance: req.Tolerance})
	httpx.JSON(w, http.StatusOK, Diagnose(result))
}

type scenarioRequest struct {
	Driver     Driver    `json:"driver"`
	Field      string    `json:"field"`
	Values     []float64 `json:"values"`
	Iterations int       `json:"iterations"`
}

func (h *Handler) scenario(w http.ResponseWriter, r *http.Request) {
	var req scenarioRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if req.Field == "" || len(req.Values) == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "field and values required")
		return
	}
	table, err := Scenario(req.Driver, req.Field, req.Values, Options{Iterations: req.Iterations})
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, table)
}

type explainRequest struct {
	Driver     Driver `json:"driver"`
	Field      string `json:"field"`
	Iterations int    `json:"iterations"`
}

func (h *Handler) explain(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	result := Calc(req.Driver, Options{Iterations: req.Iterations})
	explanation, err := Explain(result, req.Field)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, explanation)
}
