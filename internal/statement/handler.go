package statement

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-ledger/meridian/internal/platform/httpx"
)

// Handler serves the three-statement report.
type Handler struct {
	logger *slog.Logger
	cache  *Cache
}

// NewHandler builds the Handler.
func NewHandler(logger *slog.Logger, cache *Cache) *Handler {
	return &Handler{logger: logger, cache: cache}
}

// Routes mounts the statement endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/statements/{period}", h.report)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	period := chi.URLParam(r, "period")
	force := r.URL.Query().Get("refresh") == "true"
	report, err := h.cache.Report(r.Context(), period, force)
	if err != nil {
		// an identity violation names the failing totals in its message; the
		// report body itself is not sent
		h.logger.Warn("statement build failed", slog.String("period", period), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}
