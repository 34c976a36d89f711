package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-ledger/meridian/internal/fx"
)

// FXRevaluationHandler runs the period-end revaluation in the background.
type FXRevaluationHandler struct {
	service *fx.Service
	logger  *slog.Logger
}

// NewFXRevaluationHandler builds the handler.
func NewFXRevaluationHandler(service *fx.Service, logger *slog.Logger) *FXRevaluationHandler {
	return &FXRevaluationHandler{service: service, logger: logger}
}

// Handle processes TaskFXRevaluation.
func (h *FXRevaluationHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload PeriodPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Period == "" {
		return asynq.SkipRetry
	}
	result, err := h.service.Revalue(ctx, payload.Period, fx.RateType(payload.RateType))
	if err != nil {
		return err
	}
	h.logger.Info("fx revaluation complete",
		slog.String("period", payload.Period),
		slog.Int("accounts", len(result.Lines)),
		slog.Float64("gain", result.TotalGain),
		slog.Float64("loss", result.TotalLoss))
	return nil
}
