package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-ledger/meridian/internal/shared"
	"github.com/meridian-ledger/meridian/internal/statement"
)

// StatementWarmupHandler rebuilds the cached report for a period so the
// first interactive request after heavy posting is served warm.
type StatementWarmupHandler struct {
	cache  *statement.Cache
	logger *slog.Logger
}

// NewStatementWarmupHandler builds the handler.
func NewStatementWarmupHandler(cache *statement.Cache, logger *slog.Logger) *StatementWarmupHandler {
	return &StatementWarmupHandler{cache: cache, logger: logger}
}

// Handle processes TaskStatementWarmup.
func (h *StatementWarmupHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload PeriodPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Period == "" {
		return asynq.SkipRetry
	}
	report, err := h.cache.Report(ctx, payload.Period, true)
	if err != nil {
		if !shared.IsCode(err, shared.CodeIdentityViolation) {
			return err
		}
		// an identity violation is a finding, not a retryable fault
		h.logger.Error("statement warmup found broken identities",
			slog.String("period", payload.Period),
			slog.Float64("balance_diff", report.Validation.BalanceDiff),
			slog.Float64("cash_diff", report.Validation.CashDiff))
		return asynq.SkipRetry
	}
	h.logger.Info("statement warmup complete", slog.String("period", payload.Period))
	return nil
}
