package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGLIntegrity replays confirmed vouchers and compares the result
	// against the persisted balance index.
	TaskGLIntegrity = "ledger:gl_integrity"
	// TaskFXRevaluation runs the period-end revaluation for one period.
	TaskFXRevaluation = "ledger:fx_revaluation"
	// TaskStatementWarmup rebuilds the cached statement reports.
	TaskStatementWarmup = "ledger:statement_warmup"
)

// PeriodPayload targets one accounting period.
type PeriodPayload struct {
	Period   string `json:"period"`
	RateType string `json:"rate_type,omitempty"`
}

// NewGLIntegrityTask constructs the integrity-scan task.
func NewGLIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskGLIntegrity, nil)
}

// NewFXRevaluationTask constructs a revaluation task.
func NewFXRevaluationTask(payload PeriodPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFXRevaluation, data), nil
}

// NewStatementWarmupTask constructs a warmup task.
func NewStatementWarmupTask(payload PeriodPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStatementWarmup, data), nil
}
