package shared

import (
	"errors"
	"fmt"
)

// Code identifies a ledger failure category surfaced to callers.
type Code string

const (
	CodeNotBalanced        Code = "NOT_BALANCED"
	CodeAccountNotFound    Code = "ACCOUNT_NOT_FOUND"
	CodeAccountDisabled    Code = "ACCOUNT_DISABLED"
	CodeDimensionNotFound  Code = "DIMENSION_NOT_FOUND"
	CodeVoucherNotFound    Code = "VOUCHER_NOT_FOUND"
	CodeVoucherNotReviewed Code = "VOUCHER_NOT_REVIEWED"
	CodePeriodClosed       Code = "PERIOD_CLOSED"
	CodePeriodAdjustOnly   Code = "PERIOD_ADJUSTMENT_ONLY"
	CodeVoidConfirmed      Code = "VOID_CONFIRMED"
	CodeTemplateDisabled   Code = "TEMPLATE_DISABLED"
	CodeTemplateUnbalanced Code = "TEMPLATE_UNBALANCED"
	CodeRateNotFound       Code = "RATE_NOT_FOUND"
	CodeNegativeInventory  Code = "NEGATIVE_INVENTORY"
	CodeIterationDiverged  Code = "ITERATION_DIVERGED"
	CodeInvalidStatus      Code = "INVALID_STATUS"
	CodeIdentityViolation  Code = "IDENTITY_VIOLATION"
	CodeRebuildMismatch    Code = "REBUILD_MISMATCH"
)

// LedgerError carries a machine code plus context for the operator.
type LedgerError struct {
	Code    Code
	Message string
	Details map[string]any
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds a LedgerError without details.
func NewError(code Code, message string) *LedgerError {
	return &LedgerError{Code: code, Message: message}
}

// NewErrorf builds a LedgerError with a formatted message.
func NewErrorf(code Code, format string, args ...any) *LedgerError {
	return &LedgerError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetails attaches context fields, returning the same error.
func (e *LedgerError) WithDetails(details map[string]any) *LedgerError {
	e.Details = details
	return e
}

// CodeOf extracts the ledger code from err, empty when not a LedgerError.
func CodeOf(err error) Code {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// ErrNotFound indicates resource not found.
var ErrNotFound = errors.New("not found")
