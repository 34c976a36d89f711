package httpx

import (
	"errors"
	"net/http"

	"github.com/meridian-ledger/meridian/internal/shared"
)

// RespondError maps ledger errors to HTTP responses using RFC7807.
// Validation and state errors map to 4xx; consistency errors to 500 with
// the code preserved so the operator can tell corruption from a bad request.
func RespondError(w http.ResponseWriter, err error) {
	var le *shared.LedgerError
	if errors.As(err, &le) {
		JSON(w, statusFor(le.Code), ProblemDetail{
			Title:   string(le.Code),
			Status:  statusFor(le.Code),
			Detail:  le.Message,
			Code:    string(le.Code),
			Details: le.Details,
		})
		return
	}
	if errors.Is(err, shared.ErrNotFound) {
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	}
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

func statusFor(code shared.Code) int {
	switch code {
	case shared.CodeAccountNotFound, shared.CodeDimensionNotFound, shared.CodeVoucherNotFound, shared.CodeRateNotFound:
		return http.StatusNotFound
	case shared.CodeNotBalanced, shared.CodeTemplateUnbalanced, shared.CodeNegativeInventory:
		return http.StatusUnprocessableEntity
	case shared.CodePeriodClosed, shared.CodePeriodAdjustOnly, shared.CodeVoidConfirmed,
		shared.CodeVoucherNotReviewed, shared.CodeInvalidStatus, shared.CodeAccountDisabled,
		shared.CodeTemplateDisabled:
		return http.StatusConflict
	case shared.CodeIdentityViolation, shared.CodeRebuildMismatch:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
