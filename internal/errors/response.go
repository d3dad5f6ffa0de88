package errors

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// Display codes returned to API clients. These are stable contract values;
// renaming one is a breaking change.
const (
	CodeInvalidAmount   = "INVALID_AMOUNT"
	CodeMethodRequired  = "METHOD_REQUIRED"
	CodeMethodNotFound  = "METHOD_NOT_FOUND"
	CodeInvoiceNotOpen  = "INVOICE_NOT_OPEN"
	CodeTenantSuspended = "TENANT_SUSPENDED"
)

// ErrorDetail is the error body of an ErrorResponse.
type ErrorDetail struct {
	Code    string                 `json:"code,omitempty"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorResponse is the uniform error envelope for all HTTP errors.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// NewErrorResponse builds the client-facing envelope for an error chain.
// Internal errors get a generic message so stack details never leak.
func NewErrorResponse(err error) *ErrorResponse {
	resp := &ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    DisplayCode(err),
			Message: Hint(err),
			Details: ReportableDetails(err),
		},
	}

	if resp.Error.Message == "" {
		resp.Error.Message = err.Error()
	}

	if errors.Is(err, ErrInternal) || errors.Is(err, ErrSystem) || errors.Is(err, ErrDatabase) {
		resp.Error.Message = "An unexpected error occurred"
		resp.Error.Details = nil
	}

	return resp
}

// HTTPStatusFromErr maps a marked error to its HTTP status code.
func HTTPStatusFromErr(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidOperation):
		return http.StatusConflict
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
