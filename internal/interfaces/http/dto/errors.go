package dto

import (
	"net/http"

	"github.com/erp/production/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation and input error codes
const (
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	// ErrCodeMissingActor is used when the X-User-ID header is absent
	ErrCodeMissingActor = "ERR_MISSING_ACTOR"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeAlreadyProcessed    = "ERR_ALREADY_PROCESSED"
	ErrCodeRequestTooLarge     = "ERR_REQUEST_TOO_LARGE"
)

// Business rule error codes
const (
	ErrCodeInvalidStateTransition = "ERR_INVALID_STATE_TRANSITION"
	ErrCodeInsufficientStock      = "ERR_INSUFFICIENT_STOCK"
	ErrCodeAllocationMismatch     = "ERR_ALLOCATION_MISMATCH"
	// ErrCodeLedgerInconsistent is returned while a stock key is quarantined
	ErrCodeLedgerInconsistent = "ERR_LEDGER_INCONSISTENT"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeMissingActor: http.StatusBadRequest,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeAlreadyProcessed:    http.StatusConflict,
	ErrCodeRequestTooLarge:     http.StatusRequestEntityTooLarge,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidStateTransition: http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock:      http.StatusUnprocessableEntity,
	ErrCodeAllocationMismatch:     http.StatusUnprocessableEntity,

	// The key stays blocked until an operator fixes and releases it.
	ErrCodeLedgerInconsistent: http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	shared.CodeInvalidInput:           ErrCodeInvalidInput,
	shared.CodeNotFound:               ErrCodeNotFound,
	shared.CodeAlreadyExists:          ErrCodeAlreadyExists,
	shared.CodeInvalidStateTransition: ErrCodeInvalidStateTransition,
	shared.CodeAlreadyProcessed:       ErrCodeAlreadyProcessed,
	shared.CodeInsufficientStock:      ErrCodeInsufficientStock,
	shared.CodeAllocationMismatch:     ErrCodeAllocationMismatch,
	shared.CodeConcurrencyConflict:    ErrCodeConcurrencyConflict,
	shared.CodeLedgerInconsistent:     ErrCodeLedgerInconsistent,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format, or unknown, are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
