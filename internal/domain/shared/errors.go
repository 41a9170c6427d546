package shared

import (
	"fmt"
	"sort"
	"strings"
)

// Error codes surfaced to callers of the production and inventory services.
const (
	CodeInvalidInput           = "INVALID_INPUT"
	CodeNotFound               = "NOT_FOUND"
	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	CodeAlreadyProcessed       = "ALREADY_PROCESSED"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeAllocationMismatch     = "ALLOCATION_MISMATCH"
	CodeConcurrencyConflict    = "CONCURRENCY_CONFLICT"
	CodeLedgerInconsistent     = "LEDGER_INCONSISTENT"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+e.Details[k])
	}
	return e.Message + " (" + strings.Join(parts, ", ") + ")"
}

// Is matches any DomainError carrying the same code, so detailed instances
// still satisfy errors.Is against the package sentinels.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail returns a copy of the error with an extra detail attached
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = fmt.Sprint(value)
	return &DomainError{Code: e.Code, Message: e.Message, Details: details}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidInput           = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists          = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidStateTransition = NewDomainError(CodeInvalidStateTransition, "Operation not allowed in current state")
	ErrAlreadyProcessed       = NewDomainError(CodeAlreadyProcessed, "Operation has already been processed")
	ErrInsufficientStock      = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrAllocationMismatch     = NewDomainError(CodeAllocationMismatch, "Allocation plan does not match required quantity")
	ErrConcurrencyConflict    = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrLedgerInconsistent     = NewDomainError(CodeLedgerInconsistent, "Ledger does not reconcile with stored balance")
)
