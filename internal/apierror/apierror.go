// Package apierror provides standardized error response structures for the
// API, plus the typed sentinel errors the dedup engine reports. All errors
// returned to clients go through this package to ensure consistency and to
// prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import "errors"

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Fields: fields}
}

// Canonical link invariant violations. Each rule gets its own sentinel so a
// review UI can tell the reviewer exactly which rule blocked the merge.
var (
	// ErrSelfReference: a vendor cannot be marked as a duplicate of itself.
	ErrSelfReference = errors.New("vendor cannot be marked as a duplicate of itself")

	// ErrChainCreation: the write would create a canonical chain of depth > 1.
	// Either the vendor already has duplicates pointing at it, or the chosen
	// canonical vendor is itself a duplicate.
	ErrChainCreation = errors.New("operation would create a chain of duplicates; reassign existing duplicates first")
)

// ErrAnalysisInFlight: a duplicate analysis was requested while another is
// still pending or processing. Retriable later — not a validation failure.
var ErrAnalysisInFlight = errors.New("a duplicate analysis is already in progress")

// Not-found sentinels for the engine's two durable record types.
var (
	ErrVendorNotFound   = errors.New("vendor not found")
	ErrAnalysisNotFound = errors.New("analysis not found")
)
