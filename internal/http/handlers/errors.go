// Package handlers defines the HTTP-layer error codes used by the action
// surface. Codes are lowercase snake_case and stable; clients branch on them
// programmatically. The webhook surface never returns these — it always
// acknowledges.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeSuggestFailed = "suggest_failed"
)
