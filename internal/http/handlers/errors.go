// Package handlers defines the HTTP-layer error codes used across the admin
// API. Codes are lowercase snake_case; generic codes mirror common HTTP
// status semantics, domain-specific codes name the failed operation. Every
// error response pairs one of these codes with an HTTP status (see the
// fail() helper in response.go).
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeEnqueueFailed  = "enqueue_failed"
	ErrCodeListFailed     = "list_failed"
	ErrCodeReplayFailed   = "replay_failed"
	ErrCodePurgeFailed    = "purge_failed"
	ErrCodeSyncFailed     = "sync_failed"
	ErrCodeSyncInProgress = "sync_in_progress"
)
