// Package services implements the sync engine proper: enqueue validation,
// priority scheduling, retry/backoff bookkeeping, circuit breaking, conflict
// resolution, dead-letter handling, and the coordinator that drives them.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

// Enqueue-path errors.
var (
	// ErrMissingOwner is returned when an item has no owner id; per-owner
	// ordering is meaningless without one.
	ErrMissingOwner = errors.New("item has no owner id")

	// ErrUnknownEntityKind is returned when an item names an entity kind no
	// adapter handles.
	ErrUnknownEntityKind = errors.New("unknown entity kind")

	// ErrUnknownOperation is returned when an item's operation is not one of
	// create, update, delete.
	ErrUnknownOperation = errors.New("unknown operation kind")

	// ErrInvalidPayload is returned when an item's payload is missing or
	// does not decode into the shape its entity kind requires.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrDuplicateItem is returned when an item with the same id is already
	// queued. Callers should treat this as success (idempotent enqueue).
	ErrDuplicateItem = errors.New("item already queued")

	// ErrEmptyBatch is returned when a bulk submission contains no items.
	ErrEmptyBatch = errors.New("batch is empty")

	// ErrMixedBatch is returned when a bulk submission mixes entity kinds;
	// batches are same-kind by contract.
	ErrMixedBatch = errors.New("batch mixes entity kinds")
)

// Engine errors.
var (
	// ErrPassInProgress is returned when a sync pass is requested while one
	// is already draining the queue.
	ErrPassInProgress = errors.New("sync pass already in progress")

	// ErrItemNotFound indicates the referenced queue or DLQ item is absent.
	ErrItemNotFound = errors.New("item not found")

	// ErrBreakerOpen is returned by the circuit breaker when the remote is
	// considered down and the call was refused without a network attempt.
	ErrBreakerOpen = errors.New("circuit breaker open")

	// ErrUnresolvable is returned by the conflict resolver when no automatic
	// policy can reconcile the two versions; the conflict is recorded
	// instead of being dropped.
	ErrUnresolvable = errors.New("conflict cannot be resolved automatically")
)
