// Package adapters translates queue items into remote backend calls. There
// is one adapter per entity kind; all of them speak through a shared
// RemoteClient that enforces the per-call timeout, outbound rate limiting,
// and the idempotency-key contract (the queue item id is presented on every
// attempt, so re-application is a no-op on the remote side).
package adapters

import (
	"context"
	"errors"
	"fmt"

	"github.com/moodpulse/go-sync-engine/internal/domain"
)

// Adapter applies a single queue item to the remote backend.
//
// Semantics every implementation must honor:
//   - Idempotent on retry: re-presenting the same item id must not create a
//     duplicate remote record.
//   - DELETE of a record the remote never saw succeeds (already-deleted).
//   - A remote-side version divergence on update surfaces as *ConflictError
//     carrying the remote document, never as a plain failure.
type Adapter interface {
	// Kind returns the entity kind this adapter serves.
	Kind() domain.EntityKind

	// Apply performs the item's operation remotely and returns the remote
	// record id on success.
	Apply(ctx context.Context, item *domain.SyncQueueItem) (string, error)

	// ForceApply writes a resolved document to the remote, bypassing the
	// version check that raised the conflict.
	ForceApply(ctx context.Context, item *domain.SyncQueueItem, doc string) error
}

// ConflictError reports that the remote copy of the record changed since
// the local mutation was derived from it. RemoteDoc holds the remote's
// current version for the conflict resolver.
type ConflictError struct {
	RemoteDoc string
}

// Error implements the error interface.
func (e *ConflictError) Error() string { return "remote version conflict" }

// RemoteError is any non-conflict failure of a remote call. Transient
// errors (network, timeout, 408/429/5xx) retry up to the full ceiling;
// permanent ones (other 4xx) get a conservative shorter leash before the
// DLQ, since status codes alone can misclassify.
type RemoteError struct {
	Status    int // 0 for transport-level failures
	Transient bool
	Msg       string
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("remote call failed: %s", e.Msg)
	}
	return fmt.Sprintf("remote returned %d: %s", e.Status, e.Msg)
}

// IsTransient reports whether err is a retryable remote failure.
func IsTransient(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Transient
}

// Registry holds one adapter per entity kind.
type Registry map[domain.EntityKind]Adapter

// NewRegistry wires every known entity kind to its adapter over the given
// client.
func NewRegistry(client *RemoteClient) Registry {
	reg := Registry{}
	for _, a := range []Adapter{
		NewMoodEntryAdapter(client),
		NewUserProfileAdapter(client),
		NewAchievementAdapter(client),
		NewVoiceCheckinAdapter(client),
		NewAIProfileAdapter(client),
		NewTreatmentPlanAdapter(client),
	} {
		reg[a.Kind()] = a
	}
	return reg
}

// Get returns the adapter for kind, or an error for kinds the registry does
// not serve. The validator makes this unreachable for admitted items; the
// check guards replayed DLQ rows from older schema versions.
func (r Registry) Get(kind domain.EntityKind) (Adapter, error) {
	a, ok := r[kind]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for entity kind %q", kind)
	}
	return a, nil
}
