package adapters

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/moodpulse/go-sync-engine/internal/domain"
)

// entityAdapter carries the pieces every concrete adapter shares: the kind
// it serves, the remote collection path, and the client. Concrete adapters
// embed it and add their typed Apply.
type entityAdapter struct {
	kind   domain.EntityKind
	path   string
	client *RemoteClient
}

// Kind returns the entity kind this adapter serves.
func (a *entityAdapter) Kind() domain.EntityKind { return a.kind }

// ForceApply writes a resolved document remotely, bypassing the version
// check. Always an update: conflicts only arise on updates.
func (a *entityAdapter) ForceApply(ctx context.Context, item *domain.SyncQueueItem, doc string) error {
	entityID, err := docID(doc)
	if err != nil {
		return err
	}
	forced := *item
	forced.OperationKind = domain.OpUpdate
	_, err = a.client.apply(ctx, a.path, &forced, entityID, doc, true)
	return err
}

// decode parses the item payload into the typed shape for this adapter's
// kind, catching schema drift that slipped past enqueue-time validation
// (e.g. replayed DLQ rows written by an older build).
func (a *entityAdapter) decode(item *domain.SyncQueueItem) (any, error) {
	p, err := domain.DecodePayload(a.kind, []byte(item.Payload))
	if err != nil {
		return nil, &RemoteError{Msg: err.Error()}
	}
	return p, nil
}

// docID pulls the entity id out of a raw JSON document.
func docID(doc string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return "", fmt.Errorf("resolved document: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("resolved document has no id")
	}
	return out.ID, nil
}
