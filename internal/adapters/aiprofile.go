// AI profile adapter.
package adapters

import (
	"context"

	"github.com/moodpulse/go-sync-engine/internal/domain"
)

// AIProfileAdapter syncs the locally derived classification profile to
// /v1/ai-profiles. The document is device-computed and fully replaced on
// every sync; deletes clear the remote copy when the user opts out.
type AIProfileAdapter struct {
	entityAdapter
}

// NewAIProfileAdapter constructs the adapter over client.
func NewAIProfileAdapter(client *RemoteClient) *AIProfileAdapter {
	return &AIProfileAdapter{entityAdapter{
		kind:   domain.KindAIProfile,
		path:   "/v1/ai-profiles",
		client: client,
	}}
}

// Apply dispatches the item's operation to the AI profile collection.
func (a *AIProfileAdapter) Apply(ctx context.Context, item *domain.SyncQueueItem) (string, error) {
	p, err := a.decode(item)
	if err != nil {
		return "", err
	}
	prof := p.(*domain.AIProfilePayload)
	return a.client.apply(ctx, a.path, item, prof.ID, item.Payload, false)
}
