// Achievement adapter.
package adapters

import (
	"context"

	"github.com/moodpulse/go-sync-engine/internal/domain"
)

// AchievementAdapter syncs achievement unlocks to /v1/achievements.
// Achievements are append-only on the remote: updates and deletes are
// accepted for schema symmetry but the backend treats re-unlocks as no-ops.
type AchievementAdapter struct {
	entityAdapter
}

// NewAchievementAdapter constructs the adapter over client.
func NewAchievementAdapter(client *RemoteClient) *AchievementAdapter {
	return &AchievementAdapter{entityAdapter{
		kind:   domain.KindAchievement,
		path:   "/v1/achievements",
		client: client,
	}}
}

// Apply dispatches the item's operation to the achievement collection.
func (a *AchievementAdapter) Apply(ctx context.Context, item *domain.SyncQueueItem) (string, error) {
	p, err := a.decode(item)
	if err != nil {
		return "", err
	}
	ach := p.(*domain.AchievementPayload)
	return a.client.apply(ctx, a.path, item, ach.ID, item.Payload, false)
}
