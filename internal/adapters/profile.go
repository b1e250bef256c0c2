// User profile adapter.
package adapters

import (
	"context"

	"github.com/moodpulse/go-sync-engine/internal/domain"
)

// UserProfileAdapter syncs user-profile items to /v1/profiles. Profiles are
// single-row-per-user on the remote; creates and updates are both upserts
// keyed by the profile id.
type UserProfileAdapter struct {
	entityAdapter
}

// NewUserProfileAdapter constructs the adapter over client.
func NewUserProfileAdapter(client *RemoteClient) *UserProfileAdapter {
	return &UserProfileAdapter{entityAdapter{
		kind:   domain.KindUserProfile,
		path:   "/v1/profiles",
		client: client,
	}}
}

// Apply dispatches the item's operation to the profile collection.
func (a *UserProfileAdapter) Apply(ctx context.Context, item *domain.SyncQueueItem) (string, error) {
	p, err := a.decode(item)
	if err != nil {
		return "", err
	}
	profile := p.(*domain.UserProfilePayload)
	return a.client.apply(ctx, a.path, item, profile.ID, item.Payload, false)
}
