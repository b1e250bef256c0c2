// Voice check-in adapter.
//
// Check-ins carry the transcript and a pointer to the uploaded audio blob;
// the blob itself is uploaded out of band by the recording pipeline, so the
// adapter only syncs the metadata document.
package adapters

import (
	"context"

	"github.com/moodpulse/go-sync-engine/internal/domain"
)

// VoiceCheckinAdapter syncs voice-checkin items to /v1/voice-checkins.
type VoiceCheckinAdapter struct {
	entityAdapter
}

// NewVoiceCheckinAdapter constructs the adapter over client.
func NewVoiceCheckinAdapter(client *RemoteClient) *VoiceCheckinAdapter {
	return &VoiceCheckinAdapter{entityAdapter{
		kind:   domain.KindVoiceCheckin,
		path:   "/v1/voice-checkins",
		client: client,
	}}
}

// Apply dispatches the item's operation to the voice check-in collection.
func (a *VoiceCheckinAdapter) Apply(ctx context.Context, item *domain.SyncQueueItem) (string, error) {
	p, err := a.decode(item)
	if err != nil {
		return "", err
	}
	checkin := p.(*domain.VoiceCheckinPayload)
	return a.client.apply(ctx, a.path, item, checkin.ID, item.Payload, false)
}
