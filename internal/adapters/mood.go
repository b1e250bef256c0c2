// Mood entry adapter.
//
// Mood entries are the app's highest-volume record: one row per check-in,
// authored offline more often than not. The remote collection upserts by id,
// so a retried create lands on the same row.
package adapters

import (
	"context"
	"encoding/json"

	"github.com/moodpulse/go-sync-engine/internal/domain"
)

// MoodEntryAdapter syncs mood-entry items to /v1/mood-entries.
type MoodEntryAdapter struct {
	entityAdapter
}

// NewMoodEntryAdapter constructs the adapter over client.
func NewMoodEntryAdapter(client *RemoteClient) *MoodEntryAdapter {
	return &MoodEntryAdapter{entityAdapter{
		kind:   domain.KindMoodEntry,
		path:   "/v1/mood-entries",
		client: client,
	}}
}

// Apply dispatches the item's operation to the mood entry collection.
func (a *MoodEntryAdapter) Apply(ctx context.Context, item *domain.SyncQueueItem) (string, error) {
	p, err := a.decode(item)
	if err != nil {
		return "", err
	}
	entry := p.(*domain.MoodEntryPayload)

	// Intensity outside the 1..10 scale is clamped rather than rejected;
	// older app builds emitted 0 for "unset".
	if entry.Intensity < 1 {
		entry.Intensity = 1
	}
	if entry.Intensity > 10 {
		entry.Intensity = 10
	}

	body, err := json.Marshal(entry)
	if err != nil {
		return "", &RemoteError{Msg: err.Error()}
	}
	return a.client.apply(ctx, a.path, item, entry.ID, string(body), false)
}
