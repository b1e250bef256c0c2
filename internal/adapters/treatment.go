// Treatment plan adapter.
package adapters

import (
	"context"

	"github.com/moodpulse/go-sync-engine/internal/domain"
)

// TreatmentPlanAdapter syncs treatment-plan items to /v1/treatment-plans.
// Plans are the only clinician-visible record the device writes, which is
// why their queue priority is critical.
type TreatmentPlanAdapter struct {
	entityAdapter
}

// NewTreatmentPlanAdapter constructs the adapter over client.
func NewTreatmentPlanAdapter(client *RemoteClient) *TreatmentPlanAdapter {
	return &TreatmentPlanAdapter{entityAdapter{
		kind:   domain.KindTreatmentPlan,
		path:   "/v1/treatment-plans",
		client: client,
	}}
}

// Apply dispatches the item's operation to the treatment plan collection.
func (a *TreatmentPlanAdapter) Apply(ctx context.Context, item *domain.SyncQueueItem) (string, error) {
	p, err := a.decode(item)
	if err != nil {
		return "", err
	}
	plan := p.(*domain.TreatmentPlanPayload)
	return a.client.apply(ctx, a.path, item, plan.ID, item.Payload, false)
}
