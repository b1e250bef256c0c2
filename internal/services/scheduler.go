// Package services – priority scheduler.
//
// The scheduler decides which pending items a sync pass may dispatch next.
// Ordering is priority weight first (critical > high > normal > low), then
// enqueue time ascending, so a priority band drains strictly FIFO. Per-owner
// serialization is enforced structurally: a batch never contains two items
// for the same owner, and an owner whose head item is still backing off
// contributes nothing this round rather than leaking a later item out of
// order.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/moodpulse/go-sync-engine/internal/domain"
	"github.com/moodpulse/go-sync-engine/internal/repo"
)

// Scheduler selects the next batch of dispatchable items.
type Scheduler struct {
	DB *gorm.DB
}

// NewScheduler constructs a Scheduler over the queue store.
func NewScheduler(db *gorm.DB) *Scheduler {
	return &Scheduler{DB: db}
}

// NextBatch returns up to maxSize items eligible for dispatch at now,
// skipping owners already in flight. It never blocks: when every owner with
// pending work is in flight or backing off, the batch is empty and the
// caller decides whether to wait or finish the pass.
//
// Eligibility per owner: take the owner's head item in dispatch order
// (priority desc, enqueued_at asc). If that item's next_attempt_at is in
// the future the owner is skipped entirely for this round; dispatching a
// later item would reorder the owner's mutations.
func (s *Scheduler) NextBatch(ctx context.Context, maxSize int, inflight map[string]bool, now time.Time) ([]domain.SyncQueueItem, error) {
	if maxSize <= 0 {
		return nil, nil
	}

	pending, err := repo.ListPending(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	batch := make([]domain.SyncQueueItem, 0, maxSize)
	seen := make(map[string]bool, len(inflight))
	for _, it := range pending {
		if len(batch) >= maxSize {
			break
		}
		if seen[it.OwnerID] || inflight[it.OwnerID] {
			continue
		}
		// First item encountered for this owner is its head; whatever
		// happens, the owner is done for this round.
		seen[it.OwnerID] = true
		if it.NextAttemptAt.After(now) {
			continue
		}
		batch = append(batch, it)
	}
	return batch, nil
}
