// Package services – DLQService
//
// The dead letter queue is terminal storage for items that exhausted their
// retries. Nothing is silently dropped: archived items keep the full
// original mutation and the error that killed it, and can be replayed into
// the live queue after a remote-side fix or user action.
//
// This file also owns scheduled maintenance: purging archived items past
// the retention window and discarding live items that sat pending longer
// than the staleness threshold (abandoned mutations from removed accounts
// or very old app builds).
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/moodpulse/go-sync-engine/internal/domain"
	"github.com/moodpulse/go-sync-engine/internal/repo"
)

// DLQService manages the dead letter queue and store maintenance.
type DLQService struct {
	DB  *gorm.DB
	Log zerolog.Logger

	Retention    time.Duration // archived items older than this are purged
	StalePending time.Duration // live items older than this are discarded
}

// NewDLQService constructs a DLQService.
func NewDLQService(db *gorm.DB, retention, stalePending time.Duration, log zerolog.Logger) *DLQService {
	return &DLQService{
		DB:           db,
		Log:          log.With().Str("component", "dlq").Logger(),
		Retention:    retention,
		StalePending: stalePending,
	}
}

// ListPage returns archived items, newest first, with the total DLQ depth.
func (s *DLQService) ListPage(ctx context.Context, page, pageSize int) ([]domain.DeadLetterItem, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := repo.CountDeadLetters(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.DeadLetterItem{}, 0, nil
	}
	items, err := repo.ListDeadLetters(ctx, s.DB, (page-1)*pageSize, pageSize)
	return items, total, err
}

// Replay moves an archived item back into the live queue with its retry
// count reset to zero. The revived item keeps its original id (still the
// idempotency key) and enqueue time, so per-owner ordering against newer
// mutations is preserved.
func (s *DLQService) Replay(ctx context.Context, id string) (*domain.SyncQueueItem, error) {
	item, err := repo.ReplayDeadLetter(ctx, s.DB, id, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	s.Log.Info().Str("item_id", id).Msg("dead letter replayed")
	return item, nil
}

// Purge removes archived items older than the cutoff and returns how many
// were dropped.
func (s *DLQService) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	return repo.PurgeDeadLetters(ctx, s.DB, olderThan)
}

// Maintain runs one maintenance sweep: DLQ retention purge plus live-queue
// staleness cleanup. Errors are logged, not fatal; the next sweep retries.
func (s *DLQService) Maintain(ctx context.Context) {
	now := time.Now().UTC()

	if n, err := s.Purge(ctx, now.Add(-s.Retention)); err != nil {
		s.Log.Error().Err(err).Msg("dlq purge failed")
	} else if n > 0 {
		s.Log.Info().Int64("purged", n).Msg("dlq retention purge")
	}

	if n, err := repo.DeleteStalePending(ctx, s.DB, now.Add(-s.StalePending)); err != nil {
		s.Log.Error().Err(err).Msg("stale pending sweep failed")
	} else if n > 0 {
		s.Log.Warn().Int64("discarded", n).Msg("stale pending items discarded")
	}
}

// RunMaintenance sweeps on the given interval until ctx is cancelled.
func (s *DLQService) RunMaintenance(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Maintain(ctx)
		}
	}
}
