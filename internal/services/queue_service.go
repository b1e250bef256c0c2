// Package services – QueueService
//
// This file implements the enqueue path: the only way mutations enter the
// engine. Every submission runs through the Validator before touching the
// store, so the queue never holds an item the scheduler or adapters cannot
// handle. Readers get snapshots (value copies), never live references into
// the store.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/moodpulse/go-sync-engine/internal/domain"
	"github.com/moodpulse/go-sync-engine/internal/repo"
)

// EnqueueRequest is a single mutation submission.
type EnqueueRequest struct {
	OwnerID       string
	EntityKind    domain.EntityKind
	OperationKind domain.OperationKind
	Payload       json.RawMessage
}

// QueueSnapshot is a point-in-time view of the engine's stores for UI and
// metrics consumers.
type QueueSnapshot struct {
	Pending       int64                       `json:"pending"`
	PendingByKind map[domain.EntityKind]int64 `json:"pending_by_kind"`
	DeadLettered  int64                       `json:"dead_lettered"`
	Unresolved    int64                       `json:"unresolved_conflicts"`
	TakenAt       time.Time                   `json:"taken_at"`
}

// QueueService admits mutations into the durable queue.
type QueueService struct {
	DB        *gorm.DB
	Validator *Validator
	Log       zerolog.Logger
}

// NewQueueService constructs a QueueService.
func NewQueueService(db *gorm.DB, log zerolog.Logger) *QueueService {
	return &QueueService{
		DB:        db,
		Validator: NewValidator(),
		Log:       log.With().Str("component", "queue").Logger(),
	}
}

// Enqueue validates, sanitizes, and persists a single mutation. Priority is
// derived from the entity kind; the caller never chooses it. Re-submitting
// an id that is already queued returns the stored item unchanged (idempotent
// enqueue), so callers can safely retry their own submission path.
func (s *QueueService) Enqueue(ctx context.Context, req EnqueueRequest) (*domain.SyncQueueItem, error) {
	item, err := s.build(req)
	if err != nil {
		return nil, err
	}
	if err := repo.InsertItem(ctx, s.DB, item); err != nil {
		if errors.Is(err, repo.ErrDuplicateID) {
			s.Log.Debug().Str("item_id", item.ID).Msg("duplicate enqueue ignored")
			return item, nil
		}
		return nil, err
	}
	s.Log.Info().
		Str("item_id", item.ID).
		Str("owner_id", item.OwnerID).
		Str("entity_kind", string(item.EntityKind)).
		Str("operation", string(item.OperationKind)).
		Msg("item enqueued")
	return item, nil
}

// EnqueueBatch validates and persists a group of same-kind mutations under
// a shared batch id, atomically: either the whole batch is admitted or none
// of it is. Items keep their individual owners; scheduling treats them like
// any other items.
func (s *QueueService) EnqueueBatch(ctx context.Context, reqs []EnqueueRequest) (string, []*domain.SyncQueueItem, error) {
	if len(reqs) == 0 {
		return "", nil, ErrEmptyBatch
	}
	kind := reqs[0].EntityKind
	for _, r := range reqs[1:] {
		if r.EntityKind != kind {
			return "", nil, ErrMixedBatch
		}
	}

	batchID := uuid.NewString()
	items := make([]*domain.SyncQueueItem, 0, len(reqs))
	for _, r := range reqs {
		item, err := s.build(r)
		if err != nil {
			return "", nil, err
		}
		item.BatchID = batchID
		items = append(items, item)
	}

	if err := repo.InsertItems(ctx, s.DB, items); err != nil {
		if errors.Is(err, repo.ErrDuplicateID) {
			return "", nil, ErrDuplicateItem
		}
		return "", nil, err
	}
	s.Log.Info().
		Str("batch_id", batchID).
		Int("items", len(items)).
		Str("entity_kind", string(kind)).
		Msg("batch enqueued")
	return batchID, items, nil
}

// ListPage returns a page of pending items in dispatch order, plus the
// total queue depth for pagination metadata.
func (s *QueueService) ListPage(ctx context.Context, page, pageSize int) ([]domain.SyncQueueItem, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := repo.CountPending(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.SyncQueueItem{}, 0, nil
	}
	items, err := repo.ListPendingPage(ctx, s.DB, (page-1)*pageSize, pageSize)
	return items, total, err
}

// Snapshot returns current queue, DLQ, and conflict depths.
func (s *QueueService) Snapshot(ctx context.Context) (*QueueSnapshot, error) {
	pending, err := repo.CountPending(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	byKind, err := repo.CountPendingByKind(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	dead, err := repo.CountDeadLetters(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	unresolved, err := repo.CountConflicts(ctx, s.DB, true)
	if err != nil {
		return nil, err
	}
	return &QueueSnapshot{
		Pending:       pending,
		PendingByKind: byKind,
		DeadLettered:  dead,
		Unresolved:    unresolved,
		TakenAt:       time.Now().UTC(),
	}, nil
}

// build assembles and validates a queue item from a request. The payload's
// embedded id (when present) is preserved; the item id itself is always
// freshly generated here, never caller-supplied.
func (s *QueueService) build(req EnqueueRequest) (*domain.SyncQueueItem, error) {
	now := time.Now().UTC()
	item := &domain.SyncQueueItem{
		ID:            uuid.NewString(),
		OwnerID:       req.OwnerID,
		EntityKind:    req.EntityKind,
		OperationKind: req.OperationKind,
		Payload:       string(req.Payload),
		EnqueuedAt:    now,
		NextAttemptAt: now,
	}
	if err := s.Validator.Validate(item); err != nil {
		s.Log.Warn().
			Err(err).
			Str("owner_id", req.OwnerID).
			Str("entity_kind", string(req.EntityKind)).
			Msg("item rejected at enqueue")
		return nil, err
	}
	return item, nil
}
