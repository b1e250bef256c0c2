// Package repo implements the data persistence layer for the sync engine,
// backed by GORM. This file provides repository functions for the live
// mutation queue.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When an item is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Inserting an item whose ID already exists returns ErrDuplicateID so
//     callers can treat re-submission as idempotent.
//   - On other DB errors (connectivity, corruption, etc.), the raw gorm
//     error is propagated.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/moodpulse/go-sync-engine/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicateID indicates an insert collided with an existing primary key.
var ErrDuplicateID = errors.New("duplicate item id")

// InsertItem persists a new queue item. The item is stored verbatim; the
// caller (queue service) is responsible for validation and sanitization.
// Returns ErrDuplicateID when an item with the same ID is already queued.
func InsertItem(ctx context.Context, db *gorm.DB, item *domain.SyncQueueItem) error {
	if err := db.WithContext(ctx).Create(item).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateID
		}
		return err
	}
	return nil
}

// InsertItems persists a group of items in a single transaction, used by
// bulk submission. The whole batch is rejected if any insert fails so that
// callers never see a partial batch.
func InsertItems(ctx context.Context, db *gorm.DB, items []*domain.SyncQueueItem) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, it := range items {
			if err := tx.Create(it).Error; err != nil {
				if isUniqueViolation(err) {
					return ErrDuplicateID
				}
				return err
			}
		}
		return nil
	})
}

// DeleteItems removes items by id. Missing ids are ignored; removal after a
// successful remote apply must not fail because another pass already
// removed the row.
func DeleteItems(ctx context.Context, db *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&domain.SyncQueueItem{}).Error
}

// ListPending returns every queued item in dispatch order: priority weight
// descending, then enqueue time ascending. Readers get value copies, never
// live references into the store.
func ListPending(ctx context.Context, db *gorm.DB) ([]domain.SyncQueueItem, error) {
	var out []domain.SyncQueueItem
	err := db.WithContext(ctx).
		Order("priority desc, enqueued_at asc").
		Find(&out).Error
	return out, err
}

// ListPendingPage returns a page of queued items in dispatch order.
func ListPendingPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.SyncQueueItem, error) {
	var out []domain.SyncQueueItem
	err := db.WithContext(ctx).
		Order("priority desc, enqueued_at asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountPending returns the live queue depth.
func CountPending(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.SyncQueueItem{}).
		Count(&total).Error
	return total, err
}

// CountPendingByKind returns queue depth grouped by entity kind.
func CountPendingByKind(ctx context.Context, db *gorm.DB) (map[domain.EntityKind]int64, error) {
	type row struct {
		EntityKind domain.EntityKind
		N          int64
	}
	var rows []row
	err := db.WithContext(ctx).
		Model(&domain.SyncQueueItem{}).
		Select("entity_kind, count(*) as n").
		Group("entity_kind").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.EntityKind]int64, len(rows))
	for _, r := range rows {
		out[r.EntityKind] = r.N
	}
	return out, nil
}

// MarkAttempt records a failed attempt: bumps retry_count, stamps
// last_attempt_at, stores the error, and schedules the next eligibility
// instant. This is the only in-place mutation the queue permits, and only
// the coordinator calls it.
func MarkAttempt(ctx context.Context, db *gorm.DB, id string, attemptAt, nextAttemptAt time.Time, lastErr string) error {
	res := db.WithContext(ctx).
		Model(&domain.SyncQueueItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"retry_count":     gorm.Expr("retry_count + 1"),
			"last_attempt_at": attemptAt,
			"next_attempt_at": nextAttemptAt,
			"last_error":      lastErr,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Reschedule moves an item's eligibility forward without counting an
// attempt. Used when the circuit breaker refuses the call before any
// network traffic happens.
func Reschedule(ctx context.Context, db *gorm.DB, id string, nextAttemptAt time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.SyncQueueItem{}).
		Where("id = ?", id).
		Update("next_attempt_at", nextAttemptAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteStalePending removes pending items enqueued before the cutoff.
// Returns the number of rows discarded. This bounds queue growth from
// abandoned mutations and is distinct from DLQ retention.
func DeleteStalePending(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("enqueued_at < ?", cutoff).
		Delete(&domain.SyncQueueItem{})
	return res.RowsAffected, res.Error
}

// isUniqueViolation detects primary-key/unique collisions across the error
// shapes the pure-Go SQLite driver produces.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
