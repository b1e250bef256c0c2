// Package repo implements the data persistence layer for the sync engine,
// backed by GORM. This file provides repository functions for the dead
// letter queue: terminal storage for items that exhausted their retries.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/moodpulse/go-sync-engine/internal/domain"
)

// ArchiveDeadLetter atomically moves a queue item into the DLQ: the archive
// row is inserted and the live row deleted in one transaction, so an item
// is never present in both stores or in neither.
func ArchiveDeadLetter(ctx context.Context, db *gorm.DB, item *domain.SyncQueueItem, errMsg string, now time.Time) (*domain.DeadLetterItem, error) {
	dead := domain.NewDeadLetter(item, errMsg, now)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(dead).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", item.ID).Delete(&domain.SyncQueueItem{}).Error
	})
	if err != nil {
		return nil, err
	}
	return dead, nil
}

// GetDeadLetter fetches a single archived item by id, or ErrNotFound.
func GetDeadLetter(ctx context.Context, db *gorm.DB, id string) (*domain.DeadLetterItem, error) {
	var d domain.DeadLetterItem
	err := db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDeadLetters returns archived items, most recently archived first.
func ListDeadLetters(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.DeadLetterItem, error) {
	var out []domain.DeadLetterItem
	err := db.WithContext(ctx).
		Order("archived_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountDeadLetters returns the DLQ depth.
func CountDeadLetters(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.DeadLetterItem{}).
		Count(&total).Error
	return total, err
}

// ReplayDeadLetter moves an archived item back into the live queue with its
// retry state reset, in a single transaction. Returns the re-enqueued item
// or ErrNotFound when the id is not archived.
func ReplayDeadLetter(ctx context.Context, db *gorm.DB, id string, now time.Time) (*domain.SyncQueueItem, error) {
	var revived *domain.SyncQueueItem
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d domain.DeadLetterItem
		if err := tx.Where("id = ?", id).First(&d).Error; err != nil {
			return err
		}
		revived = d.ToQueueItem(now)
		if err := tx.Create(revived).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&domain.DeadLetterItem{}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return revived, nil
}

// PurgeDeadLetters removes archived items older than the cutoff and returns
// the number of rows deleted.
func PurgeDeadLetters(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("archived_at < ?", cutoff).
		Delete(&domain.DeadLetterItem{})
	return res.RowsAffected, res.Error
}
