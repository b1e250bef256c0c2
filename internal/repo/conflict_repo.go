// Package repo implements the data persistence layer for the sync engine,
// backed by GORM. This file provides repository functions for conflict
// records produced when local and remote versions of a record diverge.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/moodpulse/go-sync-engine/internal/domain"
)

// InsertConflict persists a conflict record, resolved or not.
func InsertConflict(ctx context.Context, db *gorm.DB, rec *domain.ConflictRecord) error {
	return db.WithContext(ctx).Create(rec).Error
}

// ListConflicts returns conflict records, newest first. When unresolvedOnly
// is set, only records awaiting manual or policy-driven resolution are
// returned.
func ListConflicts(ctx context.Context, db *gorm.DB, unresolvedOnly bool, offset, limit int) ([]domain.ConflictRecord, error) {
	q := db.WithContext(ctx).Order("created_at desc")
	if unresolvedOnly {
		q = q.Where("resolved = ?", false)
	}
	var out []domain.ConflictRecord
	err := q.Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}

// CountConflicts returns the number of stored conflict records.
func CountConflicts(ctx context.Context, db *gorm.DB, unresolvedOnly bool) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.ConflictRecord{})
	if unresolvedOnly {
		q = q.Where("resolved = ?", false)
	}
	var total int64
	err := q.Count(&total).Error
	return total, err
}
