package services

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/moodpulse/go-sync-engine/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("services_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Release the file handle before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := db.AutoMigrate(&domain.SyncQueueItem{}, &domain.DeadLetterItem{}, &domain.ConflictRecord{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testItem(id, owner string, kind domain.EntityKind, enq time.Time) *domain.SyncQueueItem {
	return &domain.SyncQueueItem{
		ID:            id,
		OwnerID:       owner,
		EntityKind:    kind,
		OperationKind: domain.OpCreate,
		Priority:      domain.PriorityFor(kind),
		Payload:       fmt.Sprintf(`{"id":%q,"mood":"calm","intensity":5,"recorded_at":"2026-06-01T10:00:00Z","updated_at":"2026-06-01T10:00:00Z"}`, id),
		EnqueuedAt:    enq,
		NextAttemptAt: enq,
	}
}
