package domain

import (
	"testing"
	"time"
)

func TestNewDeadLetter_CarriesItemState(t *testing.T) {
	enq := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := enq.Add(time.Hour)
	item := &SyncQueueItem{
		ID:            "11111111-1111-1111-1111-111111111111",
		OwnerID:       "owner-1",
		EntityKind:    KindMoodEntry,
		OperationKind: OpCreate,
		Priority:      PriorityHigh,
		Payload:       `{"id":"m1"}`,
		BatchID:       "batch-1",
		RetryCount:    8,
		EnqueuedAt:    enq,
	}

	dl := NewDeadLetter(item, "remote 503", now)
	if dl.ID != item.ID || dl.OwnerID != item.OwnerID || dl.Payload != item.Payload {
		t.Fatalf("identity fields not carried: %+v", dl)
	}
	if dl.RetryCount != 8 {
		t.Fatalf("RetryCount = %d; want 8 (attempt history must survive archiving)", dl.RetryCount)
	}
	if dl.ErrorMessage != "remote 503" {
		t.Fatalf("ErrorMessage = %q", dl.ErrorMessage)
	}
	if !dl.ArchivedAt.Equal(now) || !dl.EnqueuedAt.Equal(enq) {
		t.Fatalf("timestamps wrong: archived=%v enqueued=%v", dl.ArchivedAt, dl.EnqueuedAt)
	}
}

func TestDeadLetter_ToQueueItem_ResetsRetryState(t *testing.T) {
	enq := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := enq.Add(2 * time.Hour)
	dl := &DeadLetterItem{
		ID:            "22222222-2222-2222-2222-222222222222",
		OwnerID:       "owner-2",
		EntityKind:    KindTreatmentPlan,
		OperationKind: OpUpdate,
		Priority:      PriorityCritical,
		Payload:       `{"id":"tp1"}`,
		RetryCount:    8,
		ErrorMessage:  "gave up",
		EnqueuedAt:    enq,
		ArchivedAt:    now.Add(-time.Hour),
	}

	item := dl.ToQueueItem(now)
	if item.RetryCount != 0 || item.LastError != "" {
		t.Fatalf("replayed item must have fresh retry state: %+v", item)
	}
	if !item.NextAttemptAt.Equal(now) {
		t.Fatalf("NextAttemptAt = %v; want %v (eligible immediately)", item.NextAttemptAt, now)
	}
	if !item.EnqueuedAt.Equal(enq) {
		t.Fatalf("original enqueue time must survive replay, got %v", item.EnqueuedAt)
	}
	if item.Priority != PriorityCritical || item.EntityKind != KindTreatmentPlan {
		t.Fatalf("ordering fields not carried: %+v", item)
	}
}

func TestTableNames(t *testing.T) {
	if (SyncQueueItem{}).TableName() != "sync_queue_items" {
		t.Fatalf("SyncQueueItem table name")
	}
	if (DeadLetterItem{}).TableName() != "dead_letter_items" {
		t.Fatalf("DeadLetterItem table name")
	}
	if (ConflictRecord{}).TableName() != "conflict_records" {
		t.Fatalf("ConflictRecord table name")
	}
}
