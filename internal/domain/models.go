// Package domain defines the persistence models for the sync engine. These
// types are mapped with GORM onto the local SQLite store, which is the single
// durable source of truth for pending mutations on the device.
package domain

import (
	"time"
)

// SyncQueueItem is a single pending mutation awaiting application to the
// remote backend. Items are append/remove only: once stored, the payload is
// never edited in place. The coordinator alone updates the retry bookkeeping
// columns (RetryCount, LastAttemptAt, NextAttemptAt, LastError).
//
// Fields:
//   - ID: random UUID primary key; doubles as the idempotency key presented
//     to the remote side on every attempt.
//   - OwnerID: the user the mutation belongs to. Items sharing an owner are
//     applied strictly in enqueue order.
//   - EntityKind / OperationKind: dispatch key for the entity adapters.
//   - Priority: weight derived from EntityKind at enqueue time.
//   - Payload: the entity document as a JSON object, opaque to the queue.
//   - BatchID: optional group tag for bulk submissions.
//   - NextAttemptAt: earliest instant the scheduler may hand the item out
//     again; holds the computed backoff after a failed attempt.
type SyncQueueItem struct {
	ID            string        `json:"id"             gorm:"type:char(36);primaryKey"`
	OwnerID       string        `json:"owner_id"       gorm:"type:varchar(64);not null;index:idx_owner_order,priority:1"`
	EntityKind    EntityKind    `json:"entity_kind"    gorm:"type:varchar(32);not null;index"`
	OperationKind OperationKind `json:"operation_kind" gorm:"type:varchar(16);not null;check:operation_kind IN ('create','update','delete')"`
	Priority      Priority      `json:"priority"       gorm:"not null;index:idx_dispatch,priority:1,sort:desc"`
	Payload       string        `json:"payload"        gorm:"type:text;not null"`
	BatchID       string        `json:"batch_id,omitempty" gorm:"type:char(36);index"`
	RetryCount    int           `json:"retry_count"    gorm:"not null;default:0"`
	LastError     string        `json:"last_error,omitempty" gorm:"type:text"`
	EnqueuedAt    time.Time     `json:"enqueued_at"    gorm:"not null;index:idx_owner_order,priority:2;index:idx_dispatch,priority:2"`
	LastAttemptAt *time.Time    `json:"last_attempt_at,omitempty"`
	NextAttemptAt time.Time     `json:"next_attempt_at" gorm:"not null;index"`
}

// TableName returns the database table name for SyncQueueItem.
func (SyncQueueItem) TableName() string { return "sync_queue_items" }

// DeadLetterItem wraps a terminally failed SyncQueueItem. It retains every
// field needed to re-enqueue the mutation after a remote-side fix, plus the
// error that exhausted the retries.
type DeadLetterItem struct {
	ID            string        `json:"id"             gorm:"type:char(36);primaryKey"`
	OwnerID       string        `json:"owner_id"       gorm:"type:varchar(64);not null;index"`
	EntityKind    EntityKind    `json:"entity_kind"    gorm:"type:varchar(32);not null"`
	OperationKind OperationKind `json:"operation_kind" gorm:"type:varchar(16);not null"`
	Priority      Priority      `json:"priority"       gorm:"not null"`
	Payload       string        `json:"payload"        gorm:"type:text;not null"`
	BatchID       string        `json:"batch_id,omitempty" gorm:"type:char(36)"`
	RetryCount    int           `json:"retry_count"    gorm:"not null"`
	ErrorMessage  string        `json:"error_message"  gorm:"type:text;not null"`
	EnqueuedAt    time.Time     `json:"enqueued_at"    gorm:"not null"`
	ArchivedAt    time.Time     `json:"archived_at"    gorm:"not null;index"`
}

// TableName returns the database table name for DeadLetterItem.
func (DeadLetterItem) TableName() string { return "dead_letter_items" }

// ToQueueItem converts an archived item back into a live queue item with the
// retry state reset. Used by DLQ replay.
func (d *DeadLetterItem) ToQueueItem(now time.Time) *SyncQueueItem {
	return &SyncQueueItem{
		ID:            d.ID,
		OwnerID:       d.OwnerID,
		EntityKind:    d.EntityKind,
		OperationKind: d.OperationKind,
		Priority:      d.Priority,
		Payload:       d.Payload,
		BatchID:       d.BatchID,
		RetryCount:    0,
		EnqueuedAt:    d.EnqueuedAt,
		NextAttemptAt: now,
	}
}

// NewDeadLetter archives a queue item with the error that killed it.
func NewDeadLetter(item *SyncQueueItem, errMsg string, now time.Time) *DeadLetterItem {
	return &DeadLetterItem{
		ID:            item.ID,
		OwnerID:       item.OwnerID,
		EntityKind:    item.EntityKind,
		OperationKind: item.OperationKind,
		Priority:      item.Priority,
		Payload:       item.Payload,
		BatchID:       item.BatchID,
		RetryCount:    item.RetryCount,
		ErrorMessage:  errMsg,
		EnqueuedAt:    item.EnqueuedAt,
		ArchivedAt:    now,
	}
}

// ConflictRecord captures a local/remote divergence of the same logical
// record. Resolved records carry the document that was written back to the
// remote; unresolved ones hold both versions for later manual or
// policy-driven resolution. Nothing is discarded silently.
type ConflictRecord struct {
	ID          string     `json:"id"           gorm:"type:char(36);primaryKey"`
	OwnerID     string     `json:"owner_id"     gorm:"type:varchar(64);not null;index"`
	EntityKind  EntityKind `json:"entity_kind"  gorm:"type:varchar(32);not null"`
	EntityID    string     `json:"entity_id"    gorm:"type:char(36);not null;index"`
	Strategy    string     `json:"strategy"     gorm:"type:varchar(32);not null"`
	LocalDoc    string     `json:"local_doc"    gorm:"type:text;not null"`
	RemoteDoc   string     `json:"remote_doc"   gorm:"type:text;not null"`
	ResolvedDoc string     `json:"resolved_doc,omitempty" gorm:"type:text"`
	Resolved    bool       `json:"resolved"     gorm:"not null;index"`
	CreatedAt   time.Time  `json:"created_at"   gorm:"not null"`
}

// TableName returns the database table name for ConflictRecord.
func (ConflictRecord) TableName() string { return "conflict_records" }
