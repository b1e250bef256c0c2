package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/moodpulse/go-sync-engine/internal/domain"
)

func validMoodItem() *domain.SyncQueueItem {
	return &domain.SyncQueueItem{
		OwnerID:       "owner-1",
		EntityKind:    domain.KindMoodEntry,
		OperationKind: domain.OpCreate,
		Payload:       `{"id":"e1","mood":"calm","intensity":5,"note":"fine","recorded_at":"2026-06-01T10:00:00Z","updated_at":"2026-06-01T10:00:00Z"}`,
	}
}

func TestValidate_Rejections(t *testing.T) {
	v := NewValidator()

	cases := []struct {
		name   string
		mutate func(*domain.SyncQueueItem)
		want   error
	}{
		{"missing owner", func(it *domain.SyncQueueItem) { it.OwnerID = "  " }, ErrMissingOwner},
		{"unknown entity kind", func(it *domain.SyncQueueItem) { it.EntityKind = "grocery-list" }, ErrUnknownEntityKind},
		{"unknown operation", func(it *domain.SyncQueueItem) { it.OperationKind = "upsert" }, ErrUnknownOperation},
		{"empty payload", func(it *domain.SyncQueueItem) { it.Payload = "" }, ErrInvalidPayload},
		{"malformed payload", func(it *domain.SyncQueueItem) { it.Payload = `{"id":` }, ErrInvalidPayload},
		{"unknown payload field", func(it *domain.SyncQueueItem) {
			it.Payload = `{"id":"e1","mood":"calm","intensity":5,"recorded_at":"x","updated_at":"x","flavor":"vanilla"}`
		}, ErrInvalidPayload},
		{"oversize payload", func(it *domain.SyncQueueItem) {
			it.Payload = `{"id":"e1","mood":"calm","intensity":5,"recorded_at":"x","updated_at":"x","note":"` +
				strings.Repeat("a", 64<<10) + `"}`
		}, ErrInvalidPayload},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			it := validMoodItem()
			tc.mutate(it)
			if err := v.Validate(it); !errors.Is(err, tc.want) {
				t.Fatalf("Validate = %v; want %v", err, tc.want)
			}
		})
	}
}

func TestValidate_Repairs(t *testing.T) {
	v := NewValidator()
	it := validMoodItem()
	it.RetryCount = 3
	it.LastError = "leftover"
	if err := v.Validate(it); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if it.ID == "" || len(it.ID) != 36 {
		t.Fatalf("expected a generated uuid id, got %q", it.ID)
	}
	if it.Priority != domain.PriorityHigh {
		t.Fatalf("mood entry priority = %v; want high", it.Priority)
	}
	if it.EnqueuedAt.IsZero() || it.NextAttemptAt.IsZero() {
		t.Fatal("timestamps must be filled in")
	}
	if it.RetryCount != 0 || it.LastError != "" || it.LastAttemptAt != nil {
		t.Fatalf("retry bookkeeping must be reset: %+v", it)
	}
}

func TestValidate_PreservesCallerTimestamps(t *testing.T) {
	v := NewValidator()
	it := validMoodItem()
	enq := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	it.EnqueuedAt = enq
	if err := v.Validate(it); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !it.EnqueuedAt.Equal(enq) {
		t.Fatalf("EnqueuedAt rewritten to %v", it.EnqueuedAt)
	}
	if !it.NextAttemptAt.Equal(enq) {
		t.Fatalf("NextAttemptAt = %v; want the enqueue time", it.NextAttemptAt)
	}
}

func TestValidate_SanitizesStrings(t *testing.T) {
	v := NewValidator()
	it := validMoodItem()
	// NFD-decomposed "café", surrounding whitespace, and a NUL byte.
	it.Payload = `{"id":"e1","mood":"calm","intensity":5,"note":"  cafe` + "\u0301\x00" + ` done  ","recorded_at":"2026-06-01T10:00:00Z","updated_at":"2026-06-01T10:00:00Z"}`
	if err := v.Validate(it); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !strings.Contains(it.Payload, `"note":"café done"`) {
		t.Fatalf("note not sanitized: %s", it.Payload)
	}
}

func TestValidate_SanitizesNestedValues(t *testing.T) {
	v := NewValidator()
	it := validMoodItem()
	it.Payload = `{"id":"e1","mood":"calm","intensity":5,"tags":[" sleep` + "\x00" + `  "," work "],"recorded_at":"2026-06-01T10:00:00Z","updated_at":"2026-06-01T10:00:00Z"}`
	if err := v.Validate(it); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !strings.Contains(it.Payload, `"tags":["sleep","work"]`) {
		t.Fatalf("tags not sanitized: %s", it.Payload)
	}
}

func TestValidate_KeepsNewlinesAndTabs(t *testing.T) {
	v := NewValidator()
	it := validMoodItem()
	it.Payload = `{"id":"e1","mood":"calm","intensity":5,"note":"line one\nline\ttwo","recorded_at":"2026-06-01T10:00:00Z","updated_at":"2026-06-01T10:00:00Z"}`
	if err := v.Validate(it); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !strings.Contains(it.Payload, `"note":"line one\nline\ttwo"`) {
		t.Fatalf("newline/tab must survive sanitization: %s", it.Payload)
	}
}

func TestValidate_TruncatesLongStrings(t *testing.T) {
	v := NewValidator()
	it := validMoodItem()
	it.EntityKind = domain.KindVoiceCheckin
	it.Payload = `{"id":"v1","transcript":"` + strings.Repeat("a", 9000) + `","duration_sec":60,"recorded_at":"2026-06-01T10:00:00Z","updated_at":"2026-06-01T10:00:00Z"}`
	if err := v.Validate(it); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	dec, err := domain.DecodePayload(domain.KindVoiceCheckin, []byte(it.Payload))
	if err != nil {
		t.Fatalf("decode sanitized payload: %v", err)
	}
	vc := dec.(*domain.VoiceCheckinPayload)
	if got := len(vc.Transcript); got != maxStringRunes {
		t.Fatalf("transcript length = %d; want capped at %d", got, maxStringRunes)
	}
}
