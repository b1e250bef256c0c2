// Package services – item validation and sanitization.
//
// Every mutation passes through Validate before it is admitted to the queue.
// Structurally invalid items (missing owner, unknown kinds, malformed
// payloads) are rejected outright so a poison pill can never block the
// queue; repairable defects (missing id, messy whitespace, stray control
// characters, denormalized unicode) are fixed in place.
package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/moodpulse/go-sync-engine/internal/domain"
)

const (
	// maxStringRunes caps any single sanitized string field. Voice
	// transcripts are the longest legitimate field; anything beyond this is
	// truncated rather than rejected.
	maxStringRunes = 8192

	// maxPayloadBytes bounds the serialized payload document.
	maxPayloadBytes = 64 << 10
)

// Validator admits, repairs, or rejects queue items before persistence.
type Validator struct{}

// NewValidator constructs a Validator.
func NewValidator() *Validator { return &Validator{} }

// Validate checks the item's structure and sanitizes its payload in place.
// On success the item carries a normalized payload document and a non-empty
// id. Rejections return one of the enqueue-path sentinel errors, wrapped
// with detail.
func (v *Validator) Validate(item *domain.SyncQueueItem) error {
	if strings.TrimSpace(item.OwnerID) == "" {
		return ErrMissingOwner
	}
	if !item.EntityKind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownEntityKind, item.EntityKind)
	}
	if !item.OperationKind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOperation, item.OperationKind)
	}
	if strings.TrimSpace(item.Payload) == "" {
		return fmt.Errorf("%w: empty document", ErrInvalidPayload)
	}
	if len(item.Payload) > maxPayloadBytes {
		return fmt.Errorf("%w: document exceeds %d bytes", ErrInvalidPayload, maxPayloadBytes)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(item.Payload), &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	sanitizeDoc(doc)

	// The document must decode into its entity kind's typed shape; unknown
	// fields fail here instead of at the remote.
	cleaned, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if _, err := domain.DecodePayload(item.EntityKind, cleaned); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	item.Payload = string(cleaned)

	// Repairs
	if strings.TrimSpace(item.ID) == "" {
		item.ID = uuid.NewString()
	}
	item.Priority = domain.PriorityFor(item.EntityKind)
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now().UTC()
	}
	if item.NextAttemptAt.IsZero() {
		item.NextAttemptAt = item.EnqueuedAt
	}
	item.RetryCount = 0
	item.LastAttemptAt = nil
	item.LastError = ""

	return nil
}

// sanitizeDoc walks a decoded payload document and cleans every string
// value: trim, NFC-normalize, strip control characters, cap length. Nested
// objects and arrays are walked recursively.
func sanitizeDoc(doc map[string]any) {
	for k, val := range doc {
		doc[k] = sanitizeValue(val)
	}
}

func sanitizeValue(val any) any {
	switch t := val.(type) {
	case string:
		return sanitizeString(t)
	case map[string]any:
		sanitizeDoc(t)
		return t
	case []any:
		for i, e := range t {
			t[i] = sanitizeValue(e)
		}
		return t
	default:
		return val
	}
}

// sanitizeString normalizes user-authored text. Mood notes and transcripts
// arrive from mobile keyboards and speech pipelines in mixed normalization
// forms; NFC keeps remote-side equality checks byte-stable.
func sanitizeString(s string) string {
	s = strings.TrimSpace(s)
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	if utf8.RuneCountInString(s) > maxStringRunes {
		s = string([]rune(s)[:maxStringRunes])
	}
	return s
}
