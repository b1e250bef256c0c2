package domain

import "testing"

func TestDecodePayload_TypedByKind(t *testing.T) {
	doc := []byte(`{"id":"m1","mood":"calm","intensity":4,"tags":["evening"],"recorded_at":"2026-03-01T10:00:00Z","updated_at":"2026-03-01T10:00:00Z"}`)
	v, err := DecodePayload(KindMoodEntry, doc)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	entry, ok := v.(*MoodEntryPayload)
	if !ok {
		t.Fatalf("expected *MoodEntryPayload, got %T", v)
	}
	if entry.ID != "m1" || entry.Mood != "calm" || entry.Intensity != 4 {
		t.Fatalf("decoded fields wrong: %+v", entry)
	}
}

func TestDecodePayload_RejectsUnknownFields(t *testing.T) {
	doc := []byte(`{"id":"m1","mood":"calm","bogus_field":true}`)
	if _, err := DecodePayload(KindMoodEntry, doc); err == nil {
		t.Fatalf("expected unknown-field rejection")
	}
}

func TestDecodePayload_RejectsUnknownKind(t *testing.T) {
	if _, err := DecodePayload(EntityKind("journal"), []byte(`{}`)); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestDecodePayload_RejectsMalformedJSON(t *testing.T) {
	if _, err := DecodePayload(KindUserProfile, []byte(`{"id":`)); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
}

func TestMergeableListFields(t *testing.T) {
	if got := MergeableListFields(KindMoodEntry); len(got) != 1 || got[0] != "tags" {
		t.Fatalf("mood-entry merge fields = %v", got)
	}
	if got := MergeableListFields(KindTreatmentPlan); len(got) != 1 || got[0] != "steps" {
		t.Fatalf("treatment-plan merge fields = %v", got)
	}
	if got := MergeableListFields(KindAchievement); got != nil {
		t.Fatalf("achievement should have no merge fields, got %v", got)
	}
}
