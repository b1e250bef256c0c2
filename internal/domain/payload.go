// Entity payload shapes.
//
// The queue stores payloads as opaque JSON documents so that enqueueing and
// scheduling stay generic. At the adapter boundary each document is decoded
// into the concrete struct for its entity kind, giving adapters a typed view
// without the queue ever depending on entity schemas.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MoodEntryPayload is a single mood log entry authored on the device.
type MoodEntryPayload struct {
	ID         string   `json:"id"`
	Mood       string   `json:"mood"`
	Intensity  int      `json:"intensity"`
	Note       string   `json:"note,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	RecordedAt string   `json:"recorded_at"`
	UpdatedAt  string   `json:"updated_at"`
}

// UserProfilePayload is the user's editable profile document.
type UserProfilePayload struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"display_name"`
	AvatarURL   string            `json:"avatar_url,omitempty"`
	Timezone    string            `json:"timezone,omitempty"`
	Preferences map[string]string `json:"preferences,omitempty"`
	UpdatedAt   string            `json:"updated_at"`
}

// AchievementPayload records an unlocked gamification achievement.
type AchievementPayload struct {
	ID         string `json:"id"`
	Code       string `json:"code"`
	Points     int    `json:"points"`
	UnlockedAt string `json:"unlocked_at"`
	UpdatedAt  string `json:"updated_at"`
}

// VoiceCheckinPayload is a transcribed voice check-in.
type VoiceCheckinPayload struct {
	ID          string  `json:"id"`
	AudioURL    string  `json:"audio_url,omitempty"`
	Transcript  string  `json:"transcript"`
	DurationSec int     `json:"duration_sec"`
	Sentiment   float64 `json:"sentiment,omitempty"`
	RecordedAt  string  `json:"recorded_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// AIProfilePayload is the locally derived AI classification profile.
type AIProfilePayload struct {
	ID           string             `json:"id"`
	Traits       map[string]float64 `json:"traits,omitempty"`
	ModelVersion string             `json:"model_version,omitempty"`
	UpdatedAt    string             `json:"updated_at"`
}

// TreatmentPlanPayload is a clinician-shared treatment plan edit.
type TreatmentPlanPayload struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Steps     []string `json:"steps,omitempty"`
	StartsAt  string   `json:"starts_at,omitempty"`
	UpdatedAt string   `json:"updated_at"`
}

// DecodePayload parses a stored payload document into the concrete struct
// for its entity kind. Unknown fields are rejected so that schema drift is
// caught at enqueue time rather than at the remote.
func DecodePayload(kind EntityKind, doc []byte) (any, error) {
	var target any
	switch kind {
	case KindMoodEntry:
		target = &MoodEntryPayload{}
	case KindUserProfile:
		target = &UserProfilePayload{}
	case KindAchievement:
		target = &AchievementPayload{}
	case KindVoiceCheckin:
		target = &VoiceCheckinPayload{}
	case KindAIProfile:
		target = &AIProfilePayload{}
	case KindTreatmentPlan:
		target = &TreatmentPlanPayload{}
	default:
		return nil, fmt.Errorf("no payload shape for entity kind %q", kind)
	}
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return target, nil
}

// MergeableListFields names the collection fields that FIELD_MERGE conflict
// resolution unions instead of overwriting, per entity kind. Scalar fields
// always follow last-write-wins.
func MergeableListFields(kind EntityKind) []string {
	switch kind {
	case KindMoodEntry:
		return []string{"tags"}
	case KindTreatmentPlan:
		return []string{"steps"}
	default:
		return nil
	}
}
