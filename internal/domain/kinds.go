// Package domain defines the persistence models and enumerations for the
// offline sync engine: queued mutations, dead-letter archives, conflict
// records, and the closed set of entity kinds the engine knows how to sync.
package domain

// OperationKind is the type of remote mutation a queue item represents.
type OperationKind string

const (
	OpCreate OperationKind = "create"
	OpUpdate OperationKind = "update"
	OpDelete OperationKind = "delete"
)

// Valid reports whether k is one of the known operation kinds.
func (k OperationKind) Valid() bool {
	switch k {
	case OpCreate, OpUpdate, OpDelete:
		return true
	}
	return false
}

// EntityKind identifies which adapter a queue item is dispatched to.
// The set is closed: items carrying any other value are rejected at enqueue.
type EntityKind string

const (
	KindMoodEntry     EntityKind = "mood-entry"
	KindUserProfile   EntityKind = "user-profile"
	KindAchievement   EntityKind = "achievement"
	KindVoiceCheckin  EntityKind = "voice-checkin"
	KindAIProfile     EntityKind = "ai-profile"
	KindTreatmentPlan EntityKind = "treatment-plan"
)

// EntityKinds lists every kind the engine syncs, in stable order.
// Used for adapter registration checks and metrics label initialization.
var EntityKinds = []EntityKind{
	KindMoodEntry,
	KindUserProfile,
	KindAchievement,
	KindVoiceCheckin,
	KindAIProfile,
	KindTreatmentPlan,
}

// Valid reports whether k is one of the known entity kinds.
func (k EntityKind) Valid() bool {
	switch k {
	case KindMoodEntry, KindUserProfile, KindAchievement,
		KindVoiceCheckin, KindAIProfile, KindTreatmentPlan:
		return true
	}
	return false
}

// Priority orders pending items: higher weights are drained first.
// It is derived from the item's EntityKind at enqueue time, never supplied
// by callers.
type Priority int

const (
	PriorityLow      Priority = 10
	PriorityNormal   Priority = 20
	PriorityHigh     Priority = 30
	PriorityCritical Priority = 40
)

// String returns the wire/label form of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// PriorityFor maps an entity kind to its sync priority. Treatment plans are
// critical (clinical content must land first), profile and mood data are
// high, transcripts and derived AI state are normal, achievements are
// cosmetic and go last.
func PriorityFor(kind EntityKind) Priority {
	switch kind {
	case KindTreatmentPlan:
		return PriorityCritical
	case KindUserProfile, KindMoodEntry:
		return PriorityHigh
	case KindVoiceCheckin, KindAIProfile:
		return PriorityNormal
	case KindAchievement:
		return PriorityLow
	default:
		return PriorityNormal
	}
}
