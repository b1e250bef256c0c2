// Package services – conflict resolution.
//
// When an update reaches the remote and the remote copy has moved on since
// the local mutation was derived, the two documents have diverged. The
// resolver reconciles them under a per-entity-kind policy. It is strictly
// deterministic: the same local/remote pair under the same policy always
// yields the same output. When no automatic policy applies, the caller
// records the conflict instead of dropping either side.
package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/moodpulse/go-sync-engine/internal/domain"
)

// ResolutionPolicy names a conflict resolution strategy.
type ResolutionPolicy string

const (
	PolicyLocalWins     ResolutionPolicy = "LOCAL_WINS"
	PolicyRemoteWins    ResolutionPolicy = "REMOTE_WINS"
	PolicyLastWriteWins ResolutionPolicy = "LAST_WRITE_WINS"
	PolicyFieldMerge    ResolutionPolicy = "FIELD_MERGE"
)

// updatedAtField is the document timestamp consulted by LAST_WRITE_WINS.
const updatedAtField = "updated_at"

// Resolution is the outcome of reconciling a local/remote pair.
type Resolution struct {
	Policy      ResolutionPolicy
	ResolvedDoc string // JSON document to write back to the remote
	LocalWon    bool   // true when the resolved doc is (based on) the local version
}

// Resolver reconciles diverged documents under configurable per-kind
// policies.
type Resolver struct {
	policies map[domain.EntityKind]ResolutionPolicy
}

// DefaultPolicies returns the shipped policy table: mood entries and
// treatment plans merge their collection fields, profile-ish documents take
// the newer write, achievements are server-authoritative (points are
// recomputed remotely).
func DefaultPolicies() map[domain.EntityKind]ResolutionPolicy {
	return map[domain.EntityKind]ResolutionPolicy{
		domain.KindMoodEntry:     PolicyFieldMerge,
		domain.KindUserProfile:   PolicyLastWriteWins,
		domain.KindAchievement:   PolicyRemoteWins,
		domain.KindVoiceCheckin:  PolicyLastWriteWins,
		domain.KindAIProfile:     PolicyLastWriteWins,
		domain.KindTreatmentPlan: PolicyFieldMerge,
	}
}

// NewResolver constructs a Resolver; nil policies falls back to defaults.
func NewResolver(policies map[domain.EntityKind]ResolutionPolicy) *Resolver {
	if policies == nil {
		policies = DefaultPolicies()
	}
	return &Resolver{policies: policies}
}

// PolicyFor returns the policy applied to a kind (LAST_WRITE_WINS when the
// kind has no entry).
func (r *Resolver) PolicyFor(kind domain.EntityKind) ResolutionPolicy {
	if p, ok := r.policies[kind]; ok {
		return p
	}
	return PolicyLastWriteWins
}

// Resolve reconciles localDoc and remoteDoc (JSON objects) for the given
// kind. It returns ErrUnresolvable when the policy cannot decide (for
// LAST_WRITE_WINS and FIELD_MERGE this means a missing or malformed
// updated_at on either side); the caller then persists an unresolved
// ConflictRecord.
func (r *Resolver) Resolve(kind domain.EntityKind, localDoc, remoteDoc string) (*Resolution, error) {
	policy := r.PolicyFor(kind)

	local, err := decodeDoc(localDoc)
	if err != nil {
		return nil, fmt.Errorf("%w: local: %v", ErrUnresolvable, err)
	}
	remote, err := decodeDoc(remoteDoc)
	if err != nil {
		return nil, fmt.Errorf("%w: remote: %v", ErrUnresolvable, err)
	}

	switch policy {
	case PolicyLocalWins:
		return &Resolution{Policy: policy, ResolvedDoc: localDoc, LocalWon: true}, nil

	case PolicyRemoteWins:
		return &Resolution{Policy: policy, ResolvedDoc: remoteDoc, LocalWon: false}, nil

	case PolicyLastWriteWins:
		localWon, err := localIsNewer(local, remote)
		if err != nil {
			return nil, err
		}
		doc := remoteDoc
		if localWon {
			doc = localDoc
		}
		return &Resolution{Policy: policy, ResolvedDoc: doc, LocalWon: localWon}, nil

	case PolicyFieldMerge:
		localWon, err := localIsNewer(local, remote)
		if err != nil {
			return nil, err
		}
		winner, loser := remote, local
		if localWon {
			winner, loser = local, remote
		}
		merged := mergeDocs(winner, loser, domain.MergeableListFields(kind))
		out, err := json.Marshal(merged)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnresolvable, err)
		}
		return &Resolution{Policy: policy, ResolvedDoc: string(out), LocalWon: localWon}, nil

	default:
		return nil, fmt.Errorf("%w: unknown policy %q", ErrUnresolvable, policy)
	}
}

func decodeDoc(doc string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(doc), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// localIsNewer compares the two documents' updated_at timestamps. Ties go
// to the local side: the device holds the user's most recent intent.
func localIsNewer(local, remote map[string]any) (bool, error) {
	lt, err := docTime(local)
	if err != nil {
		return false, fmt.Errorf("%w: local %s: %v", ErrUnresolvable, updatedAtField, err)
	}
	rt, err := docTime(remote)
	if err != nil {
		return false, fmt.Errorf("%w: remote %s: %v", ErrUnresolvable, updatedAtField, err)
	}
	return !lt.Before(rt), nil
}

func docTime(doc map[string]any) (time.Time, error) {
	raw, ok := doc[updatedAtField].(string)
	if !ok || raw == "" {
		return time.Time{}, fmt.Errorf("missing")
	}
	return time.Parse(time.RFC3339, raw)
}

// mergeDocs produces the FIELD_MERGE output: the winner's document, with
// the named list fields replaced by the union of both sides. Union order is
// winner's elements first, then the loser's elements not already present,
// each side in its own original order, so the result is deterministic.
func mergeDocs(winner, loser map[string]any, listFields []string) map[string]any {
	out := make(map[string]any, len(winner))
	for k, v := range winner {
		out[k] = v
	}
	for _, f := range listFields {
		out[f] = unionLists(stringList(winner[f]), stringList(loser[f]))
	}
	return out
}

func stringList(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func unionLists(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
