// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Stage is a candidate's position in the pipeline state machine.
type Stage string

const (
	StagePending         Stage = "pending"
	StageResolved        Stage = "resolved"
	StageClassified      Stage = "classified"
	StageScored          Stage = "scored"
	StageRouted          Stage = "routed"
	StageFulltextFetched Stage = "fulltext_fetched"
	StageRendered        Stage = "rendered"
	StageDispatched      Stage = "dispatched"
)

// StageOrder lists the stages in pipeline order. Advance only accepts
// transitions between adjacent stages in this list.
var StageOrder = []Stage{
	StagePending,
	StageResolved,
	StageClassified,
	StageScored,
	StageRouted,
	StageFulltextFetched,
	StageRendered,
	StageDispatched,
}

// Next returns the stage that follows s in pipeline order, or "" when s is
// the last stage or unknown.
func (s Stage) Next() Stage {
	for i, stage := range StageOrder {
		if stage == s && i+1 < len(StageOrder) {
			return StageOrder[i+1]
		}
	}
	return ""
}

// EntryStatus is the ledger entry's lifecycle status, orthogonal to its
// stage. Entries are never deleted, only marked terminal.
type EntryStatus string

const (
	// StatusActive means the entry is still moving through the pipeline.
	StatusActive EntryStatus = "active"

	// StatusRejected means routing dropped the candidate.
	StatusRejected EntryStatus = "rejected"

	// StatusPublished means a downstream stage dispatched the candidate.
	StatusPublished EntryStatus = "published"

	// StatusStale means the entry aged out without completing.
	StatusStale EntryStatus = "stale"

	// StatusDiscoveryFailed marks a secondary-sourced candidate that never
	// resolved to an identifier. Excluded from further stages, not dropped.
	StatusDiscoveryFailed EntryStatus = "discovery_failed"
)

// Terminal reports whether the status permits no further transitions.
func (s EntryStatus) Terminal() bool {
	switch s {
	case StatusRejected, StatusPublished, StatusStale, StatusDiscoveryFailed:
		return true
	}
	return false
}

// LedgerEntry is the durable record of one candidate, keyed by dedup key.
// It is the single source of truth for cross-run state; every other
// pipeline component is stateless and re-derivable from it.
type LedgerEntry struct {
	// DedupKey is computed once at ingestion and never recomputed.
	DedupKey string `json:"dedup_key" yaml:"dedup_key"`

	// Stage is the entry's current pipeline stage.
	Stage Stage `json:"stage" yaml:"stage"`

	// Status is the lifecycle status; terminal statuses block transitions.
	Status EntryStatus `json:"status" yaml:"status"`

	// CanonicalID is the resolved identifier, zero until resolution.
	CanonicalID CanonicalID `json:"canonical_id,omitempty" yaml:"canonical_id,omitempty"`

	// RawLocator, OriginKind, and DiscoveredFrom preserve the candidate as
	// ingested.
	RawLocator     string     `json:"raw_locator" yaml:"raw_locator"`
	OriginKind     OriginKind `json:"origin_kind" yaml:"origin_kind"`
	DiscoveredFrom string     `json:"discovered_from,omitempty" yaml:"discovered_from,omitempty"`

	// Headline, Teaser, and Source carry the feed display text. Scoring
	// falls back to them when no metadata snapshot is available.
	Headline string `json:"headline,omitempty" yaml:"headline,omitempty"`
	Teaser   string `json:"teaser,omitempty" yaml:"teaser,omitempty"`
	Source   string `json:"source,omitempty" yaml:"source,omitempty"`

	// Discipline is the inferred subject discipline.
	Discipline string `json:"discipline,omitempty" yaml:"discipline,omitempty"`

	// Tier is set once the access classifier runs.
	Tier AccessTier `json:"tier,omitempty" yaml:"tier,omitempty"`

	// ProfileVersion is the latest score profile version, 0 before scoring.
	ProfileVersion int `json:"profile_version,omitempty" yaml:"profile_version,omitempty"`

	// Lane, Rule, and Frontier record the routing decision and the winning
	// rule's identity.
	Lane     Lane   `json:"lane,omitempty" yaml:"lane,omitempty"`
	Rule     string `json:"rule,omitempty" yaml:"rule,omitempty"`
	Frontier bool   `json:"frontier,omitempty" yaml:"frontier,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// StageRecord is one append-only history row for a ledger entry. Sequence
// numbers increase monotonically per dedup key.
type StageRecord struct {
	Seq       int       `json:"seq" yaml:"seq"`
	From      Stage     `json:"from" yaml:"from"`
	To        Stage     `json:"to" yaml:"to"`
	RunID     string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Detail    string    `json:"detail,omitempty" yaml:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// TriageRun groups the stage results of one triage batch for audit.
type TriageRun struct {
	RunID     string    `json:"run_id" yaml:"run_id"`
	WeekOf    string    `json:"week_of" yaml:"week_of"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
