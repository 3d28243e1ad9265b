// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package route maps a score profile and access tier to a publication
// lane. The policy is an ordered, declarative rule table evaluated
// top-down; the reject override sits first so an egregiously hyped,
// weakly evidenced item can never reach a publish lane regardless of its
// other scores. Routing is a pure function.
package route

import "github.com/thebeakers/triage-engine/pkg/types"

// Rule identities recorded with every decision for audit.
const (
	RuleRejectOverride = "reject_override"
	RuleInDepth        = "in_depth_threshold"
	RuleDigest         = "digest_threshold"
	RuleBlurb          = "blurb_threshold"
	RuleRejectDefault  = "reject_default"
	RuleAccessGate     = "access_gate"
	RuleNoProfile      = "no_profile"
)

// Decision is the routing outcome: the lane plus the identity of the rule
// that produced it.
type Decision struct {
	Lane types.Lane `json:"lane" yaml:"lane"`

	// Rule names the winning rule, not just the lane, so every decision
	// is explainable after the fact.
	Rule string `json:"rule" yaml:"rule"`

	// Frontier marks a blurb routed on thin evidence (evidence <= 2); the
	// rendering stage labels these "Frontier".
	Frontier bool `json:"frontier,omitempty" yaml:"frontier,omitempty"`
}

// laneRule is one row of the policy table: a predicate and the lane it
// grants.
type laneRule struct {
	name string
	lane types.Lane
	ok   func(p types.ScoreProfile) bool
}

// policyTable is evaluated top-down after the reject override; first
// satisfied rule wins.
var policyTable = []laneRule{
	{
		name: RuleInDepth,
		lane: types.LaneInDepth,
		ok: func(p types.ScoreProfile) bool {
			return p.Evidence >= 4 && p.Teachability >= 4 &&
				(p.Significance >= 4 || p.MediaAffordance >= 4) &&
				p.HypePenalty <= 2
		},
	},
	{
		name: RuleDigest,
		lane: types.LaneDigest,
		ok: func(p types.ScoreProfile) bool {
			return p.Evidence >= 3 && p.Teachability >= 3 &&
				(p.Significance >= 3 || p.MediaAffordance >= 3) &&
				p.HypePenalty <= 3
		},
	},
	{
		name: RuleBlurb,
		lane: types.LaneBlurb,
		ok: func(p types.ScoreProfile) bool {
			return p.Teachability >= 2 &&
				(p.Significance >= 3 || p.MediaAffordance >= 3)
		},
	},
}

// Route decides the lane for a profile and access tier. A nil profile
// (scorer never ran) fails closed to reject; routing never guesses.
//
// The access gate is independent of scoring: metadata_only candidates may
// route to blurb or reject only, because in_depth and digest promise
// claims traceable to retrievable text.
func Route(profile *types.ScoreProfile, tier types.AccessTier) Decision {
	if profile == nil {
		return Decision{Lane: types.LaneReject, Rule: RuleNoProfile}
	}
	p := profile.Clamp()

	// Reject override, checked before any publish rule.
	if p.Teachability <= 1 || (p.HypePenalty >= 4 && p.Evidence <= 3) {
		return Decision{Lane: types.LaneReject, Rule: RuleRejectOverride}
	}

	for _, rule := range policyTable {
		if !rule.ok(p) {
			continue
		}
		d := Decision{Lane: rule.lane, Rule: rule.name}
		if rule.lane == types.LaneBlurb && p.Evidence <= 2 {
			d.Frontier = true
		}
		if tier == types.TierMetadataOnly && (d.Lane == types.LaneInDepth || d.Lane == types.LaneDigest) {
			// Demote rather than reject: the score qualified, only the
			// access tier blocks the text-backed lanes.
			return Decision{Lane: types.LaneBlurb, Rule: RuleAccessGate, Frontier: p.Evidence <= 2}
		}
		return d
	}

	return Decision{Lane: types.LaneReject, Rule: RuleRejectDefault}
}
