// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ScoreProfile is the five-factor editorial suitability profile of a
// candidate. Each factor is an independent integer in [0,5]; there is no
// inter-field normalization. A profile is immutable once written to the
// ledger; a re-score appends a new version.
type ScoreProfile struct {
	// Significance estimates how much the work changes what becomes
	// feasible or believed in its field.
	Significance int `json:"significance" yaml:"significance"`

	// Evidence estimates how well the central claim is supported.
	Evidence int `json:"evidence" yaml:"evidence"`

	// Teachability estimates whether an undergraduate can learn something
	// real from the work.
	Teachability int `json:"teachability" yaml:"teachability"`

	// MediaAffordance estimates how cheaply diagrams, audio, or quizzes
	// can be produced from the work.
	MediaAffordance int `json:"media_affordance" yaml:"media_affordance"`

	// HypePenalty estimates how likely the headline overstates what the
	// evidence supports. Higher is worse.
	HypePenalty int `json:"hype_penalty" yaml:"hype_penalty"`
}

// Clamp returns a copy of the profile with every factor forced into [0,5].
func (p ScoreProfile) Clamp() ScoreProfile {
	return ScoreProfile{
		Significance:    clampFactor(p.Significance),
		Evidence:        clampFactor(p.Evidence),
		Teachability:    clampFactor(p.Teachability),
		MediaAffordance: clampFactor(p.MediaAffordance),
		HypePenalty:     clampFactor(p.HypePenalty),
	}
}

func clampFactor(v int) int {
	if v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return v
}

// Lane is the publication treatment a candidate is routed to.
type Lane string

const (
	// LaneInDepth is the long-form treatment: claims traceable to
	// retrievable text.
	LaneInDepth Lane = "in_depth"

	// LaneDigest is the short-form treatment, likewise text-backed.
	LaneDigest Lane = "digest"

	// LaneBlurb is the one-line treatment; metadata alone suffices.
	LaneBlurb Lane = "blurb"

	// LaneReject drops the candidate from publication.
	LaneReject Lane = "reject"
)

// Publishable reports whether the lane results in published output.
func (l Lane) Publishable() bool {
	return l == LaneInDepth || l == LaneDigest || l == LaneBlurb
}
