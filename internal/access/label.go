// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package access

import "github.com/thebeakers/triage-engine/pkg/types"

// PreprintDisclaimer is the fixed sentence rendered verbatim alongside
// preprint-tier work. Downstream stages must not modify it.
const PreprintDisclaimer = "This work is a preprint and has not yet been peer reviewed; findings may change after review."

// CredibilityLabel is the display label the rendering stage shows
// verbatim next to a published candidate.
type CredibilityLabel struct {
	// Text is the label itself.
	Text string `json:"text" yaml:"text"`

	// Disclaimer accompanies preprint-tier work; empty otherwise.
	Disclaimer string `json:"disclaimer,omitempty" yaml:"disclaimer,omitempty"`
}

// Label derives the credibility label purely from the access tier. It is
// only meaningful for candidates that reached a publish lane; callers
// should not label rejected work.
func Label(tier types.AccessTier) CredibilityLabel {
	if tier == types.TierPreprint {
		return CredibilityLabel{
			Text:       "Frontier (Preprint)",
			Disclaimer: PreprintDisclaimer,
		}
	}
	return CredibilityLabel{Text: "Peer-Reviewed"}
}
