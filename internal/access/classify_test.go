// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package access

import (
	"testing"

	"github.com/thebeakers/triage-engine/pkg/types"
)

func TestClassify(t *testing.T) {
	doi := types.CanonicalID{Kind: types.KindDOI, Value: "10.1038/nphys1234"}
	arxiv := types.CanonicalID{Kind: types.KindArxiv, Value: "2501.12345"}

	tests := []struct {
		name    string
		id      types.CanonicalID
		locator string
		hints   types.SourceHints
		want    types.AccessTier
	}{
		{"preprint hint wins", doi, "", types.SourceHints{PreprintServer: true, OpenLicense: true}, types.TierPreprint},
		{"arxiv identifier is preprint", arxiv, "", types.SourceHints{}, types.TierPreprint},
		{"preprint locator", doi, "https://www.biorxiv.org/content/10.1101/2025.01.01.123456", types.SourceHints{}, types.TierPreprint},
		{"open license", doi, "https://doi.org/10.1038/nphys1234", types.SourceHints{OpenLicense: true}, types.TierOpenPDF},
		{"repository manuscript", doi, "", types.SourceHints{RepositoryManuscript: true}, types.TierAcceptedManuscript},
		{"open license outranks repository", doi, "", types.SourceHints{OpenLicense: true, RepositoryManuscript: true}, types.TierOpenPDF},
		{"no hints defaults conservative", doi, "https://doi.org/10.1038/nphys1234", types.SourceHints{}, types.TierMetadataOnly},
		{"unresolved defaults conservative", types.CanonicalID{Kind: types.KindNone}, "https://example.com/story", types.SourceHints{}, types.TierMetadataOnly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.id, tt.locator, tt.hints); got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAllowsFulltext(t *testing.T) {
	if types.TierMetadataOnly.AllowsFulltext() {
		t.Error("metadata_only must never allow full text")
	}
	for _, tier := range []types.AccessTier{types.TierOpenPDF, types.TierAcceptedManuscript, types.TierPreprint} {
		if !tier.AllowsFulltext() {
			t.Errorf("%v should allow full text", tier)
		}
	}
}

func TestLabel(t *testing.T) {
	got := Label(types.TierPreprint)
	if got.Text != "Frontier (Preprint)" {
		t.Errorf("preprint label = %q", got.Text)
	}
	if got.Disclaimer != PreprintDisclaimer {
		t.Errorf("preprint label missing disclaimer")
	}

	for _, tier := range []types.AccessTier{types.TierOpenPDF, types.TierAcceptedManuscript, types.TierMetadataOnly} {
		got := Label(tier)
		if got.Text != "Peer-Reviewed" || got.Disclaimer != "" {
			t.Errorf("Label(%v) = %+v, want bare Peer-Reviewed", tier, got)
		}
	}
}
