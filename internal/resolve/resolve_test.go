// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"testing"

	"github.com/thebeakers/triage-engine/pkg/types"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantKind  types.IDKind
		wantValue string
	}{
		{"doi bare", "10.1145/1234567.1234568", types.KindDOI, "10.1145/1234567.1234568"},
		{"doi url", "https://doi.org/10.1038/s41586-025-09819-w", types.KindDOI, "10.1038/s41586-025-09819-w"},
		{"doi dx url", "http://dx.doi.org/10.1126/science.abc1234", types.KindDOI, "10.1126/science.abc1234"},
		{"doi trailing period", "see 10.1038/s41586-025-09819-w.", types.KindDOI, "10.1038/s41586-025-09819-w"},
		{"doi trailing paren", "(10.1021/acs.nanolett.4c01234)", types.KindDOI, "10.1021/acs.nanolett.4c01234"},
		{"doi upper-cased", "10.1002/ANIE.202412345", types.KindDOI, "10.1002/anie.202412345"},
		{"doi query stripped", "https://doi.org/10.1038/nphys1234?utm_source=feed", types.KindDOI, "10.1038/nphys1234"},
		{"arxiv abs url", "https://arxiv.org/abs/2501.12345", types.KindArxiv, "2501.12345"},
		{"arxiv pdf url", "https://arxiv.org/pdf/2301.07041v2", types.KindArxiv, "2301.07041"},
		{"arxiv token", "as reported in arXiv:2501.12345 yesterday", types.KindArxiv, "2501.12345"},
		{"arxiv token versioned", "arXiv:2301.07041v3", types.KindArxiv, "2301.07041"},
		{"arxiv bare", "2301.07041", types.KindArxiv, "2301.07041"},
		{"pmc url", "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC9876543/", types.KindPMCID, "PMC9876543"},
		{"pmc bare", "full text at PMC1234567 today", types.KindPMCID, "PMC1234567"},
		{"doi beats arxiv", "10.48550/arXiv.2301.07041", types.KindDOI, "10.48550/arxiv.2301.07041"},
		{"no identifier", "https://www.sciencedaily.com/releases/2025/01/story.htm", types.KindNone, ""},
		{"free text", "scientists discover new battery material", types.KindNone, ""},
		{"empty", "", types.KindNone, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.input)
			if got.Kind != tt.wantKind {
				t.Errorf("Extract(%q) kind = %v, want %v", tt.input, got.Kind, tt.wantKind)
			}
			if got.Value != tt.wantValue {
				t.Errorf("Extract(%q) value = %q, want %q", tt.input, got.Value, tt.wantValue)
			}
		})
	}
}

func TestResolvePrimary(t *testing.T) {
	c := types.Candidate{
		RawLocator: "https://doi.org/10.1038/s41586-025-09819-w",
		OriginKind: types.OriginPrimary,
	}
	id := Resolve(c)
	if id.Kind != types.KindDOI || id.Value != "10.1038/s41586-025-09819-w" {
		t.Errorf("Resolve = %v, want doi:10.1038/s41586-025-09819-w", id)
	}
}

func TestResolveSecondaryContext(t *testing.T) {
	c := types.Candidate{
		RawLocator:       "https://www.sciencedaily.com/releases/2025/01/story.htm",
		OriginKind:       types.OriginSecondary,
		DiscoveredFrom:   "https://www.sciencedaily.com/",
		DiscoveryContext: "ScienceDaily reports on a new preprint, arXiv:2501.12345, describing the result.",
	}
	id := Resolve(c)
	if id.Kind != types.KindArxiv || id.Value != "2501.12345" {
		t.Errorf("Resolve = %v, want arxiv:2501.12345", id)
	}
}

func TestResolvePrimaryIgnoresContext(t *testing.T) {
	// Primary candidates never fall back to discovery context.
	c := types.Candidate{
		RawLocator:       "https://example.com/commentary",
		OriginKind:       types.OriginPrimary,
		DiscoveryContext: "arXiv:2501.12345",
	}
	if id := Resolve(c); id.Resolved() {
		t.Errorf("Resolve = %v, want unresolved", id)
	}
}

func TestResolveDeterministic(t *testing.T) {
	c := types.Candidate{
		RawLocator: "https://arxiv.org/abs/2501.12345",
		OriginKind: types.OriginPrimary,
	}
	first := Resolve(c)
	second := Resolve(c)
	if first != second {
		t.Errorf("Resolve not deterministic: %v vs %v", first, second)
	}
}
