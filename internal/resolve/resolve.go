// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve extracts canonical scholarly identifiers from raw
// candidate locators and surrounding text. Matchers run in a fixed
// priority order (DOI, then arXiv, then PMCID) so behavior stays
// auditable per pattern; DOIs win because they are the most specific and
// least ambiguous. All functions are pure.
package resolve

import (
	"regexp"
	"strings"

	"github.com/thebeakers/triage-engine/pkg/types"
)

// doiPattern matches DOIs embedded in text or URLs:
// "10.1038/s41586-025-09819-w", "https://doi.org/10.1145/1234567".
// Query strings and fragments are excluded; trailing punctuation is
// trimmed afterwards.
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s"'<>?#]+`)

// arxivURLPattern matches arXiv abs/pdf URLs: "arxiv.org/abs/2501.12345",
// "arxiv.org/pdf/2301.07041v2".
var arxivURLPattern = regexp.MustCompile(`(?i)arxiv\.org/(?:abs|pdf)/(\d{4}\.\d{4,5})(?:v\d+)?`)

// arxivTokenPattern matches bare "arXiv:2501.12345" tokens in prose.
var arxivTokenPattern = regexp.MustCompile(`(?i)\barxiv:\s?(\d{4}\.\d{4,5})(?:v\d+)?`)

// arxivBarePattern matches an arXiv ID standing alone as the whole locator.
var arxivBarePattern = regexp.MustCompile(`^(\d{4}\.\d{4,5})(?:v\d+)?$`)

// pmcURLPattern matches PubMed Central article URLs:
// "ncbi.nlm.nih.gov/pmc/articles/PMC1234567".
var pmcURLPattern = regexp.MustCompile(`(?i)pmc/articles/(PMC\d+)`)

// pmcBarePattern matches bare PMCIDs in text: "PMC1234567".
var pmcBarePattern = regexp.MustCompile(`\b(PMC\d{6,9})\b`)

// trailingPunct strips punctuation that feeds and scraped prose leave
// attached to identifiers.
var trailingPunct = regexp.MustCompile(`[.,;:!)\]}>]+$`)

// Resolve extracts a canonical identifier for the candidate. It scans the
// raw locator first; for secondary-sourced candidates it also scans the
// discovery context before giving up. A candidate that matches no pattern
// returns an identifier with Kind == KindNone: an expected terminal
// outcome, not an error.
func Resolve(c types.Candidate) types.CanonicalID {
	if id := Extract(c.RawLocator); id.Resolved() {
		return id
	}
	if c.OriginKind == types.OriginSecondary {
		if id := Extract(c.DiscoveryContext); id.Resolved() {
			return id
		}
	}
	return types.CanonicalID{Kind: types.KindNone}
}

// Extract scans text for a scholarly identifier, applying the matchers in
// priority order. First match wins.
func Extract(text string) types.CanonicalID {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.CanonicalID{Kind: types.KindNone}
	}

	if m := doiPattern.FindString(text); m != "" {
		return types.CanonicalID{Kind: types.KindDOI, Value: normalizeDOI(m)}
	}

	if m := arxivURLPattern.FindStringSubmatch(text); m != nil {
		return types.CanonicalID{Kind: types.KindArxiv, Value: m[1]}
	}
	if m := arxivTokenPattern.FindStringSubmatch(text); m != nil {
		return types.CanonicalID{Kind: types.KindArxiv, Value: m[1]}
	}
	if m := arxivBarePattern.FindStringSubmatch(text); m != nil {
		return types.CanonicalID{Kind: types.KindArxiv, Value: m[1]}
	}

	if m := pmcURLPattern.FindStringSubmatch(text); m != nil {
		return types.CanonicalID{Kind: types.KindPMCID, Value: strings.ToUpper(m[1])}
	}
	if m := pmcBarePattern.FindStringSubmatch(text); m != nil {
		return types.CanonicalID{Kind: types.KindPMCID, Value: m[1]}
	}

	return types.CanonicalID{Kind: types.KindNone}
}

// normalizeDOI lower-cases a DOI (DOIs are case-insensitive) and strips
// trailing punctuation picked up from surrounding prose.
func normalizeDOI(doi string) string {
	doi = trailingPunct.ReplaceAllString(strings.TrimSpace(doi), "")
	return strings.ToLower(doi)
}
