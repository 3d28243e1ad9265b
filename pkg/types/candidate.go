// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the triage-engine
// pipeline: candidates, canonical identifiers, access tiers, score
// profiles, lanes, and ledger records.
package types

import "fmt"

// IDKind classifies a canonical scholarly identifier.
type IDKind string

const (
	KindNone  IDKind = "none"
	KindDOI   IDKind = "doi"
	KindArxiv IDKind = "arxiv"
	KindPMCID IDKind = "pmcid"
)

// CanonicalID is a normalized scholarly identifier uniquely naming a work.
// The zero value (or Kind == KindNone) means the candidate is unresolved.
type CanonicalID struct {
	// Kind is the identifier family: doi, arxiv, or pmcid.
	Kind IDKind `json:"kind" yaml:"kind"`

	// Value is the normalized identifier, e.g. "10.1038/s41586-025-09819-w"
	// or "2501.12345".
	Value string `json:"value" yaml:"value"`
}

// Resolved reports whether the identifier names a concrete work.
func (id CanonicalID) Resolved() bool {
	return id.Kind != "" && id.Kind != KindNone && id.Value != ""
}

// String renders the identifier as "kind:value", or "none".
func (id CanonicalID) String() string {
	if !id.Resolved() {
		return string(KindNone)
	}
	return fmt.Sprintf("%s:%s", id.Kind, id.Value)
}

// OriginKind distinguishes direct references to a work from references
// found on a third-party page discussing it.
type OriginKind string

const (
	OriginPrimary   OriginKind = "primary"
	OriginSecondary OriginKind = "secondary"
)

// Candidate is one discovered reference to a piece of research, as
// delivered by the feed collector prior to identifier resolution.
type Candidate struct {
	// RawLocator is the URL or free text exactly as discovered.
	RawLocator string `json:"raw_locator" yaml:"raw_locator"`

	// CanonicalID is set once the resolver succeeds; zero until then.
	CanonicalID CanonicalID `json:"canonical_id,omitempty" yaml:"canonical_id,omitempty"`

	// OriginKind records whether RawLocator points at the work itself or
	// at a page discussing it.
	OriginKind OriginKind `json:"origin_kind" yaml:"origin_kind"`

	// DiscoveredFrom is the secondary page the candidate was found on.
	// Required when OriginKind is secondary, empty otherwise.
	DiscoveredFrom string `json:"discovered_from,omitempty" yaml:"discovered_from,omitempty"`

	// Headline and Teaser are the display text the feed supplied.
	Headline string `json:"headline,omitempty" yaml:"headline,omitempty"`
	Teaser   string `json:"teaser,omitempty" yaml:"teaser,omitempty"`

	// Source names the feed or outlet that produced the candidate.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Category is the feed's coarse subject bucket (e.g. "physics", "tech").
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	// DiscoveryContext is linked or quoted text captured alongside a
	// secondary source, scanned by the resolver when the locator itself
	// yields no identifier.
	DiscoveryContext string `json:"discovery_context,omitempty" yaml:"discovery_context,omitempty"`
}

// Validate checks the structural invariants a candidate must satisfy
// before ingestion.
func (c Candidate) Validate() error {
	if c.RawLocator == "" {
		return fmt.Errorf("candidate has no raw locator")
	}
	switch c.OriginKind {
	case OriginPrimary:
		// ok
	case OriginSecondary:
		if c.DiscoveredFrom == "" {
			return fmt.Errorf("secondary candidate %q missing discovered_from", c.RawLocator)
		}
	default:
		return fmt.Errorf("candidate %q has unknown origin kind %q", c.RawLocator, c.OriginKind)
	}
	return nil
}

// CandidateMeta is the metadata-lookup snapshot for a resolved candidate.
// An absent snapshot must be represented as a nil *CandidateMeta, never as
// a zero value standing in for real data.
type CandidateMeta struct {
	// Title is the work's title as returned by the metadata source.
	Title string `json:"title" yaml:"title"`

	// Abstract is the work's abstract, possibly empty.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Venue is the journal, conference, or preprint server name.
	Venue string `json:"venue" yaml:"venue"`

	// Discipline is the inferred subject discipline.
	Discipline string `json:"discipline" yaml:"discipline"`

	// Hints carries the source-tier flags feeding the access classifier.
	Hints SourceHints `json:"hints" yaml:"hints"`
}
