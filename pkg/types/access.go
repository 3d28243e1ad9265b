// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// AccessTier is the legally and ethically permitted retrieval depth for a
// work. It is assigned once per candidate from source metadata, never from
// document content.
type AccessTier string

const (
	// TierOpenPDF means full text is openly licensed for retrieval.
	TierOpenPDF AccessTier = "open_pdf"

	// TierAcceptedManuscript means an author or accepted manuscript is
	// legally retrievable from a repository.
	TierAcceptedManuscript AccessTier = "accepted_manuscript"

	// TierPreprint means the work lives on a preprint server.
	TierPreprint AccessTier = "preprint"

	// TierMetadataOnly permanently bars any stage from fetching or quoting
	// body text. Paywalls are never circumvented.
	TierMetadataOnly AccessTier = "metadata_only"
)

// AllowsFulltext reports whether full-text retrieval is permitted for the
// tier. metadata_only is a hard boundary, not a preference.
func (t AccessTier) AllowsFulltext() bool {
	switch t {
	case TierOpenPDF, TierAcceptedManuscript, TierPreprint:
		return true
	}
	return false
}

// SourceHints are the declared publisher and repository flags an external
// metadata lookup supplies for access classification. Absent hints default
// every field to its zero value, which classifies as metadata_only.
type SourceHints struct {
	// PreprintServer is set when the source is a known preprint server
	// (arXiv, bioRxiv, chemRxiv, medRxiv, ...).
	PreprintServer bool `json:"preprint_server" yaml:"preprint_server"`

	// OpenLicense is set when the source flags the full text as openly
	// licensed.
	OpenLicense bool `json:"open_license" yaml:"open_license"`

	// RepositoryManuscript is set when the source offers an author or
	// accepted manuscript route through an institutional repository.
	RepositoryManuscript bool `json:"repository_manuscript" yaml:"repository_manuscript"`

	// Evidence names where the hints came from, for audit
	// (e.g. "unpaywall:repository", "preprint_url", "no_oa_found").
	Evidence string `json:"evidence,omitempty" yaml:"evidence,omitempty"`
}
