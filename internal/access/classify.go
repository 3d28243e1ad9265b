// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package access assigns the legal/ethical access tier for a candidate
// from its identifier kind and declared source metadata, never from
// document content. Paywalls are never circumvented: absence of evidence
// classifies conservatively as metadata_only.
package access

import (
	"strings"

	"github.com/thebeakers/triage-engine/pkg/types"
)

// preprintHosts are substrings identifying known preprint servers in a
// locator.
var preprintHosts = []string{
	"arxiv.org",
	"biorxiv.org",
	"chemrxiv.org",
	"medrxiv.org",
}

// Classify assigns exactly one access tier. Decision policy, first match
// wins:
//
//  1. known preprint server (hint, arXiv identifier, or preprint host in
//     the locator) -> preprint
//  2. full text flagged openly licensed -> open_pdf
//  3. author/accepted manuscript route offered -> accepted_manuscript
//  4. otherwise -> metadata_only
//
// Classification never fails; empty hints fall through to metadata_only.
func Classify(id types.CanonicalID, rawLocator string, hints types.SourceHints) types.AccessTier {
	if hints.PreprintServer || id.Kind == types.KindArxiv || IsPreprintLocator(rawLocator) {
		return types.TierPreprint
	}
	if hints.OpenLicense {
		return types.TierOpenPDF
	}
	if hints.RepositoryManuscript {
		return types.TierAcceptedManuscript
	}
	return types.TierMetadataOnly
}

// IsPreprintLocator reports whether the locator points at a known
// preprint server.
func IsPreprintLocator(locator string) bool {
	l := strings.ToLower(locator)
	for _, host := range preprintHosts {
		if strings.Contains(l, host) {
			return true
		}
	}
	return false
}
