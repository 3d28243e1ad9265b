// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"net/url"
	"sort"
	"strings"

	"github.com/thebeakers/triage-engine/pkg/types"
)

// trackingParams are query parameters stripped during locator
// normalization. Two locators differing only in tracking noise name the
// same entity.
var trackingParams = map[string]bool{
	"fbclid":       true,
	"gclid":        true,
	"igshid":       true,
	"mc_cid":       true,
	"mc_eid":       true,
	"ref":          true,
	"source":       true,
	"utm_campaign": true,
	"utm_content":  true,
	"utm_medium":   true,
	"utm_source":   true,
	"utm_term":     true,
}

// DedupKey computes the stable identity under which a candidate is
// ledgered. It is derived from the canonical identifier when resolved,
// else from the normalized raw locator, and is computed exactly once at
// ingestion.
func DedupKey(id types.CanonicalID, rawLocator string) string {
	if id.Resolved() {
		return id.String()
	}
	return "url:" + NormalizeLocator(rawLocator)
}

// NormalizeLocator canonicalizes a raw locator: scheme and host are
// lower-cased, tracking query parameters and fragments are stripped, and
// trailing punctuation, whitespace, and slashes are trimmed. Free text
// that does not parse as an http(s) URL is trimmed and lower-cased only.
func NormalizeLocator(raw string) string {
	raw = trailingPunct.ReplaceAllString(strings.TrimSpace(raw), "")

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return strings.ToLower(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawQuery = cleanQuery(u.Query())
	u.Path = strings.TrimRight(u.Path, "/")

	return u.String()
}

// cleanQuery drops tracking parameters and re-encodes the rest in sorted
// order so parameter ordering never splits identities.
func cleanQuery(q url.Values) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		if !trackingParams[strings.ToLower(k)] {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	kept := url.Values{}
	for _, k := range keys {
		for _, v := range q[k] {
			kept.Add(k, v)
		}
	}
	return kept.Encode()
}
