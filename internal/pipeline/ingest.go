// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/thebeakers/triage-engine/internal/feed"
	"github.com/thebeakers/triage-engine/internal/ledger"
	"github.com/thebeakers/triage-engine/internal/resolve"
	"github.com/thebeakers/triage-engine/pkg/types"
)

// IngestSummary counts the outcomes of one batch ingestion.
type IngestSummary struct {
	Created    int
	Duplicates int
	Merged     int
	Invalid    int
}

// Ingest resolves each candidate in the batch, computes its dedup key,
// and upserts it into the ledger. A candidate whose locator was seen
// unresolved in an earlier batch and now resolves to an identifier is
// merged under the original entry instead of forking.
func Ingest(ctx context.Context, store *ledger.Store, batch *feed.Batch, out io.Writer) (IngestSummary, error) {
	var summary IngestSummary

	for i, c := range batch.Candidates {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := c.Validate(); err != nil {
			summary.Invalid++
			fmt.Fprintf(out, "  invalid candidate %d: %v\n", i, err)
			continue
		}

		c.CanonicalID = resolve.Resolve(c)
		key := resolve.DedupKey(c.CanonicalID, c.RawLocator)

		merged := false
		if c.CanonicalID.Resolved() {
			var err error
			merged, err = consolidate(ctx, store, c.RawLocator, key)
			if err != nil {
				return summary, err
			}
			if merged {
				summary.Merged++
				fmt.Fprintf(out, "  merged %s under earlier sighting\n", key)
			}
		}

		_, created, err := store.Upsert(ctx, key, c)
		if err != nil {
			return summary, fmt.Errorf("ingesting %s: %w", key, err)
		}
		switch {
		case created:
			summary.Created++
		case !merged:
			summary.Duplicates++
		}
	}

	fmt.Fprintf(out, "Ingest summary: %d created, %d duplicates, %d merged, %d invalid\n",
		summary.Created, summary.Duplicates, summary.Merged, summary.Invalid)
	return summary, nil
}

// consolidate links a freshly resolved key to an earlier unresolved
// entry for the same locator, so the identity never forks.
func consolidate(ctx context.Context, store *ledger.Store, rawLocator, resolvedKey string) (bool, error) {
	locatorKey := resolve.DedupKey(types.CanonicalID{}, rawLocator)
	if locatorKey == resolvedKey {
		return false, nil
	}

	existing, err := store.Lookup(ctx, locatorKey)
	if errors.Is(err, ledger.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if existing.CanonicalID.Resolved() {
		// The earlier entry already carries an identifier; nothing to join.
		return false, nil
	}

	if err := store.Merge(ctx, locatorKey, resolvedKey); err != nil {
		return false, err
	}
	return true, nil
}
