// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fulltext

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebeakers/triage-engine/internal/ledger"
	"github.com/thebeakers/triage-engine/pkg/types"
)

func newTestFetcher(t *testing.T) (*Fetcher, *ledger.Store) {
	t.Helper()
	store, err := ledger.Open(types.LedgerConfig{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	fetcher := NewFetcher(store, types.FulltextConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   5 * time.Second,
			UserAgent: "triage-engine-test/1.0",
		},
		PapersDir: t.TempDir(),
	})
	return fetcher, store
}

// routedEntry walks a fresh entry to the routed stage with the given
// tier and lane.
func routedEntry(t *testing.T, store *ledger.Store, key string, id types.CanonicalID, tier types.AccessTier, lane types.Lane) types.LedgerEntry {
	t.Helper()
	ctx := context.Background()

	_, created, err := store.Upsert(ctx, key, types.Candidate{
		RawLocator: "https://example.org/" + key,
		OriginKind: types.OriginPrimary,
	})
	require.NoError(t, err)
	require.True(t, created)

	_, err = store.Advance(ctx, key, ledger.StageResult{
		From: types.StagePending, To: types.StageResolved, CanonicalID: &id,
	})
	require.NoError(t, err)
	_, err = store.Advance(ctx, key, ledger.StageResult{
		From: types.StageResolved, To: types.StageClassified, Tier: tier,
	})
	require.NoError(t, err)
	_, err = store.Advance(ctx, key, ledger.StageResult{
		From: types.StageClassified, To: types.StageScored, ProfileVersion: 1,
	})
	require.NoError(t, err)
	entry, err := store.Advance(ctx, key, ledger.StageResult{
		From: types.StageScored, To: types.StageRouted, Lane: lane,
	})
	require.NoError(t, err)
	return entry
}

func TestFetchDownloadsAndAdvances(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.URL.Path, "/2501.12345"))
		w.Write([]byte("%PDF-1.5 fake body"))
	}))
	defer server.Close()

	oldBase := arxivPDFBase
	arxivPDFBase = server.URL + "/"
	defer func() { arxivPDFBase = oldBase }()

	fetcher, store := newTestFetcher(t)
	id := types.CanonicalID{Kind: types.KindArxiv, Value: "2501.12345"}
	entry := routedEntry(t, store, "arxiv:2501.12345", id, types.TierPreprint, types.LaneInDepth)

	path, err := fetcher.Fetch(context.Background(), entry, "run1")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))

	after, err := store.Lookup(context.Background(), entry.DedupKey)
	require.NoError(t, err)
	assert.Equal(t, types.StageFulltextFetched, after.Stage)

	// No temp files left behind.
	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), ".fulltext-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFetchRefusesMetadataOnly(t *testing.T) {
	fetcher, store := newTestFetcher(t)
	id := types.CanonicalID{Kind: types.KindDOI, Value: "10.1234/closed"}
	entry := routedEntry(t, store, "doi:10.1234/closed", id, types.TierMetadataOnly, types.LaneInDepth)

	_, err := fetcher.Fetch(context.Background(), entry, "run1")
	assert.ErrorIs(t, err, ErrPolicyViolation)

	// The entry must not have advanced.
	after, err := store.Lookup(context.Background(), entry.DedupKey)
	require.NoError(t, err)
	assert.Equal(t, types.StageRouted, after.Stage)
}

func TestFetchRefusesBlurbLane(t *testing.T) {
	fetcher, store := newTestFetcher(t)
	id := types.CanonicalID{Kind: types.KindArxiv, Value: "2502.00001"}
	entry := routedEntry(t, store, "arxiv:2502.00001", id, types.TierPreprint, types.LaneBlurb)

	_, err := fetcher.Fetch(context.Background(), entry, "run1")
	assert.ErrorIs(t, err, ErrPolicyViolation)
}

func TestFetchFailedDownloadLeavesNoFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	oldBase := arxivPDFBase
	arxivPDFBase = server.URL + "/"
	defer func() { arxivPDFBase = oldBase }()

	fetcher, store := newTestFetcher(t)
	id := types.CanonicalID{Kind: types.KindArxiv, Value: "2503.00002"}
	entry := routedEntry(t, store, "arxiv:2503.00002", id, types.TierPreprint, types.LaneDigest)

	_, err := fetcher.Fetch(context.Background(), entry, "run1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPolicyViolation)

	files, err := filepath.Glob(filepath.Join(fetcher.cfg.PapersDir, "raw", "*"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestResolvePDFURL(t *testing.T) {
	tests := []struct {
		name    string
		entry   types.LedgerEntry
		want    string
		wantErr bool
	}{
		{
			name:  "arxiv",
			entry: types.LedgerEntry{CanonicalID: types.CanonicalID{Kind: types.KindArxiv, Value: "2501.12345"}},
			want:  "https://arxiv.org/pdf/2501.12345",
		},
		{
			name:  "pmcid",
			entry: types.LedgerEntry{CanonicalID: types.CanonicalID{Kind: types.KindPMCID, Value: "PMC9876543"}},
			want:  "https://www.ncbi.nlm.nih.gov/pmc/articles/PMC9876543/pdf/",
		},
		{
			name: "doi with pdf locator",
			entry: types.LedgerEntry{
				CanonicalID: types.CanonicalID{Kind: types.KindDOI, Value: "10.1/x"},
				RawLocator:  "https://example.org/paper.pdf",
			},
			want: "https://example.org/paper.pdf",
		},
		{
			name: "doi without pdf locator",
			entry: types.LedgerEntry{
				CanonicalID: types.CanonicalID{Kind: types.KindDOI, Value: "10.1/y"},
				RawLocator:  "https://example.org/landing",
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolvePDFURL(tt.entry)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFetchBatchSummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.5"))
	}))
	defer server.Close()

	oldBase := arxivPDFBase
	arxivPDFBase = server.URL + "/"
	defer func() { arxivPDFBase = oldBase }()

	fetcher, store := newTestFetcher(t)
	routedEntry(t, store, "arxiv:2504.00001",
		types.CanonicalID{Kind: types.KindArxiv, Value: "2504.00001"},
		types.TierPreprint, types.LaneInDepth)
	routedEntry(t, store, "doi:10.9/closed",
		types.CanonicalID{Kind: types.KindDOI, Value: "10.9/closed"},
		types.TierMetadataOnly, types.LaneDigest)

	var buf strings.Builder
	err := fetcher.FetchBatch(context.Background(), "run1", &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Fulltext summary: 1 fetched, 1 skipped, 0 failed")
}
