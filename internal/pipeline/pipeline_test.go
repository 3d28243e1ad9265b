// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebeakers/triage-engine/internal/feed"
	"github.com/thebeakers/triage-engine/internal/ledger"
	"github.com/thebeakers/triage-engine/internal/metadata"
	"github.com/thebeakers/triage-engine/pkg/types"
)

// fakeLookup serves canned metadata keyed by identifier string.
type fakeLookup struct {
	snapshots map[string]*types.CandidateMeta
	err       error
}

func (f *fakeLookup) Lookup(ctx context.Context, id types.CanonicalID) (*types.CandidateMeta, error) {
	if f.err != nil {
		return nil, f.err
	}
	if meta, ok := f.snapshots[id.String()]; ok {
		return meta, nil
	}
	return &types.CandidateMeta{}, nil
}

// strongMeta scores high enough on every factor to route in_depth.
var strongMeta = &types.CandidateMeta{
	Title: "Direct observation of proton transfer in confined water",
	Abstract: "We report the first demonstration of single-proton transfer imaged in " +
		"confined water channels. Using a randomized sampling protocol over n = 120 " +
		"channels, reproduced by two independent groups, we resolve the transfer " +
		"mechanism and show how channel geometry explains the anomalous mobility. " +
		"Each dataset includes a figure series from cryogenic microscopy alongside " +
		"the raw trajectories, and the model reproduces measured rates within 4 % " +
		"across the full temperature range studied here.",
	Venue:      "Nature",
	Discipline: "chemistry",
	Hints:      types.SourceHints{OpenLicense: true, Evidence: "openalex:gold"},
}

func newTestStore(t *testing.T) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(types.LedgerConfig{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func ingestOne(t *testing.T, store *ledger.Store, c types.Candidate) IngestSummary {
	t.Helper()
	batch := &feed.Batch{WeekOf: "2026-08-24", Candidates: []types.Candidate{c}}
	summary, err := Ingest(context.Background(), store, batch, &strings.Builder{})
	require.NoError(t, err)
	return summary
}

func TestIngestResolvesAndKeys(t *testing.T) {
	store := newTestStore(t)
	summary := ingestOne(t, store, types.Candidate{
		RawLocator: "https://doi.org/10.1038/S41586-025-09819-W",
		OriginKind: types.OriginPrimary,
	})
	assert.Equal(t, 1, summary.Created)

	entry, err := store.Lookup(context.Background(), "doi:10.1038/s41586-025-09819-w")
	require.NoError(t, err)
	assert.Equal(t, types.KindDOI, entry.CanonicalID.Kind)
	assert.Equal(t, types.StagePending, entry.Stage)
}

func TestIngestDeduplicatesAcrossBatches(t *testing.T) {
	store := newTestStore(t)
	first := ingestOne(t, store, types.Candidate{
		RawLocator: "https://doi.org/10.1038/s41586-025-09819-w",
		OriginKind: types.OriginPrimary,
	})
	second := ingestOne(t, store, types.Candidate{
		RawLocator: "https://www.nature.com/articles/s41586-025-09819-w?utm_source=x#abs",
		OriginKind: types.OriginPrimary,
		DiscoveryContext: "doi.org/10.1038/s41586-025-09819-w",
	})
	assert.Equal(t, 1, first.Created)
	// The second locator does not itself carry the DOI, so it keys by URL.
	assert.Equal(t, 1, second.Created)

	same := ingestOne(t, store, types.Candidate{
		RawLocator: "https://doi.org/10.1038/s41586-025-09819-w",
		OriginKind: types.OriginPrimary,
	})
	assert.Equal(t, 1, same.Duplicates)
}

func TestIngestConsolidatesLateResolution(t *testing.T) {
	store := newTestStore(t)
	locator := "https://www.sciencedaily.com/releases/2026/08/story.htm"

	// First sighting: nothing resolvable.
	first := ingestOne(t, store, types.Candidate{
		RawLocator:     locator,
		OriginKind:     types.OriginSecondary,
		DiscoveredFrom: "https://news.ycombinator.com/item?id=1",
	})
	assert.Equal(t, 1, first.Created)

	// Second sighting: the aggregator page now quotes the arXiv ID.
	second := ingestOne(t, store, types.Candidate{
		RawLocator:       locator,
		OriginKind:       types.OriginSecondary,
		DiscoveredFrom:   "https://news.ycombinator.com/item?id=2",
		DiscoveryContext: "The preprint is at arXiv:2501.12345",
	})
	assert.Equal(t, 1, second.Merged)
	assert.Equal(t, 0, second.Created)

	// Both keys now reach the same entry.
	byURL, err := store.Lookup(context.Background(), "url:"+strings.ToLower(strings.TrimSuffix(locator, "/")))
	require.NoError(t, err)
	byID, err := store.Lookup(context.Background(), "arxiv:2501.12345")
	require.NoError(t, err)
	assert.Equal(t, byURL.DedupKey, byID.DedupKey)
}

func TestRunRoutesInDepth(t *testing.T) {
	store := newTestStore(t)
	ingestOne(t, store, types.Candidate{
		RawLocator: "https://doi.org/10.1038/s41586-025-09819-w",
		OriginKind: types.OriginPrimary,
		Headline:   "Proton transfer imaged in confined water",
	})

	lookup := &fakeLookup{snapshots: map[string]*types.CandidateMeta{
		"doi:10.1038/s41586-025-09819-w": strongMeta,
	}}
	runner := NewRunner(store, lookup, types.TriageConfig{WeekOf: "2026-08-24"})

	var buf strings.Builder
	summary, err := runner.Run(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Routed[types.LaneInDepth])

	entry, err := store.Lookup(context.Background(), "doi:10.1038/s41586-025-09819-w")
	require.NoError(t, err)
	assert.Equal(t, types.StageRouted, entry.Stage)
	assert.Equal(t, types.LaneInDepth, entry.Lane)
	assert.Equal(t, types.TierOpenPDF, entry.Tier)
	assert.Equal(t, types.StatusActive, entry.Status)
	assert.Equal(t, 1, entry.ProfileVersion)
	assert.Equal(t, "chemistry", entry.Discipline)
}

func TestRunRejectsThinCandidate(t *testing.T) {
	store := newTestStore(t)
	ingestOne(t, store, types.Candidate{
		RawLocator: "https://doi.org/10.5555/thin.paper",
		OriginKind: types.OriginPrimary,
		Headline:   "A paper exists",
	})

	runner := NewRunner(store, &fakeLookup{}, types.TriageConfig{WeekOf: "2026-08-24"})
	summary, err := runner.Run(context.Background(), &strings.Builder{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Rejected)

	entry, err := store.Lookup(context.Background(), "doi:10.5555/thin.paper")
	require.NoError(t, err)
	assert.Equal(t, types.StatusRejected, entry.Status)
	assert.Equal(t, types.LaneReject, entry.Lane)
}

func TestRunMarksDiscoveryFailed(t *testing.T) {
	store := newTestStore(t)
	ingestOne(t, store, types.Candidate{
		RawLocator:     "https://blog.example.org/cool-study",
		OriginKind:     types.OriginSecondary,
		DiscoveredFrom: "https://news.ycombinator.com/item?id=3",
	})

	runner := NewRunner(store, &fakeLookup{}, types.TriageConfig{WeekOf: "2026-08-24"})
	summary, err := runner.Run(context.Background(), &strings.Builder{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.DiscoveryFailed)

	entry, err := store.Lookup(context.Background(), "url:https://blog.example.org/cool-study")
	require.NoError(t, err)
	assert.Equal(t, types.StatusDiscoveryFailed, entry.Status)
}

func TestRunDefersOnMetadataOutage(t *testing.T) {
	store := newTestStore(t)
	ingestOne(t, store, types.Candidate{
		RawLocator: "https://doi.org/10.1038/s41586-025-09819-w",
		OriginKind: types.OriginPrimary,
	})

	runner := NewRunner(store, &fakeLookup{err: metadata.ErrUnavailable}, types.TriageConfig{WeekOf: "2026-08-24"})
	summary, err := runner.Run(context.Background(), &strings.Builder{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Deferred)

	// The entry holds at resolved; the next run picks it up again.
	entry, err := store.Lookup(context.Background(), "doi:10.1038/s41586-025-09819-w")
	require.NoError(t, err)
	assert.Equal(t, types.StageResolved, entry.Stage)
	assert.Equal(t, types.StatusActive, entry.Status)
}

func TestRunResumesFromIntermediateStage(t *testing.T) {
	store := newTestStore(t)
	ingestOne(t, store, types.Candidate{
		RawLocator: "https://doi.org/10.1038/s41586-025-09819-w",
		OriginKind: types.OriginPrimary,
	})

	lookup := &fakeLookup{snapshots: map[string]*types.CandidateMeta{
		"doi:10.1038/s41586-025-09819-w": strongMeta,
	}}

	// First run dies at the metadata outage.
	outage := NewRunner(store, &fakeLookup{err: metadata.ErrUnavailable}, types.TriageConfig{WeekOf: "2026-08-24"})
	_, err := outage.Run(context.Background(), &strings.Builder{})
	require.NoError(t, err)

	// Second run completes from the resolved stage.
	runner := NewRunner(store, lookup, types.TriageConfig{WeekOf: "2026-08-24"})
	summary, err := runner.Run(context.Background(), &strings.Builder{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Routed[types.LaneInDepth])
}

func TestRunOfflineUsesLocatorOnly(t *testing.T) {
	store := newTestStore(t)
	ingestOne(t, store, types.Candidate{
		RawLocator: "https://arxiv.org/abs/2501.12345",
		OriginKind: types.OriginPrimary,
		Headline:   "Scaling laws for sparse mixtures",
	})

	runner := NewRunner(store, nil, types.TriageConfig{WeekOf: "2026-08-24"})
	_, err := runner.Run(context.Background(), &strings.Builder{})
	require.NoError(t, err)

	entry, err := store.Lookup(context.Background(), "arxiv:2501.12345")
	require.NoError(t, err)
	assert.Equal(t, types.TierPreprint, entry.Tier)
	assert.Equal(t, types.StageRouted, entry.Stage)
}

func TestRunOfflineScoresFeedText(t *testing.T) {
	store := newTestStore(t)
	ingestOne(t, store, types.Candidate{
		RawLocator: "https://arxiv.org/abs/2503.04821",
		OriginKind: types.OriginPrimary,
		Headline:   "Charge ordering seen in a kagome superconductor",
		Teaser: "We report the direct observation of charge ordering in a kagome " +
			"superconductor. Scanning tunneling microscopy figures and a public " +
			"dataset show how the ordering emerges, and simulations across " +
			"n = 12 samples reproduced the effect. The mechanism explains the " +
			"anomalous transport seen in earlier work.",
		Category: "physics",
	})

	runner := NewRunner(store, nil, types.TriageConfig{WeekOf: "2026-08-24"})
	summary, err := runner.Run(context.Background(), &strings.Builder{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Routed[types.LaneInDepth])
	assert.Zero(t, summary.Rejected)

	entry, err := store.Lookup(context.Background(), "arxiv:2503.04821")
	require.NoError(t, err)
	assert.Equal(t, types.StatusActive, entry.Status)
	assert.Equal(t, types.LaneInDepth, entry.Lane)
	assert.Equal(t, "physics", entry.Discipline)

	profile, _, err := store.Profile(context.Background(), entry.DedupKey, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, profile.Evidence, 4)
	assert.GreaterOrEqual(t, profile.Teachability, 4)
}

func TestRunDryRunWritesNothing(t *testing.T) {
	store := newTestStore(t)
	ingestOne(t, store, types.Candidate{
		RawLocator: "https://doi.org/10.1038/s41586-025-09819-w",
		OriginKind: types.OriginPrimary,
	})

	lookup := &fakeLookup{snapshots: map[string]*types.CandidateMeta{
		"doi:10.1038/s41586-025-09819-w": strongMeta,
	}}
	runner := NewRunner(store, lookup, types.TriageConfig{WeekOf: "2026-08-24"})
	runner.DryRun = true

	var buf strings.Builder
	summary, err := runner.Run(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Routed[types.LaneInDepth])

	entry, err := store.Lookup(context.Background(), "doi:10.1038/s41586-025-09819-w")
	require.NoError(t, err)
	assert.Equal(t, types.StagePending, entry.Stage)
	assert.Zero(t, entry.ProfileVersion)
}

func TestRunDisciplineFilter(t *testing.T) {
	store := newTestStore(t)
	ingestOne(t, store, types.Candidate{
		RawLocator: "https://doi.org/10.1/a",
		OriginKind: types.OriginPrimary,
		Category:   "physics",
	})
	ingestOne(t, store, types.Candidate{
		RawLocator: "https://doi.org/10.1/b",
		OriginKind: types.OriginPrimary,
		Category:   "biology",
	})

	runner := NewRunner(store, &fakeLookup{}, types.TriageConfig{
		WeekOf:      "2026-08-24",
		Disciplines: []string{"physics"},
	})
	summary, err := runner.Run(context.Background(), &strings.Builder{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
}

func TestRunLimit(t *testing.T) {
	store := newTestStore(t)
	for _, suffix := range []string{"a", "b", "c"} {
		ingestOne(t, store, types.Candidate{
			RawLocator: "https://doi.org/10.2/" + suffix,
			OriginKind: types.OriginPrimary,
		})
	}

	runner := NewRunner(store, &fakeLookup{}, types.TriageConfig{WeekOf: "2026-08-24", Limit: 2})
	summary, err := runner.Run(context.Background(), &strings.Builder{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
}

func TestNewRunID(t *testing.T) {
	id := NewRunID("2026-08-24")
	assert.True(t, strings.HasPrefix(id, "triage_2026-08-24_"))
	assert.NotEqual(t, id, NewRunID("2026-08-24"))
}
