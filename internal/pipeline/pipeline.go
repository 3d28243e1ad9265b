// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives ledger entries through the triage stages:
// resolve, classify, score, route. Each stage completion is one ledger
// Advance, so a run interrupted mid-batch resumes exactly where the
// ledger says it stopped.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thebeakers/triage-engine/internal/access"
	"github.com/thebeakers/triage-engine/internal/ledger"
	"github.com/thebeakers/triage-engine/internal/metadata"
	"github.com/thebeakers/triage-engine/internal/route"
	"github.com/thebeakers/triage-engine/internal/score"
	"github.com/thebeakers/triage-engine/pkg/types"
)

// MetadataLookup is the external lookup dependency; nil disables
// lookups (offline mode).
type MetadataLookup interface {
	Lookup(ctx context.Context, id types.CanonicalID) (*types.CandidateMeta, error)
}

// Runner orchestrates one triage run over the ledger.
type Runner struct {
	store *ledger.Store
	meta  MetadataLookup
	cfg   types.TriageConfig

	// LookupDelay paces consecutive metadata lookups.
	LookupDelay time.Duration

	// DryRun reports decisions without writing them to the ledger.
	DryRun bool
}

// NewRunner builds a Runner. Pass a nil lookup to triage offline, using
// only feed-supplied text.
func NewRunner(store *ledger.Store, meta MetadataLookup, cfg types.TriageConfig) *Runner {
	return &Runner{store: store, meta: meta, cfg: cfg}
}

// RunSummary counts the outcomes of one triage run.
type RunSummary struct {
	RunID           string
	Processed       int
	Routed          map[types.Lane]int
	Rejected        int
	DiscoveryFailed int
	Failed          int
	Deferred        int
}

// NewRunID builds a run identifier from the batch week.
func NewRunID(weekOf string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("triage_%s_%s", weekOf, suffix)
}

// Run triages every pending entry matching the configured disciplines
// and limit. Per-entry failures are reported and skipped so one bad
// candidate never blocks the batch.
func (r *Runner) Run(ctx context.Context, out io.Writer) (RunSummary, error) {
	summary := RunSummary{
		RunID:  NewRunID(r.cfg.WeekOf),
		Routed: make(map[types.Lane]int),
	}

	if !r.DryRun {
		err := r.store.CreateRun(ctx, types.TriageRun{
			RunID:     summary.RunID,
			WeekOf:    r.cfg.WeekOf,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return summary, fmt.Errorf("recording run: %w", err)
		}
	}

	entries, err := r.pendingWork(ctx)
	if err != nil {
		return summary, err
	}
	fmt.Fprintf(out, "Triage run %s: %d entries\n", summary.RunID, len(entries))

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		outcome, err := r.processEntry(ctx, entry, summary.RunID)
		summary.Processed++
		switch {
		case err != nil:
			summary.Failed++
			fmt.Fprintf(out, "  [%d/%d] %s: %v\n", i+1, len(entries), entry.DedupKey, err)
		case outcome.discoveryFailed:
			summary.DiscoveryFailed++
			fmt.Fprintf(out, "  [%d/%d] %s: discovery failed\n", i+1, len(entries), entry.DedupKey)
		case outcome.deferred:
			summary.Deferred++
			fmt.Fprintf(out, "  [%d/%d] %s: deferred (%s)\n", i+1, len(entries), entry.DedupKey, outcome.note)
		case outcome.lane == types.LaneReject:
			summary.Rejected++
			fmt.Fprintf(out, "  [%d/%d] %s: rejected (%s)\n", i+1, len(entries), entry.DedupKey, outcome.rule)
		default:
			summary.Routed[outcome.lane]++
			flag := ""
			if outcome.frontier {
				flag = " [frontier]"
			}
			fmt.Fprintf(out, "  [%d/%d] %s: %s (%s)%s\n", i+1, len(entries), entry.DedupKey, outcome.lane, outcome.rule, flag)
		}
	}

	fmt.Fprintf(out, "Run summary: %d processed, %d in_depth, %d digest, %d blurb, %d rejected, %d discovery_failed, %d deferred, %d failed\n",
		summary.Processed, summary.Routed[types.LaneInDepth], summary.Routed[types.LaneDigest],
		summary.Routed[types.LaneBlurb], summary.Rejected, summary.DiscoveryFailed, summary.Deferred, summary.Failed)
	return summary, nil
}

// pendingWork collects entries in any pre-routing stage, pending first.
func (r *Runner) pendingWork(ctx context.Context) ([]types.LedgerEntry, error) {
	var work []types.LedgerEntry
	for _, stage := range []types.Stage{
		types.StagePending, types.StageResolved, types.StageClassified, types.StageScored,
	} {
		entries, err := r.store.ListByStage(ctx, stage, r.cfg.Disciplines, 0)
		if err != nil {
			return nil, err
		}
		work = append(work, entries...)
	}
	if r.cfg.Limit > 0 && len(work) > r.cfg.Limit {
		work = work[:r.cfg.Limit]
	}
	return work, nil
}

type outcome struct {
	lane            types.Lane
	rule            string
	frontier        bool
	deferred        bool
	discoveryFailed bool
	note            string
}

// processEntry walks one entry from its current stage to routed (or a
// terminal status). Metadata unavailability defers the entry rather than
// classifying it against an empty snapshot.
func (r *Runner) processEntry(ctx context.Context, entry types.LedgerEntry, runID string) (outcome, error) {
	var meta *types.CandidateMeta
	var profile *types.ScoreProfile

	for {
		switch entry.Stage {
		case types.StagePending:
			next, done, err := r.resolveStage(ctx, entry, runID)
			if err != nil || done {
				return outcome{discoveryFailed: done}, err
			}
			entry = next

		case types.StageResolved:
			if meta == nil && r.meta != nil && entry.CanonicalID.Resolved() {
				m, err := r.lookupMeta(ctx, entry.CanonicalID)
				if errors.Is(err, metadata.ErrUnavailable) {
					return outcome{deferred: true, note: "metadata unavailable"}, nil
				}
				if err != nil {
					return outcome{}, err
				}
				meta = m
			}
			next, err := r.classifyStage(ctx, entry, meta, runID)
			if err != nil {
				return outcome{}, err
			}
			entry = next

		case types.StageClassified:
			next, p, err := r.scoreStage(ctx, entry, meta, runID)
			if err != nil {
				return outcome{}, err
			}
			entry, profile = next, p

		case types.StageScored:
			return r.routeStage(ctx, entry, profile, runID)

		default:
			return outcome{lane: entry.Lane, rule: entry.Rule, frontier: entry.Frontier}, nil
		}
	}
}

// resolveStage advances pending entries using the identifier captured at
// ingestion. Secondary candidates that never produced an identifier are
// marked discovery_failed; unresolved primary candidates continue on
// their locator alone.
func (r *Runner) resolveStage(ctx context.Context, entry types.LedgerEntry, runID string) (types.LedgerEntry, bool, error) {
	if !entry.CanonicalID.Resolved() && entry.OriginKind == types.OriginSecondary {
		if r.DryRun {
			return entry, true, nil
		}
		_, err := r.store.Mark(ctx, entry.DedupKey, types.StatusDiscoveryFailed, runID,
			"no identifier found on "+entry.DiscoveredFrom)
		return entry, true, err
	}

	if r.DryRun {
		entry.Stage = types.StageResolved
		return entry, false, nil
	}
	next, err := r.store.Advance(ctx, entry.DedupKey, ledger.StageResult{
		From:   types.StagePending,
		To:     types.StageResolved,
		RunID:  runID,
		Detail: "identifier " + entry.CanonicalID.String(),
	})
	return next, false, err
}

func (r *Runner) lookupMeta(ctx context.Context, id types.CanonicalID) (*types.CandidateMeta, error) {
	if r.LookupDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.LookupDelay):
		}
	}
	return r.meta.Lookup(ctx, id)
}

func (r *Runner) classifyStage(ctx context.Context, entry types.LedgerEntry, meta *types.CandidateMeta, runID string) (types.LedgerEntry, error) {
	hints := types.SourceHints{}
	discipline := entry.Discipline
	if meta != nil {
		hints = meta.Hints
		if meta.Discipline != "" {
			discipline = meta.Discipline
		}
	}
	tier := access.Classify(entry.CanonicalID, entry.RawLocator, hints)

	if r.DryRun {
		entry.Stage = types.StageClassified
		entry.Tier = tier
		entry.Discipline = discipline
		return entry, nil
	}
	return r.store.Advance(ctx, entry.DedupKey, ledger.StageResult{
		From:       types.StageResolved,
		To:         types.StageClassified,
		RunID:      runID,
		Detail:     "tier " + string(tier),
		Tier:       tier,
		Discipline: discipline,
	})
}

func (r *Runner) scoreStage(ctx context.Context, entry types.LedgerEntry, meta *types.CandidateMeta, runID string) (types.LedgerEntry, *types.ScoreProfile, error) {
	candidate := types.Candidate{
		RawLocator: entry.RawLocator,
		OriginKind: entry.OriginKind,
		Headline:   entry.Headline,
		Teaser:     entry.Teaser,
		Source:     entry.Source,
		Category:   entry.Discipline,
	}
	var snapshot types.CandidateMeta
	if meta != nil {
		snapshot = *meta
	}
	profile := score.Score(candidate, snapshot)

	if r.DryRun {
		entry.Stage = types.StageScored
		return entry, &profile, nil
	}
	version, err := r.store.AppendProfile(ctx, entry.DedupKey, profile, runID)
	if err != nil {
		return types.LedgerEntry{}, nil, err
	}
	next, err := r.store.Advance(ctx, entry.DedupKey, ledger.StageResult{
		From:           types.StageClassified,
		To:             types.StageScored,
		RunID:          runID,
		Detail:         fmt.Sprintf("profile v%d", version),
		ProfileVersion: version,
	})
	return next, &profile, err
}

// routeStage applies the routing rules. The profile comes from the
// scoring pass of this run when available; entries resuming directly at
// the scored stage reload their latest stored profile.
func (r *Runner) routeStage(ctx context.Context, entry types.LedgerEntry, profile *types.ScoreProfile, runID string) (outcome, error) {
	if profile == nil {
		p, _, err := r.store.Profile(ctx, entry.DedupKey, 0)
		if err != nil && !errors.Is(err, ledger.ErrNotFound) {
			return outcome{}, err
		}
		if err == nil {
			profile = &p
		}
	}

	decision := route.Route(profile, entry.Tier)
	result := outcome{lane: decision.Lane, rule: decision.Rule, frontier: decision.Frontier}
	if r.DryRun {
		return result, nil
	}

	res := ledger.StageResult{
		From:     types.StageScored,
		To:       types.StageRouted,
		RunID:    runID,
		Detail:   fmt.Sprintf("lane %s by %s", decision.Lane, decision.Rule),
		Lane:     decision.Lane,
		Rule:     decision.Rule,
		Frontier: decision.Frontier,
	}
	if decision.Lane == types.LaneReject {
		res.Status = types.StatusRejected
	}
	_, err := r.store.Advance(ctx, entry.DedupKey, res)
	return result, err
}
