// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thebeakers/triage-engine/pkg/types"
)

const timeFormat = time.RFC3339Nano

// entryColumns is the column list shared by every entry scan.
const entryColumns = `dedup_key, stage, status, id_kind, id_value, raw_locator,
	origin_kind, discovered_from, headline, teaser, source, discipline, tier,
	profile_version, lane, rule, frontier, created_at, updated_at`

// StageResult is the payload of one completed stage: the transition plus
// the fields that stage produced. Fields irrelevant to the stage stay
// zero and leave the stored entry untouched.
type StageResult struct {
	// From is the stage the entry must currently be in; To must be the
	// stage immediately after it.
	From types.Stage
	To   types.Stage

	// RunID groups the transition under a triage run for audit.
	RunID string

	// Detail is a free-form audit note recorded in history.
	Detail string

	// CanonicalID records a freshly resolved identifier.
	CanonicalID *types.CanonicalID

	// Tier records the access classification.
	Tier types.AccessTier

	// Discipline records the inferred subject discipline.
	Discipline string

	// ProfileVersion records the score profile version this transition
	// was decided against.
	ProfileVersion int

	// Lane, Rule, and Frontier record the routing decision.
	Lane     types.Lane
	Rule     string
	Frontier bool

	// Status optionally marks the entry terminal in the same transition
	// (e.g. routing to reject).
	Status types.EntryStatus
}

// Upsert creates a pending entry for the dedup key on first sighting.
// When the key (or any alias of it) is already known, the existing entry
// is returned untouched: at-most-once ingestion per identity, including
// entries already in a terminal status.
func (s *Store) Upsert(ctx context.Context, key string, c types.Candidate) (types.LedgerEntry, bool, error) {
	if err := c.Validate(); err != nil {
		return types.LedgerEntry{}, false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.LedgerEntry{}, false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	canonical, err := resolveAlias(ctx, tx, key)
	if err != nil {
		return types.LedgerEntry{}, false, err
	}

	existing, err := lookupTx(ctx, tx, canonical)
	if err == nil {
		return existing, false, tx.Commit()
	}
	if !errors.Is(err, ErrNotFound) {
		return types.LedgerEntry{}, false, err
	}

	now := time.Now().UTC()
	idKind, idValue := string(types.KindNone), ""
	if c.CanonicalID.Resolved() {
		idKind, idValue = string(c.CanonicalID.Kind), c.CanonicalID.Value
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO entries (dedup_key, stage, status, id_kind, id_value, raw_locator,
			origin_kind, discovered_from, headline, teaser, source, discipline,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		canonical, types.StagePending, types.StatusActive, idKind, idValue,
		c.RawLocator, c.OriginKind, c.DiscoveredFrom, c.Headline, c.Teaser,
		c.Source, c.Category, now.Format(timeFormat), now.Format(timeFormat),
	)
	if err != nil {
		return types.LedgerEntry{}, false, fmt.Errorf("inserting entry %s: %w", canonical, err)
	}

	if err := appendHistory(ctx, tx, canonical, "", types.StagePending, "", "ingested", now); err != nil {
		return types.LedgerEntry{}, false, err
	}

	entry, err := lookupTx(ctx, tx, canonical)
	if err != nil {
		return types.LedgerEntry{}, false, err
	}
	return entry, true, tx.Commit()
}

// Lookup returns the entry for a dedup key or any alias of it.
func (s *Store) Lookup(ctx context.Context, key string) (types.LedgerEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.LedgerEntry{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	canonical, err := resolveAlias(ctx, tx, key)
	if err != nil {
		return types.LedgerEntry{}, err
	}
	entry, err := lookupTx(ctx, tx, canonical)
	if err != nil {
		return types.LedgerEntry{}, err
	}
	return entry, tx.Commit()
}

// Advance applies a stage-completion event. The transition must move the
// entry from its expected current stage to the immediately following
// stage; the update is a compare-and-swap on the stored stage, so
// concurrent duplicate execution surfaces as ErrStageConflict instead of
// corrupting state. Replaying an already-applied result is a no-op, not a
// duplicate history append. Terminal entries refuse every transition.
func (s *Store) Advance(ctx context.Context, key string, res StageResult) (types.LedgerEntry, error) {
	if res.From.Next() != res.To {
		return types.LedgerEntry{}, fmt.Errorf("invalid transition %s -> %s", res.From, res.To)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.LedgerEntry{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	canonical, err := resolveAlias(ctx, tx, key)
	if err != nil {
		return types.LedgerEntry{}, err
	}
	entry, err := lookupTx(ctx, tx, canonical)
	if err != nil {
		return types.LedgerEntry{}, err
	}

	if entry.Stage == res.To {
		// Already applied: idempotent replay.
		return entry, tx.Commit()
	}
	if entry.Status.Terminal() {
		return types.LedgerEntry{}, fmt.Errorf("%w: entry %s is %s", ErrStageConflict, canonical, entry.Status)
	}
	if entry.Stage != res.From {
		return types.LedgerEntry{}, fmt.Errorf("%w: entry %s at stage %s, expected %s", ErrStageConflict, canonical, entry.Stage, res.From)
	}

	updated := applyResult(entry, res)
	now := time.Now().UTC()

	idKind, idValue := string(types.KindNone), ""
	if updated.CanonicalID.Resolved() {
		idKind, idValue = string(updated.CanonicalID.Kind), updated.CanonicalID.Value
	}
	r, err := tx.ExecContext(ctx,
		`UPDATE entries SET stage = ?, status = ?, id_kind = ?, id_value = ?,
			discipline = ?, tier = ?, profile_version = ?, lane = ?, rule = ?,
			frontier = ?, updated_at = ?
		 WHERE dedup_key = ? AND stage = ?`,
		res.To, updated.Status, idKind, idValue,
		updated.Discipline, updated.Tier, updated.ProfileVersion,
		updated.Lane, updated.Rule, boolToInt(updated.Frontier),
		now.Format(timeFormat),
		canonical, res.From,
	)
	if err != nil {
		return types.LedgerEntry{}, fmt.Errorf("advancing %s: %w", canonical, err)
	}
	affected, err := r.RowsAffected()
	if err != nil {
		return types.LedgerEntry{}, err
	}
	if affected == 0 {
		// Lost the compare-and-swap to a concurrent writer.
		return types.LedgerEntry{}, fmt.Errorf("%w: entry %s changed underneath transition %s -> %s", ErrStageConflict, canonical, res.From, res.To)
	}

	if err := appendHistory(ctx, tx, canonical, res.From, res.To, res.RunID, res.Detail, now); err != nil {
		return types.LedgerEntry{}, err
	}

	final, err := lookupTx(ctx, tx, canonical)
	if err != nil {
		return types.LedgerEntry{}, err
	}
	return final, tx.Commit()
}

// Mark sets a lifecycle status without moving the stage, appending a
// history record. Re-marking the same status is a no-op; changing an
// already-terminal status is a conflict.
func (s *Store) Mark(ctx context.Context, key string, status types.EntryStatus, runID, detail string) (types.LedgerEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.LedgerEntry{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	canonical, err := resolveAlias(ctx, tx, key)
	if err != nil {
		return types.LedgerEntry{}, err
	}
	entry, err := lookupTx(ctx, tx, canonical)
	if err != nil {
		return types.LedgerEntry{}, err
	}

	if entry.Status == status {
		return entry, tx.Commit()
	}
	if entry.Status.Terminal() {
		return types.LedgerEntry{}, fmt.Errorf("%w: entry %s is %s, cannot mark %s", ErrStageConflict, canonical, entry.Status, status)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE entries SET status = ?, updated_at = ? WHERE dedup_key = ?`,
		status, now.Format(timeFormat), canonical,
	); err != nil {
		return types.LedgerEntry{}, fmt.Errorf("marking %s: %w", canonical, err)
	}
	if err := appendHistory(ctx, tx, canonical, entry.Stage, entry.Stage, runID, "status: "+string(status)+" "+detail, now); err != nil {
		return types.LedgerEntry{}, err
	}

	final, err := lookupTx(ctx, tx, canonical)
	if err != nil {
		return types.LedgerEntry{}, err
	}
	return final, tx.Commit()
}

// Merge consolidates a later-resolved dedup key under the original entry.
// Cross-referencing by identifier must consolidate, not fork, history: the
// resolved key becomes an alias of the original, any entry that was
// independently created under it is marked stale with a pointer back, and
// the surviving entry adopts the identifier when it has none.
func (s *Store) Merge(ctx context.Context, originalKey, resolvedKey string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	canonical, err := resolveAlias(ctx, tx, originalKey)
	if err != nil {
		return err
	}
	if resolvedKey == canonical {
		return tx.Commit()
	}
	surviving, err := lookupTx(ctx, tx, canonical)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if dup, err := lookupTx(ctx, tx, resolvedKey); err == nil && dup.DedupKey == resolvedKey {
		if _, err := tx.ExecContext(ctx,
			`UPDATE entries SET status = ?, updated_at = ? WHERE dedup_key = ?`,
			types.StatusStale, now.Format(timeFormat), resolvedKey,
		); err != nil {
			return fmt.Errorf("retiring duplicate %s: %w", resolvedKey, err)
		}
		if err := appendHistory(ctx, tx, resolvedKey, dup.Stage, dup.Stage, "", "merged into "+canonical, now); err != nil {
			return err
		}
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO key_aliases (alias, dedup_key) VALUES (?, ?)`,
		resolvedKey, canonical,
	); err != nil {
		return fmt.Errorf("recording alias %s: %w", resolvedKey, err)
	}

	if !surviving.CanonicalID.Resolved() {
		if id, ok := keyIdentifier(resolvedKey); ok {
			if _, err := tx.ExecContext(ctx,
				`UPDATE entries SET id_kind = ?, id_value = ?, updated_at = ? WHERE dedup_key = ?`,
				string(id.Kind), id.Value, now.Format(timeFormat), canonical,
			); err != nil {
				return fmt.Errorf("adopting identifier for %s: %w", canonical, err)
			}
			if err := appendHistory(ctx, tx, canonical, surviving.Stage, surviving.Stage, "", "adopted identifier "+resolvedKey, now); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// keyIdentifier parses an identifier-form dedup key ("kind:value") back
// into a CanonicalID. URL-form keys report false.
func keyIdentifier(key string) (types.CanonicalID, bool) {
	kind, value, found := strings.Cut(key, ":")
	if !found || value == "" {
		return types.CanonicalID{}, false
	}
	switch types.IDKind(kind) {
	case types.KindDOI, types.KindArxiv, types.KindPMCID:
		return types.CanonicalID{Kind: types.IDKind(kind), Value: value}, true
	}
	return types.CanonicalID{}, false
}

// History returns the stage history for a dedup key in sequence order.
// The log length never decreases: records are append-only.
func (s *Store) History(ctx context.Context, key string) ([]types.StageRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	canonical, err := resolveAlias(ctx, tx, key)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT seq, from_stage, to_stage, run_id, detail, created_at
		 FROM stage_history WHERE dedup_key = ? ORDER BY seq`, canonical)
	if err != nil {
		return nil, fmt.Errorf("reading history for %s: %w", canonical, err)
	}
	defer rows.Close()

	var records []types.StageRecord
	for rows.Next() {
		var rec types.StageRecord
		var created string
		if err := rows.Scan(&rec.Seq, &rec.From, &rec.To, &rec.RunID, &rec.Detail, &created); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(timeFormat, created)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, tx.Commit()
}

// --- helpers ---

// resolveAlias maps a key through the alias table to its canonical dedup
// key. Keys without an alias resolve to themselves.
func resolveAlias(ctx context.Context, tx *sql.Tx, key string) (string, error) {
	var canonical string
	err := tx.QueryRowContext(ctx,
		`SELECT dedup_key FROM key_aliases WHERE alias = ?`, key).Scan(&canonical)
	if errors.Is(err, sql.ErrNoRows) {
		return key, nil
	}
	if err != nil {
		return "", fmt.Errorf("resolving alias %s: %w", key, err)
	}
	return canonical, nil
}

func lookupTx(ctx context.Context, tx *sql.Tx, key string) (types.LedgerEntry, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE dedup_key = ?`, key)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.LedgerEntry{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return entry, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (types.LedgerEntry, error) {
	var e types.LedgerEntry
	var idKind, idValue, created, updated string
	var frontier int
	err := row.Scan(
		&e.DedupKey, &e.Stage, &e.Status, &idKind, &idValue, &e.RawLocator,
		&e.OriginKind, &e.DiscoveredFrom, &e.Headline, &e.Teaser, &e.Source,
		&e.Discipline, &e.Tier, &e.ProfileVersion, &e.Lane, &e.Rule, &frontier,
		&created, &updated,
	)
	if err != nil {
		return types.LedgerEntry{}, err
	}
	if types.IDKind(idKind) != types.KindNone && idValue != "" {
		e.CanonicalID = types.CanonicalID{Kind: types.IDKind(idKind), Value: idValue}
	}
	e.Frontier = frontier != 0
	e.CreatedAt, _ = time.Parse(timeFormat, created)
	e.UpdatedAt, _ = time.Parse(timeFormat, updated)
	return e, nil
}

// appendHistory appends the next history record for a key. Sequence
// numbers are dense and monotonically increasing per key.
func appendHistory(ctx context.Context, tx *sql.Tx, key string, from, to types.Stage, runID, detail string, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO stage_history (dedup_key, seq, from_stage, to_stage, run_id, detail, created_at)
		 VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM stage_history WHERE dedup_key = ?), ?, ?, ?, ?, ?)`,
		key, key, from, to, runID, detail, now.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("appending history for %s: %w", key, err)
	}
	return nil
}

// applyResult merges a stage result into an entry in memory; zero-valued
// result fields leave the entry untouched.
func applyResult(entry types.LedgerEntry, res StageResult) types.LedgerEntry {
	if res.CanonicalID != nil && res.CanonicalID.Resolved() {
		entry.CanonicalID = *res.CanonicalID
	}
	if res.Tier != "" {
		entry.Tier = res.Tier
	}
	if res.Discipline != "" {
		entry.Discipline = res.Discipline
	}
	if res.ProfileVersion != 0 {
		entry.ProfileVersion = res.ProfileVersion
	}
	if res.Lane != "" {
		entry.Lane = res.Lane
		entry.Rule = res.Rule
		entry.Frontier = res.Frontier
	}
	if res.Status != "" {
		entry.Status = res.Status
	}
	return entry
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
