// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/thebeakers/triage-engine/pkg/types"
)

// AppendProfile stores a new score profile version for the entry and
// returns the version number. Profiles are immutable once written: a
// re-score appends the next version, never overwriting a prior one, so
// routing decisions stay explainable against the inputs available at the
// time.
func (s *Store) AppendProfile(ctx context.Context, key string, p types.ScoreProfile, runID string) (int, error) {
	p = p.Clamp()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	canonical, err := resolveAlias(ctx, tx, key)
	if err != nil {
		return 0, err
	}
	if _, err := lookupTx(ctx, tx, canonical); err != nil {
		return 0, err
	}

	var version int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM score_profiles WHERE dedup_key = ?`,
		canonical).Scan(&version); err != nil {
		return 0, fmt.Errorf("computing profile version for %s: %w", canonical, err)
	}

	now := time.Now().UTC().Format(timeFormat)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO score_profiles (dedup_key, version, significance, evidence,
			teachability, media_affordance, hype_penalty, run_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		canonical, version, p.Significance, p.Evidence, p.Teachability,
		p.MediaAffordance, p.HypePenalty, runID, now,
	); err != nil {
		return 0, fmt.Errorf("inserting profile v%d for %s: %w", version, canonical, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE entries SET profile_version = ?, updated_at = ? WHERE dedup_key = ?`,
		version, now, canonical,
	); err != nil {
		return 0, fmt.Errorf("updating profile version for %s: %w", canonical, err)
	}

	return version, tx.Commit()
}

// Profile returns the score profile at the given version; version 0
// returns the latest.
func (s *Store) Profile(ctx context.Context, key string, version int) (types.ScoreProfile, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.ScoreProfile{}, 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	canonical, err := resolveAlias(ctx, tx, key)
	if err != nil {
		return types.ScoreProfile{}, 0, err
	}

	query := `SELECT version, significance, evidence, teachability, media_affordance, hype_penalty
		 FROM score_profiles WHERE dedup_key = ?`
	args := []any{canonical}
	if version > 0 {
		query += ` AND version = ?`
		args = append(args, version)
	} else {
		query += ` ORDER BY version DESC LIMIT 1`
	}

	var p types.ScoreProfile
	var got int
	err = tx.QueryRowContext(ctx, query, args...).Scan(
		&got, &p.Significance, &p.Evidence, &p.Teachability, &p.MediaAffordance, &p.HypePenalty)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ScoreProfile{}, 0, fmt.Errorf("%w: no profile for %s", ErrNotFound, canonical)
	}
	if err != nil {
		return types.ScoreProfile{}, 0, fmt.Errorf("reading profile for %s: %w", canonical, err)
	}
	return p, got, tx.Commit()
}

// CreateRun records a triage run for audit grouping.
func (s *Store) CreateRun(ctx context.Context, run types.TriageRun) error {
	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO triage_runs (run_id, week_of, created_at) VALUES (?, ?, ?)`,
		run.RunID, run.WeekOf, created.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.RunID, err)
	}
	return nil
}
