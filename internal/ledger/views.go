// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/thebeakers/triage-engine/pkg/types"
)

// ListByStage returns active entries currently at the given stage in
// ingestion order, optionally restricted to the named disciplines.
func (s *Store) ListByStage(ctx context.Context, stage types.Stage, disciplines []string, limit int) ([]types.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE stage = ? AND status = ?`
	args := []any{stage, types.StatusActive}

	if len(disciplines) > 0 {
		placeholders := strings.TrimRight(strings.Repeat("?,", len(disciplines)), ",")
		query += ` AND discipline IN (` + placeholders + `)`
		for _, d := range disciplines {
			args = append(args, d)
		}
	}
	query += ` ORDER BY created_at`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entries at %s: %w", stage, err)
	}
	defer rows.Close()

	var entries []types.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Summary aggregates ledger state for status output.
type Summary struct {
	Total    int
	ByStage  map[types.Stage]int
	ByStatus map[types.EntryStatus]int
	ByLane   map[types.Lane]int
}

// Summarize counts entries per stage, status, and lane.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	summary := Summary{
		ByStage:  make(map[types.Stage]int),
		ByStatus: make(map[types.EntryStatus]int),
		ByLane:   make(map[types.Lane]int),
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, status, lane, COUNT(*) FROM entries GROUP BY stage, status, lane`)
	if err != nil {
		return Summary{}, fmt.Errorf("summarizing ledger: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var stage, status, lane string
		var n int
		if err := rows.Scan(&stage, &status, &lane, &n); err != nil {
			return Summary{}, fmt.Errorf("scanning summary row: %w", err)
		}
		summary.Total += n
		summary.ByStage[types.Stage(stage)] += n
		summary.ByStatus[types.EntryStatus(status)] += n
		if lane != "" {
			summary.ByLane[types.Lane(lane)] += n
		}
	}
	return summary, rows.Err()
}
