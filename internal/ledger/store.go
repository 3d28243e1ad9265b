// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger persists the pipeline state machine: one durable,
// append-only record per dedup key plus a monotonic stage history. It is
// the sole owner of cross-run state; every other pipeline component is
// stateless and re-derivable from it. Entries are created once, advanced
// by compare-and-swap, and never deleted, only marked terminal.
package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/thebeakers/triage-engine/pkg/types"
)

const dbFile = "triage.db"

// Store manages the ledger SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger database at dataDir/triage.db,
// creating the schema if it does not exist.
func Open(cfg types.LedgerConfig) (*Store, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			dedup_key TEXT PRIMARY KEY,
			stage TEXT NOT NULL,
			status TEXT NOT NULL,
			id_kind TEXT NOT NULL DEFAULT 'none',
			id_value TEXT NOT NULL DEFAULT '',
			raw_locator TEXT NOT NULL,
			origin_kind TEXT NOT NULL,
			discovered_from TEXT NOT NULL DEFAULT '',
			headline TEXT NOT NULL DEFAULT '',
			teaser TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			discipline TEXT NOT NULL DEFAULT '',
			tier TEXT NOT NULL DEFAULT '',
			profile_version INTEGER NOT NULL DEFAULT 0,
			lane TEXT NOT NULL DEFAULT '',
			rule TEXT NOT NULL DEFAULT '',
			frontier INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_stage ON entries(stage, status)`,
		`CREATE TABLE IF NOT EXISTS stage_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			dedup_key TEXT NOT NULL REFERENCES entries(dedup_key),
			seq INTEGER NOT NULL,
			from_stage TEXT NOT NULL,
			to_stage TEXT NOT NULL,
			run_id TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			UNIQUE (dedup_key, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS score_profiles (
			dedup_key TEXT NOT NULL REFERENCES entries(dedup_key),
			version INTEGER NOT NULL,
			significance INTEGER NOT NULL,
			evidence INTEGER NOT NULL,
			teachability INTEGER NOT NULL,
			media_affordance INTEGER NOT NULL,
			hype_penalty INTEGER NOT NULL,
			run_id TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			PRIMARY KEY (dedup_key, version)
		)`,
		`CREATE TABLE IF NOT EXISTS key_aliases (
			alias TEXT PRIMARY KEY,
			dedup_key TEXT NOT NULL REFERENCES entries(dedup_key)
		)`,
		`CREATE TABLE IF NOT EXISTS triage_runs (
			run_id TEXT PRIMARY KEY,
			week_of TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}
