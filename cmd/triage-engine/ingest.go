// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thebeakers/triage-engine/internal/feed"
	"github.com/thebeakers/triage-engine/internal/ledger"
	"github.com/thebeakers/triage-engine/internal/pipeline"
	"github.com/thebeakers/triage-engine/pkg/types"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [batch files or directories...]",
	Short: "Load candidate batches into the ledger",
	Long: `Ingest reads feed-collector batch files (YAML), resolves each candidate
to a canonical identifier where possible, and upserts it into the ledger
under its dedup key. Duplicate sightings of the same work are absorbed;
a locator seen unresolved in an earlier batch that now resolves is merged
under the original entry.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more batch files or directories")
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	totalInvalid := 0
	for _, path := range args {
		batch, err := loadBatch(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Ingesting %s (week %s, %d candidates)\n", path, batch.WeekOf, len(batch.Candidates))
		summary, err := pipeline.Ingest(context.Background(), store, batch, os.Stdout)
		if err != nil {
			return err
		}
		totalInvalid += summary.Invalid
	}
	if totalInvalid > 0 {
		return fmt.Errorf("%d candidate(s) failed validation", totalInvalid)
	}
	return nil
}

func loadBatch(path string) (*feed.Batch, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return feed.LoadDir(path)
	}
	return feed.Load(path)
}

// openStore opens the ledger at the configured data directory.
func openStore(cmd *cobra.Command) (*ledger.Store, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		dataDir = "data"
	}
	return ledger.Open(types.LedgerConfig{DataDir: dataDir})
}
