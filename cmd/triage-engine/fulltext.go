// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/thebeakers/triage-engine/internal/fulltext"
	"github.com/thebeakers/triage-engine/internal/pipeline"
	"github.com/thebeakers/triage-engine/pkg/types"
)

const defaultDownloadDelay = 1 * time.Second

var fulltextCmd = &cobra.Command{
	Use:   "fulltext",
	Short: "Download open full text for routed in_depth and digest entries",
	Long: `Fulltext fetches the open PDF for every routed entry whose lane uses
full text. The access gate runs first: metadata-only works and blurb-lane
entries are skipped, never downloaded.`,
	RunE: runFulltext,
}

func init() {
	fulltextCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	fulltextCmd.Flags().Duration("delay", 0, "delay between consecutive downloads (default 1s)")
	fulltextCmd.Flags().String("papers-dir", "papers", "base directory for downloaded papers")
	fulltextCmd.Flags().String("week", "", "batch week label for the run ID (default: current week's Monday)")

	rootCmd.AddCommand(fulltextCmd)
}

func runFulltext(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	delay, _ := cmd.Flags().GetDuration("delay")
	if delay == 0 {
		delay = defaultDownloadDelay
	}
	papersDir, _ := cmd.Flags().GetString("papers-dir")
	week, _ := cmd.Flags().GetString("week")
	if week == "" {
		week = currentWeekMonday()
	}

	fetcher := fulltext.NewFetcher(store, types.FulltextConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		PapersDir:     papersDir,
		DownloadDelay: delay,
	})
	return fetcher.FetchBatch(context.Background(), pipeline.NewRunID(week), os.Stdout)
}
