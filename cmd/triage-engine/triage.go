// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/thebeakers/triage-engine/internal/metadata"
	"github.com/thebeakers/triage-engine/internal/pipeline"
	"github.com/thebeakers/triage-engine/pkg/types"
)

const (
	defaultTimeout     = 60 * time.Second
	defaultUserAgent   = "triage-engine/0.1"
	defaultMaxRetries  = 3
	defaultLookupDelay = 250 * time.Millisecond
	defaultLimit       = 25
)

var triageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Resolve, classify, score, and route pending candidates",
	Long: `Triage drives every pending ledger entry through identifier resolution,
access classification, suitability scoring, and lane routing. Each stage
completion is recorded in the ledger, so an interrupted run resumes where
it stopped. Metadata outages defer entries instead of classifying them
against empty snapshots.`,
	RunE: runTriage,
}

func init() {
	triageCmd.Flags().String("week", "", "batch week label YYYY-MM-DD (default: current week's Monday)")
	triageCmd.Flags().StringSlice("disciplines", nil, "restrict the run to the named disciplines")
	triageCmd.Flags().Int("limit", 0, "maximum entries to process (default 25, 0 = default)")
	triageCmd.Flags().Bool("dry-run", false, "report routing decisions without writing the ledger")
	triageCmd.Flags().Bool("offline", false, "skip metadata lookups, triage on feed text alone")
	triageCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	triageCmd.Flags().String("openalex-email", "", "OpenAlex polite-pool email (default: .secrets/openalex-email)")
	triageCmd.Flags().String("unpaywall-email", "", "Unpaywall email (default: .secrets/unpaywall-email)")

	rootCmd.AddCommand(triageCmd)
}

func runTriage(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	week, _ := cmd.Flags().GetString("week")
	if week == "" {
		week = currentWeekMonday()
	}
	disciplines, _ := cmd.Flags().GetStringSlice("disciplines")
	limit, _ := cmd.Flags().GetInt("limit")
	if limit == 0 {
		limit = defaultLimit
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	offline, _ := cmd.Flags().GetBool("offline")

	metaCfg := types.MetadataConfig{
		MaxRetries:  defaultMaxRetries,
		LookupDelay: defaultLookupDelay,
	}
	var lookup pipeline.MetadataLookup
	if !offline {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		if timeout == 0 {
			timeout = defaultTimeout
		}
		openalexEmail, _ := cmd.Flags().GetString("openalex-email")
		unpaywallEmail, _ := cmd.Flags().GetString("unpaywall-email")

		metaCfg.HTTPConfig = types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		}
		metaCfg.OpenAlexEmail = secretDefault("openalex-email", openalexEmail)
		metaCfg.UnpaywallEmail = secretDefault("unpaywall-email", unpaywallEmail)
		lookup = metadata.NewClient(metaCfg)
	}

	runner := pipeline.NewRunner(store, lookup, types.TriageConfig{
		WeekOf:      week,
		Disciplines: disciplines,
		Limit:       limit,
	})
	runner.LookupDelay = metaCfg.LookupDelay
	runner.DryRun = dryRun

	summary, err := runner.Run(context.Background(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d entr(ies) failed triage", summary.Failed)
	}
	return nil
}

// currentWeekMonday returns the Monday of the current week in YYYY-MM-DD.
func currentWeekMonday() string {
	now := time.Now().UTC()
	offset := (int(now.Weekday()) + 6) % 7
	return now.AddDate(0, 0, -offset).Format("2006-01-02")
}
