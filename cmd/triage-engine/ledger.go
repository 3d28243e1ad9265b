// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thebeakers/triage-engine/internal/access"
	"github.com/thebeakers/triage-engine/pkg/types"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the pipeline ledger (show, history, status)",
	Long: `Ledger inspects the append-only pipeline state. Use subcommands to show
one entry, print an entry's stage history, or summarize the whole ledger.`,
}

// --- show subcommand ---

var ledgerShowCmd = &cobra.Command{
	Use:   "show [dedup key]",
	Short: "Show one ledger entry with its score profile and credibility label",
	RunE:  runLedgerShow,
}

func runLedgerShow(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("provide exactly one dedup key, e.g. doi:10.1038/s41586-025-09819-w")
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	entry, err := store.Lookup(ctx, args[0])
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entry)
	}

	fmt.Printf("Key:        %s\n", entry.DedupKey)
	fmt.Printf("Identifier: %s\n", entry.CanonicalID)
	fmt.Printf("Stage:      %s\n", entry.Stage)
	fmt.Printf("Status:     %s\n", entry.Status)
	if entry.Headline != "" {
		fmt.Printf("Headline:   %s\n", entry.Headline)
	}
	fmt.Printf("Locator:    %s\n", entry.RawLocator)
	if entry.Discipline != "" {
		fmt.Printf("Discipline: %s\n", entry.Discipline)
	}
	if entry.Tier != "" {
		fmt.Printf("Tier:       %s\n", entry.Tier)
		// The credibility label accompanies reader-facing output; an
		// entry routed to reject gets none.
		if entry.Lane == "" || entry.Lane.Publishable() {
			label := access.Label(entry.Tier)
			fmt.Printf("Credibility: %s\n", label.Text)
			if label.Disclaimer != "" {
				fmt.Printf("Disclaimer: %s\n", label.Disclaimer)
			}
		}
	}
	if entry.Lane != "" {
		frontier := ""
		if entry.Frontier {
			frontier = " [frontier]"
		}
		fmt.Printf("Lane:       %s (%s)%s\n", entry.Lane, entry.Rule, frontier)
	}

	if entry.ProfileVersion > 0 {
		profile, version, err := store.Profile(ctx, entry.DedupKey, 0)
		if err == nil {
			fmt.Printf("Profile v%d: significance=%d evidence=%d teachability=%d media=%d hype=%d\n",
				version, profile.Significance, profile.Evidence, profile.Teachability,
				profile.MediaAffordance, profile.HypePenalty)
		}
	}
	return nil
}

// --- history subcommand ---

var ledgerHistoryCmd = &cobra.Command{
	Use:   "history [dedup key]",
	Short: "Print an entry's append-only stage history",
	RunE:  runLedgerHistory,
}

func runLedgerHistory(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("provide exactly one dedup key")
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.History(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%-4s  %-12s  %-18s  %-28s  %s\n", "Seq", "From", "To", "Run", "Detail")
	fmt.Println(strings.Repeat("-", 90))
	for _, rec := range records {
		from := string(rec.From)
		if from == "" {
			from = "-"
		}
		fmt.Printf("%-4d  %-12s  %-18s  %-28s  %s\n", rec.Seq, from, rec.To, rec.RunID, rec.Detail)
	}
	return nil
}

// --- status subcommand ---

var ledgerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the ledger by stage, status, and lane",
	RunE:  runLedgerStatus,
}

func runLedgerStatus(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Summarize(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Entries: %d\n\n", summary.Total)
	printCounts("By stage", stageCounts(summary.ByStage))
	printCounts("By status", statusCounts(summary.ByStatus))
	printCounts("By lane", laneCounts(summary.ByLane))
	return nil
}

// stage counts print in pipeline order; status and lane alphabetically.

func stageCounts(counts map[types.Stage]int) []countRow {
	var rows []countRow
	for _, stage := range types.StageOrder {
		if n, ok := counts[stage]; ok {
			rows = append(rows, countRow{string(stage), n})
		}
	}
	return rows
}

func statusCounts(counts map[types.EntryStatus]int) []countRow {
	var rows []countRow
	for status, n := range counts {
		rows = append(rows, countRow{string(status), n})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })
	return rows
}

func laneCounts(counts map[types.Lane]int) []countRow {
	var rows []countRow
	for lane, n := range counts {
		rows = append(rows, countRow{string(lane), n})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })
	return rows
}

type countRow struct {
	name  string
	count int
}

func printCounts(header string, rows []countRow) {
	fmt.Printf("%s:\n", header)
	if len(rows) == 0 {
		fmt.Println("  (none)")
	}
	for _, row := range rows {
		fmt.Printf("  %-18s %d\n", row.name, row.count)
	}
	fmt.Println()
}

func init() {
	ledgerShowCmd.Flags().Bool("json", false, "output the entry as JSON")

	ledgerCmd.AddCommand(ledgerShowCmd)
	ledgerCmd.AddCommand(ledgerHistoryCmd)
	ledgerCmd.AddCommand(ledgerStatusCmd)

	rootCmd.AddCommand(ledgerCmd)
}
