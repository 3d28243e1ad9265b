//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// Weekly runs the full weekly pass: ingest every batch under batches/,
// triage pending entries, then fetch full text for routed entries.
func Weekly() error {
	mg.Deps(Build)
	bin := filepath.Join(binDir, binName)

	for _, args := range [][]string{
		{"ingest", "batches"},
		{"triage"},
		{"fulltext"},
	} {
		fmt.Printf("==> %s %v\n", binName, args)
		cmd := exec.Command(bin, args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("%s %v: %w", binName, args, err)
		}
	}
	return nil
}

// Status prints the ledger summary.
func Status() error {
	mg.Deps(Build)
	cmd := exec.Command(filepath.Join(binDir, binName), "ledger", "status")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
