// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fulltext downloads open full text for routed entries. The
// fetch is gated on the access classification: metadata-only works are
// never downloaded, whatever their lane.
package fulltext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/thebeakers/triage-engine/internal/httputil"
	"github.com/thebeakers/triage-engine/internal/ledger"
	"github.com/thebeakers/triage-engine/pkg/types"
)

// PDF endpoints, overridable in tests.
var (
	arxivPDFBase = "https://arxiv.org/pdf/"
	pmcPDFBase   = "https://www.ncbi.nlm.nih.gov/pmc/articles/"
)

// ErrPolicyViolation indicates a fetch was refused by the access gate.
// Callers must treat it as fatal for the entry, never retry around it.
var ErrPolicyViolation = errors.New("fulltext: access policy forbids fetch")

// Fetcher downloads PDFs for entries the router kept.
type Fetcher struct {
	http  *http.Client
	store *ledger.Store
	cfg   types.FulltextConfig
}

// NewFetcher builds a Fetcher over the given ledger store.
func NewFetcher(store *ledger.Store, cfg types.FulltextConfig) *Fetcher {
	return &Fetcher{
		http:  &http.Client{Timeout: cfg.Timeout},
		store: store,
		cfg:   cfg,
	}
}

// Fetch downloads the full text for one routed entry and advances it to
// fulltext_fetched. The gate runs first: entries classified
// metadata_only, or routed to a lane that publishes without full text,
// return ErrPolicyViolation.
func (f *Fetcher) Fetch(ctx context.Context, entry types.LedgerEntry, runID string) (string, error) {
	if err := checkPolicy(entry); err != nil {
		return "", err
	}

	pdfURL, err := resolvePDFURL(entry)
	if err != nil {
		return "", err
	}

	destDir := filepath.Join(f.cfg.PapersDir, "raw")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("creating papers directory: %w", err)
	}
	destPath := filepath.Join(destDir, fileStem(entry.CanonicalID)+".pdf")

	if err := f.download(ctx, pdfURL, destPath); err != nil {
		return "", err
	}

	_, err = f.store.Advance(ctx, entry.DedupKey, ledger.StageResult{
		From:   types.StageRouted,
		To:     types.StageFulltextFetched,
		RunID:  runID,
		Detail: "fetched " + pdfURL,
	})
	if err != nil {
		return "", err
	}
	return destPath, nil
}

// FetchBatch fetches every eligible routed entry, printing one line per
// item and a summary. Per-item failures are reported and skipped.
func (f *Fetcher) FetchBatch(ctx context.Context, runID string, out io.Writer) error {
	entries, err := f.store.ListByStage(ctx, types.StageRouted, nil, 0)
	if err != nil {
		return err
	}

	fetched, skipped, failed := 0, 0, 0
	for _, entry := range entries {
		path, err := f.Fetch(ctx, entry, runID)
		switch {
		case errors.Is(err, ErrPolicyViolation):
			skipped++
			fmt.Fprintf(out, "  skip %s: %v\n", entry.DedupKey, err)
		case err != nil:
			failed++
			fmt.Fprintf(out, "  fail %s: %v\n", entry.DedupKey, err)
		default:
			fetched++
			fmt.Fprintf(out, "  ok   %s -> %s\n", entry.DedupKey, path)
		}

		if f.cfg.DownloadDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(f.cfg.DownloadDelay):
			}
		}
	}

	fmt.Fprintf(out, "Fulltext summary: %d fetched, %d skipped, %d failed\n", fetched, skipped, failed)
	return nil
}

func checkPolicy(entry types.LedgerEntry) error {
	if !entry.Tier.AllowsFulltext() {
		return fmt.Errorf("%w: tier %s for %s", ErrPolicyViolation, entry.Tier, entry.DedupKey)
	}
	switch entry.Lane {
	case types.LaneInDepth, types.LaneDigest:
		return nil
	default:
		return fmt.Errorf("%w: lane %s does not use full text", ErrPolicyViolation, entry.Lane)
	}
}

// resolvePDFURL picks the download URL for an entry. arXiv and PMC have
// canonical PDF endpoints; open-licensed works fall back to the raw
// locator when it already points at a PDF.
func resolvePDFURL(entry types.LedgerEntry) (string, error) {
	switch entry.CanonicalID.Kind {
	case types.KindArxiv:
		return arxivPDFBase + entry.CanonicalID.Value, nil
	case types.KindPMCID:
		return pmcPDFBase + entry.CanonicalID.Value + "/pdf/", nil
	}
	if strings.HasSuffix(strings.ToLower(entry.RawLocator), ".pdf") {
		return entry.RawLocator, nil
	}
	return "", fmt.Errorf("no PDF endpoint for %s", entry.DedupKey)
}

// fileStem derives a filesystem-safe name from the identifier.
func fileStem(id types.CanonicalID) string {
	stem := string(id.Kind) + "_" + id.Value
	replacer := strings.NewReplacer("/", "_", ":", "_", ".", "-")
	return replacer.Replace(stem)
}

// download streams the PDF to a temp file in the destination directory
// and renames it into place, so partial downloads never appear as
// finished papers.
func (f *Fetcher) download(ctx context.Context, pdfURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, f.http, req, 0)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", pdfURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: HTTP %d", pdfURL, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".fulltext-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", destPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}
