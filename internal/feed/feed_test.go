// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thebeakers/triage-engine/pkg/types"
)

const sampleBatch = `week_of: "2026-08-24"
candidates:
  - raw_locator: "https://doi.org/10.1038/s41586-025-09819-w"
    origin_kind: primary
    headline: "New superconductor found"
    source: "nature-feed"
    category: "physics"
  - raw_locator: "https://www.sciencedaily.com/releases/2026/08/story.htm"
    origin_kind: secondary
    discovered_from: "https://news.ycombinator.com/item?id=1"
    discovery_context: "The preprint is at arXiv:2501.12345"
`

func writeBatch(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing batch file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeBatch(t, t.TempDir(), "batch.yaml", sampleBatch)

	batch, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if batch.WeekOf != "2026-08-24" {
		t.Errorf("WeekOf = %q, want 2026-08-24", batch.WeekOf)
	}
	if len(batch.Candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(batch.Candidates))
	}
	if batch.Candidates[0].OriginKind != types.OriginPrimary {
		t.Errorf("candidate 0 origin = %q, want primary", batch.Candidates[0].OriginKind)
	}
	if batch.Candidates[1].DiscoveredFrom == "" {
		t.Error("secondary candidate lost discovered_from")
	}
}

func TestLoadRejectsMissingWeek(t *testing.T) {
	path := writeBatch(t, t.TempDir(), "bad.yaml", "candidates: []\n")
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "week_of") {
		t.Errorf("Load() error = %v, want missing week_of", err)
	}
}

func TestLoadRejectsInvalidCandidate(t *testing.T) {
	content := `week_of: "2026-08-24"
candidates:
  - raw_locator: "https://example.org/story"
    origin_kind: secondary
`
	path := writeBatch(t, t.TempDir(), "bad.yaml", content)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "discovered_from") {
		t.Errorf("Load() error = %v, want discovered_from validation failure", err)
	}
}

func TestLoadDirMergesBatches(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "a.yaml", sampleBatch)
	writeBatch(t, dir, "b.yml", `week_of: "2026-08-24"
candidates:
  - raw_locator: "https://arxiv.org/abs/2502.99999"
    origin_kind: primary
`)
	writeBatch(t, dir, "notes.txt", "ignored")

	batch, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error: %v", err)
	}
	if len(batch.Candidates) != 3 {
		t.Errorf("got %d candidates, want 3", len(batch.Candidates))
	}
}

func TestLoadDirRejectsMixedWeeks(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "a.yaml", sampleBatch)
	writeBatch(t, dir, "b.yaml", `week_of: "2026-08-31"
candidates: []
`)
	if _, err := LoadDir(dir); err == nil || !strings.Contains(err.Error(), "week") {
		t.Errorf("LoadDir() error = %v, want mixed-week failure", err)
	}
}

func TestLoadDirEmpty(t *testing.T) {
	if _, err := LoadDir(t.TempDir()); err == nil {
		t.Error("LoadDir() on empty dir should fail")
	}
}
