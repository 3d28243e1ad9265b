// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package feed loads candidate batches from YAML files produced by the
// upstream collectors. A batch names the publication week it belongs to
// and carries raw candidates for ingestion.
package feed

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/thebeakers/triage-engine/pkg/types"
)

// Batch is one collector output file.
type Batch struct {
	WeekOf     string            `yaml:"week_of"`
	Candidates []types.Candidate `yaml:"candidates"`
}

// Load reads and validates a single batch file.
func Load(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}

	var batch Batch
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("parsing batch file %s: %w", path, err)
	}

	if batch.WeekOf == "" {
		return nil, fmt.Errorf("batch file %s missing week_of", path)
	}
	for i := range batch.Candidates {
		if err := batch.Candidates[i].Validate(); err != nil {
			return nil, fmt.Errorf("batch file %s candidate %d: %w", path, i, err)
		}
	}
	return &batch, nil
}

// LoadDir loads every .yaml batch under dir, in lexical order, and
// merges the candidates. All files must agree on week_of.
func LoadDir(dir string) (*Batch, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking batch directory: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no batch files under %s", dir)
	}
	sort.Strings(paths)

	merged := &Batch{}
	for _, path := range paths {
		batch, err := Load(path)
		if err != nil {
			return nil, err
		}
		if merged.WeekOf == "" {
			merged.WeekOf = batch.WeekOf
		} else if merged.WeekOf != batch.WeekOf {
			return nil, fmt.Errorf("batch file %s is for week %s, expected %s", path, batch.WeekOf, merged.WeekOf)
		}
		merged.Candidates = append(merged.Candidates, batch.Candidates...)
	}
	return merged, nil
}
