// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network
// requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "triage-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// LedgerConfig holds settings for the pipeline ledger.
type LedgerConfig struct {
	// DataDir is the directory containing the ledger database
	// (default "data").
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// MetadataConfig holds settings for the external metadata lookup.
type MetadataConfig struct {
	HTTPConfig `yaml:",inline"`

	// OpenAlexEmail is sent as the polite-pool mailto parameter.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty"`

	// UnpaywallEmail authenticates Unpaywall lookups. Without it the
	// open-access hints stay empty and classification falls back to
	// metadata_only.
	UnpaywallEmail string `json:"unpaywall_email,omitempty" yaml:"unpaywall_email,omitempty"`

	// MaxRetries bounds retry attempts on rate-limited responses (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// LookupDelay is the pause between consecutive API lookups (default 250ms).
	LookupDelay time.Duration `json:"lookup_delay" yaml:"lookup_delay"`
}

// TriageConfig holds settings for a triage run.
type TriageConfig struct {
	// WeekOf labels the run's batch window (YYYY-MM-DD).
	WeekOf string `json:"week_of" yaml:"week_of"`

	// Disciplines restricts the run to the named disciplines; empty means all.
	Disciplines []string `json:"disciplines,omitempty" yaml:"disciplines,omitempty"`

	// Limit is the maximum number of entries to process per run (default 25).
	Limit int `json:"limit" yaml:"limit"`
}

// FulltextConfig holds settings for the gated full-text fetch stage.
type FulltextConfig struct {
	HTTPConfig `yaml:",inline"`

	// PapersDir is the base directory for downloaded full texts
	// (contains raw/).
	PapersDir string `json:"papers_dir" yaml:"papers_dir"`

	// DownloadDelay is the delay between consecutive downloads (default 1s).
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Ledger   LedgerConfig   `json:"ledger" yaml:"ledger"`
	Metadata MetadataConfig `json:"metadata" yaml:"metadata"`
	Triage   TriageConfig   `json:"triage" yaml:"triage"`
	Fulltext FulltextConfig `json:"fulltext" yaml:"fulltext"`
}
