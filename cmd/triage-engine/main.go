// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the triage-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thebeakers/triage-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API emails and keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, then the loaded secret for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the triage-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "triage-engine",
	Short: "Triage and routing pipeline for research-article references",
	Long: `triage-engine turns a weekly stream of discovered research-article
references into routed, deduplicated editorial work items. Candidates are
resolved to canonical identifiers, classified by access tier, scored for
editorial suitability, and routed into coverage lanes. All cross-run state
lives in an append-only SQLite ledger.

Each stage is a subcommand: ingest, triage, fulltext, and ledger.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./triage-engine.yaml or ~/.config/triage-engine/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "data", "directory containing the ledger database")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("triage-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "triage-engine"))
		}
	}

	viper.SetEnvPrefix("TRIAGE_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
