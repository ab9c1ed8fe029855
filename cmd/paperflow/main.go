// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paperflow CLI: automated triage
// of a Zotero inbox. New papers are parsed, summarized and classified by
// an LLM, then filed into collections with tags and a summary note.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperflow/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the paperflow CLI.
var rootCmd = &cobra.Command{
	Use:   "paperflow",
	Short: "LLM-driven triage for a Zotero library",
	Long: `paperflow watches a Zotero inbox collection and files new papers for you.
Each paper's PDF is parsed, summarized and classified by an LLM against
your collection and tag catalog, then moved into the right collections
with a summary note attached.

Run a single pass with "process", or keep it running with "start".`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paperflow.yaml or ~/.config/paperflow/paperflow.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "debug logging, echoed to stderr")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paperflow")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paperflow"))
		}
	}

	viper.SetEnvPrefix("PAPERFLOW")
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
