package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperflow/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the config file and report problems",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		cfg, err := config.Load(path, loadedSecrets)
		if err != nil {
			return err
		}

		fmt.Println("Config OK:", path)
		fmt.Printf("  library: %s (%s), inbox %q\n", cfg.Zotero.LibraryID, cfg.Zotero.LibraryType, cfg.Zotero.InboxCollection)
		fmt.Printf("  model: %s (max_retries %d)\n", cfg.LLM.Model, cfg.LLM.MaxRetries)
		fmt.Printf("  collections: %d, tags: %d\n", len(cfg.Collections), len(cfg.Tags))
		if cfg.WebDAV != nil {
			fmt.Printf("  webdav: %s\n", cfg.WebDAV.URL)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
