package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperflow/internal/daemon"
	"github.com/pdiddy/paperflow/internal/store"
	"github.com/pdiddy/paperflow/internal/zotero"
	"github.com/pdiddy/paperflow/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon state, inbox size and processing history",
	RunE: func(cmd *cobra.Command, args []string) error {
		d := &daemon.Daemon{}
		if pid, running := d.AlreadyRunning(); running {
			fmt.Printf("Daemon: running (pid %d)\n", pid)
		} else {
			fmt.Println("Daemon: not running")
		}

		cfg, err := loadApp(cmd)
		if err != nil {
			return err
		}

		client := zotero.NewClient(cfg.Zotero, cfg.WebDAV)
		items, err := client.GetInboxItems(cmd.Context())
		if err != nil {
			return err
		}
		pending := 0
		for _, item := range items {
			if !zotero.IsProcessed(item) && !zotero.IsSkipped(item) {
				pending++
			}
		}
		fmt.Printf("Inbox: %d items, %d pending\n", len(items), pending)

		st, err := store.Open(historyDB)
		if err != nil {
			fmt.Println("History: unavailable:", err)
			return nil
		}
		defer st.Close()

		counts, err := st.Counts()
		if err != nil {
			return err
		}
		fmt.Printf("History: %d completed, %d skipped, %d failed\n",
			counts[types.StatusCompleted], counts[types.StatusSkipped], counts[types.StatusFailed])

		n, _ := cmd.Flags().GetInt("recent")
		entries, err := st.Recent(n)
		if err != nil {
			return err
		}

		if export, _ := cmd.Flags().GetBool("export"); export {
			data, err := yaml.Marshal(entries)
			if err != nil {
				return fmt.Errorf("encoding history: %w", err)
			}
			os.Stdout.Write(data)
			return nil
		}

		if len(entries) > 0 {
			fmt.Println("\nRecent:")
			for _, e := range entries {
				line := fmt.Sprintf("  %s  %-9s  %s", e.ProcessedAt.Format("2006-01-02 15:04"), e.Status, e.Title)
				if len(e.Collections) > 0 {
					line += fmt.Sprintf("  -> %v", e.Collections)
				}
				if e.Error != "" {
					line += "  (" + e.Error + ")"
				}
				fmt.Println(line)
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().Int("recent", 10, "number of recent history entries to show")
	statusCmd.Flags().Bool("export", false, "dump recent history as YAML")

	rootCmd.AddCommand(statusCmd)
}
