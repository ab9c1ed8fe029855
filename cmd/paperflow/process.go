package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperflow/pkg/types"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run one triage pass over the inbox",
	Long: `Process fetches the inbox collection, parses and classifies each unhandled
paper, and writes collections, tags and a summary note back to Zotero.
With --dry-run the classification is printed but nothing is written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadApp(cmd)
		if err != nil {
			return err
		}
		if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
			cfg.Processing.DryRun = true
		}
		if batch, _ := cmd.Flags().GetInt("batch-size"); batch > 0 {
			cfg.Processing.BatchSize = batch
		}

		runner, st, err := buildRunner(cfg)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		results, err := runner.RunOnce(ctx)
		if err != nil {
			return err
		}

		completed, skipped, failed := 0, 0, 0
		for _, r := range results {
			switch r.Status {
			case types.StatusCompleted:
				completed++
			case types.StatusSkipped:
				skipped++
			case types.StatusFailed:
				failed++
			}
		}
		fmt.Printf("Processed %d items: %d completed, %d skipped, %d failed\n",
			len(results), completed, skipped, failed)
		if failed > 0 {
			return fmt.Errorf("%d items failed", failed)
		}
		return nil
	},
}

func init() {
	processCmd.Flags().Bool("dry-run", false, "classify but do not write back to Zotero")
	processCmd.Flags().Int("batch-size", 0, "override the configured batch size")

	rootCmd.AddCommand(processCmd)
}
