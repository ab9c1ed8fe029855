package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperflow/internal/daemon"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the triage daemon",
	Long: `Start runs triage passes on an interval until interrupted. A pid file
(.paperflow.pid) guards against a second instance; SIGINT or SIGTERM
stops the daemon cleanly after the current pass.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadApp(cmd)
		if err != nil {
			return err
		}
		runner, st, err := buildRunner(cfg)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close()
		}

		interval, _ := cmd.Flags().GetDuration("interval")
		d := &daemon.Daemon{Runner: runner, Interval: interval}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return d.Run(ctx)
	},
}

func init() {
	startCmd.Flags().Duration("interval", 30*time.Minute, "time between triage passes")

	rootCmd.AddCommand(startCmd)
}
