package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/jobstore/cmd/jobstore/output"
	"github.com/marshallshelly/jobstore/pkg/maintenance"
)

var (
	sweepEvery string
	sweepOnce  bool
)

// sweepCmd expires postings and discounts
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire job postings and deactivate spent discounts",
	Long: `Mark active job postings past their expiry as expired and switch off
discounts that have expired or reached their use limit.

Without --once the sweep runs on SWEEP_SCHEDULE (or --every) until
interrupted.

Examples:
  jobstore sweep --once
  jobstore sweep --every "@every 5m"
  jobstore sweep --every "0 3 * * *"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c, err := openClient(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		spec := sweepEvery
		if spec == "" {
			spec = c.Config().SweepSchedule
		}
		sweeper, err := maintenance.NewSweeper(c, spec)
		if err != nil {
			return err
		}

		if sweepOnce {
			report, err := sweeper.RunOnce(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return output.JSON(report)
			}
			output.Success("Expired %d posting(s), deactivated %d discount(s)",
				report.ExpiredPostings, report.DeactivatedDiscounts)
			return nil
		}

		if err := sweeper.Start(ctx); err != nil {
			return fmt.Errorf("failed to start sweeper: %w", err)
		}
		output.Info("Sweeping on %q, press Ctrl+C to stop", spec)
		<-ctx.Done()
		sweeper.Stop()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepEvery, "every", "", "Cron schedule, overrides SWEEP_SCHEDULE")
	sweepCmd.Flags().BoolVar(&sweepOnce, "once", false, "Run a single sweep and exit")
}
