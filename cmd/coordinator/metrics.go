package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print the Sender's current operating metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		metrics, err := application.coordinator.GetMetrics()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "breaker_state=%s queue_depth=%d success_rate=%.2f retry_count=%d\n",
			metrics.BreakerState, metrics.QueueDepth, metrics.SuccessRate, metrics.RetryCount)
		fmt.Fprintf(out, "phase_a_duration avg=%s min=%s max=%s\n",
			metrics.AvgPhaseADuration, metrics.MinPhaseADuration, metrics.MaxPhaseADuration)

		statuses := make([]string, 0, len(metrics.StatusCounts))
		for s := range metrics.StatusCounts {
			statuses = append(statuses, s)
		}
		sort.Strings(statuses)
		for _, s := range statuses {
			fmt.Fprintf(out, "  %-14s %d\n", s, metrics.StatusCounts[s])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(metricsCmd)
}
