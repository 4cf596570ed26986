package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var terminateCmd = &cobra.Command{
	Use:   "terminate SESSION_NAME",
	Short: "Tear down a session's tmux pane and worktree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		summary, err := application.coordinator.TerminateSession(cmd.Context(), args[0], callerRole())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "found=%t tmux_killed=%t worktree_removed=%t cascaded_children=%d\n",
			summary.Found, summary.TmuxKilled, summary.WorktreeRemoved, summary.CascadedChildren)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(terminateCmd)
}
