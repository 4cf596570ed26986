package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	createCwd    string
	createBranch string
)

var createMasterCmd = &cobra.Command{
	Use:   "create-master PROJECT_ID",
	Short: "Create a Master session for a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		cwd := createCwd
		if cwd == "" {
			cwd, err = os.Getwd()
			if err != nil {
				return err
			}
		}

		session, err := application.coordinator.CreateMasterSession(cmd.Context(), args[0], cwd, callerRole())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", session.Name)
		return nil
	},
}

var createChildCmd = &cobra.Command{
	Use:   "create-child PROJECT_ID TASK_ID",
	Short: "Create a Child session under a git worktree",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		cwd := createCwd
		if cwd == "" {
			var err error
			cwd, err = os.Getwd()
			if err != nil {
				return err
			}
		}

		session, err := application.coordinator.CreateChildSession(cmd.Context(), args[0], args[1], cwd, createBranch, callerRole())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", session.Name, session.WorktreePath)
		return nil
	},
}

func init() {
	createMasterCmd.Flags().StringVar(&createCwd, "cwd", "", "working directory for the new session (default: current directory)")
	createChildCmd.Flags().StringVar(&createCwd, "cwd", "", "repository root to branch the worktree from (default: current directory)")
	createChildCmd.Flags().StringVar(&createBranch, "branch", "", "branch to create for the worktree (default: task/<task_id>)")
	rootCmd.AddCommand(createMasterCmd)
	rootCmd.AddCommand(createChildCmd)
}
