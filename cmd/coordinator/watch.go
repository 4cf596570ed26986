package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/parallelgt/coordinator/internal/dashboard"
)

var watchCmd = &cobra.Command{
	Use:   "watch PARENT_SESSION_NAME",
	Short: "Launch the read-only dashboard watching a Master's children",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		model := dashboard.New(application.coordinator, args[0])
		program := tea.NewProgram(model)
		_, err = program.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
