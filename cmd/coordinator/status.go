package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/parallelgt/coordinator/internal/registry"
	"github.com/parallelgt/coordinator/internal/style"
)

// detailsWidth sizes the free-text details column to the detected
// terminal width, falling back to a fixed width when stdout isn't a
// terminal (piped output, CI logs).
func detailsWidth(fixed int) int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= fixed {
		return 30
	}
	extra := width - fixed
	if extra > 60 {
		extra = 60
	}
	return extra
}

var statusCmd = &cobra.Command{
	Use:   "status [SESSION_NAME]",
	Short: "Query one session's status, or every tracked session if omitted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		name := ""
		if len(args) == 1 {
			name = args[0]
		}

		session, all, err := application.coordinator.QueryStatus(name)
		if err != nil {
			return err
		}
		if name != "" {
			printSessionTable(cmd, []registry.Session{session})
			return nil
		}
		printSessionTable(cmd, all)
		return nil
	},
}

var listChildrenCmd = &cobra.Command{
	Use:   "list-children PARENT_SESSION_NAME",
	Short: "List a Master's Child sessions with their computed health score",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, cleanup, err := newApp()
		if err != nil {
			return err
		}
		defer cleanup()

		children, err := application.coordinator.ListChildren(args[0])
		if err != nil {
			return err
		}

		table := style.NewTable(
			style.Column{Name: "CHILD", Width: 32},
			style.Column{Name: "STATUS", Width: 12},
			style.Column{Name: "PROGRESS", Width: 9},
			style.Column{Name: "HEALTH", Width: 7},
		)
		for _, c := range children {
			table.AddRow(c.Name, c.Status.String(), fmt.Sprintf("%d%%", c.Progress), fmt.Sprintf("%.2f", c.HealthScore))
		}
		fmt.Fprint(cmd.OutOrStdout(), table.Render())
		return nil
	},
}

func printSessionTable(cmd *cobra.Command, sessions []registry.Session) {
	table := style.NewTable(
		style.Column{Name: "SESSION", Width: 32},
		style.Column{Name: "ROLE", Width: 8},
		style.Column{Name: "STATUS", Width: 12},
		style.Column{Name: "PROGRESS", Width: 9},
		style.Column{Name: "DETAILS", Width: detailsWidth(32 + 8 + 12 + 9 + 4)},
	)
	for _, s := range sessions {
		table.AddRow(s.Name, s.Role.String(), s.Status.String(), fmt.Sprintf("%d%%", s.Progress), s.Details)
	}
	fmt.Fprint(cmd.OutOrStdout(), table.Render())
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listChildrenCmd)
}
