// Package dashboard implements a read-only terminal UI for observing
// child session health. It never mutates Registry state — the Master
// drives the actual work; this only watches it.
package dashboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/parallelgt/coordinator/internal/registry"
)

const pollInterval = 2 * time.Second

var (
	healthyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	cautionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	criticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")) // red
	headerStyle   = lipgloss.NewStyle().Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// ChildLister is the subset of Coordinator the dashboard depends on, kept
// narrow so tests can supply a fake without constructing a full
// Coordinator.
type ChildLister interface {
	ListChildren(parent string) ([]registry.ChildInfo, error)
}

// Model is the bubbletea model driving the dashboard.
type Model struct {
	lister ChildLister
	parent string

	table table.Model
	err   error
	width int
}

// New builds a dashboard Model that watches parent's children.
func New(lister ChildLister, parent string) *Model {
	columns := []table.Column{
		{Title: "Child Session", Width: 32},
		{Title: "Status", Width: 12},
		{Title: "Progress", Width: 10},
		{Title: "Health", Width: 8},
		{Title: "Details", Width: 30},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(false),
	)
	return &Model{lister: lister, parent: parent, table: t}
}

type tickMsg time.Time

type childrenMsg struct {
	children []registry.ChildInfo
	err      error
}

// Init kicks off the first poll.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.poll(), tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) }))
}

func (m *Model) poll() tea.Cmd {
	return func() tea.Msg {
		children, err := m.lister.ListChildren(m.parent)
		return childrenMsg{children: children, err: err}
	}
}

// Update handles bubbletea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetWidth(msg.Width)
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.poll(), tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) }))

	case childrenMsg:
		m.err = msg.err
		if msg.err == nil {
			m.table.SetRows(rowsFor(msg.children))
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the dashboard.
func (m *Model) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("error listing children of %s: %v", m.parent, m.err)) + "\n"
	}
	header := headerStyle.Render(fmt.Sprintf("watching %s", m.parent))
	return header + "\n\n" + m.table.View() + "\n"
}

func rowsFor(children []registry.ChildInfo) []table.Row {
	sort.Slice(children, func(i, j int) bool {
		return children[i].Name < children[j].Name
	})

	rows := make([]table.Row, 0, len(children))
	for _, c := range children {
		rows = append(rows, table.Row{
			c.Name,
			c.Status.String(),
			fmt.Sprintf("%d%%", c.Progress),
			healthLabel(c.HealthScore),
			truncate(c.Details, 30),
		})
	}
	return rows
}

func healthLabel(score float64) string {
	text := fmt.Sprintf("%.2f", score)
	switch {
	case score >= 0.8:
		return healthyStyle.Render(text)
	case score >= 0.3:
		return cautionStyle.Render(text)
	default:
		return criticalStyle.Render(text)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
