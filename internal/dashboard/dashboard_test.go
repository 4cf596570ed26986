package dashboard

import (
	"errors"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/parallelgt/coordinator/internal/naming"
	"github.com/parallelgt/coordinator/internal/registry"
)

type fakeLister struct {
	children []registry.ChildInfo
	err      error
}

func (f *fakeLister) ListChildren(parent string) ([]registry.ChildInfo, error) {
	return f.children, f.err
}

func TestUpdate_ChildrenMsgPopulatesTable(t *testing.T) {
	lister := &fakeLister{
		children: []registry.ChildInfo{
			{
				Session: registry.Session{
					Name:     "parallel_proj_task_child_1",
					Role:     naming.RoleChild,
					Status:   registry.StatusWorking,
					Progress: 50,
					Details:  "running tests",
				},
				HealthScore: 0.9,
			},
		},
	}
	m := New(lister, "parallel_proj_task_master")
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 20})

	updated, _ := m.Update(childrenMsg{children: lister.children})
	next := updated.(*Model)

	view := next.View()
	if view == "" {
		t.Fatalf("expected a non-empty rendered view")
	}
}

func TestUpdate_ErrorIsSurfacedInView(t *testing.T) {
	m := New(&fakeLister{}, "parallel_proj_task_master")
	updated, _ := m.Update(childrenMsg{err: errors.New("boom")})
	next := updated.(*Model)

	view := next.View()
	if view == "" {
		t.Fatalf("expected error view to be non-empty")
	}
}

func TestUpdate_QuitsOnQKey(t *testing.T) {
	m := New(&fakeLister{}, "parallel_proj_task_master")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected a quit command on 'q'")
	}
}

func TestHealthLabel_ClassifiesThresholds(t *testing.T) {
	cases := []struct {
		score  float64
		render func(...string) string
	}{
		{0.95, healthyStyle.Render},
		{0.5, cautionStyle.Render},
		{0.1, criticalStyle.Render},
	}
	for _, c := range cases {
		want := c.render(fmt.Sprintf("%.2f", c.score))
		if got := healthLabel(c.score); got != want {
			t.Fatalf("score %v: got label %q, want %q", c.score, got, want)
		}
	}
}
