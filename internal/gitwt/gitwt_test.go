package gitwt

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/parallelgt/coordinator/internal/executor"
)

// requireGit skips the test if the git binary isn't available in the
// sandbox, matching the teacher's real-git integration test style.
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init", "-q")
	run("commit", "--allow-empty", "-q", "-m", "initial")
	return dir
}

func TestAddRemoveListWorktree(t *testing.T) {
	requireGit(t)
	repoDir := initRepo(t)
	g := NewGit(repoDir, executor.New())
	ctx := context.Background()

	wtPath := filepath.Join(t.TempDir(), "T1")
	if err := g.AddWorktree(ctx, "task-T1", wtPath); err != nil {
		t.Fatalf("AddWorktree: %v", err)
	}

	worktrees, err := g.ListWorktrees(ctx)
	if err != nil {
		t.Fatalf("ListWorktrees: %v", err)
	}
	found := false
	for _, wt := range worktrees {
		if wt.Path == wtPath {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %q among worktrees, got %+v", wtPath, worktrees)
	}

	if err := g.RemoveWorktree(ctx, wtPath, true); err != nil {
		t.Fatalf("RemoveWorktree: %v", err)
	}

	worktrees, err = g.ListWorktrees(ctx)
	if err != nil {
		t.Fatalf("ListWorktrees after remove: %v", err)
	}
	for _, wt := range worktrees {
		if wt.Path == wtPath {
			t.Fatalf("expected %q to be gone after removal", wtPath)
		}
	}
}

func TestRemoveWorktree_AbsentIsNotAnError(t *testing.T) {
	requireGit(t)
	repoDir := initRepo(t)
	g := NewGit(repoDir, executor.New())

	if err := g.RemoveWorktree(context.Background(), filepath.Join(repoDir, "nope"), true); err != nil {
		t.Fatalf("expected nil error removing a non-existent worktree, got %v", err)
	}
}
