// Package gitwt wraps git worktree operations via subprocess, routed
// through an executor.Runner. Mirrors the constructor shape of the
// teacher's git wrapper: a thin NewGit(dir)-style value scoped to one
// repository.
package gitwt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/parallelgt/coordinator/internal/executor"
)

// Common errors, classified from git's stderr text.
var (
	ErrWorktreeExists   = errors.New("gitwt: worktree already exists")
	ErrWorktreeNotFound = errors.New("gitwt: worktree not found")
)

const runTimeout = 15 * time.Second

// Worktree is one entry from `git worktree list`.
type Worktree struct {
	Path   string
	Branch string
	Head   string
}

// Git wraps worktree operations scoped to a single repository checkout.
type Git struct {
	repoDir string
	runner  executor.Runner
}

// NewGit creates a Git wrapper rooted at repoDir.
func NewGit(repoDir string, runner executor.Runner) *Git {
	return &Git{repoDir: repoDir, runner: runner}
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	argv := append([]string{"git"}, args...)
	result, err := g.runner.RunInDir(ctx, argv, g.repoDir, runTimeout)
	if err != nil {
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	if result.ExitCode != 0 {
		return "", g.wrapError(result.Stderr, args)
	}
	return strings.TrimSpace(result.Stdout), nil
}

func (g *Git) wrapError(stderr string, args []string) error {
	stderr = strings.TrimSpace(stderr)

	switch {
	case strings.Contains(stderr, "already exists"):
		return ErrWorktreeExists
	case strings.Contains(stderr, "is not a working tree"),
		strings.Contains(stderr, "not a valid path"):
		return ErrWorktreeNotFound
	}

	if stderr != "" {
		return fmt.Errorf("git %s: %s", args[0], stderr)
	}
	return fmt.Errorf("git %s: exit status non-zero", args[0])
}

// AddWorktree creates a new worktree at path, checking out a new branch.
func (g *Git) AddWorktree(ctx context.Context, branch, path string) error {
	_, err := g.run(ctx, "worktree", "add", "-b", branch, path)
	return err
}

// RemoveWorktree removes the worktree at path. With force set, uncommitted
// changes in the worktree are discarded rather than blocking removal —
// used during Child termination and lifecycle rollback where the worktree
// is scratch space.
func (g *Git) RemoveWorktree(ctx context.Context, path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)
	_, err := g.run(ctx, args...)
	if errors.Is(err, ErrWorktreeNotFound) {
		return nil
	}
	return err
}

// ListWorktrees lists all worktrees registered against the repository.
func (g *Git) ListWorktrees(ctx context.Context) ([]Worktree, error) {
	out, err := g.run(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return parsePorcelain(out), nil
}

// parsePorcelain parses the stable `git worktree list --porcelain` format:
// blank-line-separated records of "worktree <path>", "HEAD <sha>",
// "branch <ref>" (or "detached").
func parsePorcelain(out string) []Worktree {
	var worktrees []Worktree
	var current Worktree

	flush := func() {
		if current.Path != "" {
			worktrees = append(worktrees, current)
		}
		current = Worktree{}
	}

	for _, line := range strings.Split(out, "\n") {
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "worktree "):
			current.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "HEAD "):
			current.Head = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			current.Branch = strings.TrimPrefix(line, "branch ")
		}
	}
	flush()

	return worktrees
}
