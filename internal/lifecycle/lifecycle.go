// Package lifecycle composes the Executor-backed tmux and git worktree
// wrappers with the Registry to create and terminate Master and Child
// sessions atomically, with compensating rollback on partial failure, and
// to enforce the role-based capability matrix between Master and Child.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/parallelgt/coordinator/internal/executor"
	"github.com/parallelgt/coordinator/internal/gitwt"
	"github.com/parallelgt/coordinator/internal/naming"
	"github.com/parallelgt/coordinator/internal/registry"
	"github.com/parallelgt/coordinator/internal/tmux"
)

// These are the tmux environment variables every created session is
// stamped with (the session-type key, EnvSessionType, lives in role.go),
// for master_detector-style role inference. Reconciliation does not read
// them; it adopts sessions by parsing their names.
const (
	envSessionName       = "MCP_SESSION_NAME"
	envProjectID         = "MCP_PROJECT_ID"
	envTaskID            = "MCP_TASK_ID"
	envCoordinatorActive = "MCP_COORDINATOR_ACTIVE"
)

// Summary reports which cleanup steps of a TerminateSession call
// succeeded. Partial failure is explicit rather than retried.
type Summary struct {
	Found            bool
	TmuxKilled       bool
	WorktreeRemoved  bool
	CascadedChildren int
}

// Lifecycle composes the process/tmux/git layers with the Registry.
type Lifecycle struct {
	tmux     *tmux.Tmux
	git      func(repoDir string) *gitwt.Git
	registry *registry.Registry
	logger   *slog.Logger
}

// New constructs a Lifecycle controller.
func New(runner executor.Runner, reg *registry.Registry, logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{
		tmux:     tmux.New(runner),
		git:      func(repoDir string) *gitwt.Git { return gitwt.NewGit(repoDir, runner) },
		registry: reg,
		logger:   logger,
	}
}

// CreateMaster starts a Master tmux session rooted at cwd and registers it.
func (l *Lifecycle) CreateMaster(ctx context.Context, projectID, cwd string, caller CallerRole) (registry.Session, error) {
	if !canCreateOrTerminate(caller) {
		return registry.Session{}, fmt.Errorf("%w: create_master_session denied for Child caller", ErrSecurityViolation)
	}

	name, err := naming.MasterName(projectID)
	if err != nil {
		return registry.Session{}, err
	}

	exists, err := l.tmux.HasSession(ctx, name)
	if err != nil {
		return registry.Session{}, err
	}
	if exists {
		return registry.Session{}, fmt.Errorf("%w: %s", ErrSessionExists, name)
	}

	if err := l.tmux.NewSession(ctx, name, cwd); err != nil {
		return registry.Session{}, fmt.Errorf("creating master tmux session: %w", err)
	}

	if err := l.stampEnv(ctx, name, map[string]string{
		envSessionName:       name,
		EnvSessionType:  "master",
		envProjectID:         projectID,
		envCoordinatorActive: "true",
	}); err != nil {
		l.logger.Warn("rolling back master session after env setup failure", "session", name, "error", err)
		_ = l.tmux.KillSession(ctx, name)
		return registry.Session{}, fmt.Errorf("configuring master session environment: %w", err)
	}

	session := registry.Session{
		Name:      name,
		Role:      naming.RoleMaster,
		ProjectID: projectID,
		Status:    registry.StatusStarted,
	}
	if err := l.registry.CreateSession(session); err != nil {
		l.logger.Warn("rolling back master session after registry failure", "session", name, "error", err)
		_ = l.tmux.KillSession(ctx, name)
		return registry.Session{}, fmt.Errorf("registering master session: %w", err)
	}

	return session, nil
}

// CreateChild creates a git worktree and a tmux session for one task of a
// project, registering the Child and its Relationship to its Master
// (auto-materializing a Master stub if one doesn't yet exist). Any
// failure after the worktree is created triggers compensations in
// reverse order.
func (l *Lifecycle) CreateChild(ctx context.Context, projectID, taskID, baseCwd, branchName string, caller CallerRole) (registry.Session, error) {
	if !canCreateOrTerminate(caller) {
		return registry.Session{}, fmt.Errorf("%w: create_child_session denied for Child caller", ErrSecurityViolation)
	}

	worktreeRoot := filepath.Join(baseCwd, "worktree")
	if err := os.MkdirAll(worktreeRoot, 0o755); err != nil {
		return registry.Session{}, fmt.Errorf("ensuring worktree root: %w", err)
	}

	worktreePath := filepath.Join(worktreeRoot, taskID)
	if _, err := os.Stat(worktreePath); err == nil {
		return registry.Session{}, fmt.Errorf("%w: %s", ErrWorktreeExists, worktreePath)
	}

	branch := branchName
	if branch == "" {
		branch = "task/" + taskID
	}

	git := l.git(baseCwd)
	if err := git.AddWorktree(ctx, branch, worktreePath); err != nil {
		return registry.Session{}, fmt.Errorf("creating worktree: %w", err)
	}

	name, err := naming.ChildName(projectID, taskID)
	if err != nil {
		_ = git.RemoveWorktree(ctx, worktreePath, true)
		return registry.Session{}, err
	}

	exists, err := l.tmux.HasSession(ctx, name)
	if err != nil {
		_ = git.RemoveWorktree(ctx, worktreePath, true)
		return registry.Session{}, err
	}
	if exists {
		_ = git.RemoveWorktree(ctx, worktreePath, true)
		return registry.Session{}, fmt.Errorf("%w: %s", ErrSessionExists, name)
	}

	if err := l.tmux.NewSession(ctx, name, worktreePath); err != nil {
		_ = git.RemoveWorktree(ctx, worktreePath, true)
		return registry.Session{}, fmt.Errorf("creating child tmux session: %w", err)
	}

	if err := l.stampEnv(ctx, name, map[string]string{
		envSessionName:       name,
		EnvSessionType:  "child",
		envProjectID:         projectID,
		envTaskID:            taskID,
		envCoordinatorActive: "true",
	}); err != nil {
		l.logger.Warn("rolling back child session after env setup failure", "session", name, "error", err)
		_ = l.tmux.KillSession(ctx, name)
		_ = git.RemoveWorktree(ctx, worktreePath, true)
		return registry.Session{}, fmt.Errorf("configuring child session environment: %w", err)
	}

	session := registry.Session{
		Name:         name,
		Role:         naming.RoleChild,
		ProjectID:    projectID,
		TaskID:       taskID,
		Status:       registry.StatusStarted,
		WorktreePath: worktreePath,
		Branch:       branch,
	}
	if err := l.registry.CreateSession(session); err != nil {
		l.logger.Warn("rolling back child session after registry failure", "session", name, "error", err)
		_ = l.tmux.KillSession(ctx, name)
		_ = git.RemoveWorktree(ctx, worktreePath, true)
		return registry.Session{}, fmt.Errorf("registering child session: %w", err)
	}

	masterName, err := naming.MasterName(projectID)
	if err != nil {
		return session, err
	}
	if err := l.registry.RegisterRelationship(masterName, name, taskID, projectID); err != nil {
		return session, fmt.Errorf("registering relationship: %w", err)
	}

	return session, nil
}

// TerminateSession tears a session down: marks it Terminated so a
// concurrent query_status observes the in-progress teardown, kills its
// tmux session, removes its worktree if it was a Child, and only then
// removes its Registry records. A session that no longer exists anywhere
// is a tolerated no-op success, not an error — repeated termination must
// be idempotent.
func (l *Lifecycle) TerminateSession(ctx context.Context, name string, caller CallerRole) (Summary, error) {
	if !canCreateOrTerminate(caller) {
		return Summary{}, fmt.Errorf("%w: terminate_session denied for Child caller", ErrSecurityViolation)
	}

	worktreePath, found := l.registry.MarkTerminated(name)
	summary := Summary{Found: found}
	if !found {
		// Still attempt to kill a stray tmux session even if the Registry
		// never knew about it.
		_ = l.tmux.KillSession(ctx, name)
		return summary, nil
	}

	if err := l.tmux.KillSession(ctx, name); err != nil {
		l.logger.Warn("tmux kill-session failed during termination", "session", name, "error", err)
	} else {
		summary.TmuxKilled = true
	}

	if worktreePath != "" {
		repoDir := filepath.Dir(filepath.Dir(worktreePath)) // worktreePath = repoDir/worktree/taskID
		if err := l.git(repoDir).RemoveWorktree(ctx, worktreePath, true); err != nil {
			l.logger.Warn("git worktree remove failed during termination", "session", name, "worktree", worktreePath, "error", err)
		} else {
			summary.WorktreeRemoved = true
		}
	}

	_, _, summary.CascadedChildren = l.registry.RemoveSession(name)

	return summary, nil
}

func (l *Lifecycle) stampEnv(ctx context.Context, session string, vars map[string]string) error {
	for key, value := range vars {
		if err := l.tmux.SetEnvironment(ctx, session, key, value); err != nil {
			return err
		}
	}
	return nil
}
