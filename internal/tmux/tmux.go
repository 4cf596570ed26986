// Package tmux wraps tmux session operations via subprocess, routed through
// an executor.Runner so timeouts and error classification stay consistent
// with the rest of the process layer.
package tmux

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/parallelgt/coordinator/internal/executor"
)

// Common errors, classified from tmux's stderr text.
var (
	ErrNoServer        = errors.New("tmux: no server running")
	ErrSessionExists   = errors.New("tmux: session already exists")
	ErrSessionNotFound = errors.New("tmux: session not found")
)

const runTimeout = 5 * time.Second

// Tmux wraps tmux operations. It carries no state of its own beyond the
// Runner used to invoke the tmux binary.
type Tmux struct {
	runner executor.Runner
}

// New creates a Tmux wrapper over the given Runner.
func New(runner executor.Runner) *Tmux {
	return &Tmux{runner: runner}
}

// run executes a tmux subcommand and returns trimmed stdout.
func (t *Tmux) run(ctx context.Context, args ...string) (string, error) {
	argv := append([]string{"tmux"}, args...)
	result, err := t.runner.Run(ctx, argv, runTimeout)
	if err != nil {
		return "", fmt.Errorf("tmux %s: %w", args[0], err)
	}
	if result.ExitCode != 0 {
		return "", t.wrapError(result.Stderr, args)
	}
	return strings.TrimSpace(result.Stdout), nil
}

// wrapError classifies tmux's stderr text into a sentinel error.
func (t *Tmux) wrapError(stderr string, args []string) error {
	stderr = strings.TrimSpace(stderr)

	switch {
	case strings.Contains(stderr, "no server running"),
		strings.Contains(stderr, "error connecting to"):
		return ErrNoServer
	case strings.Contains(stderr, "duplicate session"):
		return ErrSessionExists
	case strings.Contains(stderr, "session not found"),
		strings.Contains(stderr, "can't find session"):
		return ErrSessionNotFound
	}

	if stderr != "" {
		return fmt.Errorf("tmux %s: %s", args[0], stderr)
	}
	return fmt.Errorf("tmux %s: exit status non-zero", args[0])
}

// NewSession creates a new detached tmux session rooted at workDir.
func (t *Tmux) NewSession(ctx context.Context, name, workDir string) error {
	args := []string{"new-session", "-d", "-s", name}
	if workDir != "" {
		args = append(args, "-c", workDir)
	}
	_, err := t.run(ctx, args...)
	return err
}

// KillSession terminates a tmux session by name.
func (t *Tmux) KillSession(ctx context.Context, name string) error {
	_, err := t.run(ctx, "kill-session", "-t", name)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	return err
}

// HasSession reports whether a session exists, matching the name exactly.
// The "=" prefix prevents prefix collisions, e.g. "parallel_foo_task_master"
// must not match a HasSession("parallel_foo") check.
func (t *Tmux) HasSession(ctx context.Context, name string) (bool, error) {
	_, err := t.run(ctx, "has-session", "-t", "="+name)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrNoServer) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListSessions returns all live session names. An absent tmux server is not
// an error — it simply means there are no sessions.
func (t *Tmux) ListSessions(ctx context.Context) ([]string, error) {
	out, err := t.run(ctx, "list-sessions", "-F", "#{session_name}")
	if err != nil {
		if errors.Is(err, ErrNoServer) {
			return nil, nil
		}
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// SetEnvironment sets a session-scoped tmux environment variable, used to
// mark a session's role and identity. Reconciliation does not read these;
// it adopts sessions by parsing their names.
func (t *Tmux) SetEnvironment(ctx context.Context, session, key, value string) error {
	_, err := t.run(ctx, "set-environment", "-t", session, key, value)
	return err
}

// GetEnvironment reads a session-scoped tmux environment variable.
func (t *Tmux) GetEnvironment(ctx context.Context, session, key string) (string, error) {
	out, err := t.run(ctx, "show-environment", "-t", session, key)
	if err != nil {
		return "", err
	}
	// show-environment prints "KEY=VALUE"; an unset variable is prefixed "-KEY".
	if strings.HasPrefix(out, "-") {
		return "", nil
	}
	_, value, found := strings.Cut(out, "=")
	if !found {
		return "", nil
	}
	return value, nil
}

// SendKeysLiteral sends literal text to a session's pane without pressing
// Enter. This is phase A of delayed message delivery: the content lands in
// the pane's input line but is not submitted.
func (t *Tmux) SendKeysLiteral(ctx context.Context, session, text string) error {
	_, err := t.run(ctx, "send-keys", "-t", session, "-l", text)
	return err
}

// SendKeysEnter presses Enter in a session's pane, submitting whatever
// literal text is already on the input line. This is phase B of delayed
// message delivery.
func (t *Tmux) SendKeysEnter(ctx context.Context, session string) error {
	_, err := t.run(ctx, "send-keys", "-t", session, "Enter")
	return err
}

// CapturePane returns the visible contents of a session's active pane.
// Neither reconciliation nor the Sender calls it.
func (t *Tmux) CapturePane(ctx context.Context, session string) (string, error) {
	return t.run(ctx, "capture-pane", "-t", session, "-p")
}

// IsAvailable checks whether the tmux binary can be invoked at all.
func (t *Tmux) IsAvailable(ctx context.Context) bool {
	_, err := t.run(ctx, "-V")
	return err == nil
}
