package tmux

import (
	"context"
	"testing"
	"time"

	"github.com/parallelgt/coordinator/internal/executor"
)

// fakeRunner is a scripted executor.Runner for testing the tmux wrapper
// without shelling out to a real tmux binary.
type fakeRunner struct {
	results map[string]executor.Result
	errs    map[string]error
	calls   [][]string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		results: make(map[string]executor.Result),
		errs:    make(map[string]error),
	}
}

func (f *fakeRunner) key(argv []string) string {
	if len(argv) < 2 {
		return ""
	}
	return argv[1]
}

func (f *fakeRunner) Run(_ context.Context, argv []string, _ time.Duration) (executor.Result, error) {
	f.calls = append(f.calls, argv)
	k := f.key(argv)
	if err, ok := f.errs[k]; ok {
		return executor.Result{}, err
	}
	return f.results[k], nil
}

func (f *fakeRunner) RunInDir(ctx context.Context, argv []string, _ string, timeout time.Duration) (executor.Result, error) {
	return f.Run(ctx, argv, timeout)
}

func (f *fakeRunner) RunPipedStdin(ctx context.Context, argv []string, _ string, timeout time.Duration) (executor.Result, error) {
	return f.Run(ctx, argv, timeout)
}

func TestHasSession_ExactMatchNotFound(t *testing.T) {
	runner := newFakeRunner()
	runner.results["has-session"] = executor.Result{ExitCode: 1, Stderr: "can't find session: =parallel_foo_task_master"}
	tm := New(runner)

	exists, err := tm.HasSession(context.Background(), "parallel_foo_task_master")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Fatalf("expected session to be reported absent")
	}
}

func TestHasSession_NoServerIsAbsent(t *testing.T) {
	runner := newFakeRunner()
	runner.results["has-session"] = executor.Result{ExitCode: 1, Stderr: "error connecting to /tmp/tmux-0/default (No such file or directory)"}
	tm := New(runner)

	exists, err := tm.HasSession(context.Background(), "parallel_foo_task_master")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Fatalf("expected session to be reported absent when no server is running")
	}
}

func TestListSessions_NoServerReturnsEmpty(t *testing.T) {
	runner := newFakeRunner()
	runner.results["list-sessions"] = executor.Result{ExitCode: 1, Stderr: "no server running on /tmp/tmux-0/default"}
	tm := New(runner)

	sessions, err := tm.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected no sessions, got %v", sessions)
	}
}

func TestListSessions_SplitsOutput(t *testing.T) {
	runner := newFakeRunner()
	runner.results["list-sessions"] = executor.Result{ExitCode: 0, Stdout: "parallel_foo_task_master\nparallel_foo_task_child_1\n"}
	tm := New(runner)

	sessions, err := tm.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"parallel_foo_task_master", "parallel_foo_task_child_1"}
	if len(sessions) != len(want) {
		t.Fatalf("got %v, want %v", sessions, want)
	}
	for i := range want {
		if sessions[i] != want[i] {
			t.Fatalf("got %v, want %v", sessions, want)
		}
	}
}

func TestKillSession_NotFoundIsNotAnError(t *testing.T) {
	runner := newFakeRunner()
	runner.results["kill-session"] = executor.Result{ExitCode: 1, Stderr: "session not found: parallel_foo_task_master"}
	tm := New(runner)

	if err := tm.KillSession(context.Background(), "parallel_foo_task_master"); err != nil {
		t.Fatalf("expected nil error killing an already-gone session, got %v", err)
	}
}

func TestSendKeysLiteral_DoesNotSubmitEnter(t *testing.T) {
	runner := newFakeRunner()
	runner.results["send-keys"] = executor.Result{ExitCode: 0}
	tm := New(runner)

	if err := tm.SendKeysLiteral(context.Background(), "parallel_foo_task_master", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found := false
	for _, call := range runner.calls {
		for _, arg := range call {
			if arg == "-l" {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("expected send-keys call to use the -l literal flag, calls: %v", runner.calls)
	}
}
