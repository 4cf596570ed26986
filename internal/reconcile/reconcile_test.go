package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/parallelgt/coordinator/internal/executor"
	"github.com/parallelgt/coordinator/internal/logging"
	"github.com/parallelgt/coordinator/internal/naming"
	"github.com/parallelgt/coordinator/internal/registry"
	"github.com/parallelgt/coordinator/internal/tmux"
)

// scriptedRunner returns a fixed list-sessions response, letting tests
// change its script between ticks without a real tmux server.
type scriptedRunner struct {
	mu      sync.Mutex
	sessions []string
}

func (s *scriptedRunner) setSessions(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = names
}

func (s *scriptedRunner) Run(_ context.Context, argv []string, _ time.Duration) (executor.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(argv) >= 2 && argv[1] == "list-sessions" {
		out := ""
		for i, name := range s.sessions {
			if i > 0 {
				out += "\n"
			}
			out += name
		}
		return executor.Result{ExitCode: 0, Stdout: out}, nil
	}
	return executor.Result{ExitCode: 0}, nil
}

func (s *scriptedRunner) RunInDir(ctx context.Context, argv []string, _ string, timeout time.Duration) (executor.Result, error) {
	return s.Run(ctx, argv, timeout)
}

func (s *scriptedRunner) RunPipedStdin(ctx context.Context, argv []string, _ string, timeout time.Duration) (executor.Result, error) {
	return s.Run(ctx, argv, timeout)
}

func TestTick_AdoptsExternallyCreatedSession(t *testing.T) {
	childName, _ := naming.ChildName("P", "T2")
	runner := &scriptedRunner{sessions: []string{childName}}
	reg := registry.New(logging.Discard(), registry.DefaultQueueCap, time.Hour)
	loop := New(tmux.New(runner), reg, logging.Discard(), time.Second, 2)

	loop.tick()

	session, err := reg.QueryStatus(childName)
	if err != nil {
		t.Fatalf("expected adopted session, got error %v", err)
	}
	if session.Role != naming.RoleChild || session.ProjectID != "P" || session.TaskID != "T2" {
		t.Fatalf("got %+v", session)
	}
	if session.Status != registry.StatusUnknown {
		t.Fatalf("expected adopted session status Unknown, got %v", session.Status)
	}
}

func TestTick_EvictsAfterGraceTicks(t *testing.T) {
	childName, _ := naming.ChildName("P", "T3")
	runner := &scriptedRunner{sessions: []string{childName}}
	reg := registry.New(logging.Discard(), registry.DefaultQueueCap, time.Hour)
	loop := New(tmux.New(runner), reg, logging.Discard(), time.Second, 2)

	loop.tick() // adopted, present

	runner.setSessions(nil) // externally killed
	loop.tick()             // miss 1
	if _, err := reg.QueryStatus(childName); err != nil {
		t.Fatalf("expected session to survive first miss, got %v", err)
	}

	loop.tick() // miss 2 -> evicted
	if _, err := reg.QueryStatus(childName); err == nil {
		t.Fatalf("expected session to be evicted after grace ticks")
	}
}

func TestStartStop_Idempotent(t *testing.T) {
	runner := &scriptedRunner{}
	reg := registry.New(logging.Discard(), registry.DefaultQueueCap, time.Hour)
	loop := New(tmux.New(runner), reg, logging.Discard(), 10*time.Millisecond, 2)

	loop.Start()
	loop.Start() // second call is a no-op
	time.Sleep(30 * time.Millisecond)
	loop.Stop()
	loop.Stop() // second call is a no-op
}
