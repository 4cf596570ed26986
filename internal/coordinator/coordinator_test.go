package coordinator

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/parallelgt/coordinator/internal/executor"
	"github.com/parallelgt/coordinator/internal/lifecycle"
	"github.com/parallelgt/coordinator/internal/logging"
	"github.com/parallelgt/coordinator/internal/naming"
	"github.com/parallelgt/coordinator/internal/reconcile"
	"github.com/parallelgt/coordinator/internal/registry"
	"github.com/parallelgt/coordinator/internal/sender"
	"github.com/parallelgt/coordinator/internal/tmux"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	logger := logging.Discard()
	reg := registry.New(logger, registry.DefaultQueueCap, registry.DefaultMaxMessageAge)
	runner := &executor.Executor{}
	lc := lifecycle.New(runner, reg, logger)
	tm := tmux.New(runner)
	rec := reconcile.New(tm, reg, logger, reconcile.DefaultTickInterval, reconcile.DefaultStaleEvictionTicks)
	snd := sender.New(tm, logger, sender.DefaultQueueCap, sender.DefaultMaxConcurrentSessions, sender.DefaultBreakerConfig())
	return New(reg, lc, rec, snd, logger)
}

func TestRegisterRelationshipAndListChildren(t *testing.T) {
	c := newTestCoordinator(t)

	master, err := naming.MasterName("proj")
	if err != nil {
		t.Fatalf("MasterName: %v", err)
	}
	child, err := naming.ChildName("proj", "task1")
	if err != nil {
		t.Fatalf("ChildName: %v", err)
	}

	if _, err := c.RegisterRelationship(master, child, "task1", "proj"); err != nil {
		t.Fatalf("RegisterRelationship: %v", err)
	}

	if _, err := c.ReportStatus(child, registry.StatusStarted, 0, "booting"); err != nil {
		t.Fatalf("ReportStatus: %v", err)
	}

	children, err := c.ListChildren(master)
	if err != nil {
		t.Fatalf("ListChildren: %v", err)
	}
	if len(children) != 1 || children[0].Session.Name != child {
		t.Fatalf("expected one child %q, got %v", child, children)
	}
}

func TestReportStatus_IllegalTransitionClassifiesAsConflict(t *testing.T) {
	c := newTestCoordinator(t)

	master, _ := naming.MasterName("proj")
	child, _ := naming.ChildName("proj", "task1")
	if _, err := c.RegisterRelationship(master, child, "task1", "proj"); err != nil {
		t.Fatalf("RegisterRelationship: %v", err)
	}
	if _, err := c.ReportStatus(child, registry.StatusCompleted, 100, "done"); err != nil {
		t.Fatalf("first ReportStatus: %v", err)
	}

	_, err := c.ReportStatus(child, registry.StatusBlocked, 100, "blocked after done")
	if err == nil {
		t.Fatalf("expected an illegal transition out of Completed to fail")
	}
	var coordErr *Error
	if !errors.As(err, &coordErr) {
		t.Fatalf("expected a *coordinator.Error, got %T", err)
	}
	if coordErr.Kind != KindConflict {
		t.Fatalf("expected KindConflict, got %v", coordErr.Kind)
	}
}

func TestQueryStatus_UnknownSessionIsNotFound(t *testing.T) {
	c := newTestCoordinator(t)

	_, _, err := c.QueryStatus("parallel_nope_task_master")
	if err == nil {
		t.Fatalf("expected an error for an unknown session")
	}
	var coordErr *Error
	if !errors.As(err, &coordErr) {
		t.Fatalf("expected a *coordinator.Error, got %T", err)
	}
	if coordErr.Kind != KindNotFound {
		t.Fatalf("expected KindNotFound, got %v", coordErr.Kind)
	}
}

func TestSendMessageAndDrainMessages(t *testing.T) {
	c := newTestCoordinator(t)

	master, _ := naming.MasterName("proj")
	child, _ := naming.ChildName("proj", "task1")

	if _, err := c.SendMessage(master, child, registry.MessageInstruction, "start work"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	messages, err := c.DrainMessages(child)
	if err != nil {
		t.Fatalf("DrainMessages: %v", err)
	}
	if len(messages) != 1 || messages[0].Content != "start work" {
		t.Fatalf("expected one drained message, got %v", messages)
	}

	again, err := c.DrainMessages(child)
	if err != nil {
		t.Fatalf("second DrainMessages: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no messages left after draining once, got %v", again)
	}
}

func TestSendDelayedAndCancelDelayed(t *testing.T) {
	c := newTestCoordinator(t)
	c.sender.Start()
	t.Cleanup(c.sender.Stop)

	requestID, err := c.SendDelayed("parallel_proj_task_child_1", "hello", time.Second, sender.PriorityNormal, nil, nil)
	if err != nil {
		t.Fatalf("SendDelayed: %v", err)
	}

	ok, err := c.CancelDelayed(requestID)
	if err != nil {
		t.Fatalf("CancelDelayed: %v", err)
	}
	if !ok {
		t.Fatalf("expected cancel of a freshly-queued delayed send to succeed")
	}
}

func TestGetMetrics_ReturnsSnapshot(t *testing.T) {
	c := newTestCoordinator(t)
	metrics, err := c.GetMetrics()
	if err != nil {
		t.Fatalf("GetMetrics: %v", err)
	}
	if metrics.BreakerState == "" {
		t.Fatalf("expected a non-empty breaker state")
	}
}

func TestCreateMasterSession_DeniesChildCaller(t *testing.T) {
	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skip("tmux binary not available")
	}
	c := newTestCoordinator(t)

	_, err := c.CreateMasterSession(context.Background(), "proj", t.TempDir(), lifecycle.CallerChild)
	if err == nil {
		t.Fatalf("expected a security violation for a Child caller")
	}
	var coordErr *Error
	if !errors.As(err, &coordErr) {
		t.Fatalf("expected a *coordinator.Error, got %T", err)
	}
	if coordErr.Kind != KindSecurityViolation {
		t.Fatalf("expected KindSecurityViolation, got %v", coordErr.Kind)
	}
}
