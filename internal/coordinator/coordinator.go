// Package coordinator is the single typed boundary between the session
// orchestration core and any external RPC or CLI dispatch layer. It
// exposes exactly the operations a collaborator needs, classifying every
// error it returns into the coordinator.Error taxonomy.
package coordinator

import (
	"context"
	"log/slog"
	"time"

	"github.com/parallelgt/coordinator/internal/lifecycle"
	"github.com/parallelgt/coordinator/internal/naming"
	"github.com/parallelgt/coordinator/internal/reconcile"
	"github.com/parallelgt/coordinator/internal/registry"
	"github.com/parallelgt/coordinator/internal/sender"
)

// Ack is returned by operations that only confirm success.
type Ack struct {
	OK bool
}

// Coordinator composes the Registry, Lifecycle controller, Reconciliation
// loop, and Sender into the operation table a collaborator drives.
type Coordinator struct {
	registry    *registry.Registry
	lifecycle   *lifecycle.Lifecycle
	reconciler  *reconcile.Loop
	sender      *sender.Sender
	logger      *slog.Logger
}

// New constructs a Coordinator over already-constructed collaborators.
// The caller owns starting/stopping the Reconciler and Sender.
func New(reg *registry.Registry, lc *lifecycle.Lifecycle, rec *reconcile.Loop, snd *sender.Sender, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{registry: reg, lifecycle: lc, reconciler: rec, sender: snd, logger: logger}
}

// CreateMasterSession creates a Master session for projectID rooted at
// cwd. callerRole is the inferred or explicit role of whoever is invoking
// this operation, enforced by the capability matrix.
func (c *Coordinator) CreateMasterSession(ctx context.Context, projectID, cwd string, callerRole lifecycle.CallerRole) (registry.Session, error) {
	session, err := c.lifecycle.CreateMaster(ctx, projectID, cwd, callerRole)
	if err != nil {
		return registry.Session{}, classify("create_master_session", err)
	}
	return session, nil
}

// CreateChildSession creates a Child session under a git worktree,
// registering it against its Master relationship.
func (c *Coordinator) CreateChildSession(ctx context.Context, projectID, taskID, baseCwd, branch string, callerRole lifecycle.CallerRole) (registry.Session, error) {
	session, err := c.lifecycle.CreateChild(ctx, projectID, taskID, baseCwd, branch, callerRole)
	if err != nil {
		return registry.Session{}, classify("create_child_session", err)
	}
	return session, nil
}

// TerminateSession tears down a session's tmux pane and worktree (if
// any). An already-absent session is a tolerated no-op success, not an
// error.
func (c *Coordinator) TerminateSession(ctx context.Context, sessionName string, callerRole lifecycle.CallerRole) (lifecycle.Summary, error) {
	summary, err := c.lifecycle.TerminateSession(ctx, sessionName, callerRole)
	if err != nil {
		return lifecycle.Summary{}, classify("terminate_session", err)
	}
	return summary, nil
}

// RegisterRelationship links an existing Child session to its Master.
func (c *Coordinator) RegisterRelationship(parent, child, taskID, projectID string) (Ack, error) {
	if err := c.registry.RegisterRelationship(parent, child, taskID, projectID); err != nil {
		return Ack{}, classify("register_relationship", err)
	}
	return Ack{OK: true}, nil
}

// ReportStatus records a session's self-reported status transition.
func (c *Coordinator) ReportStatus(sessionName string, status registry.Status, progress int, details string) (Ack, error) {
	if err := c.registry.UpsertSessionStatus(sessionName, status, progress, details); err != nil {
		return Ack{}, classify("report_status", err)
	}
	return Ack{OK: true}, nil
}

// ListChildren returns every Child of parent, enriched with health score.
func (c *Coordinator) ListChildren(parent string) ([]registry.ChildInfo, error) {
	children, err := c.registry.ListChildren(parent)
	if err != nil {
		return nil, classify("list_children", err)
	}
	return children, nil
}

// QueryStatus returns a single session's current snapshot. An empty
// sessionName returns every tracked session instead of a single one.
func (c *Coordinator) QueryStatus(sessionName string) (registry.Session, []registry.Session, error) {
	if sessionName == "" {
		snapshot := c.registry.Snapshot()
		return registry.Session{}, snapshot.Sessions, nil
	}
	session, err := c.registry.QueryStatus(sessionName)
	if err != nil {
		return registry.Session{}, nil, classify("query_status", err)
	}
	return session, nil, nil
}

// SendMessage enqueues an immediate (non-delayed) message for a
// recipient's inbox.
func (c *Coordinator) SendMessage(from, to string, msgType registry.MessageType, content string) (registry.Message, error) {
	msg, err := c.registry.EnqueueMessage(from, to, msgType, content)
	if err != nil {
		return registry.Message{}, classify("send_message", err)
	}
	return msg, nil
}

// DrainMessages returns and marks read every unread message addressed to
// sessionName.
func (c *Coordinator) DrainMessages(sessionName string) ([]registry.Message, error) {
	messages, err := c.registry.DrainUnread(sessionName)
	if err != nil {
		return nil, classify("drain_messages", err)
	}
	return messages, nil
}

// SendDelayed schedules two-phase delivery of content to sessionName.
func (c *Coordinator) SendDelayed(sessionName, content string, delay time.Duration, priority sender.Priority, window, pane *int) (string, error) {
	requestID, err := c.sender.SendDelayed(sessionName, content, delay, priority, window, pane, nil)
	if err != nil {
		return "", classify("send_delayed", err)
	}
	return requestID, nil
}

// CancelDelayed cancels a still-pending or in-flight delayed send.
func (c *Coordinator) CancelDelayed(requestID string) (bool, error) {
	return c.sender.CancelDelayed(requestID), nil
}

// GetMetrics returns the Sender's current operating metrics.
func (c *Coordinator) GetMetrics() (sender.MetricsSnapshot, error) {
	return c.sender.Metrics(), nil
}

// ParseSessionName exposes the naming grammar to callers that need to
// validate a session name before issuing an operation against it (e.g.
// the CLI, before prompting for confirmation).
func ParseSessionName(name string) (naming.ParsedName, bool) {
	return naming.Parse(name)
}
