// Package registry owns the in-memory source of truth: tracked sessions,
// parent/child relationships, and per-session message queues. All
// mutations are serialized under a single lock; every value leaving the
// package is a copy, never a pointer into package-owned state.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parallelgt/coordinator/internal/naming"
)

// DefaultQueueCap and DefaultMaxMessageAge match §3's defaults.
const (
	DefaultQueueCap      = 100
	DefaultMaxMessageAge = 24 * time.Hour
)

// Registry is the concurrency-safe, in-memory store of Session,
// Relationship, and Message state.
type Registry struct {
	mu sync.RWMutex

	sessions      map[string]Session
	relationships map[string]Relationship // keyed by ChildSession
	messages      map[string][]Message    // keyed by ToSession
	missingTicks  map[string]int          // consecutive reconciliation ticks absent from tmux

	logger        *slog.Logger
	queueCap      int
	maxMessageAge time.Duration
}

// New constructs an empty Registry.
func New(logger *slog.Logger, queueCap int, maxMessageAge time.Duration) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if queueCap <= 0 {
		queueCap = DefaultQueueCap
	}
	if maxMessageAge <= 0 {
		maxMessageAge = DefaultMaxMessageAge
	}
	return &Registry{
		sessions:      make(map[string]Session),
		relationships: make(map[string]Relationship),
		messages:      make(map[string][]Message),
		missingTicks:  make(map[string]int),
		logger:        logger,
		queueCap:      queueCap,
		maxMessageAge: maxMessageAge,
	}
}

// CreateSession inserts a brand-new session record. It is used for the
// initial Master/Child creation path, not for status transitions — a
// freshly created session has no prior state for the FSM to validate
// against. Returns ErrConflict if a live record already exists under the
// same name.
func (r *Registry) CreateSession(s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[s.Name]; ok && existing.Status != StatusTerminated {
		return fmt.Errorf("%w: session %q already registered", ErrConflict, s.Name)
	}
	if s.LastUpdate.IsZero() {
		s.LastUpdate = time.Now()
	}
	r.sessions[s.Name] = s
	delete(r.missingTicks, s.Name)
	return nil
}

// RegisterRelationship binds child to parent, auto-materializing a Master
// stub for parent if one is not already present. Idempotent on an
// identical (parent, child, taskID, projectID) tuple.
func (r *Registry) RegisterRelationship(parent, child, taskID, projectID string) error {
	parsedParent, ok := naming.Parse(parent)
	if !ok {
		return fmt.Errorf("%w: parent %q is not a valid session name", ErrInvalidArgument, parent)
	}
	if parsedParent.Role != naming.RoleMaster {
		return fmt.Errorf("%w: parent %q is not a Master session name", ErrRoleMismatch, parent)
	}
	parsedChild, ok := naming.Parse(child)
	if !ok {
		return fmt.Errorf("%w: child %q is not a valid session name", ErrInvalidArgument, child)
	}
	if parsedChild.Role != naming.RoleChild {
		return fmt.Errorf("%w: child %q is not a Child session name", ErrRoleMismatch, child)
	}
	if parsedParent.ProjectID != projectID || parsedChild.ProjectID != projectID {
		return fmt.Errorf("%w: parent/child project id does not match %q", ErrProjectMismatch, projectID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.relationships[child]; ok {
		if existing.ParentSession == parent && existing.TaskID == taskID && existing.ProjectID == projectID {
			return nil // idempotent
		}
		return fmt.Errorf("%w: %q is already bound to %q", ErrRelationshipConflict, child, existing.ParentSession)
	}

	if _, ok := r.sessions[parent]; !ok {
		r.sessions[parent] = Session{
			Name:       parent,
			Role:       naming.RoleMaster,
			ProjectID:  projectID,
			Status:     StatusStarted,
			LastUpdate: time.Now(),
		}
	}

	r.relationships[child] = Relationship{
		ChildSession:  child,
		ParentSession: parent,
		TaskID:        taskID,
		ProjectID:     projectID,
		CreatedAt:     time.Now(),
		Active:        true,
	}
	return nil
}

// UpsertSessionStatus validates progress and the FSM transition, then
// applies the new status. A session not yet tracked is inserted (its name
// must parse against the naming grammar) with the reported status, with no
// prior state for the FSM to check. On a Child's transition into
// Completed, Blocked, or Error, it enqueues a StatusUpdate message to the
// parent.
func (r *Registry) UpsertSessionStatus(name string, status Status, progress int, details string) error {
	if progress < 0 || progress > 100 {
		return fmt.Errorf("%w: progress %d out of range [0,100]", ErrInvalidArgument, progress)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[name]
	if !ok {
		parsed, valid := naming.Parse(name)
		if !valid {
			return fmt.Errorf("%w: %q is not a valid session name", ErrInvalidArgument, name)
		}
		session = Session{Name: name, Role: parsed.Role, ProjectID: parsed.ProjectID, TaskID: parsed.TaskID}
	} else if !transitionAllowed(session.Status, status) {
		r.logger.Warn("rejected illegal status transition",
			"session", name, "from", session.Status.String(), "to", status.String())
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, session.Status, status)
	}

	session.Status = status
	session.Progress = progress
	session.Details = details
	session.LastUpdate = time.Now()
	r.sessions[name] = session

	if session.Role == naming.RoleChild &&
		(status == StatusCompleted || status == StatusBlocked || status == StatusError) {
		if rel, ok := r.relationships[name]; ok {
			r.enqueueLocked(name, rel.ParentSession, MessageStatusUpdate, statusUpdatePayload(name, status, progress, details))
		}
	}

	return nil
}

// ListChildren returns value copies of every active Child of parent,
// enriched with a computed health score.
func (r *Registry) ListChildren(parent string) ([]ChildInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.sessions[parent]; !ok {
		return nil, fmt.Errorf("%w: parent %q", ErrNotFound, parent)
	}

	now := time.Now()
	var children []ChildInfo
	for childName, rel := range r.relationships {
		if !rel.Active || rel.ParentSession != parent {
			continue
		}
		session, ok := r.sessions[childName]
		if !ok {
			continue
		}
		children = append(children, ChildInfo{
			Session:     session,
			HealthScore: healthScore(session.Status, session.LastUpdate, now),
		})
	}

	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	return children, nil
}

// QueryStatus returns a value copy of the named session.
func (r *Registry) QueryStatus(name string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[name]
	if !ok {
		return Session{}, fmt.Errorf("%w: session %q", ErrNotFound, name)
	}
	return session, nil
}

// EnqueueMessage appends a message to the recipient's queue, dropping the
// oldest entry if the queue is already at capacity.
func (r *Registry) EnqueueMessage(from, to string, msgType MessageType, content string) (Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enqueueLocked(from, to, msgType, content), nil
}

func (r *Registry) enqueueLocked(from, to string, msgType MessageType, content string) Message {
	msg := Message{
		ID:          uuid.NewString(),
		FromSession: from,
		ToSession:   to,
		Type:        msgType,
		Content:     content,
		CreatedAt:   time.Now(),
	}

	queue := append(r.messages[to], msg)
	if len(queue) > r.queueCap {
		queue = queue[len(queue)-r.queueCap:]
	}
	r.messages[to] = queue
	return msg
}

// DrainUnread returns every unread message queued for name, marking them
// read. Read messages are retained until Sweep removes them by age.
func (r *Registry) DrainUnread(name string) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	queue := r.messages[name]
	var unread []Message
	for i, msg := range queue {
		if msg.Read {
			continue
		}
		queue[i].Read = true
		unread = append(unread, queue[i])
	}
	r.messages[name] = queue
	return unread, nil
}

// Sweep removes messages older than maxMessageAge across all queues,
// returning the count removed. Invoked by the Reconciliation loop.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for session, queue := range r.messages {
		kept := queue[:0:0]
		for _, msg := range queue {
			if now.Sub(msg.CreatedAt) > r.maxMessageAge {
				removed++
				continue
			}
			kept = append(kept, msg)
		}
		if len(kept) == 0 {
			delete(r.messages, session)
		} else {
			r.messages[session] = kept
		}
	}
	return removed
}

// Snapshot returns a consistent read of the full Registry state.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Name < sessions[j].Name })

	relationships := make([]Relationship, 0, len(r.relationships))
	for _, rel := range r.relationships {
		relationships = append(relationships, rel)
	}
	sort.Slice(relationships, func(i, j int) bool { return relationships[i].ChildSession < relationships[j].ChildSession })

	return Snapshot{Sessions: sessions, Relationships: relationships, TakenAt: time.Now()}
}

// MarkTerminated transitions a session to Terminated in place, without
// removing it from the Registry, so a concurrent QueryStatus observes the
// termination before external cleanup (tmux/git) has run. A session already
// absent is reported as not found rather than an error, matching
// TerminateSession's tolerated-no-op semantics for repeat calls.
func (r *Registry) MarkTerminated(name string) (worktreePath string, found bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[name]
	if !ok {
		return "", false
	}

	if transitionAllowed(session.Status, StatusTerminated) {
		session.Status = StatusTerminated
		session.LastUpdate = time.Now()
		r.sessions[name] = session
	}

	return session.WorktreePath, true
}

// RemoveSession deletes a session and its relationship (if any) from the
// Registry. If it was a Master, any Relationship records naming it as
// parent are also removed — children are not otherwise touched, per the
// policy that terminating a Master does not cascade-kill its tmux
// children. Returns the removed session's WorktreePath (for Child cleanup
// by the caller), whether a record was found at all, and the number of
// cascaded child relationships pruned (always 0 for a non-Master).
func (r *Registry) RemoveSession(name string) (worktreePath string, found bool, cascadedChildren int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[name]
	if !ok {
		return "", false, 0
	}
	worktreePath = session.WorktreePath

	delete(r.sessions, name)
	delete(r.relationships, name)
	delete(r.missingTicks, name)

	if session.Role == naming.RoleMaster {
		for childName, rel := range r.relationships {
			if rel.ParentSession == name {
				delete(r.relationships, childName)
				cascadedChildren++
			}
		}
	}

	return worktreePath, true, cascadedChildren
}

// SessionNames returns every tracked session name, for diffing against
// live tmux state during reconciliation.
func (r *Registry) SessionNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sessions))
	for name := range r.sessions {
		names = append(names, name)
	}
	return names
}

// SetTmuxPresent records whether name currently has a live tmux session
// and resets its missing-tick counter. Returns false if name isn't tracked.
func (r *Registry) SetTmuxPresent(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[name]
	if !ok {
		return false
	}
	session.TmuxPresent = true
	r.sessions[name] = session
	r.missingTicks[name] = 0
	return true
}

// MarkTmuxAbsent increments name's consecutive-miss counter and evicts it
// (along with its Relationship) once it has been absent for graceTicks
// consecutive ticks. Returns true if this call evicted the session.
func (r *Registry) MarkTmuxAbsent(name string, graceTicks int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[name]
	if !ok {
		return false
	}
	session.TmuxPresent = false
	r.sessions[name] = session

	r.missingTicks[name]++
	if r.missingTicks[name] < graceTicks {
		return false
	}

	delete(r.sessions, name)
	delete(r.relationships, name)
	delete(r.missingTicks, name)
	if session.Role == naming.RoleMaster {
		for childName, rel := range r.relationships {
			if rel.ParentSession == name {
				delete(r.relationships, childName)
			}
		}
	}
	return true
}

// AdoptIfMissing inserts a stub Session for a live tmux session that
// parses against the naming grammar but isn't yet tracked. Returns true
// if a new stub was inserted.
func (r *Registry) AdoptIfMissing(parsed naming.ParsedName, sessionName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionName]; ok {
		return false
	}

	r.sessions[sessionName] = Session{
		Name:        sessionName,
		Role:        parsed.Role,
		ProjectID:   parsed.ProjectID,
		TaskID:      parsed.TaskID,
		Status:      StatusUnknown,
		LastUpdate:  time.Now(),
		TmuxPresent: true,
	}
	r.missingTicks[sessionName] = 0
	return true
}

func statusUpdatePayload(childSession string, status Status, progress int, details string) string {
	return fmt.Sprintf(
		`{"child_session":%q,"status":%q,"progress":%d,"details":%q,"timestamp":%q}`,
		childSession, status.String(), progress, details, time.Now().UTC().Format(time.RFC3339),
	)
}
