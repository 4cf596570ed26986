// Package reconcile runs the periodic loop that keeps the Registry
// aligned with the tmux processes that actually exist: evicting stale
// records, adopting externally created sessions, and sweeping expired
// messages.
package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/parallelgt/coordinator/internal/naming"
	"github.com/parallelgt/coordinator/internal/registry"
	"github.com/parallelgt/coordinator/internal/tmux"
)

// DefaultTickInterval and DefaultStaleEvictionTicks match the values
// named throughout the system design.
const (
	DefaultTickInterval       = 5 * time.Second
	DefaultStaleEvictionTicks = 2
)

// Roster is the child-roster snapshot published after every tick, for
// in-process observers. The Dashboard TUI does not read it; it polls
// ListChildren instead.
type Roster struct {
	Children []registry.ChildInfo
	TakenAt  time.Time
}

// Loop is the reconciliation goroutine. Start/Stop are idempotent: Start
// uses a sync.Once so concurrent callers spawn exactly one goroutine;
// Stop cancels and waits for that goroutine to exit.
type Loop struct {
	tmux         *tmux.Tmux
	registry     *registry.Registry
	logger       *slog.Logger
	tickInterval time.Duration
	graceTicks   int

	roster chan Roster

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
}

// New constructs a reconciliation Loop. tickInterval and graceTicks fall
// back to the compiled-in defaults when zero.
func New(t *tmux.Tmux, reg *registry.Registry, logger *slog.Logger, tickInterval time.Duration, graceTicks int) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}
	if graceTicks <= 0 {
		graceTicks = DefaultStaleEvictionTicks
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{
		tmux:         t,
		registry:     reg,
		logger:       logger,
		tickInterval: tickInterval,
		graceTicks:   graceTicks,
		roster:       make(chan Roster, 1),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start launches the reconciliation goroutine. Safe to call more than
// once; only the first call has any effect.
func (l *Loop) Start() {
	l.startOnce.Do(func() {
		l.wg.Add(1)
		go l.run()
	})
}

// Stop cancels the loop and waits for its goroutine to exit. Safe to
// call even if Start was never called.
func (l *Loop) Stop() {
	l.cancel()
	l.wg.Wait()
}

// Roster returns the channel Tick publishes child-roster snapshots to.
// This is in-process fan-out, not a persisted or networked event stream;
// a full channel drops the oldest snapshot rather than blocking the loop.
func (l *Loop) Roster() <-chan Roster {
	return l.roster
}

// Tick forces one synchronous reconciliation pass outside the normal
// ticker cadence, independent of whether Start has been called — used by
// the CLI to adopt already-running tmux sessions before serving a single
// request against a freshly constructed Registry.
func (l *Loop) Tick() {
	l.tick()
}

func (l *Loop) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.tick()
		}
	}
}

// tick runs one reconciliation pass synchronously; a tick that runs long
// blocks the next tick rather than overlapping with it.
func (l *Loop) tick() {
	now := time.Now()

	liveNames, err := l.tmux.ListSessions(l.ctx)
	if err != nil {
		l.logger.Warn("reconciliation: listing tmux sessions failed", "error", err)
		liveNames = nil
	}

	live := make(map[string]bool, len(liveNames))
	for _, name := range liveNames {
		live[name] = true
	}

	l.reconcileTracked(live)
	l.adoptUntracked(liveNames)
	removed := l.registry.Sweep(now)
	if removed > 0 {
		l.logger.Debug("reconciliation: swept expired messages", "count", removed)
	}

	l.publishRoster(now)
}

func (l *Loop) reconcileTracked(live map[string]bool) {
	for _, name := range l.registry.SessionNames() {
		if live[name] {
			l.registry.SetTmuxPresent(name)
			continue
		}
		if l.registry.MarkTmuxAbsent(name, l.graceTicks) {
			l.logger.Info("reconciliation: evicted stale session", "session", name)
		}
	}
}

func (l *Loop) adoptUntracked(liveNames []string) {
	for _, name := range liveNames {
		parsed, ok := naming.Parse(name)
		if !ok {
			continue // doesn't match the grammar; not ours to track
		}
		if l.registry.AdoptIfMissing(parsed, name) {
			l.logger.Info("reconciliation: adopted externally created session", "session", name, "role", parsed.Role.String())
		}
	}
}

func (l *Loop) publishRoster(now time.Time) {
	masters := make(map[string]bool)
	for _, session := range l.registry.Snapshot().Sessions {
		if session.Role == naming.RoleMaster {
			masters[session.Name] = true
		}
	}

	var children []registry.ChildInfo
	for master := range masters {
		c, err := l.registry.ListChildren(master)
		if err != nil {
			continue
		}
		children = append(children, c...)
	}

	roster := Roster{Children: children, TakenAt: now}
	select {
	case l.roster <- roster:
	default:
		select {
		case <-l.roster:
		default:
		}
		select {
		case l.roster <- roster:
		default:
		}
	}
}
