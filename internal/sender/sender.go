// Package sender implements the two-phase delayed message delivery
// protocol: literal content first, then — after a pause — a discrete
// Enter keystroke, because interactive terminals under load misorder
// pasted content and its terminating newline. Delivery is bounded-
// concurrency, per-session-exclusive, retried with backoff, and gated by
// a shared circuit breaker.
package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parallelgt/coordinator/internal/tmux"
)

// Sentinel errors.
var (
	ErrQueueFull  = errors.New("sender: queue full")
	ErrInvalidArg = errors.New("sender: invalid argument")
)

// Default tunables, matching the values named throughout the system
// design.
const (
	DefaultQueueCap              = 1000
	DefaultMaxConcurrentSessions = 10
	DefaultDelay                 = 10 * time.Second

	phaseARetries = 2
	phaseABase    = 500 * time.Millisecond
	phaseACap     = 5 * time.Second

	phaseBRetries = 1
	phaseBBase    = 200 * time.Millisecond
	phaseBCap     = 2 * time.Second
)

type trackedRequest struct {
	req       DelayedSendRequest
	onComplete CompletionFunc
	cancelled bool
	timer     *time.Timer
}

// Sender is the delayed-message delivery subsystem.
type Sender struct {
	tmux   *tmux.Tmux
	logger *slog.Logger

	queueCap              int
	maxConcurrentSessions int

	mu            sync.Mutex
	priorityQueue []*trackedRequest
	normalQueue   []*trackedRequest
	requests      map[string]*trackedRequest
	leased        map[string]bool
	activeWorkers int

	breaker *CircuitBreaker
	metrics metricsState

	wake      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
}

type metricsState struct {
	mu          sync.Mutex
	statusCount map[RequestStatus]int
	phaseACount int
	phaseASum   time.Duration
	phaseAMin   time.Duration
	phaseAMax   time.Duration
	retryCount  int
}

// New constructs a Sender. queueCap and maxConcurrentSessions fall back
// to their compiled-in defaults when zero.
func New(t *tmux.Tmux, logger *slog.Logger, queueCap, maxConcurrentSessions int, breakerCfg BreakerConfig) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	if queueCap <= 0 {
		queueCap = DefaultQueueCap
	}
	if maxConcurrentSessions <= 0 {
		maxConcurrentSessions = DefaultMaxConcurrentSessions
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Sender{
		tmux:                  t,
		logger:                logger,
		queueCap:              queueCap,
		maxConcurrentSessions: maxConcurrentSessions,
		requests:              make(map[string]*trackedRequest),
		leased:                make(map[string]bool),
		breaker:               NewCircuitBreaker(breakerCfg),
		metrics:               metricsState{statusCount: make(map[RequestStatus]int)},
		wake:                  make(chan struct{}, 1),
		ctx:                   ctx,
		cancel:                cancel,
	}
}

// Start launches the dispatch loop. Safe to call more than once.
func (s *Sender) Start() {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.dispatchLoop()
	})
}

// Stop cancels the dispatch loop and waits for in-flight workers to
// observe cancellation and return.
func (s *Sender) Stop() {
	s.cancel()
	s.wg.Wait()
}

// SendDelayed enqueues a two-phase delivery. delay defaults to
// DefaultDelay when zero. onComplete, if non-nil, fires exactly once when
// a dispatched request ends Completed, Failed, or Cancelled; a request
// cancelled while still queued never invokes it.
func (s *Sender) SendDelayed(sessionName, content string, delay time.Duration, priority Priority, window, pane *int, onComplete CompletionFunc) (string, error) {
	if sessionName == "" || content == "" {
		return "", fmt.Errorf("%w: sessionName and content are required", ErrInvalidArg)
	}
	if delay <= 0 {
		delay = DefaultDelay
	}

	req := DelayedSendRequest{
		RequestID:   uuid.NewString(),
		SessionName: sessionName,
		Content:     content,
		Delay:       delay,
		Priority:    priority,
		Window:      window,
		Pane:        pane,
		CreatedAt:   time.Now(),
		Status:      StatusPending,
	}
	tracked := &trackedRequest{req: req, onComplete: onComplete}

	s.mu.Lock()
	if len(s.priorityQueue)+len(s.normalQueue) >= s.queueCap {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %d requests already queued", ErrQueueFull, s.queueCap)
	}
	if priority.isPriorityQueue() {
		s.priorityQueue = append(s.priorityQueue, tracked)
	} else {
		s.normalQueue = append(s.normalQueue, tracked)
	}
	s.requests[req.RequestID] = tracked
	s.mu.Unlock()

	s.recordStatus(StatusPending)
	s.signalWake()

	return req.RequestID, nil
}

// CancelDelayed marks a request Cancelled. A still-queued request is
// removed outright; an in-flight request is flagged and stops short at
// its next checkpoint (it will still complete an already-started Phase A
// send, but will skip Phase B). Returns false if the request is unknown
// or already terminal.
func (s *Sender) CancelDelayed(requestID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tracked, ok := s.requests[requestID]
	if !ok {
		return false
	}
	if isTerminal(tracked.req.Status) {
		return false
	}

	s.priorityQueue = removeRequest(s.priorityQueue, requestID)
	s.normalQueue = removeRequest(s.normalQueue, requestID)

	tracked.cancelled = true
	if tracked.req.Status == StatusPending {
		tracked.req.Status = StatusCancelled
	}
	if tracked.timer != nil {
		// Fire the delay timer now so the worker reaches its cancellation
		// checkpoint, finishes Cancelled, and releases the session lease.
		tracked.timer.Reset(0)
	}
	return true
}

// Query returns a value copy of a tracked request's current state.
func (s *Sender) Query(requestID string) (DelayedSendRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tracked, ok := s.requests[requestID]
	if !ok {
		return DelayedSendRequest{}, false
	}
	return tracked.req, true
}

// Metrics returns a snapshot of the Sender's operating metrics.
func (s *Sender) Metrics() MetricsSnapshot {
	s.metrics.mu.Lock()
	total, completed := 0, 0
	counts := make(map[string]int, len(s.metrics.statusCount))
	for status, n := range s.metrics.statusCount {
		counts[status.String()] += n
		// Success rate is measured over delivery outcomes only.
		if status == StatusCompleted || status == StatusFailed {
			total += n
		}
		if status == StatusCompleted {
			completed += n
		}
	}
	avg := time.Duration(0)
	if s.metrics.phaseACount > 0 {
		avg = s.metrics.phaseASum / time.Duration(s.metrics.phaseACount)
	}
	snap := MetricsSnapshot{
		StatusCounts:      counts,
		AvgPhaseADuration: avg,
		MinPhaseADuration: s.metrics.phaseAMin,
		MaxPhaseADuration: s.metrics.phaseAMax,
		RetryCount:        s.metrics.retryCount,
	}
	if total > 0 {
		snap.SuccessRate = float64(completed) / float64(total)
	}
	s.metrics.mu.Unlock()

	snap.BreakerState = s.breaker.State().String()

	s.mu.Lock()
	snap.QueueDepth = len(s.priorityQueue) + len(s.normalQueue)
	s.mu.Unlock()

	return snap
}

func (s *Sender) signalWake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Sender) dispatchLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
			s.tryDispatch()
		case <-ticker.C:
			s.tryDispatch()
		}
	}
}

// tryDispatch assigns as many eligible queued requests to free worker
// slots as it can in one pass.
func (s *Sender) tryDispatch() {
	for {
		s.mu.Lock()
		if s.activeWorkers >= s.maxConcurrentSessions {
			s.mu.Unlock()
			return
		}

		tracked, rest := popEligible(s.priorityQueue, s.leased)
		s.priorityQueue = rest
		if tracked == nil {
			tracked, rest = popEligible(s.normalQueue, s.leased)
			s.normalQueue = rest
		}
		if tracked == nil {
			s.mu.Unlock()
			return
		}

		s.leased[tracked.req.SessionName] = true
		s.activeWorkers++
		s.mu.Unlock()

		s.wg.Add(1)
		go s.runRequest(tracked)
	}
}

// popEligible scans queue front-to-back for the first request whose
// session isn't currently leased, rotating leased-session requests to
// the tail so a busy session never blocks the rest of the queue.
func popEligible(queue []*trackedRequest, leased map[string]bool) (*trackedRequest, []*trackedRequest) {
	n := len(queue)
	for i := 0; i < n; i++ {
		head := queue[0]
		queue = queue[1:]
		if !leased[head.req.SessionName] {
			return head, queue
		}
		queue = append(queue, head)
	}
	return nil, queue
}

func removeRequest(queue []*trackedRequest, requestID string) []*trackedRequest {
	filtered := queue[:0:0]
	for _, item := range queue {
		if item.req.RequestID != requestID {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func isTerminal(status RequestStatus) bool {
	return status == StatusCompleted || status == StatusFailed || status == StatusCancelled
}

func (s *Sender) runRequest(tracked *trackedRequest) {
	defer s.wg.Done()
	defer s.releaseLease(tracked.req.SessionName)

	target := formatTarget(tracked.req.SessionName, tracked.req.Window, tracked.req.Pane)

	start := time.Now()
	err := retryWithBreaker(s.ctx, s.breaker, phaseARetries, phaseABase, phaseACap, s.incrRetry, func(ctx context.Context) error {
		return s.tmux.SendKeysLiteral(ctx, target, tracked.req.Content)
	})
	s.recordPhaseADuration(time.Since(start))

	if err != nil {
		s.finish(tracked, StatusFailed, false)
		return
	}
	s.setStatus(tracked, StatusMessageSent)

	if s.isCancelled(tracked) {
		s.finish(tracked, StatusCancelled, false)
		return
	}
	s.setStatus(tracked, StatusEnterScheduled)

	timer := time.NewTimer(tracked.req.Delay)
	s.mu.Lock()
	tracked.timer = timer
	s.mu.Unlock()

	select {
	case <-timer.C:
	case <-s.ctx.Done():
		timer.Stop()
		return
	}

	if s.isCancelled(tracked) {
		s.finish(tracked, StatusCancelled, false)
		return
	}

	err = retryWithBreaker(s.ctx, s.breaker, phaseBRetries, phaseBBase, phaseBCap, s.incrRetry, func(ctx context.Context) error {
		return s.tmux.SendKeysEnter(ctx, target)
	})
	if err != nil {
		s.finish(tracked, StatusFailed, false)
		return
	}
	s.finish(tracked, StatusCompleted, true)
}

func formatTarget(session string, window, pane *int) string {
	if window == nil {
		return session
	}
	if pane == nil {
		return fmt.Sprintf("%s.%d", session, *window)
	}
	return fmt.Sprintf("%s.%d.%d", session, *window, *pane)
}

func (s *Sender) releaseLease(session string) {
	s.mu.Lock()
	delete(s.leased, session)
	s.activeWorkers--
	s.mu.Unlock()
	s.signalWake()
}

func (s *Sender) isCancelled(tracked *trackedRequest) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tracked.cancelled
}

func (s *Sender) setStatus(tracked *trackedRequest, status RequestStatus) {
	s.mu.Lock()
	tracked.req.Status = status
	s.mu.Unlock()
	s.recordStatus(status)
}

func (s *Sender) finish(tracked *trackedRequest, status RequestStatus, success bool) {
	s.setStatus(tracked, status)
	if tracked.onComplete != nil {
		s.mu.Lock()
		req := tracked.req
		s.mu.Unlock()
		tracked.onComplete(req, success)
	}
}

func (s *Sender) recordStatus(status RequestStatus) {
	s.metrics.mu.Lock()
	s.metrics.statusCount[status]++
	s.metrics.mu.Unlock()
}

func (s *Sender) recordPhaseADuration(d time.Duration) {
	s.metrics.mu.Lock()
	defer s.metrics.mu.Unlock()
	s.metrics.phaseACount++
	s.metrics.phaseASum += d
	if s.metrics.phaseAMin == 0 || d < s.metrics.phaseAMin {
		s.metrics.phaseAMin = d
	}
	if d > s.metrics.phaseAMax {
		s.metrics.phaseAMax = d
	}
}

func (s *Sender) incrRetry() {
	s.metrics.mu.Lock()
	s.metrics.retryCount++
	s.metrics.mu.Unlock()
}
