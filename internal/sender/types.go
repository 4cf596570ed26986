package sender

import "time"

// Priority determines which of the two FIFO queues a request lands in,
// and therefore whether it's drained before or after other work.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

func (p Priority) isPriorityQueue() bool {
	return p == PriorityHigh || p == PriorityUrgent
}

// RequestStatus is a DelayedSendRequest's position in its two-phase
// delivery FSM: Pending -> MessageSent -> EnterScheduled -> Completed;
// Pending -> Failed; EnterScheduled -> Failed; any state -> Cancelled.
type RequestStatus int

const (
	StatusPending RequestStatus = iota
	StatusMessageSent
	StatusEnterScheduled
	StatusCompleted
	StatusFailed
	StatusCancelled
)

func (s RequestStatus) String() string {
	switch s {
	case StatusMessageSent:
		return "MessageSent"
	case StatusEnterScheduled:
		return "EnterScheduled"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Pending"
	}
}

// DelayedSendRequest is a value-type snapshot of one queued or in-flight
// delivery.
type DelayedSendRequest struct {
	RequestID   string
	SessionName string
	Content     string
	Delay       time.Duration
	Priority    Priority
	Window      *int
	Pane        *int
	CreatedAt   time.Time
	Status      RequestStatus
}

// CompletionFunc is invoked once a dispatched request reaches Completed,
// Failed, or Cancelled. A request cancelled while still queued never
// invokes it.
type CompletionFunc func(req DelayedSendRequest, success bool)

// MetricsSnapshot reports the Sender's operating metrics at a point in
// time.
type MetricsSnapshot struct {
	StatusCounts       map[string]int
	SuccessRate        float64
	AvgPhaseADuration  time.Duration
	MinPhaseADuration  time.Duration
	MaxPhaseADuration  time.Duration
	RetryCount         int
	BreakerState       string
	QueueDepth         int
}
