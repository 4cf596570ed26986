package registry

import (
	"time"

	"github.com/parallelgt/coordinator/internal/naming"
)

// Status is a Session's lifecycle state.
type Status int

const (
	StatusUnknown Status = iota
	StatusStarting
	StatusStarted
	StatusWorking
	StatusBlocked
	StatusError
	StatusCompleted
	StatusTerminated
)

func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "Starting"
	case StatusStarted:
		return "Started"
	case StatusWorking:
		return "Working"
	case StatusBlocked:
		return "Blocked"
	case StatusError:
		return "Error"
	case StatusCompleted:
		return "Completed"
	case StatusTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// ParseStatus maps a status name to its Status value.
func ParseStatus(s string) (Status, bool) {
	switch s {
	case "Unknown":
		return StatusUnknown, true
	case "Starting":
		return StatusStarting, true
	case "Started":
		return StatusStarted, true
	case "Working":
		return StatusWorking, true
	case "Blocked":
		return StatusBlocked, true
	case "Error":
		return StatusError, true
	case "Completed":
		return StatusCompleted, true
	case "Terminated":
		return StatusTerminated, true
	default:
		return StatusUnknown, false
	}
}

// MessageType classifies a Message's intent. The core never interprets
// Content; MessageType is the only structure it imposes.
type MessageType int

const (
	MessageStatusUpdate MessageType = iota
	MessageTaskCompleted
	MessageInstruction
	MessageQuery
	MessageResponse
	MessageError
)

func (t MessageType) String() string {
	switch t {
	case MessageStatusUpdate:
		return "StatusUpdate"
	case MessageTaskCompleted:
		return "TaskCompleted"
	case MessageInstruction:
		return "Instruction"
	case MessageQuery:
		return "Query"
	case MessageResponse:
		return "Response"
	case MessageError:
		return "Error"
	default:
		return "Unknown"
	}
}

// ParseMessageType maps a message type name to its MessageType value.
func ParseMessageType(s string) (MessageType, bool) {
	switch s {
	case "StatusUpdate":
		return MessageStatusUpdate, true
	case "TaskCompleted":
		return MessageTaskCompleted, true
	case "Instruction":
		return MessageInstruction, true
	case "Query":
		return MessageQuery, true
	case "Response":
		return MessageResponse, true
	case "Error":
		return MessageError, true
	default:
		return MessageStatusUpdate, false
	}
}

// Session is a value-type snapshot of one tracked session. Callers never
// receive pointers into Registry-owned state.
type Session struct {
	Name         string
	Role         naming.Role
	ProjectID    string
	TaskID       string // Child only
	Status       Status
	Progress     int
	Details      string
	LastUpdate   time.Time
	WorktreePath string // Child only
	Branch       string // Child only
	TmuxPresent  bool
}

// Relationship links a Child session to its parent Master.
type Relationship struct {
	ChildSession  string
	ParentSession string
	TaskID        string
	ProjectID     string
	CreatedAt     time.Time
	Active        bool
}

// Message is one entry in a session's inbound queue.
type Message struct {
	ID          string
	FromSession string
	ToSession   string
	Type        MessageType
	Content     string
	CreatedAt   time.Time
	Read        bool
}

// ChildInfo is a Child Session enriched with its computed health score, the
// shape ListChildren returns.
type ChildInfo struct {
	Session
	HealthScore float64
}

// Snapshot is a consistent, point-in-time read of the full Registry state,
// used by the coordinator's QueryStatus and by reconciliation.
type Snapshot struct {
	Sessions      []Session
	Relationships []Relationship
	TakenAt       time.Time
}
