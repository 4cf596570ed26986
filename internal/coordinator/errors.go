package coordinator

import (
	"errors"
	"fmt"

	"github.com/parallelgt/coordinator/internal/lifecycle"
	"github.com/parallelgt/coordinator/internal/naming"
	"github.com/parallelgt/coordinator/internal/registry"
	"github.com/parallelgt/coordinator/internal/sender"
)

// ErrorKind is the taxonomy every collaborator-facing error classifies
// into, independent of which internal package raised it.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidArgument
	KindNotFound
	KindConflict
	KindSecurityViolation
	KindExternalFailure
	KindResourceExhausted
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	case KindSecurityViolation:
		return "SecurityViolation"
	case KindExternalFailure:
		return "ExternalFailure"
	case KindResourceExhausted:
		return "ResourceExhausted"
	default:
		return "Internal"
	}
}

// Error is the single error type the Coordinator facade returns. Every
// internal error is classified into one of these at this boundary, so a
// collaborator never needs to know which package underneath raised it.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(op string, kind ErrorKind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// classify maps an error from Registry, Lifecycle, Sender, or naming into
// an ErrorKind. Exit codes and RPC error fields are derived from this
// classification, never from string matching on Error().
func classify(op string, err error) *Error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, registry.ErrNotFound):
		return newError(op, KindNotFound, err)
	case errors.Is(err, registry.ErrConflict),
		errors.Is(err, registry.ErrRelationshipConflict),
		errors.Is(err, registry.ErrIllegalTransition):
		return newError(op, KindConflict, err)
	case errors.Is(err, registry.ErrInvalidArgument),
		errors.Is(err, registry.ErrRoleMismatch),
		errors.Is(err, registry.ErrProjectMismatch),
		errors.Is(err, naming.ErrInvalidName):
		return newError(op, KindInvalidArgument, err)
	case errors.Is(err, lifecycle.ErrSecurityViolation):
		return newError(op, KindSecurityViolation, err)
	case errors.Is(err, lifecycle.ErrSessionExists),
		errors.Is(err, lifecycle.ErrWorktreeExists):
		return newError(op, KindConflict, err)
	case errors.Is(err, sender.ErrQueueFull):
		return newError(op, KindResourceExhausted, err)
	case errors.Is(err, sender.ErrInvalidArg):
		return newError(op, KindInvalidArgument, err)
	case errors.Is(err, sender.ErrCircuitOpen):
		return newError(op, KindResourceExhausted, err)
	default:
		return newError(op, KindExternalFailure, err)
	}
}
