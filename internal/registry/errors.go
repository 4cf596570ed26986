package registry

import "errors"

// Sentinel errors returned by Registry operations. The Coordinator facade
// classifies these into the public ErrorKind taxonomy at its boundary.
var (
	ErrNotFound             = errors.New("registry: not found")
	ErrConflict             = errors.New("registry: conflict")
	ErrRelationshipConflict = errors.New("registry: child already bound to a different parent")
	ErrInvalidArgument      = errors.New("registry: invalid argument")
	ErrIllegalTransition    = errors.New("registry: illegal status transition")
	ErrRoleMismatch         = errors.New("registry: role mismatch")
	ErrProjectMismatch      = errors.New("registry: project id mismatch")
)
