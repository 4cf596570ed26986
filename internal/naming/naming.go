// Package naming implements the pure, total functions mapping between
// (project_id, task_id) pairs and canonical tmux session names. The
// grammar here is the single source of truth the rest of the system
// relies on for role inference.
package naming

import (
	"errors"
	"strings"
)

// ErrInvalidName is returned when a project or task identifier fails
// validation, or when Parse is given a string that isn't a well-formed
// session name.
var ErrInvalidName = errors.New("naming: invalid session name")

const (
	masterPrefix = "parallel_"
	masterSuffix = "_task_master"
	childInfix   = "_task_child_"
	maxNameLen   = 100
)

// Role classifies a parsed session name.
type Role int

const (
	RoleUnknown Role = iota
	RoleMaster
	RoleChild
)

func (r Role) String() string {
	switch r {
	case RoleMaster:
		return "Master"
	case RoleChild:
		return "Child"
	default:
		return "Unknown"
	}
}

// ParsedName is the decomposition of a canonical session name.
type ParsedName struct {
	Role      Role
	ProjectID string
	TaskID    string // empty for Master
}

// MasterName builds the canonical Master session name for projectID.
func MasterName(projectID string) (string, error) {
	if err := validateIdentifier(projectID); err != nil {
		return "", err
	}
	name := masterPrefix + projectID + masterSuffix
	if len(name) > maxNameLen {
		return "", ErrInvalidName
	}
	return name, nil
}

// ChildName builds the canonical Child session name for (projectID, taskID).
func ChildName(projectID, taskID string) (string, error) {
	if err := validateIdentifier(projectID); err != nil {
		return "", err
	}
	if err := validateIdentifier(taskID); err != nil {
		return "", err
	}
	name := masterPrefix + projectID + childInfix + taskID
	if len(name) > maxNameLen {
		return "", ErrInvalidName
	}
	return name, nil
}

// Parse decomposes a canonical session name. ok is false for anything that
// doesn't match the grammar; a grammatical name parses whether or not this
// process minted it.
func Parse(name string) (ParsedName, bool) {
	if !strings.HasPrefix(name, masterPrefix) {
		return ParsedName{}, false
	}
	rest := strings.TrimPrefix(name, masterPrefix)

	if strings.HasSuffix(rest, masterSuffix) {
		projectID := strings.TrimSuffix(rest, masterSuffix)
		if validateIdentifier(projectID) != nil {
			return ParsedName{}, false
		}
		return ParsedName{Role: RoleMaster, ProjectID: projectID}, true
	}

	if idx := strings.Index(rest, childInfix); idx >= 0 {
		projectID := rest[:idx]
		taskID := rest[idx+len(childInfix):]
		if validateIdentifier(projectID) != nil || validateIdentifier(taskID) != nil {
			return ParsedName{}, false
		}
		return ParsedName{Role: RoleChild, ProjectID: projectID, TaskID: taskID}, true
	}

	return ParsedName{}, false
}

// IsProjectSession reports whether name is a Master or Child session
// belonging to projectID.
func IsProjectSession(name, projectID string) bool {
	parsed, ok := Parse(name)
	if !ok {
		return false
	}
	return parsed.ProjectID == projectID
}

// validateIdentifier enforces non-empty, trimmed, and free of characters
// that would make the resulting session name ambiguous to parse or unsafe
// to pass to tmux/git (whitespace, path separators, the grammar's own
// delimiter, and control codes).
func validateIdentifier(id string) error {
	if id == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(id) != id {
		return ErrInvalidName
	}
	for _, r := range id {
		switch {
		case r < 0x20 || r == 0x7f:
			return ErrInvalidName
		case r == ' ', r == ':', r == '/', r == '\\':
			return ErrInvalidName
		}
	}
	if strings.Contains(id, childInfix) || strings.Contains(id, masterSuffix) {
		return ErrInvalidName
	}
	return nil
}
