package lifecycle

import "errors"

var (
	ErrSecurityViolation = errors.New("lifecycle: security violation")
	ErrSessionExists     = errors.New("lifecycle: session already exists")
	ErrWorktreeExists    = errors.New("lifecycle: worktree already exists")
)
