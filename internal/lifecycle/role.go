package lifecycle

import "os"

// CallerRole classifies who is invoking a Lifecycle operation, the basis
// for the role capability matrix. It is inferred from the caller's own
// environment (mirroring the original system's master_detector approach of
// trusting a session's own environment over ambient process state) unless
// the caller supplies an explicit override.
type CallerRole int

const (
	CallerUnknown CallerRole = iota
	CallerMaster
	CallerChild
	CallerExternal
)

// EnvSessionType is the environment variable a Master or Child session has
// set in its own tmux environment, read back to infer the caller's role.
const EnvSessionType = "MCP_SESSION_TYPE"

// InferCallerRole resolves a CallerRole from an explicit override (if
// non-empty) or the MCP_SESSION_TYPE environment variable. Anything other
// than "master"/"child" — including unset — is External, which the
// capability matrix treats identically to Unknown.
func InferCallerRole(explicit string) CallerRole {
	value := explicit
	if value == "" {
		value = os.Getenv(EnvSessionType)
	}
	switch value {
	case "master":
		return CallerMaster
	case "child":
		return CallerChild
	default:
		return CallerExternal
	}
}

// canCreateOrTerminate enforces the hard security rule: a Child must never
// be able to spawn or tear down sessions, preventing nested parallel
// workflows. Master, External, and Unknown callers are all permitted —
// only direct proof of Child identity is disqualifying.
func canCreateOrTerminate(role CallerRole) bool {
	return role != CallerChild
}
