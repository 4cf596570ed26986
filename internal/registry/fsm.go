package registry

// transitions encodes the status FSM table verbatim: from each source
// status, the set of destinations a single UpsertSessionStatus call may
// move to. Self-transitions are not implicit — a status only appears in
// its own row's allowed set where the table marks it explicitly.
var transitions = map[Status]map[Status]bool{
	StatusUnknown: {
		StatusStarting:   true,
		StatusStarted:    true,
		StatusWorking:    true,
		StatusTerminated: true,
	},
	StatusStarting: {
		StatusStarted:    true,
		StatusError:      true,
		StatusTerminated: true,
	},
	StatusStarted: {
		StatusWorking:    true,
		StatusBlocked:    true,
		StatusError:      true,
		StatusCompleted:  true,
		StatusTerminated: true,
	},
	StatusWorking: {
		StatusWorking:    true,
		StatusBlocked:    true,
		StatusError:      true,
		StatusCompleted:  true,
		StatusTerminated: true,
	},
	StatusBlocked: {
		StatusWorking:    true,
		StatusError:      true,
		StatusCompleted:  true,
		StatusTerminated: true,
	},
	StatusError: {
		StatusStarting:   true,
		StatusWorking:    true,
		StatusTerminated: true,
	},
	StatusCompleted: {
		StatusWorking:    true,
		StatusTerminated: true,
	},
	StatusTerminated: {},
}

// transitionAllowed reports whether moving from `from` to `to` is legal.
func transitionAllowed(from, to Status) bool {
	dests, ok := transitions[from]
	if !ok {
		return false
	}
	return dests[to]
}
