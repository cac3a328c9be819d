package suggest

// State is a phase of one suggestion generation.
type State string

const (
	StateIdle            State = "idle"
	StateConnecting      State = "connecting"
	StateGeneratingTags  State = "generating-tags"
	StateGeneratingLinks State = "generating-links"
	StateComplete        State = "complete"
	StateError           State = "error"
)

var stateRank = map[State]int{
	StateIdle:            0,
	StateConnecting:      1,
	StateGeneratingTags:  2,
	StateGeneratingLinks: 3,
	StateComplete:        4,
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateError
}

// CanTransition reports whether moving from s to next keeps phases monotonic.
// Phases may be skipped but never revisited; error is reachable from any
// non-idle, non-terminal state.
func (s State) CanTransition(next State) bool {
	if s.Terminal() {
		return false
	}
	if next == StateError {
		return s != StateIdle
	}
	from, ok := stateRank[s]
	if !ok {
		return false
	}
	to, ok := stateRank[next]
	if !ok {
		return false
	}
	if s == StateIdle {
		return next == StateConnecting
	}
	return to > from
}
