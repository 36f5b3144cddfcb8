package lifecycle

import "fmt"

// InvariantError reports a rejected state transition (invariant I2). It is
// never retried by the worker loop — invariant faults propagate.
type InvariantError struct {
	From State
	To   State
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("lifecycle: transition from %q to %q is not allowed", e.From, e.To)
}

// allowedTransitions is the static (from -> {to...}) table. Built from the
// per-stage lifecycle tuples plus the terminal dead_letter sink, mirroring
// the two-static-maps design of the original implementation (Design Note 9).
var allowedTransitions = buildAllowedTransitions()

func buildAllowedTransitions() map[State]map[State]bool {
	edges := make(map[State]map[State]bool, len(States))
	add := func(from, to State) {
		if edges[from] == nil {
			edges[from] = make(map[State]bool)
		}
		edges[from][to] = true
	}

	for _, lc := range StageLifecycles {
		// claim: source -> in-progress
		add(lc.SourceState, lc.InProgressState)
		// finalize success: in-progress -> success
		add(lc.InProgressState, lc.SuccessState)
		// finalize recoverable retry: in-progress -> source
		add(lc.InProgressState, lc.SourceState)
		// finalize terminal: in-progress -> failed
		add(lc.InProgressState, lc.FailedState)
		// finalize/reclaim exhausted retries: in-progress -> dead_letter
		add(lc.InProgressState, StateDeadLetter)
	}

	// dead_letter is terminal: no outgoing edges.
	edges[StateDeadLetter] = map[State]bool{}

	return edges
}

// CanTransition reports whether moving a submission from `from` to `to` is
// permitted by the lifecycle graph. Transitioning a state to itself is
// always permitted (idempotent no-op), per spec.md §4.1.
func CanTransition(from, to State) bool {
	if from == to {
		return true
	}
	if edges, ok := allowedTransitions[from]; ok {
		return edges[to]
	}
	return false
}

// Transition validates from -> to and returns to, or an *InvariantError if
// the edge is not in the allowed-transitions table. It does not mutate any
// state itself — callers apply the returned state to their own storage.
func Transition(from, to State) (State, error) {
	if !CanTransition(from, to) {
		return from, &InvariantError{From: from, To: to}
	}
	return to, nil
}
