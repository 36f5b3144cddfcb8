// Package work defines the persistence boundary for the submission
// pipeline: idempotent entity creation, claim/heartbeat/reclaim/finalize
// operations, artifact links, and evaluation/delivery records (spec.md
// §4.3). Repository is implemented by pkg/work/pgstore (relational,
// production) and pkg/work/memstore (in-memory, test infrastructure); both
// must satisfy the same property tests in pkg/work/worktest.
package work

import "errors"

// InvariantError reports a rejected state transition, a stale claim at
// finalize time, or a missing candidate/assignment reference. Invariant
// faults surface immediately; the worker loop never retries them
// (spec.md §7).
type InvariantError struct {
	Op  string
	Msg string
}

func (e *InvariantError) Error() string {
	return "work: invariant violated in " + e.Op + ": " + e.Msg
}

// NewInvariantError constructs an InvariantError for the given operation.
func NewInvariantError(op, msg string) error {
	return &InvariantError{Op: op, Msg: msg}
}

// ValidationError reports bad input at the repository boundary: an unknown
// artifact key, an out-of-range filter, a missing required field. Surfaced
// to the caller; never retried (spec.md §7).
type ValidationError struct {
	Op  string
	Msg string
}

func (e *ValidationError) Error() string {
	return "work: invalid input to " + e.Op + ": " + e.Msg
}

// NewValidationError constructs a ValidationError for the given operation.
func NewValidationError(op, msg string) error {
	return &ValidationError{Op: op, Msg: msg}
}

// ErrNotFound is returned by lookups (get_submission, get_artifact_ref, ...)
// when no matching row exists. Repository implementations should wrap this
// with errors.Join or fmt.Errorf("...: %w", ErrNotFound) so callers can
// errors.Is against it.
var ErrNotFound = errors.New("work: not found")
