// Package ids generates externally-visible public identifiers of the form
// <kind>_<26-char-ulid>, e.g. sub_01J8Z3K9QZXN1VXHG5K2E3F4YT.
//
// ULIDs are used instead of UUIDs because they are lexicographically
// sortable in their canonical string form, matching spec.md §6's
// "26-char-lexicographic-id" requirement; the internal monotonic integer id
// remains the authoritative sort tie-breaker (spec.md §4.3), this is purely
// a display/debugging convenience inherited from the original
// implementation's use of Python's ulid package.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Kind is the prefix segment of a public id.
type Kind string

// Known public id kinds (spec.md §6).
const (
	KindCandidate  Kind = "cand"
	KindAssignment Kind = "asg"
	KindSubmission Kind = "sub"
	KindExport     Kind = "exp"
)

// entropy is a process-wide monotonic ULID entropy source. ulid.Monotonic is
// not safe for concurrent use on its own, so access is serialized by mu.
var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a new public id for the given kind: "<kind>_<ulid>".
func New(kind Kind) string {
	mu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	mu.Unlock()
	return string(kind) + "_" + id.String()
}

// NewCandidateID returns a new candidate public id.
func NewCandidateID() string { return New(KindCandidate) }

// NewAssignmentID returns a new assignment public id.
func NewAssignmentID() string { return New(KindAssignment) }

// NewSubmissionID returns a new submission public id.
func NewSubmissionID() string { return New(KindSubmission) }

// NewExportID returns a new export public id.
func NewExportID() string { return New(KindExport) }
