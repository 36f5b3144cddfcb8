package work

import (
	"context"

	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
)

// Repository is the persistence boundary for the submission pipeline
// (spec.md §4.3). It is implemented by pkg/work/pgstore (relational) and
// pkg/work/memstore (in-memory); both must satisfy the property suite in
// pkg/work/worktest.
//
// All multi-row mutations (ClaimNext, Finalize, CreateSubmissionWithSource,
// ReclaimExpiredClaims) are single atomic transactions in both
// implementations.
type Repository interface {
	// CreateCandidate allocates a new candidate public id, retrying on id
	// collision up to 5 times.
	CreateCandidate(ctx context.Context, firstName, lastName string) (CandidateSnapshot, error)

	// GetOrCreateCandidateBySource is an atomic upsert keyed on
	// (sourceType, sourceExternalID).
	GetOrCreateCandidateBySource(ctx context.Context, sourceType, sourceExternalID, firstName, lastName string, metadata map[string]interface{}) (CandidateSnapshot, error)

	CreateAssignment(ctx context.Context, title, description string, isActive bool) (AssignmentSnapshot, error)
	ListAssignments(ctx context.Context, activeOnly bool) ([]AssignmentSnapshot, error)

	// CreateSubmissionWithSource is atomic and idempotent on
	// (sourceType, sourceExternalID): if a row already exists for that pair,
	// it returns created=false with the row's current status; otherwise it
	// inserts the submission and its source in one transaction. Fails with
	// an InvariantError if candidatePublicID or assignmentPublicID does not
	// exist.
	CreateSubmissionWithSource(ctx context.Context, candidatePublicID, assignmentPublicID, sourceType, sourceExternalID string, initialStatus lifecycle.State, metadata map[string]interface{}, payloadRef string) (UpsertSourceResult, error)

	// GetSubmission returns ErrNotFound if no row matches.
	GetSubmission(ctx context.Context, submissionID string) (SubmissionSnapshot, error)

	// GetSubmissionSource returns the intake channel and metadata recorded
	// by CreateSubmissionWithSource. Returns ErrNotFound if no row matches.
	GetSubmissionSource(ctx context.Context, submissionID string) (SubmissionSource, error)

	ListSubmissions(ctx context.Context, query ListQuery) ([]SubmissionListItem, error)

	// ClaimNext atomically claims one submission in stage's source state,
	// using row-level locking that skips already-locked rows so N
	// concurrent callers observe N distinct winners or nil. Returns
	// ErrNotFound (wrapped) when the queue is empty — callers should treat
	// that as "no claim, no error" per spec.md §8's boundary behavior.
	ClaimNext(ctx context.Context, stage lifecycle.Stage, workerID string, leaseSeconds int) (WorkItemClaim, error)

	// HeartbeatClaim extends the lease only if the row is still in the
	// stage's in-progress state, owned by workerID, with a lease that has
	// not yet expired. Never revives an expired claim.
	HeartbeatClaim(ctx context.Context, submissionID string, stage lifecycle.Stage, workerID string, leaseSeconds int) (bool, error)

	// ReclaimExpiredClaims reports the total number of rows touched.
	ReclaimExpiredClaims(ctx context.Context, stage lifecycle.Stage) (int, error)

	// ReclaimOwnedByWorker reclaims every in-progress row across all four
	// stages still claimed by workerID, regardless of lease expiry. It is
	// meant to run once at process startup, before a runner's first tick,
	// to recover work left claimed by a previous process instance under the
	// same worker id (e.g. a pod restarted with a stable identity). Routing
	// follows the same attempt/dead-letter rules as ReclaimExpiredClaims.
	// Reports the total number of rows touched.
	ReclaimOwnedByWorker(ctx context.Context, workerID string) (int, error)

	// TransitionState is guarded by the allowed-transitions map; returns an
	// InvariantError if the edge is not allowed. Caller is responsible for
	// ensuring "from" is the row's current status.
	TransitionState(ctx context.Context, submissionID string, from, to lifecycle.State) error

	// LinkArtifact upserts keyed on (submissionID, stage).
	LinkArtifact(ctx context.Context, submissionID string, stage lifecycle.Stage, artifactRef, artifactVersion string) error

	// GetArtifactRef returns ErrNotFound (wrapped) if no link exists.
	GetArtifactRef(ctx context.Context, submissionID string, stage lifecycle.Stage) (string, error)

	// Finalize is a single transaction guarded by ownership: the row must
	// be in stage's in-progress state, claimed by workerID, with a live
	// lease. On success, transitions to the success state and clears error
	// fields and ownership. On failure, resolves errorCode through the
	// taxonomy and routes to failed_<stage>, back to source state (the
	// attempt counter is incremented by the next ClaimNext, not here), or
	// dead_letter per spec.md §4.2. Guard
	// failures return an InvariantError rather than silently succeeding.
	Finalize(ctx context.Context, submissionID string, stage lifecycle.Stage, workerID string, success bool, detail, errorCode string) error

	PersistEvaluation(ctx context.Context, rec EvaluationRecord) error
	PersistLLMRun(ctx context.Context, rec LLMRunRecord) error
	PersistDelivery(ctx context.Context, rec DeliveryRecord) error
}
