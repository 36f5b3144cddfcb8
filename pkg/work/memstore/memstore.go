// Package memstore is the in-memory reference implementation of
// work.Repository: essential test infrastructure, not a dev-only fallback
// (spec.md §9). A single mutex around the submission map gives it the same
// conflict-free claim semantics pgstore gets from row-level locking.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/artzaitsev/submission-scheduler/pkg/errtaxonomy"
	"github.com/artzaitsev/submission-scheduler/pkg/ids"
	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

type submissionRow struct {
	internalID int64
	publicID   string

	candidatePublicID  string
	assignmentPublicID string

	status lifecycle.State

	attemptTelegramIngest int
	attemptNormalization  int
	attemptEvaluation     int
	attemptDelivery       int

	claimedBy      *string
	claimedAt      *time.Time
	leaseExpiresAt *time.Time

	lastErrorCode    *string
	lastErrorMessage *string

	createdAt time.Time
	updatedAt time.Time
}

type sourceRow struct {
	submissionID     string
	sourceType       string
	sourceExternalID string
	metadata         map[string]interface{}
}

type artifactLinkRow struct {
	artifactRef     string
	artifactVersion string
}

// Store is the in-memory work.Repository implementation.
type Store struct {
	mu sync.Mutex

	nextInternalID int64

	candidates map[string]work.CandidateSnapshot
	// candidateBySource maps "sourceType|sourceExternalID" -> candidatePublicID.
	candidateBySource map[string]string

	assignments map[string]work.AssignmentSnapshot

	submissions map[string]*submissionRow
	// submissionBySource maps "sourceType|sourceExternalID" -> submissionID.
	submissionBySource map[string]string
	sources            map[string]sourceRow // keyed by submissionID

	artifactLinks map[string]artifactLinkRow // keyed by "submissionID|stage"

	evaluations map[string]work.EvaluationRecord
	llmRuns     map[string][]work.LLMRunRecord
	deliveries  map[string][]work.DeliveryRecord
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		candidates:         map[string]work.CandidateSnapshot{},
		candidateBySource:  map[string]string{},
		assignments:        map[string]work.AssignmentSnapshot{},
		submissions:        map[string]*submissionRow{},
		submissionBySource: map[string]string{},
		sources:            map[string]sourceRow{},
		artifactLinks:      map[string]artifactLinkRow{},
		evaluations:        map[string]work.EvaluationRecord{},
		llmRuns:            map[string][]work.LLMRunRecord{},
		deliveries:         map[string][]work.DeliveryRecord{},
	}
}

func sourceKey(sourceType, sourceExternalID string) string {
	return sourceType + "|" + sourceExternalID
}

func linkKey(submissionID string, stage lifecycle.Stage) string {
	return submissionID + "|" + string(stage)
}

var _ work.Repository = (*Store)(nil)

func (s *Store) CreateCandidate(_ context.Context, firstName, lastName string) (work.CandidateSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var publicID string
	for attempt := 0; attempt < 5; attempt++ {
		candidate := ids.NewCandidateID()
		if _, exists := s.candidates[candidate]; !exists {
			publicID = candidate
			break
		}
	}
	if publicID == "" {
		return work.CandidateSnapshot{}, work.NewInvariantError("create_candidate", "exhausted id collision retries")
	}

	snap := work.CandidateSnapshot{CandidatePublicID: publicID, FirstName: firstName, LastName: lastName}
	s.candidates[publicID] = snap
	return snap, nil
}

func (s *Store) GetOrCreateCandidateBySource(_ context.Context, sourceType, sourceExternalID, firstName, lastName string, _ map[string]interface{}) (work.CandidateSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sourceKey(sourceType, sourceExternalID)
	if publicID, ok := s.candidateBySource[key]; ok {
		return s.candidates[publicID], nil
	}

	publicID := ids.NewCandidateID()
	snap := work.CandidateSnapshot{CandidatePublicID: publicID, FirstName: firstName, LastName: lastName}
	s.candidates[publicID] = snap
	s.candidateBySource[key] = publicID
	return snap, nil
}

func (s *Store) CreateAssignment(_ context.Context, title, description string, isActive bool) (work.AssignmentSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	publicID := ids.NewAssignmentID()
	snap := work.AssignmentSnapshot{AssignmentPublicID: publicID, Title: title, Description: description, IsActive: isActive}
	s.assignments[publicID] = snap
	return snap, nil
}

func (s *Store) ListAssignments(_ context.Context, activeOnly bool) ([]work.AssignmentSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]work.AssignmentSnapshot, 0, len(s.assignments))
	for _, a := range s.assignments {
		if activeOnly && !a.IsActive {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignmentPublicID < out[j].AssignmentPublicID })
	return out, nil
}

func (s *Store) CreateSubmissionWithSource(_ context.Context, candidatePublicID, assignmentPublicID, sourceType, sourceExternalID string, initialStatus lifecycle.State, metadata map[string]interface{}, payloadRef string) (work.UpsertSourceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sourceKey(sourceType, sourceExternalID)
	if existingID, ok := s.submissionBySource[key]; ok {
		row := s.submissions[existingID]
		return work.UpsertSourceResult{SubmissionID: row.publicID, Status: row.status, Created: false}, nil
	}

	if _, ok := s.candidates[candidatePublicID]; !ok {
		return work.UpsertSourceResult{}, work.NewInvariantError("create_submission_with_source", "candidate does not exist: "+candidatePublicID)
	}
	if _, ok := s.assignments[assignmentPublicID]; !ok {
		return work.UpsertSourceResult{}, work.NewInvariantError("create_submission_with_source", "assignment does not exist: "+assignmentPublicID)
	}

	s.nextInternalID++
	now := time.Now()
	publicID := ids.NewSubmissionID()
	row := &submissionRow{
		internalID:         s.nextInternalID,
		publicID:           publicID,
		candidatePublicID:  candidatePublicID,
		assignmentPublicID: assignmentPublicID,
		status:             initialStatus,
		createdAt:          now,
		updatedAt:          now,
	}
	s.submissions[publicID] = row
	s.submissionBySource[key] = publicID

	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	s.sources[publicID] = sourceRow{
		submissionID:     publicID,
		sourceType:       sourceType,
		sourceExternalID: sourceExternalID,
		metadata:         metadata,
	}
	if payloadRef != "" {
		s.artifactLinks[linkKey(publicID, lifecycle.StageRaw)] = artifactLinkRow{artifactRef: payloadRef}
	}

	return work.UpsertSourceResult{SubmissionID: publicID, Status: initialStatus, Created: true}, nil
}

func (s *Store) GetSubmission(_ context.Context, submissionID string) (work.SubmissionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.submissions[submissionID]
	if !ok {
		return work.SubmissionSnapshot{}, fmt.Errorf("get_submission: %w", work.ErrNotFound)
	}
	return snapshotOf(row), nil
}

func (s *Store) GetSubmissionSource(_ context.Context, submissionID string) (work.SubmissionSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.sources[submissionID]
	if !ok {
		return work.SubmissionSource{}, fmt.Errorf("get_submission_source: %w", work.ErrNotFound)
	}
	return work.SubmissionSource{SourceType: row.sourceType, SourceExternalID: row.sourceExternalID, Metadata: row.metadata}, nil
}

func snapshotOf(row *submissionRow) work.SubmissionSnapshot {
	return work.SubmissionSnapshot{
		SubmissionID:          row.publicID,
		CandidatePublicID:     row.candidatePublicID,
		AssignmentPublicID:    row.assignmentPublicID,
		Status:                row.status,
		AttemptTelegramIngest: row.attemptTelegramIngest,
		AttemptNormalization:  row.attemptNormalization,
		AttemptEvaluation:     row.attemptEvaluation,
		AttemptDelivery:       row.attemptDelivery,
		ClaimedBy:             row.claimedBy,
		ClaimedAt:             row.claimedAt,
		LeaseExpiresAt:        row.leaseExpiresAt,
		LastErrorCode:         row.lastErrorCode,
		LastErrorMessage:      row.lastErrorMessage,
		CreatedAt:             row.createdAt,
		UpdatedAt:             row.updatedAt,
	}
}

func getAttempt(row *submissionRow, stage lifecycle.Stage) int {
	switch stage {
	case lifecycle.StageRaw:
		return row.attemptTelegramIngest
	case lifecycle.StageNormalized:
		return row.attemptNormalization
	case lifecycle.StageLLMOutput:
		return row.attemptEvaluation
	case lifecycle.StageExports:
		return row.attemptDelivery
	default:
		return 0
	}
}

func incrementAttempt(row *submissionRow, stage lifecycle.Stage) int {
	switch stage {
	case lifecycle.StageRaw:
		row.attemptTelegramIngest++
		return row.attemptTelegramIngest
	case lifecycle.StageNormalized:
		row.attemptNormalization++
		return row.attemptNormalization
	case lifecycle.StageLLMOutput:
		row.attemptEvaluation++
		return row.attemptEvaluation
	case lifecycle.StageExports:
		row.attemptDelivery++
		return row.attemptDelivery
	default:
		return 0
	}
}

func (s *Store) ClaimNext(_ context.Context, stage lifecycle.Stage, workerID string, leaseSeconds int) (work.WorkItemClaim, error) {
	stageLifecycle, ok := lifecycle.LifecycleFor(stage)
	if !ok {
		return work.WorkItemClaim{}, work.NewValidationError("claim_next", "unknown stage: "+string(stage))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candidateIDs := make([]string, 0, len(s.submissions))
	for id := range s.submissions {
		candidateIDs = append(candidateIDs, id)
	}
	sort.Slice(candidateIDs, func(i, j int) bool {
		return s.submissions[candidateIDs[i]].internalID < s.submissions[candidateIDs[j]].internalID
	})

	for _, id := range candidateIDs {
		row := s.submissions[id]
		if row.status != stageLifecycle.SourceState {
			continue
		}

		now := time.Now()
		leaseExpiresAt := now.Add(time.Duration(leaseSeconds) * time.Second)
		worker := workerID

		row.status = stageLifecycle.InProgressState
		row.claimedBy = &worker
		row.claimedAt = &now
		row.leaseExpiresAt = &leaseExpiresAt
		row.updatedAt = now
		attempt := incrementAttempt(row, stage)

		return work.WorkItemClaim{
			SubmissionID:   row.publicID,
			Stage:          stage,
			State:          row.status,
			Attempt:        attempt,
			LeaseExpiresAt: leaseExpiresAt,
		}, nil
	}

	return work.WorkItemClaim{}, fmt.Errorf("claim_next: %w", work.ErrNotFound)
}

func (s *Store) HeartbeatClaim(_ context.Context, submissionID string, stage lifecycle.Stage, workerID string, leaseSeconds int) (bool, error) {
	stageLifecycle, ok := lifecycle.LifecycleFor(stage)
	if !ok {
		return false, work.NewValidationError("heartbeat_claim", "unknown stage: "+string(stage))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.submissions[submissionID]
	if !ok {
		return false, nil
	}

	now := time.Now()
	if row.status != stageLifecycle.InProgressState {
		return false, nil
	}
	if row.claimedBy == nil || *row.claimedBy != workerID {
		return false, nil
	}
	if row.leaseExpiresAt == nil || !row.leaseExpiresAt.After(now) {
		return false, nil
	}

	leaseExpiresAt := now.Add(time.Duration(leaseSeconds) * time.Second)
	row.leaseExpiresAt = &leaseExpiresAt
	return true, nil
}

func (s *Store) ReclaimExpiredClaims(_ context.Context, stage lifecycle.Stage) (int, error) {
	stageLifecycle, ok := lifecycle.LifecycleFor(stage)
	if !ok {
		return 0, work.NewValidationError("reclaim_expired_claims", "unknown stage: "+string(stage))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	count := 0
	for _, row := range s.submissions {
		if row.status != stageLifecycle.InProgressState {
			continue
		}
		if row.leaseExpiresAt == nil || row.leaseExpiresAt.After(now) {
			continue
		}

		attempt := incrementAttempt(row, stage)
		row.claimedBy = nil
		row.claimedAt = nil
		row.leaseExpiresAt = nil
		errCode := "lease_expired"
		row.lastErrorCode = &errCode
		row.updatedAt = now

		if attempt < stageLifecycle.MaxAttempts {
			row.status = stageLifecycle.SourceState
		} else {
			row.status = lifecycle.StateDeadLetter
		}
		count++
	}
	return count, nil
}

func (s *Store) ReclaimOwnedByWorker(_ context.Context, workerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	count := 0
	for _, row := range s.submissions {
		if row.claimedBy == nil || *row.claimedBy != workerID {
			continue
		}
		stage, ok := stageForInProgressState(row.status)
		if !ok {
			continue
		}
		stageLifecycle := lifecycle.StageLifecycles[stage]

		attempt := incrementAttempt(row, stage)
		row.claimedBy = nil
		row.claimedAt = nil
		row.leaseExpiresAt = nil
		errCode := "worker_restarted"
		row.lastErrorCode = &errCode
		row.updatedAt = now

		if attempt < stageLifecycle.MaxAttempts {
			row.status = stageLifecycle.SourceState
		} else {
			row.status = lifecycle.StateDeadLetter
		}
		count++
	}
	return count, nil
}

func stageForInProgressState(state lifecycle.State) (lifecycle.Stage, bool) {
	for _, stage := range lifecycle.Stages {
		if lifecycle.StageLifecycles[stage].InProgressState == state {
			return stage, true
		}
	}
	return "", false
}

func (s *Store) TransitionState(_ context.Context, submissionID string, from, to lifecycle.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.submissions[submissionID]
	if !ok {
		return work.NewInvariantError("transition_state", "no such submission: "+submissionID)
	}
	if row.status != from {
		return work.NewInvariantError("transition_state", fmt.Sprintf("expected current status %s, found %s", from, row.status))
	}
	if _, err := lifecycle.Transition(from, to); err != nil {
		return work.NewInvariantError("transition_state", err.Error())
	}
	row.status = to
	row.updatedAt = time.Now()
	return nil
}

func (s *Store) LinkArtifact(_ context.Context, submissionID string, stage lifecycle.Stage, artifactRef, artifactVersion string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.submissions[submissionID]; !ok {
		return work.NewInvariantError("link_artifact", "no such submission: "+submissionID)
	}
	s.artifactLinks[linkKey(submissionID, stage)] = artifactLinkRow{artifactRef: artifactRef, artifactVersion: artifactVersion}
	return nil
}

func (s *Store) GetArtifactRef(_ context.Context, submissionID string, stage lifecycle.Stage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.artifactLinks[linkKey(submissionID, stage)]
	if !ok {
		return "", fmt.Errorf("get_artifact_ref: %w", work.ErrNotFound)
	}
	return link.artifactRef, nil
}

func (s *Store) Finalize(_ context.Context, submissionID string, stage lifecycle.Stage, workerID string, success bool, detail, errorCode string) error {
	stageLifecycle, ok := lifecycle.LifecycleFor(stage)
	if !ok {
		return work.NewValidationError("finalize", "unknown stage: "+string(stage))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.submissions[submissionID]
	if !ok {
		return work.NewInvariantError("finalize", "no such submission: "+submissionID)
	}

	now := time.Now()
	if row.status != stageLifecycle.InProgressState {
		return work.NewInvariantError("finalize", fmt.Sprintf("submission not in %s", stageLifecycle.InProgressState))
	}
	if row.claimedBy == nil || *row.claimedBy != workerID {
		return work.NewInvariantError("finalize", "finalize called by non-owning worker: "+workerID)
	}
	if row.leaseExpiresAt == nil || !row.leaseExpiresAt.After(now) {
		return work.NewInvariantError("finalize", "lease expired before finalize")
	}

	if success {
		row.status = stageLifecycle.SuccessState
		row.lastErrorCode = nil
		row.lastErrorMessage = nil
		row.claimedBy = nil
		row.claimedAt = nil
		row.leaseExpiresAt = nil
		row.updatedAt = now
		return nil
	}

	resolved := errtaxonomy.ResolveStageError(stage, errtaxonomy.Code(errorCode))
	classification := errtaxonomy.Classify(resolved)

	code := string(resolved)
	msg := detail
	row.lastErrorCode = &code
	row.lastErrorMessage = &msg
	row.claimedBy = nil
	row.claimedAt = nil
	row.leaseExpiresAt = nil
	row.updatedAt = now

	if classification == errtaxonomy.Terminal {
		row.status = stageLifecycle.FailedState
		return nil
	}

	attempt := getAttempt(row, stage)
	if attempt < stageLifecycle.MaxAttempts {
		row.status = stageLifecycle.SourceState
	} else {
		row.status = lifecycle.StateDeadLetter
	}
	return nil
}

func (s *Store) PersistEvaluation(_ context.Context, rec work.EvaluationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.submissions[rec.SubmissionID]; !ok {
		return work.NewInvariantError("persist_evaluation", "no such submission: "+rec.SubmissionID)
	}
	s.evaluations[rec.SubmissionID] = rec
	return nil
}

func (s *Store) PersistLLMRun(_ context.Context, rec work.LLMRunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.submissions[rec.SubmissionID]; !ok {
		return work.NewInvariantError("persist_llm_run", "no such submission: "+rec.SubmissionID)
	}
	s.llmRuns[rec.SubmissionID] = append(s.llmRuns[rec.SubmissionID], rec)
	return nil
}

func (s *Store) PersistDelivery(_ context.Context, rec work.DeliveryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.submissions[rec.SubmissionID]; !ok {
		return work.NewInvariantError("persist_delivery", "no such submission: "+rec.SubmissionID)
	}
	s.deliveries[rec.SubmissionID] = append(s.deliveries[rec.SubmissionID], rec)
	return nil
}
