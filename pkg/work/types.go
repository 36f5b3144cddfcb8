package work

import (
	"time"

	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
)

// CandidateSnapshot is the durable projection of a candidate row.
type CandidateSnapshot struct {
	CandidatePublicID string
	FirstName         string
	LastName          string
}

// AssignmentSnapshot is the durable projection of an assignment row.
type AssignmentSnapshot struct {
	AssignmentPublicID string
	Title               string
	Description         string
	IsActive            bool
}

// SubmissionSnapshot is the durable projection of one submissions row
// (spec.md §3).
type SubmissionSnapshot struct {
	SubmissionID          string
	CandidatePublicID     string
	AssignmentPublicID    string
	Status                lifecycle.State
	AttemptTelegramIngest int
	AttemptNormalization  int
	AttemptEvaluation     int
	AttemptDelivery       int
	ClaimedBy             *string
	ClaimedAt             *time.Time
	LeaseExpiresAt        *time.Time
	LastErrorCode         *string
	LastErrorMessage      *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// UpsertSourceResult is returned by CreateSubmissionWithSource.
type UpsertSourceResult struct {
	SubmissionID string
	Status       lifecycle.State
	Created      bool
}

// SubmissionSource is the durable projection of one submission_sources row:
// the intake channel a submission arrived through, and whatever channel
// metadata was captured at intake time (e.g. a Telegram file_id/file_name
// pair, or the original upload filename). Stage processors that need to
// fetch bytes from the originating channel read this back rather than
// threading the metadata through the claim itself.
type SubmissionSource struct {
	SourceType       string
	SourceExternalID string
	Metadata         map[string]interface{}
}

// WorkItemClaim is returned by ClaimNext: the winning submission, now in
// the stage's in-progress state.
type WorkItemClaim struct {
	SubmissionID   string
	Stage          lifecycle.Stage
	State          lifecycle.State
	Attempt        int
	LeaseExpiresAt time.Time
}

// ProcessOutcome is the tagged result a stage's process function returns to
// the worker loop: a data value, never a control-flow error, so that retry
// routing is driven by data rather than exceptions (spec.md §9).
type ProcessOutcome struct {
	Success           bool
	Detail            string
	ArtifactRef       string
	ArtifactVersion   string
	ErrorCode         string
}

// SubmissionFieldGroup selects which projection groups list_submissions
// includes in each SubmissionListItem.
type SubmissionFieldGroup string

const (
	FieldGroupCore       SubmissionFieldGroup = "core"
	FieldGroupCandidate  SubmissionFieldGroup = "candidate"
	FieldGroupAssignment SubmissionFieldGroup = "assignment"
	FieldGroupSource     SubmissionFieldGroup = "source"
	FieldGroupEvaluation SubmissionFieldGroup = "evaluation"
	FieldGroupOps        SubmissionFieldGroup = "ops"
)

// SortBy names a sortable column for list_submissions.
type SortBy string

const (
	SortByCreatedAt SortBy = "created_at"
	SortByUpdatedAt SortBy = "updated_at"
	SortByScore     SortBy = "score_1_10"
	SortByStatus    SortBy = "status"
)

// SortOrder is the sort direction for list_submissions.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ListQuery is the filter/projection/sort/page contract for
// list_submissions (spec.md §4.3).
type ListQuery struct {
	Statuses           []lifecycle.State
	SubmissionIDs       []string
	CandidatePublicID   string
	AssignmentPublicID  string
	SourceType          string
	HasError            *bool
	CreatedFrom         *time.Time
	CreatedTo           *time.Time
	Include             []SubmissionFieldGroup
	SortBy              SortBy
	SortOrder           SortOrder
	Limit               int
	Offset              int
}

// DefaultListQuery returns a ListQuery with the spec's defaults: core field
// group only, sorted by created_at descending, limit 100.
func DefaultListQuery() ListQuery {
	return ListQuery{
		Include:   []SubmissionFieldGroup{FieldGroupCore},
		SortBy:    SortByCreatedAt,
		SortOrder: SortDesc,
		Limit:     100,
		Offset:    0,
	}
}

// SubmissionListItem is one row of a list_submissions result, with
// projection groups nil when not requested.
type SubmissionListItem struct {
	InternalID int64

	Core SubmissionListItemCore

	Candidate  *SubmissionListItemCandidate
	Assignment *SubmissionListItemAssignment
	Source     *SubmissionListItemSource
	Evaluation *SubmissionListItemEvaluation
	Ops        *SubmissionListItemOps
}

type SubmissionListItemCore struct {
	PublicID  string
	Status    lifecycle.State
	CreatedAt time.Time
	UpdatedAt time.Time
}

type SubmissionListItemCandidate struct {
	PublicID string
}

type SubmissionListItemAssignment struct {
	PublicID string
}

type SubmissionListItemSource struct {
	Type       string
	ExternalID string
}

type SubmissionListItemEvaluation struct {
	Score1To10       *int
	CriteriaScores   map[string]interface{}
	OrganizerFeedback map[string]interface{}
	CandidateFeedback map[string]interface{}
	ChainVersion     string
	Model            string
	SpecVersion      string
	ResponseLanguage string
}

type SubmissionListItemOps struct {
	LastErrorCode    *string
	LastErrorMessage *string
}

// EvaluationRecord is the persisted shape for persist_evaluation. The
// reproducibility subset is co-located with the criteria payload so
// downstream export reads need no joins (spec.md §4.3).
type EvaluationRecord struct {
	SubmissionID          string
	Score1To10            int
	CriteriaScores        map[string]interface{}
	OrganizerFeedback     map[string]interface{}
	CandidateFeedback     map[string]interface{}
	AILikelihood          *float64
	AIConfidence          *float64
	ReproducibilitySubset ReproducibilitySubset
}

// ReproducibilitySubset identifies the rubric run that produced a score.
type ReproducibilitySubset struct {
	ChainVersion     string
	SpecVersion      string
	Model            string
	ResponseLanguage string
}

// LLMRunRecord is the persisted shape for persist_llm_run: append-only
// model-call metadata.
type LLMRunRecord struct {
	SubmissionID string
	Provider     string
	Model        string
	APIBase      string
	ChainVersion string
	SpecVersion  string
	ResponseLanguage string
	Temperature  float64
	Seed         *int64
	TokensInput  int
	TokensOutput int
	LatencyMS    int
}

// DeliveryRecord is the persisted shape for persist_delivery: append-only
// notification attempts.
type DeliveryRecord struct {
	SubmissionID      string
	Channel           string
	Status            string
	ExternalMessageID string
	Attempts          int
	LastErrorCode     string
}
