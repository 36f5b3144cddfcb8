package api

import (
	"time"

	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
	"github.com/artzaitsev/submission-scheduler/pkg/runner"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

// CandidateResponse is returned by POST /candidates.
type CandidateResponse struct {
	CandidatePublicID string `json:"candidate_public_id"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
}

// AssignmentResponse is returned by POST /assignments and within
// ListAssignmentsResponse.
type AssignmentResponse struct {
	AssignmentPublicID string `json:"assignment_public_id"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	IsActive           bool   `json:"is_active"`
}

// ListAssignmentsResponse is returned by GET /assignments.
type ListAssignmentsResponse struct {
	Items []AssignmentResponse `json:"items"`
}

// SubmissionResponse is returned by submission-ingress endpoints
// (POST /submissions, POST /webhooks/telegram).
type SubmissionResponse struct {
	SubmissionID string          `json:"submission_id"`
	Status       lifecycle.State `json:"status"`
	Created      bool            `json:"created"`
}

// SubmissionDetailResponse is returned by GET /submissions/:id.
type SubmissionDetailResponse struct {
	SubmissionID          string          `json:"submission_id"`
	CandidatePublicID     string          `json:"candidate_public_id"`
	AssignmentPublicID    string          `json:"assignment_public_id"`
	Status                lifecycle.State `json:"status"`
	AttemptTelegramIngest int             `json:"attempt_telegram_ingest"`
	AttemptNormalization  int             `json:"attempt_normalization"`
	AttemptEvaluation     int             `json:"attempt_evaluation"`
	AttemptDelivery       int             `json:"attempt_delivery"`
	LastErrorCode         *string         `json:"last_error_code,omitempty"`
	LastErrorMessage      *string         `json:"last_error_message,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

func submissionDetailFromSnapshot(s work.SubmissionSnapshot) SubmissionDetailResponse {
	return SubmissionDetailResponse{
		SubmissionID:          s.SubmissionID,
		CandidatePublicID:     s.CandidatePublicID,
		AssignmentPublicID:    s.AssignmentPublicID,
		Status:                s.Status,
		AttemptTelegramIngest: s.AttemptTelegramIngest,
		AttemptNormalization:  s.AttemptNormalization,
		AttemptEvaluation:     s.AttemptEvaluation,
		AttemptDelivery:       s.AttemptDelivery,
		LastErrorCode:         s.LastErrorCode,
		LastErrorMessage:      s.LastErrorMessage,
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
	}
}

// ListSubmissionsResponse is returned by GET /submissions.
type ListSubmissionsResponse struct {
	Items []work.SubmissionListItem `json:"items"`
}

// ExportResultsResponse is returned by POST /exports.
type ExportResultsResponse struct {
	ExportID    string `json:"export_id"`
	RowsCount   int    `json:"rows_count"`
	DownloadURL string `json:"download_url"`
	ExportRef   string `json:"export_ref"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string                    `json:"status"`
	Database string                    `json:"database"`
	Runners  map[string]runner.Health `json:"runners,omitempty"`
}
