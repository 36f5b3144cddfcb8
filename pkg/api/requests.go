package api

// CreateCandidateRequest is the HTTP request body for POST /candidates.
type CreateCandidateRequest struct {
	FirstName        string `json:"first_name" binding:"required"`
	LastName         string `json:"last_name" binding:"required"`
	SourceType       string `json:"source_type,omitempty"`
	SourceExternalID string `json:"source_external_id,omitempty"`
}

// CreateAssignmentRequest is the HTTP request body for POST /assignments.
type CreateAssignmentRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

// CreateSubmissionRequest binds the form fields accompanying a raw-payload
// upload to POST /submissions. The payload itself travels as multipart
// form data under the "file" field.
type CreateSubmissionRequest struct {
	CandidatePublicID  string `form:"candidate_public_id" binding:"required"`
	AssignmentPublicID string `form:"assignment_public_id" binding:"required"`
	SourceExternalID   string `form:"source_external_id" binding:"required"`
}

// TelegramWebhookRequest is the HTTP request body for POST /webhooks/telegram.
// It persists the intake idempotently; the raw-stage runner later fetches
// the actual file bytes from pkg/telegram.Source using FileID.
type TelegramWebhookRequest struct {
	UpdateID           string `json:"update_id" binding:"required"`
	CandidatePublicID  string `json:"candidate_public_id" binding:"required"`
	AssignmentPublicID string `json:"assignment_public_id" binding:"required"`
	FileID             string `json:"file_id" binding:"required"`
	FileName           string `json:"file_name,omitempty"`
}

// ExportRequest is the query contract for POST /exports: the same filter,
// sort and limit/offset fields as list_submissions — an export covers one
// page of the filtered set (limit 100 when unset).
type ExportRequest struct {
	Statuses           []string `form:"status"`
	CandidatePublicID  string   `form:"candidate_public_id"`
	AssignmentPublicID string   `form:"assignment_public_id"`
	SourceType         string   `form:"source_type"`
	SortBy             string   `form:"sort_by"`
	SortOrder          string   `form:"sort_order"`
	Limit              int      `form:"limit"`
	Offset             int      `form:"offset"`
}
