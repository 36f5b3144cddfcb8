// Package artifact implements the v1 typed artifact contract: the JSON
// payloads stages hand off to each other through object storage, and a
// version-aware repository façade that enforces a strict or compatible
// schema-version policy on every load/save (spec.md §4.4).
package artifact

// SourceType identifies which ingress path produced a submission's raw
// payload.
type SourceType string

const (
	SourceAPIUpload      SourceType = "api_upload"
	SourceTelegramWebhook SourceType = "telegram_webhook"
)

// NormalizedArtifact is produced by the normalize stage and consumed by the
// evaluate stage: the canonical markdown text extracted from whatever
// format the candidate submitted, plus trace metadata from normalization.
type NormalizedArtifact struct {
	SubmissionPublicID      string                 `json:"submission_public_id"`
	AssignmentPublicID      string                 `json:"assignment_public_id"`
	SourceType              SourceType             `json:"source_type"`
	ContentMarkdown         string                 `json:"content_markdown"`
	NormalizationMetadata   map[string]interface{} `json:"normalization_metadata"`
	SchemaVersion           string                 `json:"schema_version"`
}

// NormalizedSchemaVersion is the v1 schema_version for NormalizedArtifact.
const NormalizedSchemaVersion = "normalized:v1"

// NewNormalizedArtifact builds a v1 NormalizedArtifact with the schema
// version already set.
func NewNormalizedArtifact(submissionPublicID, assignmentPublicID string, sourceType SourceType, contentMarkdown string, metadata map[string]interface{}) NormalizedArtifact {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return NormalizedArtifact{
		SubmissionPublicID:    submissionPublicID,
		AssignmentPublicID:    assignmentPublicID,
		SourceType:            sourceType,
		ContentMarkdown:       contentMarkdown,
		NormalizationMetadata: metadata,
		SchemaVersion:         NormalizedSchemaVersion,
	}
}

// ExportRowArtifact is one row of a tabular export: organizer-facing
// feedback plus the reproducibility subset identifying the rubric run that
// produced the score.
type ExportRowArtifact struct {
	CandidateIdentifier  string `json:"candidate_identifier"`
	AssignmentIdentifier string `json:"assignment_identifier"`
	Score1To10           int    `json:"score_1_10"`
	CriteriaSummary      string `json:"criteria_summary"`
	Strengths            string `json:"strengths"`
	Issues               string `json:"issues"`
	Recommendations      string `json:"recommendations"`
	ChainVersion         string `json:"chain_version"`
	Model                string `json:"model"`
	SpecVersion          string `json:"spec_version"`
	ResponseLanguage     string `json:"response_language"`
	SchemaVersion        string `json:"schema_version"`
}

// ExportSchemaVersion is the v1 schema_version for ExportRowArtifact.
const ExportSchemaVersion = "exports:v1"

// exportFieldOrder is the CSV header/column order, matching the JSON field
// declaration order above (spec.md §4.4 "header row derived from the row
// schema field order").
var exportFieldOrder = []string{
	"candidate_identifier",
	"assignment_identifier",
	"score_1_10",
	"criteria_summary",
	"strengths",
	"issues",
	"recommendations",
	"chain_version",
	"model",
	"spec_version",
	"response_language",
	"schema_version",
}
