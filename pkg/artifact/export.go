package artifact

import (
	"fmt"
	"strings"

	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

// BuildExportRows converts evaluated submission list items into export
// rows, skipping any item that isn't fully export-eligible: it must carry a
// score and a complete reproducibility subset (chain version, spec version,
// model, response language). A submission missing any of these was never
// evaluated to completion and has nothing contract-valid to export.
func BuildExportRows(items []work.SubmissionListItem) []ExportRowArtifact {
	rows := make([]ExportRowArtifact, 0, len(items))
	for _, item := range items {
		row, ok := exportRowFromItem(item)
		if !ok {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func exportRowFromItem(item work.SubmissionListItem) (ExportRowArtifact, bool) {
	eval := item.Evaluation
	if eval == nil || eval.Score1To10 == nil {
		return ExportRowArtifact{}, false
	}
	if eval.ChainVersion == "" || eval.SpecVersion == "" || eval.Model == "" || eval.ResponseLanguage == "" {
		return ExportRowArtifact{}, false
	}

	var candidateID, assignmentID string
	if item.Candidate != nil {
		candidateID = item.Candidate.PublicID
	}
	if item.Assignment != nil {
		assignmentID = item.Assignment.PublicID
	}

	return ExportRowArtifact{
		CandidateIdentifier:  candidateID,
		AssignmentIdentifier: assignmentID,
		Score1To10:           *eval.Score1To10,
		CriteriaSummary:      criteriaSummary(eval.CriteriaScores),
		Strengths:            joinTextList(eval.OrganizerFeedback["strengths"]),
		Issues:               joinTextList(eval.OrganizerFeedback["issues"]),
		Recommendations:      joinTextList(eval.OrganizerFeedback["recommendations"]),
		ChainVersion:         eval.ChainVersion,
		Model:                eval.Model,
		SpecVersion:          eval.SpecVersion,
		ResponseLanguage:     eval.ResponseLanguage,
		SchemaVersion:        ExportSchemaVersion,
	}, true
}

// criteriaSummary renders the criteria_scores "items" list (each an
// {id, score} map) as "id:score; id:score; ...".
func criteriaSummary(criteria map[string]interface{}) string {
	items, ok := criteria["items"].([]interface{})
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, raw := range items {
		criterion, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		parts = append(parts, formatCriterion(criterion))
	}
	return strings.Join(parts, "; ")
}

func formatCriterion(criterion map[string]interface{}) string {
	id := criterion["id"]
	score := criterion["score"]
	return toText(id) + ":" + toText(score)
}

// joinTextList renders a feedback list field ("strengths", "issues",
// "recommendations") as "item; item; ...". Non-list or absent values
// render as an empty string.
func joinTextList(value interface{}) string {
	items, ok := value.([]interface{})
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, toText(item))
	}
	return strings.Join(parts, "; ")
}

func toText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
