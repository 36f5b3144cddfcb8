package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

func hasGroup(groups []work.SubmissionFieldGroup, want work.SubmissionFieldGroup) bool {
	for _, g := range groups {
		if g == want {
			return true
		}
	}
	return false
}

func (s *Store) ListSubmissions(_ context.Context, query work.ListQuery) ([]work.SubmissionListItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	statusSet := map[lifecycle.State]bool{}
	for _, st := range query.Statuses {
		statusSet[st] = true
	}
	idSet := map[string]bool{}
	for _, id := range query.SubmissionIDs {
		idSet[id] = true
	}

	var rows []*submissionRow
	for _, row := range s.submissions {
		if len(statusSet) > 0 && !statusSet[row.status] {
			continue
		}
		if len(idSet) > 0 && !idSet[row.publicID] {
			continue
		}
		if query.CandidatePublicID != "" && row.candidatePublicID != query.CandidatePublicID {
			continue
		}
		if query.AssignmentPublicID != "" && row.assignmentPublicID != query.AssignmentPublicID {
			continue
		}
		if query.SourceType != "" {
			src, ok := s.sources[row.publicID]
			if !ok || src.sourceType != query.SourceType {
				continue
			}
		}
		if query.HasError != nil {
			hasErr := row.lastErrorCode != nil
			if hasErr != *query.HasError {
				continue
			}
		}
		if query.CreatedFrom != nil && row.createdAt.Before(*query.CreatedFrom) {
			continue
		}
		if query.CreatedTo != nil && row.createdAt.After(*query.CreatedTo) {
			continue
		}
		rows = append(rows, row)
	}

	sortRows(rows, s.evaluations, query.SortBy, query.SortOrder)

	if query.Offset > len(rows) {
		rows = nil
	} else {
		rows = rows[query.Offset:]
	}
	if query.Limit > 0 && len(rows) > query.Limit {
		rows = rows[:query.Limit]
	}

	items := make([]work.SubmissionListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, s.projectRow(row, query.Include))
	}
	return items, nil
}

func sortRows(rows []*submissionRow, evaluations map[string]work.EvaluationRecord, sortBy work.SortBy, order work.SortOrder) {
	less := func(i, j int) bool {
		a, b := rows[i], rows[j]
		var cmp int
		switch sortBy {
		case work.SortByUpdatedAt:
			cmp = compareTime(a.updatedAt, b.updatedAt)
		case work.SortByScore:
			cmp = compareInt(scoreOrZero(evaluations, a.publicID), scoreOrZero(evaluations, b.publicID))
		case work.SortByStatus:
			cmp = compareString(string(a.status), string(b.status))
		default:
			cmp = compareTime(a.createdAt, b.createdAt)
		}
		if cmp == 0 {
			return a.internalID < b.internalID
		}
		if order == work.SortAsc {
			return cmp < 0
		}
		return cmp > 0
	}
	sort.SliceStable(rows, less)
}

func scoreOrZero(evaluations map[string]work.EvaluationRecord, submissionID string) int {
	rec, ok := evaluations[submissionID]
	if !ok {
		return 0
	}
	return rec.Score1To10
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (s *Store) projectRow(row *submissionRow, include []work.SubmissionFieldGroup) work.SubmissionListItem {
	item := work.SubmissionListItem{
		InternalID: row.internalID,
		Core: work.SubmissionListItemCore{
			PublicID:  row.publicID,
			Status:    row.status,
			CreatedAt: row.createdAt,
			UpdatedAt: row.updatedAt,
		},
	}

	if hasGroup(include, work.FieldGroupCandidate) {
		item.Candidate = &work.SubmissionListItemCandidate{PublicID: row.candidatePublicID}
	}
	if hasGroup(include, work.FieldGroupAssignment) {
		item.Assignment = &work.SubmissionListItemAssignment{PublicID: row.assignmentPublicID}
	}
	if hasGroup(include, work.FieldGroupSource) {
		if src, ok := s.sources[row.publicID]; ok {
			item.Source = &work.SubmissionListItemSource{Type: src.sourceType, ExternalID: src.sourceExternalID}
		}
	}
	if hasGroup(include, work.FieldGroupEvaluation) {
		if rec, ok := s.evaluations[row.publicID]; ok {
			score := rec.Score1To10
			item.Evaluation = &work.SubmissionListItemEvaluation{
				Score1To10:        &score,
				CriteriaScores:    rec.CriteriaScores,
				OrganizerFeedback: rec.OrganizerFeedback,
				CandidateFeedback: rec.CandidateFeedback,
				ChainVersion:      rec.ReproducibilitySubset.ChainVersion,
				Model:             rec.ReproducibilitySubset.Model,
				SpecVersion:       rec.ReproducibilitySubset.SpecVersion,
				ResponseLanguage:  rec.ReproducibilitySubset.ResponseLanguage,
			}
		}
	}
	if hasGroup(include, work.FieldGroupOps) {
		item.Ops = &work.SubmissionListItemOps{LastErrorCode: row.lastErrorCode, LastErrorMessage: row.lastErrorMessage}
	}

	return item
}
