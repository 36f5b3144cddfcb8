package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
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

func sortColumn(sortBy work.SortBy) string {
	switch sortBy {
	case work.SortByUpdatedAt:
		return "sub.updated_at"
	case work.SortByScore:
		return "COALESCE(ev.score_1_10, 0)"
	case work.SortByStatus:
		return "sub.status"
	default:
		return "sub.created_at"
	}
}

func (s *Store) ListSubmissions(ctx context.Context, query work.ListQuery) ([]work.SubmissionListItem, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(query.Statuses) > 0 {
		placeholders := make([]string, 0, len(query.Statuses))
		for _, st := range query.Statuses {
			placeholders = append(placeholders, arg(string(st)))
		}
		where = append(where, fmt.Sprintf("sub.status IN (%s)", strings.Join(placeholders, ", ")))
	}
	if len(query.SubmissionIDs) > 0 {
		placeholders := make([]string, 0, len(query.SubmissionIDs))
		for _, id := range query.SubmissionIDs {
			placeholders = append(placeholders, arg(id))
		}
		where = append(where, fmt.Sprintf("sub.public_id IN (%s)", strings.Join(placeholders, ", ")))
	}
	if query.CandidatePublicID != "" {
		where = append(where, fmt.Sprintf("c.public_id = %s", arg(query.CandidatePublicID)))
	}
	if query.AssignmentPublicID != "" {
		where = append(where, fmt.Sprintf("a.public_id = %s", arg(query.AssignmentPublicID)))
	}
	if query.SourceType != "" {
		where = append(where, fmt.Sprintf("ss.source_type = %s", arg(query.SourceType)))
	}
	if query.HasError != nil {
		if *query.HasError {
			where = append(where, "sub.last_error_code IS NOT NULL")
		} else {
			where = append(where, "sub.last_error_code IS NULL")
		}
	}
	if query.CreatedFrom != nil {
		where = append(where, fmt.Sprintf("sub.created_at >= %s", arg(*query.CreatedFrom)))
	}
	if query.CreatedTo != nil {
		where = append(where, fmt.Sprintf("sub.created_at <= %s", arg(*query.CreatedTo)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	order := "DESC"
	if query.SortOrder == work.SortAsc {
		order = "ASC"
	}

	sqlQuery := fmt.Sprintf(`
		SELECT
			sub.id, sub.public_id, sub.status, sub.created_at, sub.updated_at,
			c.public_id AS candidate_public_id,
			a.public_id AS assignment_public_id,
			ss.source_type, ss.source_external_id,
			ev.score_1_10, ev.criteria_scores, ev.organizer_feedback, ev.candidate_feedback,
			ev.chain_version, ev.model, ev.spec_version, ev.response_language,
			sub.last_error_code, sub.last_error_message
		FROM submissions sub
		JOIN candidates c ON c.id = sub.candidate_id
		JOIN assignments a ON a.id = sub.assignment_id
		LEFT JOIN submission_sources ss ON ss.submission_id = sub.id
		LEFT JOIN evaluations ev ON ev.submission_id = sub.id
		%s
		ORDER BY %s %s, sub.id ASC
		LIMIT %s OFFSET %s`,
		whereClause, sortColumn(query.SortBy), order, arg(query.Limit), arg(query.Offset))

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []work.SubmissionListItem
	for rows.Next() {
		var (
			internalID         int64
			publicID, status   string
			createdAt, updatedAt time.Time
			candidatePublicID, assignmentPublicID string
			sourceType, sourceExternalID sql.NullString
			score sql.NullInt64
			criteriaScores, organizerFeedback, candidateFeedback []byte
			chainVersion, model, specVersion, responseLanguage sql.NullString
			lastErrorCode, lastErrorMessage sql.NullString
		)
		if err := rows.Scan(
			&internalID, &publicID, &status, &createdAt, &updatedAt,
			&candidatePublicID, &assignmentPublicID,
			&sourceType, &sourceExternalID,
			&score, &criteriaScores, &organizerFeedback, &candidateFeedback,
			&chainVersion, &model, &specVersion, &responseLanguage,
			&lastErrorCode, &lastErrorMessage,
		); err != nil {
			return nil, err
		}

		item := work.SubmissionListItem{
			InternalID: internalID,
			Core: work.SubmissionListItemCore{
				PublicID:  publicID,
				Status:    lifecycle.State(status),
				CreatedAt: createdAt,
				UpdatedAt: updatedAt,
			},
		}

		if hasGroup(query.Include, work.FieldGroupCandidate) {
			item.Candidate = &work.SubmissionListItemCandidate{PublicID: candidatePublicID}
		}
		if hasGroup(query.Include, work.FieldGroupAssignment) {
			item.Assignment = &work.SubmissionListItemAssignment{PublicID: assignmentPublicID}
		}
		if hasGroup(query.Include, work.FieldGroupSource) && sourceType.Valid {
			item.Source = &work.SubmissionListItemSource{Type: sourceType.String, ExternalID: sourceExternalID.String}
		}
		if hasGroup(query.Include, work.FieldGroupEvaluation) && score.Valid {
			s32 := int(score.Int64)
			item.Evaluation = &work.SubmissionListItemEvaluation{
				Score1To10:        &s32,
				CriteriaScores:    decodeJSONMap(criteriaScores),
				OrganizerFeedback: decodeJSONMap(organizerFeedback),
				CandidateFeedback: decodeJSONMap(candidateFeedback),
				ChainVersion:      chainVersion.String,
				Model:             model.String,
				SpecVersion:       specVersion.String,
				ResponseLanguage:  responseLanguage.String,
			}
		}
		if hasGroup(query.Include, work.FieldGroupOps) {
			item.Ops = &work.SubmissionListItemOps{}
			if lastErrorCode.Valid {
				item.Ops.LastErrorCode = &lastErrorCode.String
			}
			if lastErrorMessage.Valid {
				item.Ops.LastErrorMessage = &lastErrorMessage.String
			}
		}

		items = append(items, item)
	}
	return items, rows.Err()
}

func decodeJSONMap(payload []byte) map[string]interface{} {
	if len(payload) == 0 {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil
	}
	return m
}
