package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/artzaitsev/submission-scheduler/pkg/ids"
	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

func (s *Store) CreateSubmissionWithSource(ctx context.Context, candidatePublicID, assignmentPublicID, sourceType, sourceExternalID string, initialStatus lifecycle.State, metadata map[string]interface{}, payloadRef string) (work.UpsertSourceResult, error) {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return work.UpsertSourceResult{}, work.NewValidationError("create_submission_with_source", err.Error())
	}

	var result work.UpsertSourceResult
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		var existing struct {
			PublicID string `db:"public_id"`
			Status   string `db:"status"`
		}
		getErr := tx.GetContext(ctx, &existing, `
			SELECT sub.public_id, sub.status
			FROM submission_sources ss
			JOIN submissions sub ON sub.id = ss.submission_id
			WHERE ss.source_type = $1 AND ss.source_external_id = $2`,
			sourceType, sourceExternalID)
		if getErr == nil {
			result = work.UpsertSourceResult{SubmissionID: existing.PublicID, Status: lifecycle.State(existing.Status), Created: false}
			return nil
		}

		var candidateInternalID int64
		if err := tx.GetContext(ctx, &candidateInternalID, `SELECT id FROM candidates WHERE public_id = $1`, candidatePublicID); err != nil {
			return work.NewInvariantError("create_submission_with_source", "candidate does not exist: "+candidatePublicID)
		}
		var assignmentInternalID int64
		if err := tx.GetContext(ctx, &assignmentInternalID, `SELECT id FROM assignments WHERE public_id = $1`, assignmentPublicID); err != nil {
			return work.NewInvariantError("create_submission_with_source", "assignment does not exist: "+assignmentPublicID)
		}

		publicID := ids.NewSubmissionID()
		var submissionInternalID int64
		if err := tx.GetContext(ctx, &submissionInternalID, `
			INSERT INTO submissions (public_id, candidate_id, assignment_id, status)
			VALUES ($1, $2, $3, $4) RETURNING id`,
			publicID, candidateInternalID, assignmentInternalID, string(initialStatus)); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO submission_sources (submission_id, source_type, source_external_id, metadata)
			VALUES ($1, $2, $3, $4)`,
			submissionInternalID, sourceType, sourceExternalID, metadataJSON); err != nil {
			return err
		}

		if payloadRef != "" {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO artifact_links (submission_id, stage, object_key)
				VALUES ($1, $2, $3)`,
				submissionInternalID, string(lifecycle.StageRaw), payloadRef); err != nil {
				return err
			}
		}

		result = work.UpsertSourceResult{SubmissionID: publicID, Status: initialStatus, Created: true}
		return nil
	})
	if err != nil {
		return work.UpsertSourceResult{}, err
	}
	return result, nil
}

type submissionRow struct {
	PublicID              string       `db:"public_id"`
	CandidatePublicID     string       `db:"candidate_public_id"`
	AssignmentPublicID    string       `db:"assignment_public_id"`
	Status                string       `db:"status"`
	AttemptTelegramIngest int          `db:"attempt_telegram_ingest"`
	AttemptNormalization  int          `db:"attempt_normalization"`
	AttemptEvaluation     int          `db:"attempt_evaluation"`
	AttemptDelivery       int          `db:"attempt_delivery"`
	ClaimedBy             *string      `db:"claimed_by"`
	ClaimedAt             sql.NullTime `db:"claimed_at"`
	LeaseExpiresAt        sql.NullTime `db:"lease_expires_at"`
	LastErrorCode         *string      `db:"last_error_code"`
	LastErrorMessage      *string      `db:"last_error_message"`
	CreatedAt             time.Time    `db:"created_at"`
	UpdatedAt             time.Time    `db:"updated_at"`
}

const submissionProjection = `
	SELECT sub.public_id, c.public_id AS candidate_public_id, a.public_id AS assignment_public_id,
	       sub.status, sub.attempt_telegram_ingest, sub.attempt_normalization, sub.attempt_evaluation, sub.attempt_delivery,
	       sub.claimed_by, sub.claimed_at, sub.lease_expires_at, sub.last_error_code, sub.last_error_message,
	       sub.created_at, sub.updated_at
	FROM submissions sub
	JOIN candidates c ON c.id = sub.candidate_id
	JOIN assignments a ON a.id = sub.assignment_id
`

func (s *Store) GetSubmission(ctx context.Context, submissionID string) (work.SubmissionSnapshot, error) {
	var row submissionRow
	err := s.db.GetContext(ctx, &row, submissionProjection+` WHERE sub.public_id = $1`, submissionID)
	if err != nil {
		return work.SubmissionSnapshot{}, wrapNotFound("get_submission", err)
	}
	return toSnapshot(row), nil
}

type submissionSourceRow struct {
	SourceType       string `db:"source_type"`
	SourceExternalID string `db:"source_external_id"`
	Metadata         []byte `db:"metadata"`
}

func (s *Store) GetSubmissionSource(ctx context.Context, submissionID string) (work.SubmissionSource, error) {
	var row submissionSourceRow
	err := s.db.GetContext(ctx, &row, `
		SELECT ss.source_type, ss.source_external_id, ss.metadata
		FROM submission_sources ss
		JOIN submissions sub ON sub.id = ss.submission_id
		WHERE sub.public_id = $1`, submissionID)
	if err != nil {
		return work.SubmissionSource{}, wrapNotFound("get_submission_source", err)
	}

	metadata := map[string]interface{}{}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			return work.SubmissionSource{}, fmt.Errorf("get_submission_source: decode metadata: %w", err)
		}
	}
	return work.SubmissionSource{SourceType: row.SourceType, SourceExternalID: row.SourceExternalID, Metadata: metadata}, nil
}

func toSnapshot(row submissionRow) work.SubmissionSnapshot {
	snap := work.SubmissionSnapshot{
		SubmissionID:          row.PublicID,
		CandidatePublicID:     row.CandidatePublicID,
		AssignmentPublicID:    row.AssignmentPublicID,
		Status:                lifecycle.State(row.Status),
		AttemptTelegramIngest: row.AttemptTelegramIngest,
		AttemptNormalization:  row.AttemptNormalization,
		AttemptEvaluation:     row.AttemptEvaluation,
		AttemptDelivery:       row.AttemptDelivery,
		ClaimedBy:             row.ClaimedBy,
		LastErrorCode:         row.LastErrorCode,
		LastErrorMessage:      row.LastErrorMessage,
		CreatedAt:             row.CreatedAt,
		UpdatedAt:             row.UpdatedAt,
	}
	if row.ClaimedAt.Valid {
		t := row.ClaimedAt.Time
		snap.ClaimedAt = &t
	}
	if row.LeaseExpiresAt.Valid {
		t := row.LeaseExpiresAt.Time
		snap.LeaseExpiresAt = &t
	}
	return snap
}
