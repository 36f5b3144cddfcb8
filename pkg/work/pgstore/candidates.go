package pgstore

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"github.com/artzaitsev/submission-scheduler/pkg/ids"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

func (s *Store) CreateCandidate(ctx context.Context, firstName, lastName string) (work.CandidateSnapshot, error) {
	var publicID string
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		for attempt := 0; attempt < 5; attempt++ {
			candidate := ids.NewCandidateID()
			var exists bool
			if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM candidates WHERE public_id = $1)`, candidate); err != nil {
				return err
			}
			if exists {
				continue
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO candidates (public_id, first_name, last_name) VALUES ($1, $2, $3)`, candidate, firstName, lastName); err != nil {
				return err
			}
			publicID = candidate
			return nil
		}
		return work.NewInvariantError("create_candidate", "exhausted id collision retries")
	})
	if err != nil {
		return work.CandidateSnapshot{}, err
	}
	return work.CandidateSnapshot{CandidatePublicID: publicID, FirstName: firstName, LastName: lastName}, nil
}

func (s *Store) GetOrCreateCandidateBySource(ctx context.Context, sourceType, sourceExternalID, firstName, lastName string, metadata map[string]interface{}) (work.CandidateSnapshot, error) {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return work.CandidateSnapshot{}, work.NewValidationError("get_or_create_candidate_by_source", err.Error())
	}

	var snap work.CandidateSnapshot
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		row := tx.QueryRowxContext(ctx, `
			SELECT c.public_id, c.first_name, c.last_name
			FROM candidate_sources cs
			JOIN candidates c ON c.id = cs.candidate_id
			WHERE cs.source_type = $1 AND cs.source_external_id = $2`,
			sourceType, sourceExternalID)

		var existing work.CandidateSnapshot
		scanErr := row.Scan(&existing.CandidatePublicID, &existing.FirstName, &existing.LastName)
		if scanErr == nil {
			snap = existing
			return nil
		}

		publicID := ids.NewCandidateID()
		var candidateInternalID int64
		if err := tx.GetContext(ctx, &candidateInternalID, `
			INSERT INTO candidates (public_id, first_name, last_name) VALUES ($1, $2, $3) RETURNING id`,
			publicID, firstName, lastName); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO candidate_sources (candidate_id, source_type, source_external_id, metadata) VALUES ($1, $2, $3, $4)`,
			candidateInternalID, sourceType, sourceExternalID, metadataJSON); err != nil {
			return err
		}

		snap = work.CandidateSnapshot{CandidatePublicID: publicID, FirstName: firstName, LastName: lastName}
		return nil
	})
	if err != nil {
		return work.CandidateSnapshot{}, err
	}
	return snap, nil
}
