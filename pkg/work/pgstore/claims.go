package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/artzaitsev/submission-scheduler/pkg/errtaxonomy"
	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

func attemptColumn(stage lifecycle.Stage) (string, error) {
	lc, ok := lifecycle.LifecycleFor(stage)
	if !ok {
		return "", work.NewValidationError("attempt_column", "unknown stage: "+string(stage))
	}
	return lc.AttemptField, nil
}

func (s *Store) ClaimNext(ctx context.Context, stage lifecycle.Stage, workerID string, leaseSeconds int) (work.WorkItemClaim, error) {
	stageLifecycle, ok := lifecycle.LifecycleFor(stage)
	if !ok {
		return work.WorkItemClaim{}, work.NewValidationError("claim_next", "unknown stage: "+string(stage))
	}
	attemptCol, _ := attemptColumn(stage)

	var claim work.WorkItemClaim
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var publicID string
		selectQuery := `
			SELECT public_id FROM submissions
			WHERE status = $1
			ORDER BY id
			FOR UPDATE SKIP LOCKED
			LIMIT 1`
		if err := tx.GetContext(ctx, &publicID, selectQuery, string(stageLifecycle.SourceState)); err != nil {
			return fmt.Errorf("claim_next: %w", work.ErrNotFound)
		}

		updateQuery := fmt.Sprintf(`
			UPDATE submissions
			SET status = $1, claimed_by = $2, claimed_at = now(), lease_expires_at = now() + ($3 * interval '1 second'),
			    %s = %s + 1, updated_at = now()
			WHERE public_id = $4
			RETURNING %s, lease_expires_at`, attemptCol, attemptCol, attemptCol)

		var attempt int
		var leaseExpiresAt time.Time
		if err := tx.QueryRowxContext(ctx, updateQuery,
			string(stageLifecycle.InProgressState), workerID, leaseSeconds, publicID,
		).Scan(&attempt, &leaseExpiresAt); err != nil {
			return err
		}

		claim = work.WorkItemClaim{
			SubmissionID:   publicID,
			Stage:          stage,
			State:          stageLifecycle.InProgressState,
			Attempt:        attempt,
			LeaseExpiresAt: leaseExpiresAt,
		}
		return nil
	})
	if err != nil {
		return work.WorkItemClaim{}, err
	}
	return claim, nil
}

func (s *Store) HeartbeatClaim(ctx context.Context, submissionID string, stage lifecycle.Stage, workerID string, leaseSeconds int) (bool, error) {
	stageLifecycle, ok := lifecycle.LifecycleFor(stage)
	if !ok {
		return false, work.NewValidationError("heartbeat_claim", "unknown stage: "+string(stage))
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE submissions
		SET lease_expires_at = now() + ($1 * interval '1 second')
		WHERE public_id = $2 AND status = $3 AND claimed_by = $4 AND lease_expires_at > now()`,
		leaseSeconds, submissionID, string(stageLifecycle.InProgressState), workerID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (s *Store) ReclaimExpiredClaims(ctx context.Context, stage lifecycle.Stage) (int, error) {
	stageLifecycle, ok := lifecycle.LifecycleFor(stage)
	if !ok {
		return 0, work.NewValidationError("reclaim_expired_claims", "unknown stage: "+string(stage))
	}
	attemptCol, _ := attemptColumn(stage)

	var count int
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := fmt.Sprintf(`
			UPDATE submissions
			SET %s = %s + 1,
			    claimed_by = NULL, claimed_at = NULL, lease_expires_at = NULL,
			    last_error_code = 'lease_expired',
			    updated_at = now(),
			    status = CASE WHEN %s + 1 < $1 THEN $2 ELSE $3 END
			WHERE status = $4 AND lease_expires_at <= now()`,
			attemptCol, attemptCol, attemptCol)

		result, err := tx.ExecContext(ctx, query,
			stageLifecycle.MaxAttempts, string(stageLifecycle.SourceState), string(lifecycle.StateDeadLetter),
			string(stageLifecycle.InProgressState))
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		count = int(affected)
		return nil
	})
	return count, err
}

func (s *Store) ReclaimOwnedByWorker(ctx context.Context, workerID string) (int, error) {
	total := 0
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, stage := range lifecycle.Stages {
			stageLifecycle := lifecycle.StageLifecycles[stage]
			attemptCol, _ := attemptColumn(stage)

			query := fmt.Sprintf(`
				UPDATE submissions
				SET %s = %s + 1,
				    claimed_by = NULL, claimed_at = NULL, lease_expires_at = NULL,
				    last_error_code = 'worker_restarted',
				    updated_at = now(),
				    status = CASE WHEN %s + 1 < $1 THEN $2 ELSE $3 END
				WHERE status = $4 AND claimed_by = $5`,
				attemptCol, attemptCol, attemptCol)

			result, err := tx.ExecContext(ctx, query,
				stageLifecycle.MaxAttempts, string(stageLifecycle.SourceState), string(lifecycle.StateDeadLetter),
				string(stageLifecycle.InProgressState), workerID)
			if err != nil {
				return err
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return err
			}
			total += int(affected)
		}
		return nil
	})
	return total, err
}

func (s *Store) TransitionState(ctx context.Context, submissionID string, from, to lifecycle.State) error {
	if _, err := lifecycle.Transition(from, to); err != nil {
		return work.NewInvariantError("transition_state", err.Error())
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE submissions SET status = $1, updated_at = now() WHERE public_id = $2 AND status = $3`,
		string(to), submissionID, string(from))
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return work.NewInvariantError("transition_state", fmt.Sprintf("submission %s not in expected state %s", submissionID, from))
	}
	return nil
}

func (s *Store) Finalize(ctx context.Context, submissionID string, stage lifecycle.Stage, workerID string, success bool, detail, errorCode string) error {
	stageLifecycle, ok := lifecycle.LifecycleFor(stage)
	if !ok {
		return work.NewValidationError("finalize", "unknown stage: "+string(stage))
	}
	attemptCol, _ := attemptColumn(stage)

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var attempt int
		err := tx.GetContext(ctx, &attempt, fmt.Sprintf(`
			SELECT %s FROM submissions
			WHERE public_id = $1 AND status = $2 AND claimed_by = $3 AND lease_expires_at > now()
			FOR UPDATE`, attemptCol),
			submissionID, string(stageLifecycle.InProgressState), workerID)
		if err != nil {
			return work.NewInvariantError("finalize", "ownership guard failed for submission "+submissionID)
		}

		if success {
			_, err := tx.ExecContext(ctx, `
				UPDATE submissions
				SET status = $1, last_error_code = NULL, last_error_message = NULL,
				    claimed_by = NULL, claimed_at = NULL, lease_expires_at = NULL, updated_at = now()
				WHERE public_id = $2`,
				string(stageLifecycle.SuccessState), submissionID)
			return err
		}

		resolved := errtaxonomy.ResolveStageError(stage, errtaxonomy.Code(errorCode))
		classification := errtaxonomy.Classify(resolved)

		var nextStatus lifecycle.State
		switch {
		case classification == errtaxonomy.Terminal:
			nextStatus = stageLifecycle.FailedState
		case attempt < stageLifecycle.MaxAttempts:
			nextStatus = stageLifecycle.SourceState
		default:
			nextStatus = lifecycle.StateDeadLetter
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE submissions
			SET status = $1, last_error_code = $2, last_error_message = $3,
			    claimed_by = NULL, claimed_at = NULL, lease_expires_at = NULL, updated_at = now()
			WHERE public_id = $4`,
			string(nextStatus), string(resolved), detail, submissionID)
		return err
	})
}
