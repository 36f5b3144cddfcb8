package pgstore

import (
	"context"

	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
)

func (s *Store) LinkArtifact(ctx context.Context, submissionID string, stage lifecycle.Stage, artifactRef, artifactVersion string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifact_links (submission_id, stage, object_key, artifact_version, updated_at)
		SELECT sub.id, $2, $3, $4, now() FROM submissions sub WHERE sub.public_id = $1
		ON CONFLICT (submission_id, stage) DO UPDATE
		SET object_key = EXCLUDED.object_key, artifact_version = EXCLUDED.artifact_version, updated_at = now()`,
		submissionID, string(stage), artifactRef, artifactVersion)
	return err
}

func (s *Store) GetArtifactRef(ctx context.Context, submissionID string, stage lifecycle.Stage) (string, error) {
	var ref string
	err := s.db.GetContext(ctx, &ref, `
		SELECT al.object_key FROM artifact_links al
		JOIN submissions sub ON sub.id = al.submission_id
		WHERE sub.public_id = $1 AND al.stage = $2`,
		submissionID, string(stage))
	if err != nil {
		return "", wrapNotFound("get_artifact_ref", err)
	}
	return ref, nil
}
