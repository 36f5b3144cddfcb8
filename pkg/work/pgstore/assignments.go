package pgstore

import (
	"context"

	"github.com/artzaitsev/submission-scheduler/pkg/ids"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

func (s *Store) CreateAssignment(ctx context.Context, title, description string, isActive bool) (work.AssignmentSnapshot, error) {
	publicID := ids.NewAssignmentID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assignments (public_id, title, description, is_active) VALUES ($1, $2, $3, $4)`,
		publicID, title, description, isActive)
	if err != nil {
		return work.AssignmentSnapshot{}, err
	}
	return work.AssignmentSnapshot{AssignmentPublicID: publicID, Title: title, Description: description, IsActive: isActive}, nil
}

func (s *Store) ListAssignments(ctx context.Context, activeOnly bool) ([]work.AssignmentSnapshot, error) {
	query := `SELECT public_id, title, description, is_active FROM assignments`
	args := []interface{}{}
	if activeOnly {
		query += ` WHERE is_active = $1`
		args = append(args, true)
	}
	query += ` ORDER BY public_id`

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []work.AssignmentSnapshot
	for rows.Next() {
		var a work.AssignmentSnapshot
		if err := rows.Scan(&a.AssignmentPublicID, &a.Title, &a.Description, &a.IsActive); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
