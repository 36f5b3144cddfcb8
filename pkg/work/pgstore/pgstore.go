// Package pgstore is the relational implementation of work.Repository,
// backed by PostgreSQL through jackc/pgx/v5's stdlib driver and
// jmoiron/sqlx. claim_next, finalize, create_submission_with_source, and
// reclaim_expired_claims each run as a single transaction; claim_next uses
// SELECT ... FOR UPDATE SKIP LOCKED so concurrent callers observe disjoint
// winners (spec.md §5).
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

// Store is the PostgreSQL-backed work.Repository implementation.
type Store struct {
	db *sqlx.DB
}

// New wraps an already-connected, already-migrated *sqlx.DB.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

var _ work.Repository = (*Store)(nil)

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error (including a panic, which is re-raised after rollback).
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(tx)
}

func wrapNotFound(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, work.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
