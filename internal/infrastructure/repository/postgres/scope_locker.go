package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ScopeLocker serializes writes per (league, season) using a transaction-
// scoped advisory lock. The lock is held for the duration of fn and
// released on commit or rollback; concurrent runs for the same scope queue
// behind it while other scopes proceed.
type ScopeLocker struct {
	db *sqlx.DB
}

func NewScopeLocker(db *sqlx.DB) *ScopeLocker {
	return &ScopeLocker{db: db}
}

func (l *ScopeLocker) WithScopeLock(ctx context.Context, leagueID, season string, fn func(ctx context.Context) error) error {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin scope lock tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, leagueID+"|"+season); err != nil {
		return fmt.Errorf("acquire scope lock league=%s season=%s: %w", leagueID, season, err)
	}

	if err := fn(ctx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit scope lock tx: %w", err)
	}
	return nil
}
