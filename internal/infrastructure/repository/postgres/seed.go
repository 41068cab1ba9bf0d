package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rossfreedman/rally-sub003/internal/domain/league"
)

// BootstrapSeed inserts the configured leagues on first boot. Existing
// rows are left alone, so the seed is safe to run on every start.
func BootstrapSeed(ctx context.Context, db *sqlx.DB, leagues []league.League) error {
	if len(leagues) == 0 {
		return nil
	}

	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(1) FROM leagues WHERE deleted_at IS NULL`); err != nil {
		return fmt.Errorf("count leagues for bootstrap seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, l := range leagues {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("seed league %s: %w", l.ID, err)
		}

		sqlQuery, args, err := sqlx.Named(`
INSERT INTO leagues (public_id, label, season)
VALUES (:public_id, :label, :season)
ON CONFLICT (public_id) DO NOTHING`, map[string]any{
			"public_id": l.ID,
			"label":     l.Label,
			"season":    l.Season,
		})
		if err != nil {
			return fmt.Errorf("bind seed league %s query: %w", l.ID, err)
		}
		sqlQuery = tx.Rebind(sqlQuery)
		if _, err := tx.ExecContext(ctx, sqlQuery, args...); err != nil {
			return fmt.Errorf("seed league %s: %w", l.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}

	return nil
}
