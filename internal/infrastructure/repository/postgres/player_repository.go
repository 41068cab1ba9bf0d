package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rossfreedman/rally-sub003/internal/domain/player"
	qb "github.com/rossfreedman/rally-sub003/internal/platform/querybuilder"
)

type PlayerRepository struct {
	db *sqlx.DB
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// playerUpsertSuffix converges writes for the same (league, external key)
// onto the existing active row. public_id and first_seen_at stay as first
// written, so replays keep the canonical identity stable.
const playerUpsertSuffix = `ON CONFLICT (league_public_id, external_key) WHERE is_active
DO UPDATE SET
    name = EXCLUDED.name,
    rating = EXCLUDED.rating,
    series = EXCLUDED.series,
    series_rank = EXCLUDED.series_rank,
    team_public_id = EXCLUDED.team_public_id,
    is_active = EXCLUDED.is_active,
    updated_at = EXCLUDED.updated_at`

func playerBaseSelectBuilder() *qb.SelectBuilder {
	return qb.Select("*").From("players")
}

func (r *PlayerRepository) ListActiveByLeague(ctx context.Context, leagueID string) ([]player.Player, error) {
	query, args, err := playerBaseSelectBuilder().
		Where(
			qb.Eq("league_public_id", leagueID),
			qb.Eq("is_active", true),
		).
		OrderBy("external_key", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select active players query: %w", err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select active players by league: %w", err)
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, playerFromRow(row))
	}
	return out, nil
}

func (r *PlayerRepository) GetActiveByKey(ctx context.Context, leagueID, externalKey string) (player.Player, bool, error) {
	query, args, err := playerBaseSelectBuilder().
		Where(
			qb.Eq("league_public_id", leagueID),
			qb.Eq("external_key", externalKey),
			qb.Eq("is_active", true),
		).
		OrderBy("id").
		Limit(1).
		ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build get active player by key query: %w", err)
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("get active player by key: %w", err)
	}

	return playerFromRow(row), true, nil
}

func (r *PlayerRepository) ListActiveByKey(ctx context.Context, leagueID, externalKey string) ([]player.Player, error) {
	query, args, err := playerBaseSelectBuilder().
		Where(
			qb.Eq("league_public_id", leagueID),
			qb.Eq("external_key", externalKey),
			qb.Eq("is_active", true),
		).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list active players by key query: %w", err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list active players by key: %w", err)
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, playerFromRow(row))
	}
	return out, nil
}

func (r *PlayerRepository) GetByID(ctx context.Context, playerID string) (player.Player, bool, error) {
	query, args, err := playerBaseSelectBuilder().
		Where(qb.Eq("public_id", playerID)).
		ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build get player by id query: %w", err)
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("get player by id: %w", err)
	}

	return playerFromRow(row), true, nil
}

func (r *PlayerRepository) Upsert(ctx context.Context, p player.Player) error {
	return upsertPlayer(ctx, r.db, p)
}

func (r *PlayerRepository) Deactivate(ctx context.Context, playerID string) error {
	return deactivatePlayer(ctx, r.db, playerID)
}

// UpsertMany applies one chunk of player upserts in a single transaction.
func (r *PlayerRepository) UpsertMany(ctx context.Context, items []player.Player) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin player upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		if err := upsertPlayer(ctx, tx, item); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit player upsert tx: %w", err)
	}
	return nil
}

// DeactivateMany applies one chunk of deactivations in a single transaction.
func (r *PlayerRepository) DeactivateMany(ctx context.Context, playerIDs []string) error {
	if len(playerIDs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin player deactivate tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, playerID := range playerIDs {
		if err := deactivatePlayer(ctx, tx, playerID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit player deactivate tx: %w", err)
	}
	return nil
}

func upsertPlayer(ctx context.Context, execer sqlx.ExtContext, p player.Player) error {
	query, args, err := qb.InsertModel("players", playerToInsertModel(p), playerUpsertSuffix)
	if err != nil {
		return fmt.Errorf("build player upsert query: %w", err)
	}

	if _, err := execer.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert player key=%s: %w", p.ExternalKey, err)
	}
	return nil
}

func deactivatePlayer(ctx context.Context, execer sqlx.ExtContext, playerID string) error {
	query, args, err := qb.Update("players").
		Set("is_active", false).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("public_id", playerID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build player deactivate query: %w", err)
	}

	if _, err := execer.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deactivate player id=%s: %w", playerID, err)
	}
	return nil
}
