package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rossfreedman/rally-sub003/internal/domain/player"
	qb "github.com/rossfreedman/rally-sub003/internal/platform/querybuilder"
)

type subAppearanceTableModel struct {
	ID       int64     `db:"id"`
	PublicID string    `db:"public_id"`
	PlayerID string    `db:"player_public_id"`
	TeamID   string    `db:"team_public_id"`
	SeenAt   time.Time `db:"seen_at"`
}

type subAppearanceInsertModel struct {
	PublicID string    `db:"public_id"`
	PlayerID string    `db:"player_public_id"`
	TeamID   string    `db:"team_public_id"`
	SeenAt   time.Time `db:"seen_at"`
}

type SubAppearanceRepository struct {
	db *sqlx.DB
}

func NewSubAppearanceRepository(db *sqlx.DB) *SubAppearanceRepository {
	return &SubAppearanceRepository{db: db}
}

// Record is idempotent on (player, team, day): re-observing the same
// substitute appearance keeps the first row.
func (r *SubAppearanceRepository) Record(ctx context.Context, appearance player.SubAppearance) error {
	insertModel := subAppearanceInsertModel{
		PublicID: appearance.ID,
		PlayerID: appearance.PlayerID,
		TeamID:   appearance.TeamID,
		SeenAt:   appearance.SeenAt,
	}

	query, args, err := qb.InsertModel("sub_appearances", insertModel,
		"ON CONFLICT (player_public_id, team_public_id, (seen_at::date)) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build record sub appearance query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record sub appearance player=%s team=%s: %w", appearance.PlayerID, appearance.TeamID, err)
	}
	return nil
}

func (r *SubAppearanceRepository) ListByPlayer(ctx context.Context, playerID string) ([]player.SubAppearance, error) {
	query, args, err := qb.Select("*").From("sub_appearances").
		Where(qb.Eq("player_public_id", playerID)).
		OrderBy("seen_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list sub appearances query: %w", err)
	}

	var rows []subAppearanceTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list sub appearances by player: %w", err)
	}

	out := make([]player.SubAppearance, 0, len(rows))
	for _, row := range rows {
		out = append(out, player.SubAppearance{
			ID:       row.PublicID,
			PlayerID: row.PlayerID,
			TeamID:   row.TeamID,
			SeenAt:   row.SeenAt,
		})
	}
	return out, nil
}

// Repoint moves appearances from a dropped duplicate onto the kept row.
// Rows the kept player already has for the same (team, day) are discarded
// instead of moved.
func (r *SubAppearanceRepository) Repoint(ctx context.Context, fromPlayerID, toPlayerID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sub appearance repoint tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const moveQuery = `
UPDATE sub_appearances AS sa
SET player_public_id = $2
WHERE sa.player_public_id = $1
  AND NOT EXISTS (
    SELECT 1 FROM sub_appearances AS kept
    WHERE kept.player_public_id = $2
      AND kept.team_public_id = sa.team_public_id
      AND kept.seen_at::date = sa.seen_at::date
  )`
	if _, err := tx.ExecContext(ctx, moveQuery, fromPlayerID, toPlayerID); err != nil {
		return fmt.Errorf("repoint sub appearances from=%s to=%s: %w", fromPlayerID, toPlayerID, err)
	}

	const dropQuery = `DELETE FROM sub_appearances WHERE player_public_id = $1`
	if _, err := tx.ExecContext(ctx, dropQuery, fromPlayerID); err != nil {
		return fmt.Errorf("drop leftover sub appearances from=%s: %w", fromPlayerID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sub appearance repoint tx: %w", err)
	}
	return nil
}
