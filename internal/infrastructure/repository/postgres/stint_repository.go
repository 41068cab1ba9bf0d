package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rossfreedman/rally-sub003/internal/domain/player"
	qb "github.com/rossfreedman/rally-sub003/internal/platform/querybuilder"
)

type stintTableModel struct {
	ID        int64      `db:"id"`
	PublicID  string     `db:"public_id"`
	PlayerID  string     `db:"player_public_id"`
	TeamID    string     `db:"team_public_id"`
	StartedAt time.Time  `db:"started_at"`
	EndedAt   *time.Time `db:"ended_at"`
	CreatedAt time.Time  `db:"created_at"`
}

type stintInsertModel struct {
	PublicID  string     `db:"public_id"`
	PlayerID  string     `db:"player_public_id"`
	TeamID    string     `db:"team_public_id"`
	StartedAt time.Time  `db:"started_at"`
	EndedAt   *time.Time `db:"ended_at"`
}

type StintRepository struct {
	db *sqlx.DB
}

func NewStintRepository(db *sqlx.DB) *StintRepository {
	return &StintRepository{db: db}
}

func (r *StintRepository) ListByPlayer(ctx context.Context, playerID string) ([]player.TeamStint, error) {
	query, args, err := qb.Select("*").From("player_team_stints").
		Where(qb.Eq("player_public_id", playerID)).
		OrderBy("started_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list stints query: %w", err)
	}

	var rows []stintTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list stints by player: %w", err)
	}

	return stintsFromRows(rows), nil
}

// ListCovering returns the stints in force at the given time. One row means
// the team is unambiguous; zero or several mean the caller must flag.
func (r *StintRepository) ListCovering(ctx context.Context, playerID string, at time.Time) ([]player.TeamStint, error) {
	query, args, err := qb.Select("*").From("player_team_stints").
		Where(
			qb.Eq("player_public_id", playerID),
			qb.Lte("started_at", at),
			qb.Expr("(ended_at IS NULL OR ended_at >= ?)", at),
		).
		OrderBy("started_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list covering stints query: %w", err)
	}

	var rows []stintTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list covering stints: %w", err)
	}

	return stintsFromRows(rows), nil
}

func (r *StintRepository) Open(ctx context.Context, stint player.TeamStint) error {
	insertModel := stintInsertModel{
		PublicID:  stint.ID,
		PlayerID:  stint.PlayerID,
		TeamID:    stint.TeamID,
		StartedAt: stint.StartedAt,
		EndedAt:   stint.EndedAt,
	}

	// The conflict target is the one-open-stint-per-player partial index,
	// so replaying an open is a no-op instead of a duplicate interval.
	query, args, err := qb.InsertModel("player_team_stints", insertModel,
		"ON CONFLICT (player_public_id) WHERE ended_at IS NULL DO NOTHING")
	if err != nil {
		return fmt.Errorf("build open stint query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("open stint player=%s team=%s: %w", stint.PlayerID, stint.TeamID, err)
	}
	return nil
}

func (r *StintRepository) CloseOpen(ctx context.Context, playerID string, at time.Time) error {
	query, args, err := qb.Update("player_team_stints").
		Set("ended_at", at).
		Where(
			qb.Eq("player_public_id", playerID),
			qb.IsNull("ended_at"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build close stint query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("close open stint player=%s: %w", playerID, err)
	}
	return nil
}

func stintsFromRows(rows []stintTableModel) []player.TeamStint {
	out := make([]player.TeamStint, 0, len(rows))
	for _, row := range rows {
		out = append(out, player.TeamStint{
			ID:        row.PublicID,
			PlayerID:  row.PlayerID,
			TeamID:    row.TeamID,
			StartedAt: row.StartedAt,
			EndedAt:   row.EndedAt,
		})
	}
	return out
}
