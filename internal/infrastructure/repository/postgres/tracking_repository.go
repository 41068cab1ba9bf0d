package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rossfreedman/rally-sub003/internal/domain/tracking"
	qb "github.com/rossfreedman/rally-sub003/internal/platform/querybuilder"
)

type trackingTableModel struct {
	ID          int64          `db:"id"`
	PublicID    string         `db:"public_id"`
	PlayerID    string         `db:"player_public_id"`
	TeamID      sql.NullString `db:"team_public_id"`
	TrackedOn   time.Time      `db:"tracked_on"`
	Kind        string         `db:"kind"`
	NeedsReview bool           `db:"needs_review"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

type trackingInsertModel struct {
	PublicID    string    `db:"public_id"`
	PlayerID    string    `db:"player_public_id"`
	TeamID      string    `db:"team_public_id"`
	TrackedOn   time.Time `db:"tracked_on"`
	Kind        string    `db:"kind"`
	NeedsReview bool      `db:"needs_review"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// trackingUpsertSuffix keys on (player, team, day, kind): one team's write
// never overwrites another team's row for the same player and date.
const trackingUpsertSuffix = `ON CONFLICT (player_public_id, team_public_id, tracked_on, kind) WHERE team_public_id IS NOT NULL
DO UPDATE SET
    needs_review = EXCLUDED.needs_review,
    updated_at = EXCLUDED.updated_at`

type TrackingRepository struct {
	db *sqlx.DB
}

func NewTrackingRepository(db *sqlx.DB) *TrackingRepository {
	return &TrackingRepository{db: db}
}

func (r *TrackingRepository) ListForPlayerTeamOn(ctx context.Context, playerID, teamID string, on time.Time) ([]tracking.Record, error) {
	query, args, err := qb.Select("*").From("season_tracking").
		Where(
			qb.Eq("player_public_id", playerID),
			qb.Eq("team_public_id", teamID),
			qb.Expr("tracked_on = ?::date", on),
		).
		OrderBy("kind", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list tracking rows query: %w", err)
	}

	var rows []trackingTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list tracking rows for player and team: %w", err)
	}

	return trackingFromRows(rows), nil
}

func (r *TrackingRepository) ListByTeam(ctx context.Context, teamID string, from, to time.Time) ([]tracking.Record, error) {
	query, args, err := qb.Select("*").From("season_tracking").
		Where(
			qb.Eq("team_public_id", teamID),
			qb.Gte("tracked_on", from),
			qb.Lte("tracked_on", to),
		).
		OrderBy("tracked_on", "player_public_id", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list team tracking rows query: %w", err)
	}

	var rows []trackingTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list tracking rows by team: %w", err)
	}

	return trackingFromRows(rows), nil
}

func (r *TrackingRepository) Upsert(ctx context.Context, rec tracking.Record) error {
	insertModel := trackingInsertModel{
		PublicID:    rec.ID,
		PlayerID:    rec.PlayerID,
		TeamID:      rec.TeamID,
		TrackedOn:   rec.TrackedOn,
		Kind:        string(rec.Kind),
		NeedsReview: rec.NeedsReview,
		UpdatedAt:   rec.UpdatedAt,
	}

	query, args, err := qb.InsertModel("season_tracking", insertModel, trackingUpsertSuffix)
	if err != nil {
		return fmt.Errorf("build tracking upsert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert tracking row player=%s team=%s: %w", rec.PlayerID, rec.TeamID, err)
	}
	return nil
}

// Repoint moves tracking rows from a dropped duplicate onto the kept row.
// Rows the kept player already has for the same key are discarded.
func (r *TrackingRepository) Repoint(ctx context.Context, fromPlayerID, toPlayerID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tracking repoint tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const moveQuery = `
UPDATE season_tracking AS st
SET player_public_id = $2
WHERE st.player_public_id = $1
  AND NOT EXISTS (
    SELECT 1 FROM season_tracking AS kept
    WHERE kept.player_public_id = $2
      AND kept.team_public_id IS NOT DISTINCT FROM st.team_public_id
      AND kept.tracked_on = st.tracked_on
      AND kept.kind = st.kind
  )`
	if _, err := tx.ExecContext(ctx, moveQuery, fromPlayerID, toPlayerID); err != nil {
		return fmt.Errorf("repoint tracking rows from=%s to=%s: %w", fromPlayerID, toPlayerID, err)
	}

	const dropQuery = `DELETE FROM season_tracking WHERE player_public_id = $1`
	if _, err := tx.ExecContext(ctx, dropQuery, fromPlayerID); err != nil {
		return fmt.Errorf("drop leftover tracking rows from=%s: %w", fromPlayerID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tracking repoint tx: %w", err)
	}
	return nil
}

func (r *TrackingRepository) ListMissingTeam(ctx context.Context) ([]tracking.Record, error) {
	query, args, err := qb.Select("*").From("season_tracking").
		Where(qb.IsNull("team_public_id")).
		OrderBy("public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list team-less tracking rows query: %w", err)
	}

	var rows []trackingTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list team-less tracking rows: %w", err)
	}

	return trackingFromRows(rows), nil
}

func (r *TrackingRepository) AssignTeam(ctx context.Context, recordID, teamID string) error {
	query, args, err := qb.Update("season_tracking").
		Set("team_public_id", teamID).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("public_id", recordID),
			qb.IsNull("team_public_id"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build assign team query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("assign team to tracking row id=%s: %w", recordID, err)
	}
	return nil
}

func (r *TrackingRepository) FlagForReview(ctx context.Context, recordID string) error {
	query, args, err := qb.Update("season_tracking").
		Set("needs_review", true).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("public_id", recordID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build flag for review query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("flag tracking row id=%s: %w", recordID, err)
	}
	return nil
}

func trackingFromRows(rows []trackingTableModel) []tracking.Record {
	out := make([]tracking.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, tracking.Record{
			ID:          row.PublicID,
			PlayerID:    row.PlayerID,
			TeamID:      row.TeamID.String,
			TrackedOn:   row.TrackedOn,
			Kind:        tracking.Kind(row.Kind),
			NeedsReview: row.NeedsReview,
			UpdatedAt:   row.UpdatedAt,
		})
	}
	return out
}
