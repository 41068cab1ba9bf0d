package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rossfreedman/rally-sub003/internal/domain/scrape"
	qb "github.com/rossfreedman/rally-sub003/internal/platform/querybuilder"
)

type unresolvedTableModel struct {
	ID        int64     `db:"id"`
	PublicID  string    `db:"public_id"`
	LeagueID  string    `db:"league_public_id"`
	RawName   string    `db:"raw_name"`
	TeamLabel string    `db:"team_label"`
	Reason    string    `db:"reason"`
	SeenAt    time.Time `db:"seen_at"`
}

type unresolvedInsertModel struct {
	PublicID  string    `db:"public_id"`
	LeagueID  string    `db:"league_public_id"`
	RawName   string    `db:"raw_name"`
	TeamLabel string    `db:"team_label"`
	Reason    string    `db:"reason"`
	SeenAt    time.Time `db:"seen_at"`
}

type UnresolvedRepository struct {
	db *sqlx.DB
}

func NewUnresolvedRepository(db *sqlx.DB) *UnresolvedRepository {
	return &UnresolvedRepository{db: db}
}

func (r *UnresolvedRepository) Park(ctx context.Context, rec scrape.UnresolvedRecord) error {
	insertModel := unresolvedInsertModel{
		PublicID:  rec.ID,
		LeagueID:  rec.LeagueID,
		RawName:   rec.RawName,
		TeamLabel: rec.TeamLabel,
		Reason:    rec.Reason,
		SeenAt:    rec.SeenAt,
	}

	query, args, err := qb.InsertModel("unresolved_records", insertModel,
		"ON CONFLICT (league_public_id, raw_name, team_label, (seen_at::date)) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build park unresolved record query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("park unresolved record name=%q: %w", rec.RawName, err)
	}
	return nil
}

func (r *UnresolvedRepository) ListByLeague(ctx context.Context, leagueID string) ([]scrape.UnresolvedRecord, error) {
	query, args, err := qb.Select("*").From("unresolved_records").
		Where(qb.Eq("league_public_id", leagueID)).
		OrderBy("seen_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list unresolved records query: %w", err)
	}

	var rows []unresolvedTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list unresolved records by league: %w", err)
	}

	out := make([]scrape.UnresolvedRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, scrape.UnresolvedRecord{
			ID:        row.PublicID,
			LeagueID:  row.LeagueID,
			RawName:   row.RawName,
			TeamLabel: row.TeamLabel,
			Reason:    row.Reason,
			SeenAt:    row.SeenAt,
		})
	}
	return out, nil
}
