package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rossfreedman/rally-sub003/internal/domain/player"
	qb "github.com/rossfreedman/rally-sub003/internal/platform/querybuilder"
)

type mergeAuditTableModel struct {
	ID          int64     `db:"id"`
	PublicID    string    `db:"public_id"`
	LeagueID    string    `db:"league_public_id"`
	ExternalKey string    `db:"external_key"`
	KeptID      string    `db:"kept_player_public_id"`
	DroppedID   string    `db:"dropped_player_public_id"`
	DryRun      bool      `db:"dry_run"`
	PerformedAt time.Time `db:"performed_at"`
}

type mergeAuditInsertModel struct {
	PublicID    string    `db:"public_id"`
	LeagueID    string    `db:"league_public_id"`
	ExternalKey string    `db:"external_key"`
	KeptID      string    `db:"kept_player_public_id"`
	DroppedID   string    `db:"dropped_player_public_id"`
	DryRun      bool      `db:"dry_run"`
	PerformedAt time.Time `db:"performed_at"`
}

type MergeAuditRepository struct {
	db *sqlx.DB
}

func NewMergeAuditRepository(db *sqlx.DB) *MergeAuditRepository {
	return &MergeAuditRepository{db: db}
}

func (r *MergeAuditRepository) Record(ctx context.Context, audit player.MergeAudit) error {
	insertModel := mergeAuditInsertModel{
		PublicID:    audit.ID,
		LeagueID:    audit.LeagueID,
		ExternalKey: audit.ExternalKey,
		KeptID:      audit.KeptID,
		DroppedID:   audit.DroppedID,
		DryRun:      audit.DryRun,
		PerformedAt: audit.PerformedAt,
	}

	query, args, err := qb.InsertModel("merge_audits", insertModel, "")
	if err != nil {
		return fmt.Errorf("build record merge audit query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record merge audit kept=%s dropped=%s: %w", audit.KeptID, audit.DroppedID, err)
	}
	return nil
}

func (r *MergeAuditRepository) ListByLeague(ctx context.Context, leagueID string) ([]player.MergeAudit, error) {
	query, args, err := qb.Select("*").From("merge_audits").
		Where(qb.Eq("league_public_id", leagueID)).
		OrderBy("performed_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list merge audits query: %w", err)
	}

	var rows []mergeAuditTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list merge audits by league: %w", err)
	}

	out := make([]player.MergeAudit, 0, len(rows))
	for _, row := range rows {
		out = append(out, player.MergeAudit{
			ID:          row.PublicID,
			LeagueID:    row.LeagueID,
			ExternalKey: row.ExternalKey,
			KeptID:      row.KeptID,
			DroppedID:   row.DroppedID,
			DryRun:      row.DryRun,
			PerformedAt: row.PerformedAt,
		})
	}
	return out, nil
}
