package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rossfreedman/rally-sub003/internal/domain/match"
	qb "github.com/rossfreedman/rally-sub003/internal/platform/querybuilder"
)

type matchTableModel struct {
	ID             int64     `db:"id"`
	PublicID       string    `db:"public_id"`
	LeagueID       string    `db:"league_public_id"`
	Season         string    `db:"season"`
	MatchDate      time.Time `db:"match_date"`
	ParticipantKey string    `db:"participant_key"`
	Sequence       int       `db:"sequence"`
	HomeScore      int       `db:"home_score"`
	AwayScore      int       `db:"away_score"`
	SourceTable    string    `db:"source_table"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

type matchInsertModel struct {
	PublicID       string    `db:"public_id"`
	LeagueID       string    `db:"league_public_id"`
	Season         string    `db:"season"`
	MatchDate      time.Time `db:"match_date"`
	ParticipantKey string    `db:"participant_key"`
	Sequence       int       `db:"sequence"`
	HomeScore      int       `db:"home_score"`
	AwayScore      int       `db:"away_score"`
	SourceTable    string    `db:"source_table"`
	IsActive       bool      `db:"is_active"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// matchUpsertSuffix keys on the scope-relative identity, so re-ingesting
// the same match updates scores in place. public_id stays as first written.
const matchUpsertSuffix = `ON CONFLICT (league_public_id, season, match_date, sequence, participant_key)
DO UPDATE SET
    home_score = EXCLUDED.home_score,
    away_score = EXCLUDED.away_score,
    source_table = EXCLUDED.source_table,
    is_active = EXCLUDED.is_active,
    updated_at = EXCLUDED.updated_at`

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) ListBySeason(ctx context.Context, leagueID, season string) ([]match.Match, error) {
	query, args, err := qb.Select("*").From("season_matches").
		Where(
			qb.Eq("league_public_id", leagueID),
			qb.Eq("season", season),
			qb.Eq("is_active", true),
		).
		OrderBy("match_date", "sequence", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select season matches query: %w", err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select season matches: %w", err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, matchFromRow(row))
	}
	return out, nil
}

func (r *MatchRepository) Upsert(ctx context.Context, m match.Match) error {
	return upsertMatch(ctx, r.db, m)
}

func (r *MatchRepository) Deactivate(ctx context.Context, matchID string) error {
	return deactivateMatch(ctx, r.db, matchID)
}

// UpsertMany applies one chunk of match upserts in a single transaction.
func (r *MatchRepository) UpsertMany(ctx context.Context, items []match.Match) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin match upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, item := range items {
		if err := upsertMatch(ctx, tx, item); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit match upsert tx: %w", err)
	}
	return nil
}

// DeactivateMany applies one chunk of deactivations in a single transaction.
func (r *MatchRepository) DeactivateMany(ctx context.Context, matchIDs []string) error {
	if len(matchIDs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin match deactivate tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, matchID := range matchIDs {
		if err := deactivateMatch(ctx, tx, matchID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit match deactivate tx: %w", err)
	}
	return nil
}

func upsertMatch(ctx context.Context, execer sqlx.ExtContext, m match.Match) error {
	insertModel := matchInsertModel{
		PublicID:       m.ID,
		LeagueID:       m.LeagueID,
		Season:         m.Season,
		MatchDate:      m.MatchDate,
		ParticipantKey: m.ParticipantKey,
		Sequence:       m.Sequence,
		HomeScore:      m.HomeScore,
		AwayScore:      m.AwayScore,
		SourceTable:    m.SourceTable,
		IsActive:       m.IsActive,
		UpdatedAt:      m.UpdatedAt,
	}

	query, args, err := qb.InsertModel("season_matches", insertModel, matchUpsertSuffix)
	if err != nil {
		return fmt.Errorf("build match upsert query: %w", err)
	}

	if _, err := execer.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert match id=%s: %w", m.ID, err)
	}
	return nil
}

func deactivateMatch(ctx context.Context, execer sqlx.ExtContext, matchID string) error {
	query, args, err := qb.Update("season_matches").
		Set("is_active", false).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("public_id", matchID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build match deactivate query: %w", err)
	}

	if _, err := execer.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deactivate match id=%s: %w", matchID, err)
	}
	return nil
}

func matchFromRow(row matchTableModel) match.Match {
	return match.Match{
		ID:             row.PublicID,
		LeagueID:       row.LeagueID,
		Season:         row.Season,
		MatchDate:      row.MatchDate,
		ParticipantKey: row.ParticipantKey,
		Sequence:       row.Sequence,
		HomeScore:      row.HomeScore,
		AwayScore:      row.AwayScore,
		SourceTable:    row.SourceTable,
		IsActive:       row.IsActive,
		UpdatedAt:      row.UpdatedAt,
	}
}
