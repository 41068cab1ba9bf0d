package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rossfreedman/rally-sub003/internal/domain/subrequest"
	qb "github.com/rossfreedman/rally-sub003/internal/platform/querybuilder"
)

type subRequestTableModel struct {
	ID        int64     `db:"id"`
	PublicID  string    `db:"public_id"`
	LeagueID  string    `db:"league_public_id"`
	TeamID    string    `db:"team_public_id"`
	RatingMin float64   `db:"rating_min"`
	RatingMax float64   `db:"rating_max"`
	SeriesMin int       `db:"series_min"`
	SeriesMax int       `db:"series_max"`
	Capacity  int       `db:"capacity"`
	PlayedOn  time.Time `db:"played_on"`
	CreatedAt time.Time `db:"created_at"`
}

type subRequestJoinTableModel struct {
	ID        int64     `db:"id"`
	PublicID  string    `db:"public_id"`
	RequestID string    `db:"request_public_id"`
	PlayerID  string    `db:"player_public_id"`
	CreatedAt time.Time `db:"created_at"`
}

type subRequestJoinInsertModel struct {
	PublicID  string    `db:"public_id"`
	RequestID string    `db:"request_public_id"`
	PlayerID  string    `db:"player_public_id"`
	CreatedAt time.Time `db:"created_at"`
}

type SubRequestRepository struct {
	db *sqlx.DB
}

func NewSubRequestRepository(db *sqlx.DB) *SubRequestRepository {
	return &SubRequestRepository{db: db}
}

func (r *SubRequestRepository) GetByID(ctx context.Context, requestID string) (subrequest.Request, bool, error) {
	query, args, err := qb.Select("*").From("sub_requests").
		Where(qb.Eq("public_id", requestID)).
		ToSQL()
	if err != nil {
		return subrequest.Request{}, false, fmt.Errorf("build get sub request query: %w", err)
	}

	var row subRequestTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return subrequest.Request{}, false, nil
		}
		return subrequest.Request{}, false, fmt.Errorf("get sub request by id: %w", err)
	}

	return subrequest.Request{
		ID:        row.PublicID,
		LeagueID:  row.LeagueID,
		TeamID:    row.TeamID,
		RatingMin: row.RatingMin,
		RatingMax: row.RatingMax,
		SeriesMin: row.SeriesMin,
		SeriesMax: row.SeriesMax,
		Capacity:  row.Capacity,
		PlayedOn:  row.PlayedOn,
		CreatedAt: row.CreatedAt,
	}, true, nil
}

func (r *SubRequestRepository) CountJoins(ctx context.Context, requestID string) (int, error) {
	query, args, err := qb.Select("COUNT(1)").From("sub_request_joins").
		Where(qb.Eq("request_public_id", requestID)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count joins query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count joins: %w", err)
	}
	return count, nil
}

func (r *SubRequestRepository) HasJoin(ctx context.Context, requestID, playerID string) (bool, error) {
	query, args, err := qb.Select("COUNT(1)").From("sub_request_joins").
		Where(
			qb.Eq("request_public_id", requestID),
			qb.Eq("player_public_id", playerID),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build has join query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("check existing join: %w", err)
	}
	return count > 0, nil
}

func (r *SubRequestRepository) AddJoin(ctx context.Context, j subrequest.Join) error {
	insertModel := subRequestJoinInsertModel{
		PublicID:  j.ID,
		RequestID: j.RequestID,
		PlayerID:  j.PlayerID,
		CreatedAt: j.CreatedAt,
	}

	query, args, err := qb.InsertModel("sub_request_joins", insertModel,
		"ON CONFLICT (request_public_id, player_public_id) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build add join query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("add join request=%s player=%s: %w", j.RequestID, j.PlayerID, err)
	}
	return nil
}

func (r *SubRequestRepository) ListJoins(ctx context.Context, requestID string) ([]subrequest.Join, error) {
	query, args, err := qb.Select("*").From("sub_request_joins").
		Where(qb.Eq("request_public_id", requestID)).
		OrderBy("player_public_id", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list joins query: %w", err)
	}

	var rows []subRequestJoinTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list joins: %w", err)
	}

	out := make([]subrequest.Join, 0, len(rows))
	for _, row := range rows {
		out = append(out, subrequest.Join{
			ID:        row.PublicID,
			RequestID: row.RequestID,
			PlayerID:  row.PlayerID,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}
