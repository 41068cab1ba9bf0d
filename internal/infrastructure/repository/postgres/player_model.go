package postgres

import (
	"time"

	"github.com/rossfreedman/rally-sub003/internal/domain/player"
)

type playerTableModel struct {
	ID          int64     `db:"id"`
	PublicID    string    `db:"public_id"`
	LeagueID    string    `db:"league_public_id"`
	ExternalKey string    `db:"external_key"`
	Name        string    `db:"name"`
	Rating      float64   `db:"rating"`
	Series      string    `db:"series"`
	SeriesRank  int       `db:"series_rank"`
	TeamID      string    `db:"team_public_id"`
	IsActive    bool      `db:"is_active"`
	FirstSeenAt time.Time `db:"first_seen_at"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type playerInsertModel struct {
	PublicID    string    `db:"public_id"`
	LeagueID    string    `db:"league_public_id"`
	ExternalKey string    `db:"external_key"`
	Name        string    `db:"name"`
	Rating      float64   `db:"rating"`
	Series      string    `db:"series"`
	SeriesRank  int       `db:"series_rank"`
	TeamID      string    `db:"team_public_id"`
	IsActive    bool      `db:"is_active"`
	FirstSeenAt time.Time `db:"first_seen_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func playerFromRow(row playerTableModel) player.Player {
	return player.Player{
		ID:          row.PublicID,
		LeagueID:    row.LeagueID,
		ExternalKey: row.ExternalKey,
		Name:        row.Name,
		Rating:      row.Rating,
		Series:      row.Series,
		SeriesRank:  row.SeriesRank,
		TeamID:      row.TeamID,
		IsActive:    row.IsActive,
		FirstSeenAt: row.FirstSeenAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func playerToInsertModel(p player.Player) playerInsertModel {
	return playerInsertModel{
		PublicID:    p.ID,
		LeagueID:    p.LeagueID,
		ExternalKey: p.ExternalKey,
		Name:        p.Name,
		Rating:      p.Rating,
		Series:      p.Series,
		SeriesRank:  p.SeriesRank,
		TeamID:      p.TeamID,
		IsActive:    p.IsActive,
		FirstSeenAt: p.FirstSeenAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
