package tracking

import (
	"context"
	"time"
)

// Repository describes tracking persistence needs from use cases. Every
// read takes a team id; a team-less tracking query does not exist in the
// interface by construction.
type Repository interface {
	ListForPlayerTeamOn(ctx context.Context, playerID, teamID string, on time.Time) ([]Record, error)
	ListByTeam(ctx context.Context, teamID string, from, to time.Time) ([]Record, error)
	Upsert(ctx context.Context, r Record) error
	Repoint(ctx context.Context, fromPlayerID, toPlayerID string) error

	// Backfill support: legacy rows carry an empty team id until the
	// scope migration assigns or flags them.
	ListMissingTeam(ctx context.Context) ([]Record, error)
	AssignTeam(ctx context.Context, recordID, teamID string) error
	FlagForReview(ctx context.Context, recordID string) error
}
