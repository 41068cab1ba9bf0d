package match

import "context"

// Repository describes season-match persistence needs from use cases.
type Repository interface {
	ListBySeason(ctx context.Context, leagueID, season string) ([]Match, error)
	Upsert(ctx context.Context, m Match) error
	Deactivate(ctx context.Context, matchID string) error
}
