package scrape

import "context"

// UnresolvedRepository parks raw records that could not be resolved to a
// canonical player. Parked rows are audit data, never merge candidates.
type UnresolvedRepository interface {
	Park(ctx context.Context, rec UnresolvedRecord) error
	ListByLeague(ctx context.Context, leagueID string) ([]UnresolvedRecord, error)
}
