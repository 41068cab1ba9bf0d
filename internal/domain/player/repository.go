package player

import (
	"context"
	"time"
)

// Repository describes canonical-player persistence needs from use cases.
// Upsert keys on (league, external key) among active rows, so re-resolving
// the same record is a no-op rather than a duplicate.
type Repository interface {
	ListActiveByLeague(ctx context.Context, leagueID string) ([]Player, error)
	GetActiveByKey(ctx context.Context, leagueID, externalKey string) (Player, bool, error)
	ListActiveByKey(ctx context.Context, leagueID, externalKey string) ([]Player, error)
	GetByID(ctx context.Context, playerID string) (Player, bool, error)
	Upsert(ctx context.Context, p Player) error
	Deactivate(ctx context.Context, playerID string) error
}

// StintRepository persists team affiliation history. A player has at most
// one open stint; Open is a no-op while one exists, so callers close the
// current stint first when the team changed.
type StintRepository interface {
	ListByPlayer(ctx context.Context, playerID string) ([]TeamStint, error)
	ListCovering(ctx context.Context, playerID string, at time.Time) ([]TeamStint, error)
	Open(ctx context.Context, stint TeamStint) error
	CloseOpen(ctx context.Context, playerID string, at time.Time) error
}

// SubAppearanceRepository persists substitute observations.
type SubAppearanceRepository interface {
	Record(ctx context.Context, appearance SubAppearance) error
	ListByPlayer(ctx context.Context, playerID string) ([]SubAppearance, error)
	Repoint(ctx context.Context, fromPlayerID, toPlayerID string) error
}

// MergeAuditRepository persists the audit trail of duplicate merges.
type MergeAuditRepository interface {
	Record(ctx context.Context, audit MergeAudit) error
	ListByLeague(ctx context.Context, leagueID string) ([]MergeAudit, error)
}
