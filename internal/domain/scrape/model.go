package scrape

import "time"

// RawPlayerRecord is one scraped observation of a player. Records are
// consumed by the identity resolver within the same run and are never
// persisted as identities of their own.
type RawPlayerRecord struct {
	RawName     string
	ExternalKey string
	LeagueLabel string
	TeamLabel   string
	Rating      *float64
	Series      string
	Inactive    bool
	ScrapedAt   time.Time
}

// RawMatchRecord is one scraped completed-match observation.
type RawMatchRecord struct {
	LeagueLabel string
	Season      string
	MatchDate   time.Time
	HomePlayers []string
	AwayPlayers []string
	Sequence    int
	HomeScore   int
	AwayScore   int
	SourceTable string
	Inactive    bool
}

// RawTrackingRecord is one scraped tracking observation (bye, unavailable,
// injured) for a player on a date. TeamLabel may be empty on legacy feeds;
// such rows go through the team-scope backfill before they are queryable.
type RawTrackingRecord struct {
	LeagueLabel string
	ExternalKey string
	TeamLabel   string
	TrackedOn   time.Time
	Kind        string
}

// UnresolvedRecord is the parked form of a raw record that could not be
// resolved to a canonical player. Kept for audit, excluded from merging.
type UnresolvedRecord struct {
	ID        string
	LeagueID  string
	RawName   string
	TeamLabel string
	Reason    string
	SeenAt    time.Time
}
