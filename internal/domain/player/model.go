package player

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Player is the single authoritative record for one real person within one
// league. ExternalKey is assigned by the upstream league system and is the
// sole basis for automatic identity matching; it never changes once set.
type Player struct {
	ID          string
	LeagueID    string
	ExternalKey string
	Name        string
	Rating      float64
	Series      string
	SeriesRank  int
	TeamID      string
	IsActive    bool
	FirstSeenAt time.Time
	UpdatedAt   time.Time
}

func (p Player) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("player id is required")
	}
	if p.LeagueID == "" {
		return fmt.Errorf("player league id is required")
	}
	if p.ExternalKey == "" {
		return fmt.Errorf("player external key is required")
	}
	if p.Name == "" {
		return fmt.Errorf("player name is required")
	}

	return nil
}

// TeamStint is one continuous affiliation of a player with a team. A nil
// EndedAt means the stint is still open. Historical team inference reads
// stints: the team in force at a date is the stint covering that date.
type TeamStint struct {
	ID        string
	PlayerID  string
	TeamID    string
	StartedAt time.Time
	EndedAt   *time.Time
}

// Covers reports whether the stint was in force at the given time.
func (s TeamStint) Covers(at time.Time) bool {
	if at.Before(s.StartedAt) {
		return false
	}
	if s.EndedAt == nil {
		return true
	}
	return !at.After(*s.EndedAt)
}

// SubAppearance records one substitute observation: the player filled in
// for the given team at the given time. Substitute observations never
// create a second canonical player.
type SubAppearance struct {
	ID       string
	PlayerID string
	TeamID   string
	SeenAt   time.Time
}

// MergeAudit is one proposed or executed duplicate merge. Dry-run repair
// writes nothing but returns the same rows it would have recorded.
type MergeAudit struct {
	ID          string
	LeagueID    string
	ExternalKey string
	KeptID      string
	DroppedID   string
	DryRun      bool
	PerformedAt time.Time
}

// ParseSeriesRank turns a series/division label into a comparable ordinal.
// Labels come in two shapes: a trailing number ("Series 17", "17") or a
// single-letter division ("I", "Series B"). Returns false for anything else.
func ParseSeriesRank(label string) (int, bool) {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return 0, false
	}

	fields := strings.Fields(trimmed)
	last := fields[len(fields)-1]

	if n, err := strconv.Atoi(last); err == nil && n > 0 {
		return n, true
	}

	if len(last) == 1 {
		c := last[0]
		if c >= 'A' && c <= 'Z' {
			return int(c-'A') + 1, true
		}
	}

	return 0, false
}
