package match

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	SourceCurrent = "current"
	SourcePrior   = "prior"
)

// Match is one completed match observation within a season scope. It is
// uniquely identified by (league, season, date, participants, sequence);
// re-ingesting the same scrape must not create a second row.
type Match struct {
	ID             string
	LeagueID       string
	Season         string
	MatchDate      time.Time
	ParticipantKey string
	Sequence       int
	HomeScore      int
	AwayScore      int
	SourceTable    string
	IsActive       bool
	UpdatedAt      time.Time
}

func (m Match) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("match id is required")
	}
	if m.LeagueID == "" {
		return fmt.Errorf("match league id is required")
	}
	if m.Season == "" {
		return fmt.Errorf("match season is required")
	}
	if m.ParticipantKey == "" {
		return fmt.Errorf("match participant key is required")
	}
	if m.SourceTable != SourceCurrent && m.SourceTable != SourcePrior {
		return fmt.Errorf("invalid match source table: %s", m.SourceTable)
	}

	return nil
}

// IdentityKey is the scope-relative matching key: same key means same match,
// so a score difference is an update, never a second row.
func (m Match) IdentityKey() string {
	return fmt.Sprintf("%s|%d|%s", m.MatchDate.Format("2006-01-02"), m.Sequence, m.ParticipantKey)
}

// ParticipantKey composes the canonical ordered participant set from player
// ids. Ordering is by value so the key is independent of scrape order.
func ParticipantKey(playerIDs []string) string {
	ids := make([]string, 0, len(playerIDs))
	for _, id := range playerIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return strings.Join(ids, "|")
}
