package tracking

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the tracking status recorded for a player on a date.
type Kind string

const (
	KindNone        Kind = "none"
	KindForcedBye   Kind = "forced_bye"
	KindUnavailable Kind = "unavailable"
	KindInjured     Kind = "injured"
)

var allKinds = map[Kind]struct{}{
	KindNone:        {},
	KindForcedBye:   {},
	KindUnavailable: {},
	KindInjured:     {},
}

// ParseKind maps a feed status label to a Kind.
func ParseKind(value string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := allKinds[k]; !ok {
		return "", fmt.Errorf("unknown tracking kind: %s", value)
	}
	return k, nil
}

// Record is one per-player, per-team, per-date tracking entry. TeamID is
// mandatory: the unique key is (player, team, date, kind), so the same
// person's tracking on two teams never collides. NeedsReview marks legacy
// rows whose team could not be inferred during the scope backfill.
type Record struct {
	ID          string
	PlayerID    string
	TeamID      string
	TrackedOn   time.Time
	Kind        Kind
	NeedsReview bool
	UpdatedAt   time.Time
}

func (r Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("tracking record id is required")
	}
	if r.PlayerID == "" {
		return fmt.Errorf("tracking player id is required")
	}
	if r.TeamID == "" {
		return fmt.Errorf("tracking team id is required")
	}
	if _, ok := allKinds[r.Kind]; !ok {
		return fmt.Errorf("invalid tracking kind: %s", r.Kind)
	}

	return nil
}
