package subrequest

import (
	"fmt"
	"time"
)

// Request is a posted substitute opportunity with inclusive numeric
// eligibility ranges for rating and series rank.
type Request struct {
	ID        string
	LeagueID  string
	TeamID    string
	RatingMin float64
	RatingMax float64
	SeriesMin int
	SeriesMax int
	Capacity  int
	PlayedOn  time.Time
	CreatedAt time.Time
}

func (r Request) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("sub request id is required")
	}
	if r.LeagueID == "" {
		return fmt.Errorf("sub request league id is required")
	}
	if r.TeamID == "" {
		return fmt.Errorf("sub request team id is required")
	}
	if r.RatingMin > r.RatingMax {
		return fmt.Errorf("sub request rating range is inverted")
	}
	if r.SeriesMin > r.SeriesMax {
		return fmt.Errorf("sub request series range is inverted")
	}
	if r.Capacity <= 0 {
		return fmt.Errorf("sub request capacity must be greater than zero")
	}

	return nil
}

// Join is one admitted player on a request. (RequestID, PlayerID) is unique.
type Join struct {
	ID        string
	RequestID string
	PlayerID  string
	CreatedAt time.Time
}
