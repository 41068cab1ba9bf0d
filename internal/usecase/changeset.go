package usecase

import (
	"sort"
	"strconv"

	"github.com/rossfreedman/rally-sub003/internal/domain/match"
	"github.com/rossfreedman/rally-sub003/internal/domain/player"
)

// FieldChange is one changed field on an update operation. Values are
// rendered as strings so a diff row is printable and comparable as-is.
type FieldChange struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// PlayerUpdate re-states the full target row plus the minimal field diff
// that produced it. Fields follows a fixed order so two detector runs over
// the same inputs emit byte-identical output.
type PlayerUpdate struct {
	PlayerID string        `json:"player_id"`
	After    player.Player `json:"-"`
	Fields   []FieldChange `json:"fields"`
}

// PlayerChangeSet is the minimal operation list for one league snapshot.
// Entities absent from the fetch are never deactivated; only rows the
// source explicitly flags inactive produce a Deactivates entry.
type PlayerChangeSet struct {
	Creates     []player.Player `json:"-"`
	Updates     []PlayerUpdate  `json:"updates"`
	Deactivates []string        `json:"deactivates"`
}

func (cs PlayerChangeSet) Empty() bool {
	return len(cs.Creates) == 0 && len(cs.Updates) == 0 && len(cs.Deactivates) == 0
}

// DetectPlayerChanges compares the persisted snapshot against the freshly
// fetched rows for the same league. Matching key is the external identity
// key. Output ordering is by key, so the detector is deterministic.
func DetectPlayerChanges(snapshot, fetched []player.Player) PlayerChangeSet {
	byKey := make(map[string]player.Player, len(snapshot))
	for _, p := range snapshot {
		byKey[p.ExternalKey] = p
	}

	var cs PlayerChangeSet
	seen := make(map[string]struct{}, len(fetched))
	for _, next := range fetched {
		if next.ExternalKey == "" {
			continue
		}
		if _, dup := seen[next.ExternalKey]; dup {
			continue
		}
		seen[next.ExternalKey] = struct{}{}

		current, ok := byKey[next.ExternalKey]
		if !ok {
			if !next.IsActive {
				continue
			}
			cs.Creates = append(cs.Creates, next)
			continue
		}

		if current.IsActive && !next.IsActive {
			cs.Deactivates = append(cs.Deactivates, current.ID)
			continue
		}

		fields := diffPlayerFields(current, next)
		if len(fields) == 0 {
			continue
		}

		after := current
		after.Name = next.Name
		after.TeamID = next.TeamID
		after.Rating = next.Rating
		after.Series = next.Series
		after.SeriesRank = next.SeriesRank
		cs.Updates = append(cs.Updates, PlayerUpdate{
			PlayerID: current.ID,
			After:    after,
			Fields:   fields,
		})
	}

	sort.SliceStable(cs.Creates, func(i, j int) bool {
		return cs.Creates[i].ExternalKey < cs.Creates[j].ExternalKey
	})
	sort.SliceStable(cs.Updates, func(i, j int) bool {
		return cs.Updates[i].After.ExternalKey < cs.Updates[j].After.ExternalKey
	})
	sort.Strings(cs.Deactivates)
	return cs
}

// diffPlayerFields compares mutable fields one by one in a fixed order.
// Value equality per field keeps a single changed rating from dragging the
// whole row into the diff.
func diffPlayerFields(current, next player.Player) []FieldChange {
	var out []FieldChange
	if current.Name != next.Name {
		out = append(out, FieldChange{Field: "name", From: current.Name, To: next.Name})
	}
	if current.TeamID != next.TeamID {
		out = append(out, FieldChange{Field: "team_id", From: current.TeamID, To: next.TeamID})
	}
	if current.Rating != next.Rating {
		out = append(out, FieldChange{
			Field: "rating",
			From:  strconv.FormatFloat(current.Rating, 'f', -1, 64),
			To:    strconv.FormatFloat(next.Rating, 'f', -1, 64),
		})
	}
	if current.Series != next.Series {
		out = append(out, FieldChange{Field: "series", From: current.Series, To: next.Series})
	}
	if current.SeriesRank != next.SeriesRank {
		out = append(out, FieldChange{
			Field: "series_rank",
			From:  strconv.Itoa(current.SeriesRank),
			To:    strconv.Itoa(next.SeriesRank),
		})
	}
	return out
}

// MatchUpdate mirrors PlayerUpdate for season matches.
type MatchUpdate struct {
	MatchID string        `json:"match_id"`
	After   match.Match   `json:"-"`
	Fields  []FieldChange `json:"fields"`
}

type MatchChangeSet struct {
	Creates     []match.Match `json:"-"`
	Updates     []MatchUpdate `json:"updates"`
	Deactivates []string      `json:"deactivates"`
}

func (cs MatchChangeSet) Empty() bool {
	return len(cs.Creates) == 0 && len(cs.Updates) == 0 && len(cs.Deactivates) == 0
}

// DetectMatchChanges compares the persisted season snapshot against freshly
// fetched match rows for the same (league, season). Matching key is
// (date, sequence, participants); a score difference is an update, never a
// second row.
func DetectMatchChanges(snapshot, fetched []match.Match) MatchChangeSet {
	byKey := make(map[string]match.Match, len(snapshot))
	for _, m := range snapshot {
		byKey[m.IdentityKey()] = m
	}

	var cs MatchChangeSet
	seen := make(map[string]struct{}, len(fetched))
	for _, next := range fetched {
		key := next.IdentityKey()
		if next.ParticipantKey == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		current, ok := byKey[key]
		if !ok {
			if !next.IsActive {
				continue
			}
			cs.Creates = append(cs.Creates, next)
			continue
		}

		if current.IsActive && !next.IsActive {
			cs.Deactivates = append(cs.Deactivates, current.ID)
			continue
		}

		fields := diffMatchFields(current, next)
		if len(fields) == 0 {
			continue
		}

		after := current
		after.HomeScore = next.HomeScore
		after.AwayScore = next.AwayScore
		after.SourceTable = next.SourceTable
		cs.Updates = append(cs.Updates, MatchUpdate{
			MatchID: current.ID,
			After:   after,
			Fields:  fields,
		})
	}

	sort.SliceStable(cs.Creates, func(i, j int) bool {
		return cs.Creates[i].IdentityKey() < cs.Creates[j].IdentityKey()
	})
	sort.SliceStable(cs.Updates, func(i, j int) bool {
		return cs.Updates[i].After.IdentityKey() < cs.Updates[j].After.IdentityKey()
	})
	sort.Strings(cs.Deactivates)
	return cs
}

func diffMatchFields(current, next match.Match) []FieldChange {
	var out []FieldChange
	if current.HomeScore != next.HomeScore {
		out = append(out, FieldChange{
			Field: "home_score",
			From:  strconv.Itoa(current.HomeScore),
			To:    strconv.Itoa(next.HomeScore),
		})
	}
	if current.AwayScore != next.AwayScore {
		out = append(out, FieldChange{
			Field: "away_score",
			From:  strconv.Itoa(current.AwayScore),
			To:    strconv.Itoa(next.AwayScore),
		})
	}
	if current.SourceTable != next.SourceTable {
		out = append(out, FieldChange{Field: "source_table", From: current.SourceTable, To: next.SourceTable})
	}
	return out
}
