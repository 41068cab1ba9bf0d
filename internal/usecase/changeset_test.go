package usecase

import (
	"reflect"
	"testing"
	"time"

	"github.com/rossfreedman/rally-sub003/internal/domain/match"
	"github.com/rossfreedman/rally-sub003/internal/domain/player"
)

func snapshotPlayers() []player.Player {
	return []player.Player{
		{
			ID:          "p-1",
			LeagueID:    "league-1",
			ExternalKey: "nndz-100",
			Name:        "Denise Siegel",
			Rating:      52.5,
			Series:      "Series 17",
			SeriesRank:  17,
			TeamID:      "I",
			IsActive:    true,
		},
		{
			ID:          "p-2",
			LeagueID:    "league-1",
			ExternalKey: "nndz-200",
			Name:        "Mike Lieberman",
			Rating:      61.0,
			Series:      "Series 17",
			SeriesRank:  17,
			TeamID:      "17",
			IsActive:    true,
		},
	}
}

func TestDetectPlayerChangesIsMinimal(t *testing.T) {
	snapshot := snapshotPlayers()
	fetched := snapshotPlayers()
	fetched[0].Rating = 53.1

	cs := DetectPlayerChanges(snapshot, fetched)

	if len(cs.Creates) != 0 || len(cs.Deactivates) != 0 {
		t.Fatalf("expected only updates, got creates=%d deactivates=%d", len(cs.Creates), len(cs.Deactivates))
	}
	if len(cs.Updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(cs.Updates))
	}

	update := cs.Updates[0]
	if update.PlayerID != "p-1" {
		t.Fatalf("expected update for p-1, got %s", update.PlayerID)
	}
	if len(update.Fields) != 1 || update.Fields[0].Field != "rating" {
		t.Fatalf("expected a single rating diff, got %+v", update.Fields)
	}
	if update.Fields[0].From != "52.5" || update.Fields[0].To != "53.1" {
		t.Fatalf("unexpected rating diff values: %+v", update.Fields[0])
	}
}

func TestDetectPlayerChangesIdenticalInputsYieldNothing(t *testing.T) {
	snapshot := snapshotPlayers()

	cs := DetectPlayerChanges(snapshot, snapshot)
	if !cs.Empty() {
		t.Fatalf("expected empty change set, got %+v", cs)
	}
}

func TestDetectPlayerChangesIsDeterministic(t *testing.T) {
	snapshot := snapshotPlayers()
	fetched := []player.Player{
		{ID: "p-9", LeagueID: "league-1", ExternalKey: "nndz-900", Name: "Zoe Adams", IsActive: true},
		{ID: "p-3", LeagueID: "league-1", ExternalKey: "nndz-300", Name: "Amy Brooks", IsActive: true},
	}
	fetched = append(fetched, snapshotPlayers()...)
	fetched[2].TeamID = "12"
	fetched[3].Rating = 59.5

	first := DetectPlayerChanges(snapshot, fetched)
	second := DetectPlayerChanges(snapshot, fetched)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("detector produced different outputs for the same inputs:\nfirst=%+v\nsecond=%+v", first, second)
	}
	if len(first.Creates) != 2 || first.Creates[0].ExternalKey != "nndz-300" {
		t.Fatalf("expected creates sorted by external key, got %+v", first.Creates)
	}
}

func TestDetectPlayerChangesAbsentRowsUntouched(t *testing.T) {
	snapshot := snapshotPlayers()
	fetched := snapshotPlayers()[:1]

	cs := DetectPlayerChanges(snapshot, fetched)
	if !cs.Empty() {
		t.Fatalf("absence from the fetch must not produce operations, got %+v", cs)
	}
}

func TestDetectPlayerChangesSourceFlaggedInactive(t *testing.T) {
	snapshot := snapshotPlayers()
	fetched := snapshotPlayers()
	fetched[1].IsActive = false

	cs := DetectPlayerChanges(snapshot, fetched)
	if len(cs.Deactivates) != 1 || cs.Deactivates[0] != "p-2" {
		t.Fatalf("expected deactivation of p-2, got %+v", cs.Deactivates)
	}
	if len(cs.Creates) != 0 || len(cs.Updates) != 0 {
		t.Fatalf("expected only deactivation, got %+v", cs)
	}
}

func seasonMatch(date string, seq int, participants []string, home, away int) match.Match {
	day, _ := time.Parse("2006-01-02", date)
	return match.Match{
		ID:             "m-" + date,
		LeagueID:       "league-1",
		Season:         "2025-2026",
		MatchDate:      day,
		ParticipantKey: match.ParticipantKey(participants),
		Sequence:       seq,
		HomeScore:      home,
		AwayScore:      away,
		SourceTable:    match.SourceCurrent,
		IsActive:       true,
	}
}

func TestDetectMatchChangesScoreDifferenceIsUpdate(t *testing.T) {
	snapshot := []match.Match{seasonMatch("2026-01-10", 1, []string{"nndz-100", "nndz-200"}, 2, 1)}
	fetched := []match.Match{seasonMatch("2026-01-10", 1, []string{"nndz-200", "nndz-100"}, 2, 3)}

	cs := DetectMatchChanges(snapshot, fetched)
	if len(cs.Creates) != 0 {
		t.Fatalf("participant order must not change identity, got creates=%+v", cs.Creates)
	}
	if len(cs.Updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(cs.Updates))
	}
	if len(cs.Updates[0].Fields) != 1 || cs.Updates[0].Fields[0].Field != "away_score" {
		t.Fatalf("expected a single away_score diff, got %+v", cs.Updates[0].Fields)
	}
}

func TestDetectMatchChangesSameDayDifferentSequence(t *testing.T) {
	snapshot := []match.Match{seasonMatch("2026-01-10", 1, []string{"nndz-100", "nndz-200"}, 2, 1)}
	next := seasonMatch("2026-01-10", 2, []string{"nndz-100", "nndz-200"}, 1, 2)
	next.ID = "m-second"

	cs := DetectMatchChanges(snapshot, []match.Match{next})
	if len(cs.Creates) != 1 {
		t.Fatalf("a different sequence on the same day is a new match, got %+v", cs)
	}
}
