package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/rossfreedman/rally-sub003/internal/domain/player"
	"github.com/rossfreedman/rally-sub003/internal/domain/subrequest"
	"github.com/rossfreedman/rally-sub003/internal/infrastructure/repository/memory"
	"github.com/rossfreedman/rally-sub003/internal/platform/cache"
	idgen "github.com/rossfreedman/rally-sub003/internal/platform/id"
	"github.com/rossfreedman/rally-sub003/internal/platform/logging"
)

func eligibilityRequest() subrequest.Request {
	return subrequest.Request{
		ID:        "req-1",
		LeagueID:  "league-1",
		TeamID:    "17",
		RatingMin: 55.0,
		RatingMax: 65.0,
		SeriesMin: 10,
		SeriesMax: 20,
		Capacity:  2,
		PlayedOn:  time.Date(2026, 1, 17, 0, 0, 0, 0, time.UTC),
	}
}

func TestEvaluateEligibilityBounds(t *testing.T) {
	req := eligibilityRequest()

	cases := []struct {
		name        string
		rating      float64
		seriesRank  int
		admitted    bool
		wantReasons []string
	}{
		{name: "inside both ranges", rating: 60.0, seriesRank: 15, admitted: true},
		{name: "rating at min boundary", rating: 55.0, seriesRank: 15, admitted: true},
		{name: "rating at max boundary", rating: 65.0, seriesRank: 15, admitted: true},
		{name: "series at boundaries", rating: 60.0, seriesRank: 10, admitted: true},
		{name: "rating below", rating: 50.0, seriesRank: 15, wantReasons: []string{ReasonRatingOutOfRange}},
		{name: "series above", rating: 60.0, seriesRank: 21, wantReasons: []string{ReasonSeriesOutOfRange}},
		{name: "both out of range", rating: 70.0, seriesRank: 5, wantReasons: []string{ReasonRatingOutOfRange, ReasonSeriesOutOfRange}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := EvaluateEligibility(req, tc.rating, tc.seriesRank)
			if decision.Admitted != tc.admitted {
				t.Fatalf("admitted=%v, want %v (%+v)", decision.Admitted, tc.admitted, decision)
			}
			if len(decision.Reasons) != len(tc.wantReasons) {
				t.Fatalf("reasons=%v, want %v", decision.Reasons, tc.wantReasons)
			}
			for i, reason := range tc.wantReasons {
				if decision.Reasons[i] != reason {
					t.Fatalf("reasons=%v, want %v", decision.Reasons, tc.wantReasons)
				}
			}
		})
	}
}

func newEligibilityService(players []player.Player) (*EligibilityService, *memory.SubRequestRepository) {
	requests := memory.NewSubRequestRepository([]subrequest.Request{eligibilityRequest()})
	svc := NewEligibilityService(
		requests,
		memory.NewPlayerRepository(players),
		cache.NewStore(time.Minute),
		idgen.NewRandomGenerator(),
		logging.NewNop(),
	)
	return svc, requests
}

func TestJoinAdmitsEligiblePlayer(t *testing.T) {
	svc, requests := newEligibilityService([]player.Player{
		{ID: "p-1", LeagueID: "league-1", ExternalKey: "K", Name: "Denise Siegel", Rating: 55.0, SeriesRank: 17, IsActive: true},
	})
	ctx := t.Context()

	join, decision, err := svc.Join(ctx, "req-1", "p-1")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if !decision.Admitted {
		t.Fatalf("boundary rating must be admitted, got %+v", decision)
	}
	if join.RequestID != "req-1" || join.PlayerID != "p-1" {
		t.Fatalf("unexpected join row: %+v", join)
	}

	joins, err := requests.ListJoins(ctx, "req-1")
	if err != nil {
		t.Fatalf("list joins: %v", err)
	}
	if len(joins) != 1 {
		t.Fatalf("expected 1 persisted join, got %d", len(joins))
	}
}

func TestJoinRejectsOutOfRangeRating(t *testing.T) {
	svc, requests := newEligibilityService([]player.Player{
		{ID: "p-1", LeagueID: "league-1", ExternalKey: "K", Name: "Denise Siegel", Rating: 50.0, SeriesRank: 17, IsActive: true},
	})
	ctx := t.Context()

	_, decision, err := svc.Join(ctx, "req-1", "p-1")
	if err != nil {
		t.Fatalf("rejection is not an error: %v", err)
	}
	if decision.Admitted {
		t.Fatalf("rating 50.0 against [55,65] must reject")
	}
	if len(decision.Reasons) != 1 || decision.Reasons[0] != ReasonRatingOutOfRange {
		t.Fatalf("expected RATING_OUT_OF_RANGE, got %v", decision.Reasons)
	}

	joins, err := requests.ListJoins(ctx, "req-1")
	if err != nil {
		t.Fatalf("list joins: %v", err)
	}
	if len(joins) != 0 {
		t.Fatalf("rejected join must not persist, got %d", len(joins))
	}
}

func TestJoinShortCircuitsBeforeEvaluation(t *testing.T) {
	svc, requests := newEligibilityService([]player.Player{
		{ID: "p-1", LeagueID: "league-1", ExternalKey: "K", Name: "A", Rating: 60.0, SeriesRank: 15, IsActive: true},
		{ID: "p-2", LeagueID: "league-1", ExternalKey: "K2", Name: "B", Rating: 60.0, SeriesRank: 15, IsActive: true},
		{ID: "p-3", LeagueID: "league-1", ExternalKey: "K3", Name: "C", Rating: 60.0, SeriesRank: 15, IsActive: true},
	})
	ctx := t.Context()

	if _, _, err := svc.Join(ctx, "req-1", "p-1"); err != nil {
		t.Fatalf("first join: %v", err)
	}

	// Duplicate join short-circuits with a conflict.
	if _, _, err := svc.Join(ctx, "req-1", "p-1"); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate join must conflict, got %v", err)
	}

	if _, _, err := svc.Join(ctx, "req-1", "p-2"); err != nil {
		t.Fatalf("second join: %v", err)
	}

	// Capacity reached: the third player conflicts before evaluation.
	if _, _, err := svc.Join(ctx, "req-1", "p-3"); !errors.Is(err, ErrConflict) {
		t.Fatalf("join past capacity must conflict, got %v", err)
	}

	joins, err := requests.ListJoins(ctx, "req-1")
	if err != nil {
		t.Fatalf("list joins: %v", err)
	}
	if len(joins) != 2 {
		t.Fatalf("expected capacity joins only, got %d", len(joins))
	}
}

func TestJoinUnknownRequest(t *testing.T) {
	svc, _ := newEligibilityService(nil)

	_, _, err := svc.Join(t.Context(), "req-missing", "p-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
