package leaguesource

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rossfreedman/rally-sub003/internal/platform/logging"
	"github.com/rossfreedman/rally-sub003/internal/platform/resilience"
	"github.com/rossfreedman/rally-sub003/internal/usecase"
)

func TestFetchPlayersMapsFeedFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/leagues/North%20Shore/players" && r.URL.Path != "/leagues/North Shore/players" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		w.Header().Set("content-type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"name":"Denise Siegel(S)","player_id":"K","team":"17","series":"Series 17","scraped_at":"2026-01-10T08:00:00Z"},
			{"name":"Mike Lieberman","player_id":"nndz-200","team":"I","rating":61.5,"series":"Series 17"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		Token:   "secret",
		Logger:  logging.NewNop(),
	})

	records, err := client.FetchPlayers(t.Context(), "North Shore")
	if err != nil {
		t.Fatalf("fetch players: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.RawName != "Denise Siegel(S)" || first.ExternalKey != "K" || first.TeamLabel != "17" {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if first.Rating != nil {
		t.Fatalf("missing rating must stay nil, got %v", *first.Rating)
	}
	if first.ScrapedAt.IsZero() {
		t.Fatalf("scraped_at must be parsed")
	}

	second := records[1]
	if second.Rating == nil || *second.Rating != 61.5 {
		t.Fatalf("unexpected second record rating: %+v", second.Rating)
	}
}

func TestFetchMatchesMapsFeedFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("content-type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"season":"2025-2026","date":"2026-01-10","home_players":["K"],"away_players":["nndz-200"],"line":1,"home_score":2,"away_score":1,"source":"current"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Logger: logging.NewNop()})

	records, err := client.FetchMatches(t.Context(), "North Shore")
	if err != nil {
		t.Fatalf("fetch matches: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.Season != "2025-2026" || rec.Sequence != 1 || rec.HomeScore != 2 || rec.AwayScore != 1 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.MatchDate != time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected match date: %v", rec.MatchDate)
	}
}

func TestFetchFailsFastOnClientError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		MaxRetries: 3,
		Logger:     logging.NewNop(),
	})

	if _, err := client.FetchTracking(t.Context(), "North Shore"); err == nil {
		t.Fatalf("expected error for 404 response")
	}
	if calls != 1 {
		t.Fatalf("client errors must not retry, got %d calls", calls)
	}
}

func TestBuildFeedCurlPreviewMasksToken(t *testing.T) {
	preview := buildFeedCurlPreview("https://feed.example.com/leagues/North%20Shore/players", true)
	if preview != `curl 'https://feed.example.com/leagues/North%20Shore/players' -H 'accept: application/json' -H 'authorization: Bearer ***'` {
		t.Fatalf("unexpected curl preview: %s", preview)
	}

	preview = buildFeedCurlPreview("https://feed.example.com/leagues/x/matches", false)
	if strings.Contains(preview, "authorization") {
		t.Fatalf("tokenless preview must not carry an authorization header: %s", preview)
	}
}

func TestCircuitBreakerRejectsAfterFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		Logger:  logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	if _, err := client.FetchPlayers(t.Context(), "North Shore"); err == nil {
		t.Fatalf("expected failure from upstream 500")
	}

	_, err := client.FetchPlayers(t.Context(), "North Shore")
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("open breaker must reject with ErrDependencyUnavailable, got %v", err)
	}
}
