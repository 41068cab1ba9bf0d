package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rossfreedman/rally-sub003/internal/domain/league"
	"github.com/rossfreedman/rally-sub003/internal/domain/player"
	"github.com/rossfreedman/rally-sub003/internal/domain/scrape"
	"github.com/rossfreedman/rally-sub003/internal/infrastructure/repository/memory"
	idgen "github.com/rossfreedman/rally-sub003/internal/platform/id"
	"github.com/rossfreedman/rally-sub003/internal/platform/logging"
)

type stubRecordSource struct {
	players  []scrape.RawPlayerRecord
	matches  []scrape.RawMatchRecord
	tracking []scrape.RawTrackingRecord
}

func (s *stubRecordSource) FetchPlayers(_ context.Context, _ string) ([]scrape.RawPlayerRecord, error) {
	return s.players, nil
}

func (s *stubRecordSource) FetchMatches(_ context.Context, _ string) ([]scrape.RawMatchRecord, error) {
	return s.matches, nil
}

func (s *stubRecordSource) FetchTracking(_ context.Context, _ string) ([]scrape.RawTrackingRecord, error) {
	return s.tracking, nil
}

type reconcileFixture struct {
	service  *ReconcileService
	players  *memory.PlayerRepository
	matches  *memory.MatchRepository
	tracking *memory.TrackingRepository
	stints   player.StintRepository
	subs     *memory.SubAppearanceRepository
	source   *stubRecordSource
}

func newReconcileFixture(source *stubRecordSource) reconcileFixture {
	return newReconcileFixtureWithStints(source, memory.NewStintRepository(nil))
}

func newReconcileFixtureWithStints(source *stubRecordSource, stints player.StintRepository) reconcileFixture {
	players := memory.NewPlayerRepository(nil)
	subs := memory.NewSubAppearanceRepository()
	trackingRepo := memory.NewTrackingRepository(nil)
	unresolved := memory.NewUnresolvedRepository()
	audits := memory.NewMergeAuditRepository()
	matches := memory.NewMatchRepository(nil)
	leagues := memory.NewLeagueRepository([]league.League{
		{ID: "league-1", Label: "North Shore", Season: "2025-2026"},
	})
	gen := idgen.NewRandomGenerator()
	logger := logging.NewNop()

	identity := NewIdentityService(players, stints, subs, trackingRepo, unresolved, audits, gen, logger)
	service := NewReconcileService(
		SyncConfig{Enabled: true, BatchSize: 2, NormalizeWorkers: 2},
		source,
		leagues,
		players,
		matches,
		players,
		matches,
		trackingRepo,
		identity,
		memory.NewScopeLocker(),
		gen,
		logger,
	)

	return reconcileFixture{
		service:  service,
		players:  players,
		matches:  matches,
		tracking: trackingRepo,
		stints:   stints,
		subs:     subs,
		source:   source,
	}
}

func feedFixture() *stubRecordSource {
	day := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	return &stubRecordSource{
		players: []scrape.RawPlayerRecord{
			{RawName: "Denise Siegel", ExternalKey: "K", TeamLabel: "I", Rating: floatPtr(48.2), Series: "Series 17"},
			{RawName: "Denise Siegel(S)", ExternalKey: "K", TeamLabel: "17"},
			{RawName: "Mike Lieberman", ExternalKey: "nndz-200", TeamLabel: "17", Rating: floatPtr(61.0), Series: "Series 17"},
		},
		matches: []scrape.RawMatchRecord{
			{
				Season:      "2025-2026",
				MatchDate:   day,
				HomePlayers: []string{"K"},
				AwayPlayers: []string{"nndz-200"},
				Sequence:    1,
				HomeScore:   2,
				AwayScore:   1,
			},
		},
		tracking: []scrape.RawTrackingRecord{
			{ExternalKey: "nndz-200", TeamLabel: "17", TrackedOn: day, Kind: "injured"},
		},
	}
}

func TestRunSyncsAllKinds(t *testing.T) {
	fx := newReconcileFixture(feedFixture())

	result, err := fx.service.Run(t.Context(), RunInput{
		SyncData:   []string{"players", "matches", "tracking"},
		MaxWorkers: 1,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.FailedCount != 0 {
		t.Fatalf("expected no failed tasks, got %+v", result.Tasks)
	}
	if result.TaskCount != 3 {
		t.Fatalf("expected 3 tasks, got %d", result.TaskCount)
	}

	active, err := fx.players.ListActiveByLeague(t.Context(), "league-1")
	if err != nil {
		t.Fatalf("list players: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 canonical players (sub variant folded), got %d", len(active))
	}
	if fx.matches.Count() != 1 {
		t.Fatalf("expected 1 match row, got %d", fx.matches.Count())
	}
	if fx.tracking.Count() != 1 {
		t.Fatalf("expected 1 tracking row, got %d", fx.tracking.Count())
	}

	denise, found, err := fx.players.GetActiveByKey(t.Context(), "league-1", "K")
	if err != nil || !found {
		t.Fatalf("canonical row for key K missing: found=%v err=%v", found, err)
	}
	apps, err := fx.subs.ListByPlayer(t.Context(), denise.ID)
	if err != nil {
		t.Fatalf("list sub appearances: %v", err)
	}
	if len(apps) != 1 || apps[0].TeamID != "17" {
		t.Fatalf("expected one substitute appearance against team 17, got %+v", apps)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	fx := newReconcileFixture(feedFixture())
	ctx := t.Context()
	input := RunInput{SyncData: []string{"players", "matches"}, MaxWorkers: 1}

	if _, err := fx.service.Run(ctx, input); err != nil {
		t.Fatalf("first run: %v", err)
	}
	playersAfterFirst := len(fx.players.All())
	matchesAfterFirst := fx.matches.Count()

	second, err := fx.service.Run(ctx, input)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(fx.players.All()) != playersAfterFirst {
		t.Fatalf("second run created player rows: %d -> %d", playersAfterFirst, len(fx.players.All()))
	}
	if fx.matches.Count() != matchesAfterFirst {
		t.Fatalf("second run created match rows: %d -> %d", matchesAfterFirst, fx.matches.Count())
	}
	for _, task := range second.Tasks {
		if task.Status == syncStatusFailed {
			t.Fatalf("second run failed task: %+v", task)
		}
		if task.Records != 0 {
			t.Fatalf("second run over unchanged data must detect zero operations, got %+v", task)
		}
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	fx := newReconcileFixture(feedFixture())

	result, err := fx.service.Run(t.Context(), RunInput{
		SyncData: []string{"players", "matches", "tracking"},
		DryRun:   true,
	})
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}

	if result.FailedCount != 0 {
		t.Fatalf("expected no failures, got %+v", result.Tasks)
	}
	if got := len(fx.players.All()); got != 0 {
		t.Fatalf("dry run wrote %d player rows", got)
	}
	if fx.matches.Count() != 0 || fx.tracking.Count() != 0 {
		t.Fatalf("dry run wrote match or tracking rows")
	}
}

func TestRunRejectsUnknownKind(t *testing.T) {
	fx := newReconcileFixture(feedFixture())

	_, err := fx.service.Run(t.Context(), RunInput{SyncData: []string{"standings"}})
	if err == nil {
		t.Fatalf("expected error for unsupported sync_data")
	}
}

// flakyStintRepo fails the first failOpens Open calls, then delegates.
type flakyStintRepo struct {
	player.StintRepository
	failOpens int
}

func (r *flakyStintRepo) Open(ctx context.Context, stint player.TeamStint) error {
	if r.failOpens > 0 {
		r.failOpens--
		return errors.New("stint store unavailable")
	}
	return r.StintRepository.Open(ctx, stint)
}

func TestApplyPlayerChangesReplayKeepsStintHistory(t *testing.T) {
	fx := newReconcileFixture(&stubRecordSource{})
	ctx := t.Context()

	base := player.Player{
		ID:          "p-1",
		LeagueID:    "league-1",
		ExternalKey: "nndz-1",
		Name:        "Ann Moore",
		TeamID:      "17",
		IsActive:    true,
	}
	create := PlayerChangeSet{Creates: []player.Player{base}}
	for pass := 1; pass <= 2; pass++ {
		if _, err := fx.service.ApplyPlayerChanges(ctx, "league-1", "2025-2026", create); err != nil {
			t.Fatalf("apply create pass %d: %v", pass, err)
		}
	}

	stints, err := fx.stints.ListByPlayer(ctx, "p-1")
	if err != nil {
		t.Fatalf("list stints: %v", err)
	}
	if len(stints) != 1 || stints[0].EndedAt != nil || stints[0].TeamID != "17" {
		t.Fatalf("replayed create must keep a single open stint, got %+v", stints)
	}

	moved := base
	moved.TeamID = "I"
	update := PlayerChangeSet{Updates: []PlayerUpdate{{
		PlayerID: "p-1",
		After:    moved,
		Fields:   []FieldChange{{Field: "team_id", From: "17", To: "I"}},
	}}}
	for pass := 1; pass <= 2; pass++ {
		if _, err := fx.service.ApplyPlayerChanges(ctx, "league-1", "2025-2026", update); err != nil {
			t.Fatalf("apply team change pass %d: %v", pass, err)
		}
	}

	stints, err = fx.stints.ListByPlayer(ctx, "p-1")
	if err != nil {
		t.Fatalf("list stints: %v", err)
	}
	if len(stints) != 2 {
		t.Fatalf("expected exactly 2 stints after a replayed team change, got %+v", stints)
	}
	if stints[0].EndedAt == nil {
		t.Fatalf("first stint should be closed, got %+v", stints[0])
	}
	if stints[1].EndedAt != nil || stints[1].TeamID != "I" {
		t.Fatalf("second stint should be open on the new team, got %+v", stints[1])
	}
}

func TestRunRepairsStintHistoryAfterInterruptedRun(t *testing.T) {
	source := &stubRecordSource{players: []scrape.RawPlayerRecord{
		{RawName: "Mike Lieberman", ExternalKey: "nndz-200", TeamLabel: "17", Rating: floatPtr(61.0), Series: "Series 17"},
	}}
	stints := &flakyStintRepo{StintRepository: memory.NewStintRepository(nil), failOpens: 1}
	fx := newReconcileFixtureWithStints(source, stints)
	ctx := t.Context()
	input := RunInput{SyncData: []string{"players"}, MaxWorkers: 1}

	first, err := fx.service.Run(ctx, input)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.FailedCount != 1 {
		t.Fatalf("expected the interrupted run to report a failure, got %+v", first.Tasks)
	}
	if got := len(fx.players.All()); got != 1 {
		t.Fatalf("player row must persist independently of the stint write, got %d rows", got)
	}

	second, err := fx.service.Run(ctx, input)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.FailedCount != 0 {
		t.Fatalf("second run over unchanged data must repair history, got %+v", second.Tasks)
	}

	row, found, err := fx.players.GetActiveByKey(ctx, "league-1", "nndz-200")
	if err != nil || !found {
		t.Fatalf("canonical row missing: found=%v err=%v", found, err)
	}
	history, err := fx.stints.ListByPlayer(ctx, row.ID)
	if err != nil {
		t.Fatalf("list stints: %v", err)
	}
	if len(history) != 1 || history[0].EndedAt != nil || history[0].TeamID != "17" {
		t.Fatalf("expected the second run to open the missing stint, got %+v", history)
	}
}

func TestRunRegistersFirstSeenSubstituteAppearance(t *testing.T) {
	source := &stubRecordSource{players: []scrape.RawPlayerRecord{
		{RawName: "Jane Roe(S)", ExternalKey: "K9", TeamLabel: "17"},
	}}
	fx := newReconcileFixture(source)
	ctx := t.Context()
	input := RunInput{SyncData: []string{"players"}, MaxWorkers: 1}

	result, err := fx.service.Run(ctx, input)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.FailedCount != 0 {
		t.Fatalf("expected no failures, got %+v", result.Tasks)
	}

	row, found, err := fx.players.GetActiveByKey(ctx, "league-1", "K9")
	if err != nil || !found {
		t.Fatalf("substitute record must still create the canonical row: found=%v err=%v", found, err)
	}
	if row.Name != "Jane Roe" {
		t.Fatalf("expected marker stripped from stored name, got %q", row.Name)
	}

	apps, err := fx.subs.ListByPlayer(ctx, row.ID)
	if err != nil {
		t.Fatalf("list sub appearances: %v", err)
	}
	if len(apps) != 1 || apps[0].TeamID != "17" {
		t.Fatalf("expected one appearance against the visited team, got %+v", apps)
	}

	if _, err := fx.service.Run(ctx, input); err != nil {
		t.Fatalf("second run: %v", err)
	}
	apps, err = fx.subs.ListByPlayer(ctx, row.ID)
	if err != nil {
		t.Fatalf("list sub appearances: %v", err)
	}
	if len(apps) != 1 {
		t.Fatalf("replayed run must not double-count the appearance, got %+v", apps)
	}
}

func TestSubmitSyncTasksBalancesRejectedTask(t *testing.T) {
	var workers sync.WaitGroup
	ran := make(chan string, 2)

	calls := 0
	submit := func(task func()) error {
		calls++
		if calls > 1 {
			return errors.New("pool closed")
		}
		go task()
		return nil
	}

	tasks := []syncTask{
		{target: league.League{ID: "league-a"}, kind: syncDataPlayers},
		{target: league.League{ID: "league-b"}, kind: syncDataPlayers},
	}

	err := submitSyncTasks(submit, &workers, tasks, func(task syncTask) {
		ran <- task.target.ID
	})
	if err == nil {
		t.Fatalf("expected submit error to propagate")
	}

	// Must not hang: the rejected task released its wait-group slot and the
	// accepted task still finishes.
	workers.Wait()

	if got := <-ran; got != "league-a" {
		t.Fatalf("accepted task did not run, got %q", got)
	}
	if len(ran) != 0 {
		t.Fatalf("rejected task ran anyway")
	}
}

func TestRunDisabled(t *testing.T) {
	fx := newReconcileFixture(feedFixture())
	fx.service.cfg.Enabled = false

	_, err := fx.service.Run(t.Context(), RunInput{SyncData: []string{"players"}})
	if err == nil {
		t.Fatalf("expected dependency error when sync is disabled")
	}
}
